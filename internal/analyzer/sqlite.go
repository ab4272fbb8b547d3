package analyzer

import "strings"

// parseSQLitePlan reads EXPLAIN QUERY PLAN detail lines such as
//   - "SCAN users" (full table scan)
//   - "SEARCH users USING INDEX email_idx (email=?)"
//   - "SEARCH users USING INTEGER PRIMARY KEY (rowid=?)"
//   - "SCAN articles_fts VIRTUAL TABLE INDEX 0:M1"
func parseSQLitePlan(lines []string) *Plan {
	plan := &Plan{}
	for _, line := range lines {
		upper := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.Contains(upper, "USING COVERING INDEX "):
			markIndex(plan, wordAfter(line, "USING COVERING INDEX "))
		case strings.Contains(upper, "USING INDEX "):
			markIndex(plan, wordAfter(line, "USING INDEX "))
		case strings.Contains(upper, "USING INTEGER PRIMARY KEY"), strings.Contains(upper, "USING PRIMARY KEY"):
			markIndex(plan, "PRIMARY KEY")
		case strings.Contains(upper, "USING AUTOMATIC"):
			markIndex(plan, "AUTOMATIC INDEX")
		case strings.Contains(upper, "VIRTUAL TABLE INDEX"):
			markIndex(plan, "VIRTUAL TABLE")
		case strings.HasPrefix(upper, "SCAN "):
			plan.FullScan = true
		}
	}
	return plan
}

func markIndex(plan *Plan, name string) {
	plan.UsesIndex = true
	if plan.IndexName == "" {
		plan.IndexName = name
	}
}

// wordAfter returns the word following marker in s, matched case-insensitively.
// The word ends at whitespace or an opening parenthesis.
func wordAfter(s, marker string) string {
	idx := strings.Index(strings.ToUpper(s), strings.ToUpper(marker))
	if idx < 0 {
		return ""
	}
	rest := strings.TrimSpace(s[idx+len(marker):])
	if end := strings.IndexAny(rest, " ("); end >= 0 {
		rest = rest[:end]
	}
	return strings.Trim(rest, "`\"")
}
