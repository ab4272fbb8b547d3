package dialects

import (
	"regexp"
	"strings"
)

// RewriteIdentifiers rewrites identifier quoting in sql authored for from so it
// can run on to. It is a textual transform: single-quoted literals are skipped,
// but a double-quoted string literal in MySQL or SQLite text is indistinguishable
// from a quoted identifier and will be rewritten as one.
func RewriteIdentifiers(sql string, from, to Kind) string {
	if from == to || sql == "" {
		return sql
	}

	var rewrite func(string) string
	switch from {
	case MySQL:
		// Backticks become standard double quotes for both targets.
		rewrite = func(s string) string { return replaceUnescaped(s, '`', '"') }
	case PgSQL:
		if to == SQLite {
			return sql
		}
		rewrite = func(s string) string { return replaceUnescaped(s, '"', '`') }
	case SQLite:
		if to == MySQL {
			rewrite = sqliteToMySQL
		} else {
			rewrite = sqliteToPgSQL
		}
	default:
		return sql
	}

	return mapOutsideLiterals(sql, rewrite)
}

// replaceUnescaped replaces every from byte not preceded by a backslash.
func replaceUnescaped(s string, from, to byte) string {
	if strings.IndexByte(s, from) < 0 {
		return s
	}
	b := []byte(s)
	for i := range b {
		if b[i] == from && (i == 0 || b[i-1] != '\\') {
			b[i] = to
		}
	}
	return string(b)
}

var (
	// sqliteIdentPart matches one bracket- or double-quote-delimited identifier.
	// Schema-qualified names are two parts joined by a dot and are rewritten part by part.
	sqliteIdentPart = regexp.MustCompile(`\[([^\]]*)\]|"((?:[^"\\]|\\.)*)"`)
	bracketIdent    = regexp.MustCompile(`\[([^\]]*)\]`)
	backslashEscape = regexp.MustCompile(`\\(.)`)
)

func sqliteToMySQL(s string) string {
	return sqliteIdentPart.ReplaceAllStringFunc(s, func(m string) string {
		name := m[1 : len(m)-1]
		if m[0] == '"' {
			name = backslashEscape.ReplaceAllString(name, "$1")
		}
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	})
}

func sqliteToPgSQL(s string) string {
	return bracketIdent.ReplaceAllStringFunc(s, func(m string) string {
		name := m[1 : len(m)-1]
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	})
}

// segment is a run of SQL text that is either inside or outside a single-quoted literal.
type segment struct {
	text    string
	literal bool
}

// splitLiterals cuts sql into literal and non-literal segments.
// Both doubled quotes and backslash escapes are treated as escaped quotes.
func splitLiterals(sql string) []segment {
	var segs []segment
	start := 0
	for i := 0; i < len(sql); i++ {
		if sql[i] != '\'' {
			continue
		}
		if i > start {
			segs = append(segs, segment{text: sql[start:i]})
		}
		j := i + 1
		for j < len(sql) {
			if sql[j] == '\\' {
				j += 2
				continue
			}
			if sql[j] == '\'' {
				if j+1 < len(sql) && sql[j+1] == '\'' {
					j += 2
					continue
				}
				break
			}
			j++
		}
		end := min(j+1, len(sql))
		segs = append(segs, segment{text: sql[i:end], literal: true})
		start = end
		i = end - 1
	}
	if start < len(sql) {
		segs = append(segs, segment{text: sql[start:]})
	}
	return segs
}

// mapOutsideLiterals applies fn to every non-literal segment of sql.
func mapOutsideLiterals(sql string, fn func(string) string) string {
	if !strings.Contains(sql, "'") {
		return fn(sql)
	}
	var sb strings.Builder
	sb.Grow(len(sql))
	for _, seg := range splitLiterals(sql) {
		if seg.literal {
			sb.WriteString(seg.text)
		} else {
			sb.WriteString(fn(seg.text))
		}
	}
	return sb.String()
}

var identQuotes = strings.NewReplacer("`", "", `"`, "", "[", "", "]", "")

// UnescapeIdentifier strips the quoting characters of every supported dialect
// from an identifier, keeping schema qualification: `db`.`t` becomes db.t.
func UnescapeIdentifier(s string) string {
	return identQuotes.Replace(strings.TrimSpace(s))
}

var plainIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reserved holds words that must be quoted when used as identifiers in any
// supported dialect.
var reserved = map[string]struct{}{
	"add": {}, "all": {}, "alter": {}, "and": {}, "as": {}, "asc": {}, "between": {},
	"by": {}, "case": {}, "check": {}, "column": {}, "constraint": {}, "create": {},
	"cross": {}, "default": {}, "delete": {}, "desc": {}, "distinct": {}, "drop": {},
	"else": {}, "exists": {}, "from": {}, "full": {}, "group": {}, "having": {},
	"in": {}, "index": {}, "inner": {}, "insert": {}, "into": {}, "is": {}, "join": {},
	"key": {}, "left": {}, "like": {}, "limit": {}, "match": {}, "not": {}, "null": {},
	"offset": {}, "on": {}, "or": {}, "order": {}, "outer": {}, "primary": {},
	"rank": {}, "references": {}, "right": {}, "select": {}, "set": {}, "table": {},
	"then": {}, "to": {}, "union": {}, "unique": {}, "update": {}, "user": {},
	"using": {}, "values": {}, "when": {}, "where": {}, "with": {},
}

// IsReserved reports whether word is a reserved SQL keyword.
func IsReserved(word string) bool {
	_, ok := reserved[strings.ToLower(word)]
	return ok
}

// QuoteName quotes each dot-separated part of name with d, leaving plain
// non-reserved identifiers and "*" bare so generated SQL stays readable.
func QuoteName(d Dialect, name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "*" || (plainIdent.MatchString(p) && !IsReserved(p)) {
			parts[i] = p
			continue
		}
		parts[i] = d.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}
