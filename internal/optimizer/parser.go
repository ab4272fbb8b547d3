package optimizer

import (
	"regexp"
	"strings"

	"github.com/coregx/polysql/internal/dialects"
)

// Where is the filter part of a statement reduced to its column conditions.
type Where struct {
	Conditions []Condition
	// Or is set when the filter joins conditions with OR more than with AND.
	Or bool
}

// Condition is one column comparison.
type Condition struct {
	Column   string
	Operator string
	// Function wraps the column, as in LOWER(email) = ?.
	Function string
}

var (
	whereKeyword   = regexp.MustCompile(`(?i)\bWHERE\b`)
	whereEnd       = regexp.MustCompile(`(?i)\b(?:GROUP\s+BY|ORDER\s+BY|LIMIT|HAVING|RETURNING)\b|;`)
	connective     = regexp.MustCompile(`(?i)\s+(AND|OR)\s+`)
	stringLiteral  = regexp.MustCompile(`'(?:[^'\\]|\\.|'')*'`)
	operatorSuffix = `\s*(=|<>|!=|>=|<=|>|<|(?i:NOT\s+LIKE|I?LIKE|NOT\s+IN|IN|IS|BETWEEN)\b)`
	columnName     = "([`\"\\[]?[A-Za-z_][\\w]*[`\"\\]]?(?:\\.[`\"\\[]?[A-Za-z_][\\w]*[`\"\\]]?)*)"
	funcCondition  = regexp.MustCompile(`^\(*\s*([A-Za-z_]\w*)\s*\(\s*` + columnName + `\s*\)` + operatorSuffix)
	plainCondition = regexp.MustCompile(`^\(*\s*(?:NOT\s+)?` + columnName + operatorSuffix)
)

var notColumns = map[string]bool{
	"and": true, "or": true, "not": true, "null": true, "true": true,
	"false": true, "case": true, "when": true, "then": true, "else": true,
	"end": true, "exists": true,
}

// ParseWhere extracts the column conditions of query's WHERE clause.
// The parse is heuristic: literals are ignored and nested logic is flattened.
func ParseWhere(query string) Where {
	text := whereText(query)
	if text == "" {
		return Where{}
	}

	var w Where
	ands, ors := 0, 0
	for _, m := range connective.FindAllStringSubmatch(text, -1) {
		if strings.EqualFold(m[1], "OR") {
			ors++
		} else {
			ands++
		}
	}
	w.Or = ors > ands

	for _, part := range connective.Split(text, -1) {
		if c, ok := parseCondition(strings.TrimSpace(part)); ok {
			w.Conditions = append(w.Conditions, c)
		}
	}
	return w
}

// Columns returns the distinct plain columns in order of appearance.
func (w Where) Columns() []string {
	seen := make(map[string]bool, len(w.Conditions))
	var out []string
	for _, c := range w.Conditions {
		if c.Function != "" || seen[c.Column] {
			continue
		}
		seen[c.Column] = true
		out = append(out, c.Column)
	}
	return out
}

func whereText(query string) string {
	loc := whereKeyword.FindStringIndex(query)
	if loc == nil {
		return ""
	}
	text := query[loc[1]:]
	if end := whereEnd.FindStringIndex(text); end != nil {
		text = text[:end[0]]
	}
	return strings.TrimSpace(stringLiteral.ReplaceAllString(text, "?"))
}

func parseCondition(part string) (Condition, bool) {
	if m := funcCondition.FindStringSubmatch(part); m != nil {
		col := columnOnly(m[2])
		if col == "" {
			return Condition{}, false
		}
		return Condition{Column: col, Operator: normalizeOperator(m[3]), Function: strings.ToLower(m[1])}, true
	}
	if m := plainCondition.FindStringSubmatch(part); m != nil {
		col := columnOnly(m[1])
		if col == "" {
			return Condition{}, false
		}
		return Condition{Column: col, Operator: normalizeOperator(m[2])}, true
	}
	return Condition{}, false
}

// columnOnly drops quoting and any table qualifier.
func columnOnly(name string) string {
	name = dialects.UnescapeIdentifier(name)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if notColumns[strings.ToLower(name)] {
		return ""
	}
	return name
}

func normalizeOperator(op string) string {
	return strings.ToUpper(strings.Join(strings.Fields(op), " "))
}
