// Package optimizer turns EXPLAIN plans into index and maintenance
// suggestions. Suggestions are advisory and are only logged.
package optimizer

import (
	"fmt"
	"strings"

	"github.com/coregx/polysql/internal/analyzer"
	"github.com/coregx/polysql/internal/dialects"
	"github.com/coregx/polysql/internal/security"
)

// LargeScanRows is the estimated row count above which a full scan also
// suggests refreshing table statistics.
const LargeScanRows = 10000

// SuggestionType categorizes a suggestion.
type SuggestionType string

const (
	// SuggestionFullScan reports a full table scan.
	SuggestionFullScan SuggestionType = "full_scan"
	// SuggestionIndexMissing proposes an index on filtered columns.
	SuggestionIndexMissing SuggestionType = "index_missing"
	// SuggestionFunctionIndex proposes an expression index for a column wrapped in a function.
	SuggestionFunctionIndex SuggestionType = "function_index"
	// SuggestionAnalyze proposes refreshing planner statistics.
	SuggestionAnalyze SuggestionType = "analyze"
)

// Severity indicates how urgent a suggestion is.
type Severity string

// Severities.
const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Suggestion is one actionable recommendation.
type Suggestion struct {
	Type     SuggestionType
	Severity Severity
	Message  string
	// SQL fixes the issue when run by an operator. Empty when there is no single fix.
	SQL string
}

// String returns a formatted string representation of the suggestion.
func (s Suggestion) String() string {
	if s.SQL != "" {
		return fmt.Sprintf("%s: %s\n  Fix: %s", s.Severity, s.Message, s.SQL)
	}
	return fmt.Sprintf("%s: %s", s.Severity, s.Message)
}

// Advise inspects plan for query and returns suggestions in d's syntax.
// Plans without a full scan yield nothing.
func Advise(d dialects.Dialect, query string, plan *analyzer.Plan) []Suggestion {
	if plan == nil || !plan.FullScan {
		return nil
	}

	table := security.TableName(query)
	if table == "" {
		return []Suggestion{{
			Type:     SuggestionFullScan,
			Severity: SeverityWarning,
			Message:  "statement performs a full table scan",
		}}
	}

	out := []Suggestion{{
		Type:     SuggestionFullScan,
		Severity: SeverityWarning,
		Message:  fmt.Sprintf("statement scans every row of %s", table),
	}}

	where := ParseWhere(query)
	if cols := where.Columns(); len(cols) > 0 {
		out = append(out, Suggestion{
			Type:     SuggestionIndexMissing,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("consider an index on %s(%s)", table, strings.Join(cols, ", ")),
			SQL:      indexSQL(d, table, cols),
		})
	}
	for _, c := range where.Conditions {
		if c.Function == "" {
			continue
		}
		out = append(out, Suggestion{
			Type:     SuggestionFunctionIndex,
			Severity: SeverityInfo,
			Message:  fmt.Sprintf("%s(%s) cannot use a plain index on %s", c.Function, c.Column, c.Column),
			SQL:      functionIndexSQL(d, table, c),
		})
	}

	if plan.EstimatedRows >= LargeScanRows {
		out = append(out, Suggestion{
			Type:     SuggestionAnalyze,
			Severity: SeverityInfo,
			Message:  fmt.Sprintf("large scan (%d estimated rows), planner statistics may be stale", plan.EstimatedRows),
			SQL:      analyzeSQL(d, table),
		})
	}
	return out
}

// IndexName returns idx_<table>_<col1>_<col2>... with dots replaced.
func IndexName(table string, parts ...string) string {
	name := "idx_" + table
	for _, p := range parts {
		name += "_" + p
	}
	return strings.ToLower(strings.ReplaceAll(name, ".", "_"))
}

func indexSQL(d dialects.Dialect, table string, cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = dialects.QuoteName(d, c)
	}
	return fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
		IndexName(table, cols...), dialects.QuoteName(d, table), strings.Join(quoted, ", "))
}

// functionIndexSQL builds an expression index. MySQL wants the expression in
// its own parentheses.
func functionIndexSQL(d dialects.Dialect, table string, c Condition) string {
	expr := fmt.Sprintf("%s(%s)", strings.ToUpper(c.Function), dialects.QuoteName(d, c.Column))
	if d.Kind() == dialects.MySQL {
		expr = "(" + expr + ")"
	}
	return fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
		IndexName(table, c.Function, c.Column), dialects.QuoteName(d, table), expr)
}

func analyzeSQL(d dialects.Dialect, table string) string {
	if d.Kind() == dialects.MySQL {
		return "ANALYZE TABLE " + dialects.QuoteName(d, table)
	}
	return "ANALYZE " + dialects.QuoteName(d, table)
}
