package logger

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// DefaultMask replaces sensitive parameter values in log output.
const DefaultMask = "***REDACTED***"

// maxValueLen caps the rendered length of a single parameter value.
const maxValueLen = 100

// Sanitizer masks named statement parameters whose names look sensitive.
// Parameter names are matched on word boundaries, so ":user_password" and
// ":password" are masked while ":passwordless_count" is not.
type Sanitizer struct {
	maskValue string
	patterns  []*regexp.Regexp
}

// NewSanitizer creates a sanitizer for the given field names.
// With no fields a default set of common credential names is used.
func NewSanitizer(sensitiveFields ...string) *Sanitizer {
	if len(sensitiveFields) == 0 {
		sensitiveFields = []string{
			"password", "passwd", "pwd",
			"token", "api_key", "apikey", "api_token",
			"secret", "auth", "authorization",
			"credit_card", "card_number", "cvv", "cvc",
			"ssn", "private_key",
		}
	}

	patterns := make([]*regexp.Regexp, 0, len(sensitiveFields))
	for _, field := range sensitiveFields {
		// Underscores count as word characters, so split on them explicitly.
		patterns = append(patterns, regexp.MustCompile(`(?i)(^|[^a-z0-9])`+regexp.QuoteMeta(field)+`($|[^a-z0-9])`))
	}

	return &Sanitizer{maskValue: DefaultMask, patterns: patterns}
}

// IsSensitive reports whether a parameter name matches a sensitive field.
func (s *Sanitizer) IsSensitive(name string) bool {
	name = strings.TrimPrefix(name, ":")
	for _, p := range s.patterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

// MaskParams returns a copy of params with sensitive values replaced.
// The input map is not modified.
func (s *Sanitizer) MaskParams(params map[string]any) map[string]any {
	if len(params) == 0 {
		return params
	}
	masked := make(map[string]any, len(params))
	for k, v := range params {
		if s.IsSensitive(k) {
			masked[k] = s.maskValue
			continue
		}
		masked[k] = v
	}
	return masked
}

// FormatParams renders params as "{k=v, ...}" with keys sorted and
// sensitive values masked, truncating long values.
func (s *Sanitizer) FormatParams(params map[string]any) string {
	if len(params) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		v := params[k]
		if s.IsSensitive(k) {
			v = s.maskValue
		}
		parts[i] = k + "=" + formatValue(v)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	str := fmt.Sprintf("%v", v)
	if len(str) > maxValueLen {
		return str[:maxValueLen] + "..."
	}
	return str
}
