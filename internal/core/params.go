package core

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/coregx/polysql/internal/dialects"
)

// Params holds named parameter values. Keys carry the leading colon used in
// SQL (":id"); keys without it are accepted on lookup.
//
// Example:
//
//	db.Query(ctx, "SELECT * FROM photos WHERE album_id = :album", polysql.Params{":album": 7})
type Params map[string]any

// Get returns the value for name, with or without its leading colon.
func (p Params) Get(name string) (any, bool) {
	name = strings.TrimPrefix(name, ":")
	if v, ok := p[":"+name]; ok {
		return v, true
	}
	v, ok := p[name]
	return v, ok
}

// Clone returns a copy of p with every key in colon form.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[paramKey(k)] = v
	}
	return out
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// paramKey normalizes a parameter name to its colon form.
func paramKey(name string) string {
	if strings.HasPrefix(name, ":") {
		return name
	}
	return ":" + name
}

var nonWordChars = regexp.MustCompile(`\W+`)

// placeholderName derives a placeholder from a column key: identifier quotes
// are stripped and non-word characters become underscores, so "p.id" and
// "`p`.`id`" both yield ":p_id".
func placeholderName(key string) string {
	name := nonWordChars.ReplaceAllString(dialects.UnescapeIdentifier(key), "_")
	return ":" + strings.Trim(name, "_")
}

var placeholderToken = regexp.MustCompile(`^:\w+$`)

// isPlaceholder reports whether v is a bare placeholder token such as ":name".
func isPlaceholder(v any) bool {
	s, ok := v.(string)
	return ok && placeholderToken.MatchString(s)
}

// bindNamed rewrites :name placeholders in query to the dialect's positional
// form and returns the values in order. Single-quoted literals, quoted
// identifiers and "::" casts are left alone. A name used twice is bound twice.
func bindNamed(query string, params Params, d dialects.Dialect) (string, []any, error) {
	if !strings.Contains(query, ":") {
		return query, nil, nil
	}

	var (
		sb   strings.Builder
		args []any
	)
	sb.Grow(len(query))

	for i := 0; i < len(query); {
		c := query[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			end := skipQuoted(query, i)
			sb.WriteString(query[i:end])
			i = end
		case c == ':' && i+1 < len(query) && query[i+1] == ':':
			sb.WriteString("::")
			i += 2
		case c == ':' && i+1 < len(query) && isNameStart(query[i+1]):
			j := i + 1
			for j < len(query) && isNameChar(query[j]) {
				j++
			}
			name := query[i:j]
			v, ok := params.Get(name)
			if !ok {
				return "", nil, fmt.Errorf("%w: missing value for parameter %s", ErrInvalidOption, name)
			}
			args = append(args, v)
			sb.WriteString(d.Placeholder(len(args)))
			i = j
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String(), args, nil
}

// skipQuoted returns the index just past the quoted run starting at start.
// Doubled quotes and backslash escapes stay inside the run.
func skipQuoted(s string, start int) int {
	q := s[start]
	for i := start + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if q != '`' {
				i++
			}
		case q:
			if i+1 < len(s) && s[i+1] == q {
				i++
				continue
			}
			return i + 1
		}
	}
	return len(s)
}

func isNameStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isNameChar(c byte) bool {
	return isNameStart(c) || c >= '0' && c <= '9'
}
