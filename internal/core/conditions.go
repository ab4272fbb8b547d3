// Copyright (c) 2025 COREGX. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package core

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/coregx/polysql/internal/dialects"
)

// Group keys recognized in structured conditions.
const (
	KeyOr  = "OR"
	KeyNot = "NOT"
)

// QueryOptions are the structured clauses appended to a statement.
//
// Where accepts a literal SQL string, a Where list, a map[string]any of
// column equalities (keys "OR" and "NOT" open groups, keys made of digits
// hold raw fragments) or a []string of raw fragments. Limit accepts nil or
// false (omitted), an integer, or a "count" / "offset,count" string.
type QueryOptions struct {
	Where  any
	Group  string
	Order  string
	Limit  any
	Params Params
}

// Cond is one entry of a structured condition. An empty Key marks a raw SQL
// fragment held in Value.
type Cond struct {
	Key   string
	Value any
}

// Where is an ordered list of conditions joined with AND.
type Where []Cond

// Raw returns a condition holding a literal SQL fragment.
func Raw(sql string) Cond {
	return Cond{Value: sql}
}

// Eq returns "key = :key" and registers value under ":key". Registering the
// same placeholder twice with different values is an error.
// A nil value compiles to "key IS NULL"; a value that is itself a placeholder
// token such as ":status" is referenced without being registered.
func Eq(key string, value any) Cond {
	return Cond{Key: key, Value: value}
}

// Or returns a parenthesized group whose items are joined with OR.
// Items may be raw strings, Cond values, Where lists or maps.
func Or(items ...any) Cond {
	return Cond{Key: KeyOr, Value: items}
}

// Not returns "NOT (a AND b ...)" over its items.
func Not(items ...any) Cond {
	return Cond{Key: KeyNot, Value: items}
}

// CompileOptions renders opts as "WHERE ... GROUP BY ... ORDER BY ... LIMIT ..."
// for the given backend and returns the parameters the fragment references:
// opts.Params plus every value registered by the where entries.
func CompileOptions(opts QueryOptions, kind dialects.Kind) (string, Params, error) {
	where, registered, err := compileWhere(opts.Where)
	if err != nil {
		return "", nil, err
	}

	params := opts.Params.Clone()
	for k, v := range registered {
		params[k] = v
	}

	var clauses []string
	if where != "" {
		clauses = append(clauses, "WHERE "+where)
	}
	if g := strings.TrimSpace(opts.Group); g != "" {
		clauses = append(clauses, "GROUP BY "+g)
	}
	if o := strings.TrimSpace(opts.Order); o != "" {
		clauses = append(clauses, "ORDER BY "+o)
	}
	limit, err := compileLimit(opts.Limit, kind)
	if err != nil {
		return "", nil, err
	}
	if limit != "" {
		clauses = append(clauses, limit)
	}

	return strings.Join(clauses, " "), params, nil
}

// compileWhere renders a where value as a bare condition without the WHERE keyword.
func compileWhere(where any) (string, Params, error) {
	params := Params{}
	var parts []string
	var err error

	switch w := where.(type) {
	case nil:
		return "", params, nil
	case string:
		return strings.TrimSpace(w), params, nil
	case Cond:
		parts, err = compileConds([]Cond{w}, params)
	case Where:
		parts, err = compileConds(w, params)
	case []Cond:
		parts, err = compileConds(w, params)
	case map[string]any:
		parts, err = compileConds(mapConds(w), params)
	case []string:
		parts = rawParts(w)
	case []any:
		parts, err = compileItems(w, params)
	default:
		return "", nil, invalidOption("unsupported where type %T", where)
	}
	if err != nil {
		return "", nil, err
	}
	return strings.Join(parts, " AND "), params, nil
}

// mapConds orders map entries by key so output is deterministic.
func mapConds(m map[string]any) []Cond {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conds := make([]Cond, 0, len(keys))
	for _, k := range keys {
		key := k
		if isDigits(k) {
			key = ""
		}
		conds = append(conds, Cond{Key: key, Value: m[k]})
	}
	return conds
}

func rawParts(frags []string) []string {
	parts := make([]string, 0, len(frags))
	for _, f := range frags {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}
	return parts
}

func compileConds(conds []Cond, params Params) ([]string, error) {
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		part, err := compileCond(c, params)
		if err != nil {
			return nil, err
		}
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts, nil
}

func compileCond(c Cond, params Params) (string, error) {
	key := strings.TrimSpace(c.Key)

	switch {
	case key == "":
		s, ok := c.Value.(string)
		if !ok {
			return "", invalidOption("raw condition must be a string, got %T", c.Value)
		}
		return strings.TrimSpace(s), nil
	case strings.EqualFold(key, KeyOr):
		inner, err := compileGroup(c.Value, params)
		if err != nil || len(inner) == 0 {
			return "", err
		}
		return "(" + strings.Join(inner, " OR ") + ")", nil
	case strings.EqualFold(key, KeyNot):
		inner, err := compileGroup(c.Value, params)
		if err != nil || len(inner) == 0 {
			return "", err
		}
		return "NOT (" + strings.Join(inner, " AND ") + ")", nil
	}

	switch {
	case c.Value == nil:
		return key + " IS NULL", nil
	case isPlaceholder(c.Value):
		return key + " = " + c.Value.(string), nil
	}
	name := placeholderName(key)
	if prev, ok := params[name]; ok && !reflect.DeepEqual(prev, c.Value) {
		return "", invalidOption("conflicting values for %s: %v and %v", name, prev, c.Value)
	}
	params[name] = c.Value
	return key + " = " + name, nil
}

// compileGroup renders the items of an OR/NOT group.
func compileGroup(v any, params Params) ([]string, error) {
	switch g := v.(type) {
	case string:
		return rawParts([]string{g}), nil
	case []string:
		return rawParts(g), nil
	case Where:
		return compileConds(g, params)
	case []Cond:
		return compileConds(g, params)
	case map[string]any:
		return compileConds(mapConds(g), params)
	case []any:
		return compileItems(g, params)
	}
	return nil, invalidOption("unsupported group type %T", v)
}

// compileItems renders heterogeneous group items. Nested lists and maps are
// AND-joined and parenthesized when they hold more than one condition.
func compileItems(items []any, params Params) ([]string, error) {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		var part string
		switch it := item.(type) {
		case string:
			part = strings.TrimSpace(it)
		case Cond:
			p, err := compileCond(it, params)
			if err != nil {
				return nil, err
			}
			part = p
		default:
			inner, err := compileGroup(item, params)
			if err != nil {
				return nil, err
			}
			part = strings.Join(inner, " AND ")
			if len(inner) > 1 {
				part = "(" + part + ")"
			}
		}
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts, nil
}

var offsetCount = regexp.MustCompile(`^(\d+)\s*,\s*(\d+)$`)

// compileLimit renders the LIMIT clause. PostgreSQL has no "LIMIT o, c" form
// and gets "LIMIT c OFFSET o" instead.
func compileLimit(limit any, kind dialects.Kind) (string, error) {
	switch l := limit.(type) {
	case nil:
		return "", nil
	case bool:
		if !l {
			return "", nil
		}
		return "", invalidOption("limit must be an integer or \"offset,count\", got true")
	case string:
		l = strings.TrimSpace(l)
		if l == "" {
			return "", nil
		}
		if isDigits(l) {
			return "LIMIT " + l, nil
		}
		m := offsetCount.FindStringSubmatch(l)
		if m == nil {
			return "", invalidOption("malformed limit %q", l)
		}
		if kind == dialects.PgSQL {
			return fmt.Sprintf("LIMIT %s OFFSET %s", m[2], m[1]), nil
		}
		return fmt.Sprintf("LIMIT %s, %s", m[1], m[2]), nil
	}

	rv := reflect.ValueOf(limit)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.Int() < 0 {
			return "", invalidOption("negative limit %d", rv.Int())
		}
		return "LIMIT " + strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "LIMIT " + strconv.FormatUint(rv.Uint(), 10), nil
	}
	return "", invalidOption("unsupported limit type %T", limit)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// requireWhere fails with ErrMissingWhere unless where compiles to a
// non-empty condition. Groups and fragments that compile to nothing count
// as missing.
func requireWhere(where any) error {
	compiled, _, err := compileWhere(where)
	if err != nil {
		return err
	}
	if compiled == "" {
		return ErrMissingWhere
	}
	return nil
}
