// Copyright (c) 2025 COREGX. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package core

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/coregx/polysql/internal/dialects"
)

// mergeSearchOptions merges caller options into generated search clauses.
// Caller SQL is written in the current format and is rewritten to the
// backend's quoting first, since search statements run in the backend format.
func (db *DB) mergeSearchOptions(internal, external QueryOptions) (QueryOptions, error) {
	merged, err := mergeOptions(internal, external)
	if err != nil {
		return QueryOptions{}, err
	}
	if db.format == db.kind {
		return merged, nil
	}
	// Generated SQL only uses the backend's own quoting, which the rewrite leaves alone.
	rewrite := func(s string) string { return dialects.RewriteIdentifiers(s, db.format, db.kind) }
	if w, ok := merged.Where.(string); ok {
		merged.Where = rewrite(w)
	}
	merged.Group = rewrite(merged.Group)
	merged.Order = rewrite(merged.Order)
	return merged, nil
}

// mergeOptions combines generated clauses (internal) with caller options
// (external) into one flat QueryOptions:
//
//   - WHERE is "internal AND (external)" when both are set.
//   - ORDER BY comes from internal when it has one, else from external.
//   - GROUP BY and LIMIT come from external.
//   - External parameters that collide with internal ones are renamed to
//     <name>_ext_<n> and every reference in the external clauses follows.
//   - Params are the union; internal wins on any remaining collision.
func mergeOptions(internal, external QueryOptions) (QueryOptions, error) {
	external = trimOptions(external)

	inWhere, inParams, err := compileWhere(internal.Where)
	if err != nil {
		return QueryOptions{}, err
	}
	ownParams := internal.Params.Clone()
	for k, v := range inParams {
		ownParams[k] = v
	}

	exWhere, exRegistered, err := compileWhere(external.Where)
	if err != nil {
		return QueryOptions{}, err
	}
	exParams := external.Params.Clone()
	for k, v := range exRegistered {
		exParams[k] = v
	}

	group, order := external.Group, external.Order
	n := 0
	for _, name := range exParams.Keys() {
		if _, clash := ownParams[name]; !clash {
			continue
		}
		renamed := nextExtName(name, &n, ownParams, exParams)
		token := regexp.MustCompile(regexp.QuoteMeta(name) + `\b`)
		exWhere = token.ReplaceAllLiteralString(exWhere, renamed)
		group = token.ReplaceAllLiteralString(group, renamed)
		order = token.ReplaceAllLiteralString(order, renamed)
		exParams[renamed] = exParams[name]
		delete(exParams, name)
	}

	out := QueryOptions{
		Group:  group,
		Limit:  external.Limit,
		Order:  strings.TrimSpace(internal.Order),
		Params: exParams,
	}
	if out.Order == "" {
		out.Order = order
	}
	switch {
	case inWhere != "" && exWhere != "":
		out.Where = inWhere + " AND (" + exWhere + ")"
	case inWhere != "":
		out.Where = inWhere
	case exWhere != "":
		out.Where = exWhere
	}
	for k, v := range ownParams {
		out.Params[k] = v
	}
	return out, nil
}

// nextExtName returns the first <name>_ext_<n> unused by either side,
// advancing n past it.
func nextExtName(name string, n *int, sets ...Params) string {
	for {
		candidate := name + "_ext_" + strconv.Itoa(*n)
		*n++
		free := true
		for _, s := range sets {
			if _, used := s[candidate]; used {
				free = false
				break
			}
		}
		if free {
			return candidate
		}
	}
}

// trimOptions trims surrounding whitespace from every string option value.
func trimOptions(opts QueryOptions) QueryOptions {
	if s, ok := opts.Where.(string); ok {
		opts.Where = strings.TrimSpace(s)
	}
	opts.Group = strings.TrimSpace(opts.Group)
	opts.Order = strings.TrimSpace(opts.Order)
	if s, ok := opts.Limit.(string); ok {
		opts.Limit = strings.TrimSpace(s)
	}
	if len(opts.Params) > 0 {
		params := make(Params, len(opts.Params))
		for k, v := range opts.Params {
			if s, ok := v.(string); ok {
				v = strings.TrimSpace(s)
			}
			params[strings.TrimSpace(k)] = v
		}
		opts.Params = params
	}
	return opts
}
