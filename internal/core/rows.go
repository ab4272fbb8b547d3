package core

import (
	"database/sql"
	"fmt"
	"sort"
	"strconv"
)

// Row is one result row keyed by column name. Byte slices returned by the
// driver are converted to strings; NULL is nil.
type Row map[string]any

// String returns the value for column as a string, or "" when it is NULL or missing.
func (r Row) String(column string) string {
	v, ok := r[column]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Int64 returns the value for column as an int64. Strings are parsed;
// NULL, missing and unparsable values yield 0.
func (r Row) Int64(column string) int64 {
	switch v := r[column].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}

// IsNull reports whether column is NULL or missing.
func (r Row) IsNull(column string) bool {
	v, ok := r[column]
	return !ok || v == nil
}

// Has reports whether column is present, NULL or not.
func (r Row) Has(column string) bool {
	_, ok := r[column]
	return ok
}

// Columns returns the column names in sorted order.
func (r Row) Columns() []string {
	cols := make([]string, 0, len(r))
	for k := range r {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// scanRows reads every row and closes rows. The result is never nil.
func scanRows(rows *sql.Rows) ([]Row, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := []Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
