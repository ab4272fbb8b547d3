package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/polysql/internal/dialects"
)

func TestCompileOptions(t *testing.T) {
	tests := []struct {
		name       string
		opts       QueryOptions
		kind       dialects.Kind
		wantSQL    string
		wantParams Params
	}{
		{
			name:       "map of equalities",
			opts:       QueryOptions{Where: map[string]any{"a": 1, "b": 2}},
			wantSQL:    "WHERE a = :a AND b = :b",
			wantParams: Params{":a": 1, ":b": 2},
		},
		{
			name:       "or group of raw fragments",
			opts:       QueryOptions{Where: map[string]any{"OR": []string{"x>1", "y>2"}}},
			wantSQL:    "WHERE (x>1 OR y>2)",
			wantParams: Params{},
		},
		{
			name:       "not group",
			opts:       QueryOptions{Where: Where{Not("deleted = 1", Eq("status", "spam"))}},
			wantSQL:    "WHERE NOT (deleted = 1 AND status = :status)",
			wantParams: Params{":status": "spam"},
		},
		{
			name:       "string used verbatim",
			opts:       QueryOptions{Where: " id > :min ", Params: Params{"min": 3}},
			wantSQL:    "WHERE id > :min",
			wantParams: Params{":min": 3},
		},
		{
			name: "ordered conditions keep their order",
			opts: QueryOptions{Where: Where{
				Eq("status", "active"),
				Raw("created_at > NOW() - INTERVAL 1 DAY"),
				Or(Eq("author_id", 7), "featured = 1"),
			}},
			wantSQL:    "WHERE status = :status AND created_at > NOW() - INTERVAL 1 DAY AND (author_id = :author_id OR featured = 1)",
			wantParams: Params{":status": "active", ":author_id": 7},
		},
		{
			name:       "digit keys are raw fragments",
			opts:       QueryOptions{Where: map[string]any{"0": "a IS NOT NULL", "b": "x"}},
			wantSQL:    "WHERE a IS NOT NULL AND b = :b",
			wantParams: Params{":b": "x"},
		},
		{
			name:       "nil compiles to IS NULL",
			opts:       QueryOptions{Where: Where{Eq("parent_id", nil)}},
			wantSQL:    "WHERE parent_id IS NULL",
			wantParams: Params{},
		},
		{
			name:       "placeholder token is referenced, not registered",
			opts:       QueryOptions{Where: map[string]any{"status": ":wanted"}, Params: Params{":wanted": "live"}},
			wantSQL:    "WHERE status = :wanted",
			wantParams: Params{":wanted": "live"},
		},
		{
			name:       "qualified key gets a flat placeholder",
			opts:       QueryOptions{Where: Where{Eq("p.id", 5)}},
			wantSQL:    "WHERE p.id = :p_id",
			wantParams: Params{":p_id": 5},
		},
		{
			name:       "raw fragment list",
			opts:       QueryOptions{Where: []string{"a = 1", " ", "b = 2"}},
			wantSQL:    "WHERE a = 1 AND b = 2",
			wantParams: Params{},
		},
		{
			name:       "nested list inside or is parenthesized",
			opts:       QueryOptions{Where: Where{Or([]any{"a = 1", "b = 2"}, "c = 3")}},
			wantSQL:    "WHERE ((a = 1 AND b = 2) OR c = 3)",
			wantParams: Params{},
		},
		{
			name:       "clause order is fixed",
			opts:       QueryOptions{Limit: 10, Order: "id DESC", Group: "status", Where: "id > 0"},
			wantSQL:    "WHERE id > 0 GROUP BY status ORDER BY id DESC LIMIT 10",
			wantParams: Params{},
		},
		{
			name:       "offset and count",
			opts:       QueryOptions{Limit: "20, 10"},
			kind:       dialects.MySQL,
			wantSQL:    "LIMIT 20, 10",
			wantParams: Params{},
		},
		{
			name:       "offset and count on postgres",
			opts:       QueryOptions{Limit: "20,10"},
			kind:       dialects.PgSQL,
			wantSQL:    "LIMIT 10 OFFSET 20",
			wantParams: Params{},
		},
		{
			name:       "false limit is omitted",
			opts:       QueryOptions{Limit: false},
			wantSQL:    "",
			wantParams: Params{},
		},
		{
			name:       "count string",
			opts:       QueryOptions{Limit: "5"},
			wantSQL:    "LIMIT 5",
			wantParams: Params{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind := tt.kind
			if kind == "" {
				kind = dialects.SQLite
			}
			sql, params, err := CompileOptions(tt.opts, kind)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantParams, params)
		})
	}
}

func TestCompileOptions_Errors(t *testing.T) {
	tests := []struct {
		name string
		opts QueryOptions
	}{
		{"where of unsupported type", QueryOptions{Where: 42}},
		{"raw condition that is not a string", QueryOptions{Where: Where{{Value: 3}}}},
		{"or group of unsupported type", QueryOptions{Where: Where{{Key: KeyOr, Value: 3.5}}}},
		{"limit true", QueryOptions{Limit: true}},
		{"malformed limit", QueryOptions{Limit: "ten"}},
		{"negative limit", QueryOptions{Limit: -1}},
		{"float limit", QueryOptions{Limit: 1.5}},
		{"same key with different values", QueryOptions{Where: Where{Eq("id", 1), Or(Eq("id", 2), "x > 1")}}},
		{"same placeholder from different keys", QueryOptions{Where: Where{Eq("p.id", 1), Eq("p_id", 2)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := CompileOptions(tt.opts, dialects.MySQL)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidOption)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestCompileOptions_DoesNotMutateCallerParams(t *testing.T) {
	caller := Params{"a": 1}
	_, params, err := CompileOptions(QueryOptions{Where: map[string]any{"b": 2}, Params: caller}, dialects.SQLite)
	require.NoError(t, err)
	assert.Equal(t, Params{"a": 1}, caller)
	assert.Equal(t, Params{":a": 1, ":b": 2}, params)
}

func TestCompileOptions_RepeatedKeySameValue(t *testing.T) {
	frag, params, err := CompileOptions(QueryOptions{Where: Where{Eq("id", 1), Or(Eq("id", 1), "x > 1")}}, dialects.SQLite)
	require.NoError(t, err)
	assert.Equal(t, "WHERE id = :id AND (id = :id OR x > 1)", frag)
	assert.Equal(t, Params{":id": 1}, params)
}

func TestRequireWhere(t *testing.T) {
	missing := []struct {
		name  string
		where any
	}{
		{"nil", nil},
		{"blank string", "  "},
		{"empty list", Where{}},
		{"empty map", map[string]any{}},
		{"blank fragments", []string{" "}},
		{"blank raw condition", Where{Raw("")}},
		{"empty or group", map[string]any{"OR": []string{}}},
		{"empty not group", Where{Not()}},
		{"blank item", []any{"  "}},
	}
	for _, tt := range missing {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, requireWhere(tt.where), ErrMissingWhere)
		})
	}

	assert.NoError(t, requireWhere("id = 1"))
	assert.NoError(t, requireWhere(Where{Eq("id", 1)}))
	assert.NoError(t, requireWhere(map[string]any{"id": 1}))

	err := requireWhere(42)
	assert.ErrorIs(t, err, ErrInvalidOption)
	assert.NotErrorIs(t, err, ErrMissingWhere)
}
