package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/polysql/internal/dialects"
)

func TestMergeOptions_RenamesCollidingParams(t *testing.T) {
	internal := QueryOptions{
		Where:  "MATCH(title) AGAINST(:search)",
		Params: Params{":search": "term"},
	}
	external := QueryOptions{
		Where:  map[string]any{"status": ":search"},
		Params: Params{":search": "active"},
	}

	merged, err := mergeOptions(internal, external)
	require.NoError(t, err)
	assert.Equal(t, "MATCH(title) AGAINST(:search) AND (status = :search_ext_0)", merged.Where)
	assert.Equal(t, Params{":search": "term", ":search_ext_0": "active"}, merged.Params)
}

func TestMergeOptions_RenamesInEveryClause(t *testing.T) {
	internal := QueryOptions{
		Where:  "(title LIKE :search_string_0)",
		Params: Params{":search_string_0": "%go%", ":search_string_0_ext_0": "taken"},
	}
	external := QueryOptions{
		Where:  Where{Eq("author", ":search_string_0"), Raw("score > :search_string_0")},
		Group:  "FIELD(kind, :search_string_0)",
		Order:  "FIELD(id, :search_string_0)",
		Params: Params{"search_string_0": 5},
	}

	merged, err := mergeOptions(internal, external)
	require.NoError(t, err)
	assert.Equal(t,
		"(title LIKE :search_string_0) AND (author = :search_string_0_ext_1 AND score > :search_string_0_ext_1)",
		merged.Where)
	assert.Equal(t, "FIELD(kind, :search_string_0_ext_1)", merged.Group)
	assert.Equal(t, "FIELD(id, :search_string_0_ext_1)", merged.Order, "external order applies when internal has none")
	assert.Equal(t, 5, merged.Params[":search_string_0_ext_1"])
	assert.Equal(t, "%go%", merged.Params[":search_string_0"])
}

func TestMergeOptions_RegisteredParamsCollide(t *testing.T) {
	internal := QueryOptions{Where: "x = :a AND y = :b", Params: Params{":a": 1, ":b": 2}}
	external := QueryOptions{Where: map[string]any{"a": "ext-a", "b": "ext-b"}}

	merged, err := mergeOptions(internal, external)
	require.NoError(t, err)
	assert.Equal(t, "x = :a AND y = :b AND (a = :a_ext_0 AND b = :b_ext_1)", merged.Where)
	assert.Equal(t, Params{":a": 1, ":b": 2, ":a_ext_0": "ext-a", ":b_ext_1": "ext-b"}, merged.Params)
}

func TestMergeOptions_Precedence(t *testing.T) {
	internal := QueryOptions{
		Where: "tsv_weighted @@ plainto_tsquery(:search)",
		Order: "ts_rank(tsv_weighted, plainto_tsquery(:search)) DESC",
		Group: "ignored",
		Limit: 99,
	}
	external := QueryOptions{
		Order: "  created_at DESC ",
		Group: " author_id ",
		Limit: " 10,5 ",
	}

	merged, err := mergeOptions(internal, external)
	require.NoError(t, err)
	assert.Equal(t, "tsv_weighted @@ plainto_tsquery(:search)", merged.Where)
	assert.Equal(t, "ts_rank(tsv_weighted, plainto_tsquery(:search)) DESC", merged.Order)
	assert.Equal(t, "author_id", merged.Group)
	assert.Equal(t, "10,5", merged.Limit)

	sql, _, err := CompileOptions(merged, dialects.PgSQL)
	require.NoError(t, err)
	assert.Equal(t,
		"WHERE tsv_weighted @@ plainto_tsquery(:search) GROUP BY author_id ORDER BY ts_rank(tsv_weighted, plainto_tsquery(:search)) DESC LIMIT 5 OFFSET 10",
		sql)
}

func TestMergeOptions_ExternalOnly(t *testing.T) {
	merged, err := mergeOptions(QueryOptions{}, QueryOptions{Where: " status = 'live' ", Params: Params{"p": " padded "}})
	require.NoError(t, err)
	assert.Equal(t, "status = 'live'", merged.Where)
	assert.Equal(t, Params{":p": "padded"}, merged.Params)
}

func TestMergeOptions_InvalidExternalWhere(t *testing.T) {
	_, err := mergeOptions(QueryOptions{}, QueryOptions{Where: 12})
	assert.ErrorIs(t, err, ErrInvalidOption)
}
