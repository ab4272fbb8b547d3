package analyzer

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/coregx/polysql/internal/dialects"
)

func TestChooseMode(t *testing.T) {
	mysql8 := Version{Major: 8, Minor: 0, Patch: 35}
	mysql56 := Version{Major: 5, Minor: 6}
	maria := Version{Major: 10, Minor: 11, MariaDB: true}

	tests := []struct {
		name      string
		kind      dialects.Kind
		operation string
		server    Version
		want      Mode
	}{
		{"sqlite select", dialects.SQLite, "SELECT", Version{}, ModePlan},
		{"sqlite update", dialects.SQLite, "UPDATE", Version{}, ModePlan},
		{"pgsql select", dialects.PgSQL, "SELECT", Version{}, ModeAnalyze},
		{"pgsql insert", dialects.PgSQL, "INSERT", Version{}, ModePlan},
		{"mysql 8 select", dialects.MySQL, "SELECT", mysql8, ModeAnalyze},
		{"mysql 5.7 select", dialects.MySQL, "SELECT", Version{Major: 5, Minor: 7}, ModeAnalyze},
		{"mysql 5.6 select", dialects.MySQL, "SELECT", mysql56, ModePlan},
		{"mysql 8 delete", dialects.MySQL, "DELETE", mysql8, ModePlan},
		{"mariadb select", dialects.MySQL, "SELECT", maria, ModePlan},
		{"unknown version select", dialects.MySQL, "SELECT", Version{}, ModePlan},
		{"transaction control", dialects.PgSQL, "SAVEPOINT", Version{}, ModeNone},
		{"ddl", dialects.SQLite, "CREATE", Version{}, ModeNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChooseMode(tt.kind, tt.operation, tt.server))
		})
	}
}

func TestExplainSQL(t *testing.T) {
	tests := []struct {
		kind dialects.Kind
		mode Mode
		want string
	}{
		{dialects.SQLite, ModePlan, "EXPLAIN QUERY PLAN SELECT 1"},
		{dialects.SQLite, ModeAnalyze, "EXPLAIN QUERY PLAN SELECT 1"},
		{dialects.PgSQL, ModePlan, "EXPLAIN (FORMAT JSON) SELECT 1"},
		{dialects.PgSQL, ModeAnalyze, "EXPLAIN (ANALYZE, FORMAT JSON) SELECT 1"},
		{dialects.MySQL, ModePlan, "EXPLAIN FORMAT=JSON SELECT 1"},
		{dialects.MySQL, ModeAnalyze, "EXPLAIN ANALYZE SELECT 1"},
	}
	for _, tt := range tests {
		got, err := ExplainSQL(tt.kind, tt.mode, "SELECT 1")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := ExplainSQL(dialects.SQLite, ModeNone, "SELECT 1")
	assert.ErrorIs(t, err, ErrNotExplainable)

	_, err = ExplainSQL("oracle", ModePlan, "SELECT 1")
	assert.ErrorIs(t, err, dialects.ErrUnsupported)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "none", ModeNone.String())
	assert.Equal(t, "plan", ModePlan.String())
	assert.Equal(t, "analyze", ModeAnalyze.String())
}

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
		CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT, status INTEGER);
		CREATE INDEX idx_users_email ON users(email);
	`)
	require.NoError(t, err)
	return db
}

func TestAnalyzer_Explain_SQLite(t *testing.T) {
	db := openSQLite(t)
	a := New(dialects.SQLite)
	ctx := context.Background()

	t.Run("full scan", func(t *testing.T) {
		plan, err := a.Explain(ctx, db, ModePlan, "SELECT * FROM users WHERE status = ?", []any{1})
		require.NoError(t, err)
		assert.True(t, plan.FullScan)
		assert.False(t, plan.UsesIndex)
		assert.Equal(t, dialects.SQLite, plan.Backend)
		assert.Equal(t, "EXPLAIN QUERY PLAN SELECT * FROM users WHERE status = ?", plan.Statement)
		assert.NotEmpty(t, plan.Raw)
	})

	t.Run("index lookup", func(t *testing.T) {
		plan, err := a.Explain(ctx, db, ModePlan, "SELECT id FROM users WHERE email = ?", []any{"a@b.c"})
		require.NoError(t, err)
		assert.True(t, plan.UsesIndex)
		assert.Equal(t, "idx_users_email", plan.IndexName)
		assert.False(t, plan.FullScan)
	})

	t.Run("inside transaction", func(t *testing.T) {
		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback() }()

		plan, err := a.Explain(ctx, tx, ModePlan, "SELECT * FROM users WHERE id = ?", []any{1})
		require.NoError(t, err)
		assert.True(t, plan.UsesIndex)
	})

	t.Run("broken statement", func(t *testing.T) {
		_, err := a.Explain(ctx, db, ModePlan, "SELECT * FROM missing", nil)
		assert.Error(t, err)
	})
}

func TestParseSQLitePlan(t *testing.T) {
	plan := parseSQLitePlan([]string{
		"SCAN articles_fts VIRTUAL TABLE INDEX 0:M1",
		"SEARCH articles USING INTEGER PRIMARY KEY (rowid=?)",
	})
	assert.True(t, plan.UsesIndex)
	assert.Equal(t, "VIRTUAL TABLE", plan.IndexName)
	assert.False(t, plan.FullScan)

	plan = parseSQLitePlan([]string{"SEARCH users USING COVERING INDEX idx_cover (status=?)"})
	assert.Equal(t, "idx_cover", plan.IndexName)
}

func TestParsePostgresPlan(t *testing.T) {
	raw := `[{"Plan": {"Node Type": "Nested Loop", "Total Cost": 16.5, "Plan Rows": 3,
		"Actual Rows": 3, "Actual Loops": 1,
		"Plans": [
			{"Node Type": "Seq Scan", "Relation Name": "articles", "Actual Rows": 10, "Actual Loops": 1},
			{"Node Type": "Index Scan", "Index Name": "photos_pkey", "Actual Rows": 1, "Actual Loops": 3}
		]}, "Execution Time": 1.5}]`

	plan, err := parsePostgresPlan(raw, true)
	require.NoError(t, err)
	assert.InDelta(t, 16.5, plan.Cost, 0.001)
	assert.Equal(t, int64(3), plan.EstimatedRows)
	assert.True(t, plan.FullScan)
	assert.True(t, plan.UsesIndex)
	assert.Equal(t, "photos_pkey", plan.IndexName)
	assert.Equal(t, int64(3+10+3), plan.ActualRows)
	assert.Equal(t, int64(1500), plan.ActualTime.Microseconds())

	plan, err = parsePostgresPlan(raw, false)
	require.NoError(t, err)
	assert.Zero(t, plan.ActualRows)
	assert.Zero(t, plan.ActualTime)

	_, err = parsePostgresPlan(`[]`, false)
	assert.Error(t, err)
	_, err = parsePostgresPlan(`not json`, false)
	assert.Error(t, err)
}

func TestParseMySQLPlan(t *testing.T) {
	raw := `{"query_block": {"select_id": 1, "cost_info": {"query_cost": "2.40"},
		"nested_loop": [
			{"table": {"table_name": "p", "access_type": "ALL", "rows_examined_per_scan": 12}},
			{"table": {"table_name": "c", "access_type": "eq_ref", "key": "PRIMARY", "rows_examined_per_scan": 1}}
		]}}`

	plan, err := parseMySQLPlan(raw)
	require.NoError(t, err)
	assert.InDelta(t, 2.4, plan.Cost, 0.001)
	assert.True(t, plan.FullScan)
	assert.True(t, plan.UsesIndex)
	assert.Equal(t, "PRIMARY", plan.IndexName)
	assert.Equal(t, int64(13), plan.EstimatedRows)

	// MariaDB output has no cost_info.
	plan, err = parseMySQLPlan(`{"query_block": {"select_id": 1, "table": {"table_name": "t", "access_type": "fulltext", "key": "ft_title"}}}`)
	require.NoError(t, err)
	assert.Zero(t, plan.Cost)
	assert.Equal(t, "ft_title", plan.IndexName)

	_, err = parseMySQLPlan("{")
	assert.Error(t, err)
}

func TestParseMySQLTree(t *testing.T) {
	lines := []string{
		"-> Nested loop inner join  (cost=4.70 rows=3) (actual time=0.050..0.120 rows=3 loops=1)\n" +
			"    -> Table scan on p  (cost=0.55 rows=3) (actual time=0.020..0.030 rows=3 loops=1)\n" +
			"    -> Single-row index lookup on c using PRIMARY (id=p.category_id)  (cost=0.28 rows=1) (actual time=0.010..0.010 rows=1 loops=3)",
	}
	plan := parseMySQLTree(lines)
	assert.True(t, plan.FullScan)
	assert.True(t, plan.UsesIndex)
	assert.Equal(t, "PRIMARY", plan.IndexName)
	assert.InDelta(t, 4.7, plan.Cost, 0.001)
	assert.Equal(t, int64(3), plan.EstimatedRows)
	assert.Equal(t, int64(3), plan.ActualRows)
	assert.Equal(t, int64(120), plan.ActualTime.Microseconds())
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		raw     string
		major   int
		minor   int
		patch   int
		mariadb bool
	}{
		{"8.0.35", 8, 0, 35, false},
		{"5.7.44-log", 5, 7, 44, false},
		{"10.11.6-MariaDB-0+deb12u1", 10, 11, 6, true},
		{"5.5.5-10.3.39-MariaDB", 10, 3, 39, true},
		{"16.2", 16, 2, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v, err := ParseVersion(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.major, v.Major)
			assert.Equal(t, tt.minor, v.Minor)
			assert.Equal(t, tt.patch, v.Patch)
			assert.Equal(t, tt.mariadb, v.MariaDB)
			assert.Equal(t, tt.raw, v.String())
		})
	}

	_, err := ParseVersion("unknown")
	assert.Error(t, err)
}

func TestVersionAtLeast(t *testing.T) {
	assert.True(t, Version{Major: 5, Minor: 7}.AtLeast(5, 7))
	assert.True(t, Version{Major: 8}.AtLeast(5, 7))
	assert.False(t, Version{Major: 5, Minor: 6}.AtLeast(5, 7))
	assert.False(t, Version{Major: 4, Minor: 9}.AtLeast(5, 7))
	assert.Equal(t, "8.0.1", Version{Major: 8, Patch: 1}.String())
}
