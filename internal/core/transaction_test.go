package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/polysql/internal/dialects"
)

func countArticles(t *testing.T, db *DB) int64 {
	t.Helper()
	require.NoError(t, db.Query(context.Background(), "SELECT COUNT(*) AS n FROM articles", nil))
	return db.ResultRow().Int64("n")
}

func TestTransaction_Commit(t *testing.T) {
	log := &recordLogger{}
	db := newTestDB(t, dialects.SQLite, WithLogger(log))
	ctx := context.Background()

	require.NoError(t, db.Begin(ctx, "import"))
	assert.True(t, db.InTransaction())
	seedArticles(t, db, "one", "two")
	require.NoError(t, db.Commit("import"))
	assert.False(t, db.InTransaction())

	assert.Equal(t, int64(2), countArticles(t, db))

	entry, ok := log.find("transaction committed")
	require.True(t, ok)
	assert.Equal(t, "import", entry.arg("label"))
}

func TestTransaction_Rollback(t *testing.T) {
	db := newTestDB(t, dialects.SQLite)
	ctx := context.Background()

	require.NoError(t, db.Begin(ctx, "discard"))
	seedArticles(t, db, "one")
	assert.Equal(t, int64(1), countArticles(t, db), "reads inside the transaction see its writes")
	require.NoError(t, db.Rollback("discard"))

	assert.Equal(t, int64(0), countArticles(t, db))
}

func TestTransaction_NoNesting(t *testing.T) {
	db := newTestDB(t, dialects.SQLite)
	ctx := context.Background()

	require.NoError(t, db.Begin(ctx, "outer"))
	err := db.Begin(ctx, "inner")
	assert.ErrorIs(t, err, ErrTxActive)
	assert.Contains(t, err.Error(), "outer")
	require.NoError(t, db.Rollback("outer"))
}

func TestTransaction_WithoutBegin(t *testing.T) {
	db := newTestDB(t, dialects.SQLite)
	assert.ErrorIs(t, db.Commit("x"), ErrNoTx)
	assert.ErrorIs(t, db.Rollback("x"), ErrNoTx)
}

func TestTransaction_LastInsertID(t *testing.T) {
	db := newTestDB(t, dialects.SQLite)
	ctx := context.Background()

	require.NoError(t, db.Begin(ctx, "ids"))
	seedArticles(t, db, "one", "two")
	assert.Equal(t, int64(2), db.LastInsertID())
	require.NoError(t, db.Commit("ids"))
}
