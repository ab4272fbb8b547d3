package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/polysql/internal/cache"
	"github.com/coregx/polysql/internal/dialects"
)

func TestTranslator_MemoizesAndPersists(t *testing.T) {
	c := cache.NewMemory(8)
	tr, err := NewTranslator(c)
	require.NoError(t, err)

	assert.Equal(t, "YYYY-MM-DD", tr.DateFormat("%Y-%m-%d", dialects.MySQL, dialects.PgSQL))
	assert.Equal(t, "YYYY-MM-DD", tr.DateFormat("%Y-%m-%d", dialects.MySQL, dialects.PgSQL))
	assert.Equal(t, "%Y-%m-%d", tr.DateFormat("%Y-%m-%d", dialects.MySQL, dialects.MySQL), "same dialect is not memoized")
	assert.Equal(t, "db.articles", tr.Unescape("`db`.`articles`"))

	dates, idents := tr.Len()
	assert.Equal(t, 1, dates)
	assert.Equal(t, 1, idents)

	require.NoError(t, tr.Flush())
	data, ok := c.Valid(dateFormatCacheKey, TranslatorVersion)
	require.True(t, ok)
	var memo map[string]string
	require.NoError(t, json.Unmarshal(data, &memo))
	assert.Equal(t, "YYYY-MM-DD", memo["pgsql|mysql|%Y-%m-%d"])

	again, err := NewTranslator(c)
	require.NoError(t, err)
	dates, idents = again.Len()
	assert.Equal(t, 1, dates)
	assert.Equal(t, 1, idents)
}

func TestTranslator_IgnoresOtherVersions(t *testing.T) {
	c := cache.NewMemory(8)
	require.NoError(t, c.Update(dateFormatCacheKey, "polysql-translator-0", []byte(`{"pgsql|mysql|%Y":"stale"}`)))

	tr, err := NewTranslator(c)
	require.NoError(t, err)
	assert.Equal(t, "YYYY", tr.DateFormat("%Y", dialects.MySQL, dialects.PgSQL))
}

func TestTranslator_CorruptMemo(t *testing.T) {
	c := cache.NewMemory(8)
	require.NoError(t, c.Update(identifierCacheKey, TranslatorVersion, []byte("[")))

	tr, err := NewTranslator(c)
	require.Error(t, err)
	require.NotNil(t, tr)
	assert.Equal(t, "title", tr.Unescape(`"title"`))
}

func TestTranslator_FlushIsNoopWhenClean(t *testing.T) {
	c := cache.NewMemory(8)
	tr, err := NewTranslator(c)
	require.NoError(t, err)

	require.NoError(t, tr.Flush())
	assert.Equal(t, 0, c.Stats().Size)
}

func TestTranslator_NilCache(t *testing.T) {
	tr, err := NewTranslator(nil)
	require.NoError(t, err)
	assert.Equal(t, "%Y", tr.DateFormat("YYYY", dialects.PgSQL, dialects.SQLite))
	assert.NoError(t, tr.Flush())
}
