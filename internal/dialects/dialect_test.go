package dialects

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"mysql", MySQL},
		{"MariaDB", MySQL},
		{"pgsql", PgSQL},
		{"postgres", PgSQL},
		{"postgresql", PgSQL},
		{"sqlite", SQLite},
		{" sqlite3 ", SQLite},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseKind("oracle")
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestKindValid(t *testing.T) {
	for _, k := range Kinds() {
		assert.True(t, k.Valid(), k)
	}
	assert.False(t, Kind("mssql").Valid())
	assert.False(t, Kind("").Valid())
}

func TestFor(t *testing.T) {
	for _, k := range Kinds() {
		d, err := For(k)
		require.NoError(t, err)
		assert.Equal(t, k, d.Kind())
	}

	_, err := For("oracle")
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Panics(t, func() { MustFor("oracle") })
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, "`users`", MustFor(MySQL).QuoteIdentifier("users"))
	assert.Equal(t, "`we``ird`", MustFor(MySQL).QuoteIdentifier("we`ird"))
	assert.Equal(t, `"users"`, MustFor(PgSQL).QuoteIdentifier("users"))
	assert.Equal(t, `"we""ird"`, MustFor(SQLite).QuoteIdentifier(`we"ird`))
}

func TestPlaceholder(t *testing.T) {
	assert.Equal(t, "?", MustFor(MySQL).Placeholder(3))
	assert.Equal(t, "$3", MustFor(PgSQL).Placeholder(3))
	assert.Equal(t, "?", MustFor(SQLite).Placeholder(1))
}

func TestLikeOperator(t *testing.T) {
	assert.Equal(t, "LIKE", MustFor(MySQL).LikeOperator())
	assert.Equal(t, "ILIKE", MustFor(PgSQL).LikeOperator())
	assert.Equal(t, "LIKE", MustFor(SQLite).LikeOperator())
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "DATE_FORMAT(created, '%Y-%m-%d')", MustFor(MySQL).FormatDate("created", "%Y-%m-%d"))
	assert.Equal(t, "TO_CHAR(created, 'YYYY-MM-DD')", MustFor(PgSQL).FormatDate("created", "YYYY-MM-DD"))
	assert.Equal(t, "strftime('%Y', created)", MustFor(SQLite).FormatDate("created", "%Y"))
	assert.Equal(t, "TO_CHAR(c, 'HH24 \"o''clock\"')", MustFor(PgSQL).FormatDate("c", `HH24 "o'clock"`))
}

func TestTruncateSQL(t *testing.T) {
	assert.Equal(t, "TRUNCATE TABLE logs", MustFor(MySQL).TruncateSQL("logs"))
	assert.Equal(t, "TRUNCATE TABLE logs", MustFor(PgSQL).TruncateSQL("logs"))
	assert.Equal(t, "DELETE FROM logs", MustFor(SQLite).TruncateSQL("logs"))
}
