package dialects

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslateDateFormat(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		from, to Kind
		want     string
	}{
		{"mysql to pgsql date", "%Y-%m-%d", MySQL, PgSQL, "YYYY-MM-DD"},
		{"mysql to sqlite date", "%Y-%m-%d", MySQL, SQLite, "%Y-%m-%d"},
		{"mysql to sqlite minutes", "%H:%i:%s", MySQL, SQLite, "%H:%M:%S"},
		{"mysql to pgsql datetime", "%d/%m/%Y %H:%i", MySQL, PgSQL, "DD/MM/YYYY HH24:MI"},
		{"mysql names to pgsql", "%W, %M %e", MySQL, PgSQL, "FMDay, FMMonth FMDD"},
		{"mysql time to pgsql", "%T", MySQL, PgSQL, "HH24:MI:SS"},
		{"mysql without sqlite equivalent", "%M %Y", MySQL, SQLite, " %Y"},
		{"mysql percent literal", "100%% %Y", MySQL, SQLite, "100%% %Y"},
		{"pgsql to mysql", "YYYY-MM-DD HH24:MI:SS", PgSQL, MySQL, "%Y-%m-%d %H:%i:%S"},
		{"pgsql to sqlite", "DD.MM.YYYY", PgSQL, SQLite, "%d.%m.%Y"},
		{"pgsql month name to mysql", "FMMonth YYYY", PgSQL, MySQL, "%M %Y"},
		{"pgsql upper case names to mysql", "DAY, DD MONTH YYYY", PgSQL, MySQL, "%W, %d %M %Y"},
		{"pgsql lower case names to mysql", "dy mon", PgSQL, MySQL, "%a %b"},
		{"pgsql fill mode upper case to mysql", "FMMONTH FMday", PgSQL, MySQL, "%M %W"},
		{"pgsql abbreviations to mysql", "DY MON month", PgSQL, MySQL, "%a %b %M"},
		{"pgsql lower case meridiem to sqlite", "HH12:MI am", PgSQL, SQLite, "%I:%M %p"},
		{"pgsql quoted literal", `YYYY "year"`, PgSQL, MySQL, "%Y year"},
		{"pgsql iso week to sqlite", "IW", PgSQL, SQLite, ""},
		{"sqlite to mysql", "%Y-%m-%d %H:%M", SQLite, MySQL, "%Y-%m-%d %H:%i"},
		{"sqlite to pgsql", "%Y%m%d", SQLite, PgSQL, "YYYYMMDD"},
		{"sqlite unix to pgsql", "%s", SQLite, PgSQL, ""},
		{"sqlite literal text to pgsql", "%Y at %H", SQLite, PgSQL, `YYYY" at "HH24`},
		{"identity", "%Y", MySQL, MySQL, "%Y"},
		{"empty", "", MySQL, PgSQL, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TranslateDateFormat(tt.format, tt.from, tt.to))
		})
	}
}

func TestTranslateDateFormat_UnknownTokenIsDropped(t *testing.T) {
	assert.Equal(t, "-", TranslateDateFormat("%Q-", MySQL, PgSQL))
}

func TestPgsqlTokenOrder(t *testing.T) {
	// Longer tokens must win over their prefixes.
	pos := func(tok string) int {
		for i, v := range pgsqlTokenOrder {
			if v == tok {
				return i
			}
		}
		return -1
	}
	assert.Less(t, pos("Month"), pos("Mon"))
	assert.Less(t, pos("DDD"), pos("DD"))
	assert.Less(t, pos("DD"), pos("D"))
	assert.Less(t, pos("HH24"), pos("HH"))
	assert.Less(t, pos("MONTH"), pos("MON"))
	assert.Less(t, pos("month"), pos("mon"))
	assert.Less(t, pos("FMDAY"), pos("DAY"))
}
