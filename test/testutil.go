//go:build integration
// +build integration

package test

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO required)

	"github.com/coregx/polysql"
)

// DatabaseSetup encapsulates database connection and cleanup.
type DatabaseSetup struct {
	DB        *polysql.DB
	Container testcontainers.Container
	Kind      polysql.Kind
	// Events collects every statement the DB executed.
	Events *[]polysql.QueryEvent
}

// Close cleans up database resources.
func (ds *DatabaseSetup) Close() {
	if ds.DB != nil {
		ds.DB.Close() //nolint:errcheck
	}
	if ds.Container != nil {
		ds.Container.Terminate(context.Background()) //nolint:errcheck
	}
}

// Authored returns the statements as authored since the last call.
func (ds *DatabaseSetup) Authored() []string {
	out := make([]string, len(*ds.Events))
	for i, e := range *ds.Events {
		out[i] = e.Authored
	}
	*ds.Events = (*ds.Events)[:0]
	return out
}

func wrap(t *testing.T, driver, dsn string, kind polysql.Kind, container testcontainers.Container) *DatabaseSetup {
	t.Helper()
	sqlDB, err := sql.Open(driver, dsn)
	require.NoError(t, err)

	events := []polysql.QueryEvent{}
	db, err := polysql.WrapDB(sqlDB, kind, polysql.WithQueryHook(func(_ context.Context, e polysql.QueryEvent) {
		events = append(events, e)
	}))
	require.NoError(t, err)
	return &DatabaseSetup{DB: db, Container: container, Kind: kind, Events: &events}
}

// SetupPostgreSQLTestDB creates a PostgreSQL test database.
// Uses testcontainers if available, falls back to env DSN.
func SetupPostgreSQLTestDB(t *testing.T) *DatabaseSetup {
	ctx := context.Background()

	if dsn := os.Getenv("POSTGRES_TEST_DSN"); dsn != "" {
		return wrap(t, "postgres", dsn, polysql.PgSQL, nil)
	}

	pgContainer, err := postgres.Run(
		ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skip("Docker not available for PostgreSQL integration tests: " + err.Error())
	}

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return wrap(t, "postgres", dsn, polysql.PgSQL, pgContainer)
}

// SetupMySQLTestDB creates a MySQL test database.
// Uses testcontainers if available, falls back to env DSN.
func SetupMySQLTestDB(t *testing.T) *DatabaseSetup {
	ctx := context.Background()

	if dsn := os.Getenv("MYSQL_TEST_DSN"); dsn != "" {
		if !strings.Contains(dsn, "parseTime=true") {
			if strings.Contains(dsn, "?") {
				dsn += "&parseTime=true"
			} else {
				dsn += "?parseTime=true"
			}
		}
		return wrap(t, "mysql", dsn, polysql.MySQL, nil)
	}

	mysqlContainer, err := mysql.Run(
		ctx,
		"mysql:8.0",
		mysql.WithDatabase("testdb"),
		mysql.WithUsername("user"),
		mysql.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("port: 3306  MySQL Community Server").
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skip("Docker not available for MySQL integration tests: " + err.Error())
	}

	dsn, err := mysqlContainer.ConnectionString(ctx)
	require.NoError(t, err)
	return wrap(t, "mysql", dsn+"?parseTime=true", polysql.MySQL, mysqlContainer)
}

// SetupSQLiteTestDB creates an in-memory SQLite database.
// Always works, no external dependencies.
func SetupSQLiteTestDB(t *testing.T) *DatabaseSetup {
	return wrap(t, "sqlite", ":memory:", polysql.SQLite, nil)
}

// ForEachBackend runs fn against SQLite, MySQL and PostgreSQL with the blog
// schema in place.
func ForEachBackend(t *testing.T, fn func(t *testing.T, ds *DatabaseSetup)) {
	setups := []struct {
		name  string
		setup func(*testing.T) *DatabaseSetup
	}{
		{"sqlite", SetupSQLiteTestDB},
		{"mysql", SetupMySQLTestDB},
		{"pgsql", SetupPostgreSQLTestDB},
	}
	for _, s := range setups {
		t.Run(s.name, func(t *testing.T) {
			ds := s.setup(t)
			defer ds.Close()
			CreateBlogSchema(t, ds)
			ds.Authored()
			fn(t, ds)
		})
	}
}

// CreateBlogSchema creates db_version, articles with a native full-text index
// over title and body, and notes without one.
func CreateBlogSchema(t *testing.T, ds *DatabaseSetup) {
	var stmts []string
	switch ds.Kind {
	case polysql.MySQL:
		stmts = []string{
			"DROP TABLE IF EXISTS articles, notes, db_version",
			"CREATE TABLE db_version (ver INT NOT NULL)",
			`CREATE TABLE articles (
				id INT AUTO_INCREMENT PRIMARY KEY,
				title VARCHAR(255) NOT NULL,
				body TEXT NOT NULL,
				status VARCHAR(20) NOT NULL DEFAULT 'draft',
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				FULLTEXT KEY ft_title_body (title, body)
			) ENGINE=InnoDB`,
			"CREATE TABLE notes (id INT AUTO_INCREMENT PRIMARY KEY, title VARCHAR(255) NOT NULL)",
		}
	case polysql.PgSQL:
		stmts = []string{
			"CREATE EXTENSION IF NOT EXISTS pg_trgm",
			"DROP TABLE IF EXISTS articles, notes, db_version",
			"CREATE TABLE db_version (ver INTEGER NOT NULL)",
			`CREATE TABLE articles (
				id SERIAL PRIMARY KEY,
				title TEXT NOT NULL,
				body TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'draft',
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				tsv_weighted tsvector GENERATED ALWAYS AS (
					setweight(to_tsvector('english', title), 'A') ||
					setweight(to_tsvector('english', body), 'B')
				) STORED
			)`,
			"CREATE INDEX articles_tsv ON articles USING GIN (tsv_weighted)",
			"CREATE TABLE notes (id SERIAL PRIMARY KEY, title TEXT NOT NULL)",
		}
	case polysql.SQLite:
		stmts = []string{
			"CREATE TABLE db_version (ver INTEGER NOT NULL)",
			`CREATE TABLE articles (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				title TEXT NOT NULL,
				body TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'draft',
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)`,
			"CREATE VIRTUAL TABLE articles_fts USING fts5(title, body)",
			`CREATE TRIGGER articles_ai AFTER INSERT ON articles BEGIN
				INSERT INTO articles_fts (rowid, title, body) VALUES (new.id, new.title, new.body);
			END`,
			"CREATE TABLE notes (id INTEGER PRIMARY KEY AUTOINCREMENT, title TEXT NOT NULL)",
		}
	}
	stmts = append(stmts, "INSERT INTO db_version (ver) VALUES (1)")

	for _, stmt := range stmts {
		_, err := ds.DB.SQLDB().ExecContext(context.Background(), stmt)
		require.NoError(t, err, stmt)
	}
}

// SeedArticles inserts one active article per title with body "<title> body".
func SeedArticles(t *testing.T, ds *DatabaseSetup, titles ...string) {
	ctx := context.Background()
	for _, title := range titles {
		require.NoError(t, ds.DB.Insert(ctx, "articles", map[string]any{
			"title":  title,
			"body":   title + " body",
			"status": "active",
		}))
	}
}

// NativeAttempted reports whether any authored statement used native full-text search.
func NativeAttempted(authored []string) bool {
	for _, sql := range authored {
		if strings.Contains(sql, "MATCH(") || strings.Contains(sql, " MATCH ") || strings.Contains(sql, "plainto_tsquery") {
			return true
		}
	}
	return false
}
