package core

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite" // registers "sqlite"

	"github.com/coregx/polysql/internal/dialects"
	"github.com/coregx/polysql/internal/logger"
	"github.com/coregx/polysql/internal/security"
)

// Defaults applied by Config.ApplyDefaults.
const (
	DefaultMinFullTextSearchLength = 4
	DefaultSlowQueryThreshold      = 200 * time.Millisecond
	DefaultQueryLogTable           = "query_log"
	DefaultVersionTable            = "db_version"
	DefaultVersionColumn           = "ver"
	DefaultSQLiteDriver            = "sqlite3"
)

// Config describes how to connect to one backend. It is read once at Open.
type Config struct {
	Dialect  string `yaml:"dialect"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	// Socket is a unix socket path tried before Host:Port. For PostgreSQL it
	// may be the socket directory or the full ".s.PGSQL.<port>" path.
	Socket  string `yaml:"socket"`
	SSLMode string `yaml:"sslmode"`

	// SQLitePath must name an existing, writable database file.
	SQLitePath string `yaml:"sqlite_path"`
	// SQLiteDriver is "sqlite3" (mattn, cgo) or "sqlite" (modernc, pure Go).
	SQLiteDriver string `yaml:"sqlite_driver"`

	// MinFullTextSearchLength is the shortest query, in characters, sent to
	// native full-text search. Zero selects the default.
	MinFullTextSearchLength int           `yaml:"min_fulltext_search_length"`
	SlowQueryThreshold      time.Duration `yaml:"slow_query_threshold"`
	LogQueries              bool          `yaml:"log_queries"`
	QueryLogTable           string        `yaml:"query_log_table"`
	Debug                   bool          `yaml:"debug"`
	VersionTable            string        `yaml:"version_table"`
	VersionColumn           string        `yaml:"version_column"`
	// Audit is none, writes or all.
	Audit string `yaml:"audit"`
}

// LoadConfig reads a YAML configuration file and applies defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: parse %s: %w", ErrInvalidConfig, path, err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// Kind returns the parsed dialect.
func (c Config) Kind() (dialects.Kind, error) {
	k, err := dialects.ParseKind(c.Dialect)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDialect, c.Dialect)
	}
	return k, nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.MinFullTextSearchLength == 0 {
		c.MinFullTextSearchLength = DefaultMinFullTextSearchLength
	}
	if c.SlowQueryThreshold == 0 {
		c.SlowQueryThreshold = DefaultSlowQueryThreshold
	}
	if c.QueryLogTable == "" {
		c.QueryLogTable = DefaultQueryLogTable
	}
	if c.VersionTable == "" {
		c.VersionTable = DefaultVersionTable
	}
	if c.VersionColumn == "" {
		c.VersionColumn = DefaultVersionColumn
	}
	if c.SQLiteDriver == "" {
		c.SQLiteDriver = DefaultSQLiteDriver
	}

	kind, err := c.Kind()
	if err != nil || kind == dialects.SQLite {
		return
	}
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 3306
		if kind == dialects.PgSQL {
			c.Port = 5432
		}
	}
}

// Validate checks the configuration without touching the network or filesystem.
func (c Config) Validate() error {
	kind, err := c.Kind()
	if err != nil {
		return err
	}

	if c.MinFullTextSearchLength < 0 {
		return fmt.Errorf("%w: min_fulltext_search_length must not be negative", ErrInvalidConfig)
	}
	if c.SlowQueryThreshold < 0 {
		return fmt.Errorf("%w: slow_query_threshold must not be negative", ErrInvalidConfig)
	}
	if c.VersionTable == "" || c.VersionColumn == "" {
		return fmt.Errorf("%w: version_table and version_column are required", ErrInvalidConfig)
	}
	if c.LogQueries && c.QueryLogTable == "" {
		return fmt.Errorf("%w: query_log_table is required when log_queries is set", ErrInvalidConfig)
	}
	if _, err := security.ParseAuditLevel(c.Audit); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if kind == dialects.SQLite {
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite_path is required", ErrInvalidConfig)
		}
		if c.SQLiteDriver != "sqlite3" && c.SQLiteDriver != "sqlite" {
			return fmt.Errorf("%w: sqlite_driver must be sqlite3 or sqlite, got %q", ErrInvalidConfig, c.SQLiteDriver)
		}
		return nil
	}

	if c.Database == "" {
		return fmt.Errorf("%w: database is required for %s", ErrInvalidConfig, kind)
	}
	if c.Socket == "" && c.Host == "" {
		return fmt.Errorf("%w: host or socket is required for %s", ErrInvalidConfig, kind)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	return nil
}

// connect opens the *sql.DB described by c. MySQL and PostgreSQL try the
// socket first and fall back to host:port on any failure.
func connect(ctx context.Context, c Config, kind dialects.Kind, log logger.Logger) (*sql.DB, error) {
	if kind == dialects.SQLite {
		return openSQLite(ctx, c)
	}

	if c.Socket != "" {
		db, err := openNetwork(ctx, c, kind, true)
		if err == nil {
			return db, nil
		}
		log.Warn("socket connection failed, falling back to tcp",
			"database", kind.String(),
			"socket", c.Socket,
			"error", err,
		)
		if c.Host == "" {
			return nil, err
		}
	}
	return openNetwork(ctx, c, kind, false)
}

func openNetwork(ctx context.Context, c Config, kind dialects.Kind, viaSocket bool) (*sql.DB, error) {
	var (
		connector driver.Connector
		err       error
	)
	if kind == dialects.MySQL {
		connector, err = mysql.NewConnector(mysqlConfig(c, viaSocket))
	} else {
		connector, err = pq.NewConnector(postgresDSN(c, viaSocket))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to %s: %w", kind, err)
	}
	return db, nil
}

func mysqlConfig(c Config, viaSocket bool) *mysql.Config {
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.DBName = c.Database
	mc.Collation = "utf8mb4_unicode_ci"
	if viaSocket {
		mc.Net = "unix"
		mc.Addr = c.Socket
	} else {
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	}
	if c.SSLMode != "" && c.SSLMode != "disable" {
		mc.TLSConfig = "preferred"
		if c.SSLMode == "require" || strings.HasPrefix(c.SSLMode, "verify") {
			mc.TLSConfig = "true"
		}
	}
	return mc
}

// postgresDSN builds a key=value connection string. A socket given as the
// full ".s.PGSQL.<port>" path is split into directory and port.
func postgresDSN(c Config, viaSocket bool) string {
	kv := map[string]string{
		"dbname": c.Database,
		"host":   c.Host,
		"port":   strconv.Itoa(c.Port),
	}
	if viaSocket {
		dir, port := c.Socket, ""
		if base := filepath.Base(c.Socket); strings.HasPrefix(base, ".s.PGSQL.") {
			dir = filepath.Dir(c.Socket)
			port = strings.TrimPrefix(base, ".s.PGSQL.")
		}
		kv["host"] = dir
		if port != "" {
			kv["port"] = port
		}
	}
	if c.User != "" {
		kv["user"] = c.User
	}
	if c.Password != "" {
		kv["password"] = c.Password
	}
	if c.SSLMode != "" {
		kv["sslmode"] = c.SSLMode
	}

	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+quoteDSNValue(kv[k]))
	}
	return strings.Join(parts, " ")
}

func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// openSQLite opens an existing SQLite file. A missing or read-only file is
// reported as ErrResource rather than silently created.
func openSQLite(ctx context.Context, c Config) (*sql.DB, error) {
	info, err := os.Stat(c.SQLitePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: sqlite file %s does not exist", ErrResource, c.SQLitePath)
		}
		return nil, fmt.Errorf("%w: %w", ErrResource, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: sqlite path %s is a directory", ErrResource, c.SQLitePath)
	}
	f, err := os.OpenFile(c.SQLitePath, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite file %s is not writable: %w", ErrResource, c.SQLitePath, err)
	}
	_ = f.Close()

	dsn := c.SQLitePath + "?_busy_timeout=5000&_foreign_keys=on"
	if c.SQLiteDriver == "sqlite" {
		dsn = "file:" + c.SQLitePath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open(c.SQLiteDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return db, nil
}
