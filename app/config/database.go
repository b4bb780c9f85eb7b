package config

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const sqlitePragmas = "_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)"

// SQLiteDSN builds the connection string for path. Every DSN enables
// foreign keys, so ON DELETE CASCADE applies, and sets a busy timeout.
// File DSNs also take the write lock when a transaction begins. A
// caller-supplied file: URI keeps its own settings, gets whichever of these
// it lacks, and is rejected if it turns foreign keys off.
func SQLiteDSN(path string) (string, error) {
	switch {
	case path == ":memory:":
		return "file:listify?mode=memory&cache=shared&" + sqlitePragmas, nil
	case strings.HasPrefix(path, "file:"):
		return completeSQLiteURI(path)
	default:
		return "file:" + path + "?_pragma=journal_mode(WAL)&" + sqlitePragmas + "&_txlock=immediate", nil
	}
}

func completeSQLiteURI(uri string) (string, error) {
	_, rawQuery, _ := strings.Cut(uri, "?")
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", fmt.Errorf("invalid SQLite URI %q: %w", uri, err)
	}

	var hasForeignKeys, hasBusyTimeout bool
	for _, pragma := range query["_pragma"] {
		name, value := splitPragma(pragma)
		switch name {
		case "foreign_keys":
			if !pragmaEnabled(value) {
				return "", fmt.Errorf("SQLite URI %q turns foreign keys off; cascading deletes need them on", uri)
			}
			hasForeignKeys = true
		case "busy_timeout":
			hasBusyTimeout = true
		}
	}

	var missing []string
	if !hasForeignKeys {
		missing = append(missing, "_pragma=foreign_keys(ON)")
	}
	if !hasBusyTimeout {
		missing = append(missing, "_pragma=busy_timeout(30000)")
	}
	if !query.Has("_txlock") {
		missing = append(missing, "_txlock=immediate")
	}
	if len(missing) == 0 {
		return uri, nil
	}

	sep := "&"
	switch {
	case !strings.Contains(uri, "?"):
		sep = "?"
	case strings.HasSuffix(uri, "?"), strings.HasSuffix(uri, "&"):
		sep = ""
	}
	return uri + sep + strings.Join(missing, "&"), nil
}

// splitPragma splits "name(value)" or "name=value" into a lower-case name
// and value.
func splitPragma(p string) (name, value string) {
	p = strings.ToLower(strings.ReplaceAll(p, " ", ""))
	i := strings.IndexAny(p, "(=")
	if i < 0 {
		return p, ""
	}
	return p[:i], strings.TrimSuffix(p[i+1:], ")")
}

func pragmaEnabled(value string) bool {
	switch value {
	case "on", "1", "true", "yes":
		return true
	}
	return false
}

// InitSQLite opens the SQLite database at path, creating its directory if
// needed.
func InitSQLite(ctx context.Context, path string) (*sql.DB, error) {
	inMemory := path == ":memory:" || strings.Contains(path, "mode=memory")
	if !inMemory && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	dsn, err := SQLiteDSN(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each connection to an in-memory database would otherwise get its own.
	if inMemory {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// MySQLDSN builds the go-sql-driver DSN for cfg.
func MySQLDSN(cfg MySQLConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	return mc.FormatDSN()
}

// InitMySQL opens a pooled connection to the configured MySQL database.
// The database itself must already exist.
func InitMySQL(ctx context.Context, cfg MySQLConfig) (*sql.DB, error) {
	db, err := OpenMySQL(ctx, MySQLDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("MySQL at %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return db, nil
}

// OpenMySQL opens and pings the database named by a go-sql-driver DSN.
// parseTime is forced on.
func OpenMySQL(ctx context.Context, dsn string) (*sql.DB, error) {
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid MySQL DSN: %w", err)
	}
	mc.ParseTime = true

	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}
	db := sql.OpenDB(connector)

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}
	return db, nil
}
