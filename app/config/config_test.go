package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadHeaderTimeout)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "listify.db", cfg.SQLite.Path)
	assert.Equal(t, 3306, cfg.MySQL.Port)
	assert.Equal(t, CacheNone, cfg.Cache.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("LISTIFY_STORE_BACKEND", "MySQL")
	t.Setenv("LISTIFY_MYSQL_HOST", "db.internal")
	t.Setenv("LISTIFY_SERVER_REQUEST_TIMEOUT", "2s")
	t.Setenv("LISTIFY_CACHE_BACKEND", "memory")

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, BackendMySQL, cfg.Store.Backend)
	assert.Equal(t, "db.internal", cfg.MySQL.Host)
	assert.Equal(t, 2*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, CacheMemory, cfg.Cache.Backend)
}

func TestLoadFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "listify.yaml")
	require.NoError(t, os.WriteFile(file, []byte("store:\n  backend: neo4j\nneo4j:\n  uri: bolt://graph:7687\n"), 0o600))

	cfg, err := Load(New(), file)
	require.NoError(t, err)
	assert.Equal(t, BackendNeo4j, cfg.Store.Backend)
	assert.Equal(t, "bolt://graph:7687", cfg.Neo4j.URI)
}

func TestLoadRejectsUnknownBackends(t *testing.T) {
	v := New()
	v.Set(KeyStoreBackend, "postgres")
	_, err := Load(v, "")
	assert.ErrorContains(t, err, "store.backend")

	v = New()
	v.Set(KeyCacheBackend, "memcached")
	_, err = Load(v, "")
	assert.ErrorContains(t, err, "cache.backend")
}

func TestLoadRejectsZeroHeaderTimeout(t *testing.T) {
	v := New()
	v.Set(KeyServerHeaderTimeout, "0s")
	_, err := Load(v, "")
	assert.ErrorContains(t, err, KeyServerHeaderTimeout)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{
			name: "file path",
			path: "data/listify.db",
			want: "file:data/listify.db?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)&_txlock=immediate",
		},
		{
			name: "uri without query",
			path: "file:x.db",
			want: "file:x.db?_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)&_txlock=immediate",
		},
		{
			name: "uri with other options",
			path: "file:x.db?mode=rwc",
			want: "file:x.db?mode=rwc&_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)&_txlock=immediate",
		},
		{
			name: "uri with foreign keys only",
			path: "file:x.db?_pragma=foreign_keys(ON)",
			want: "file:x.db?_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)&_txlock=immediate",
		},
		{
			name: "uri keeps its own settings",
			path: "file:x.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(500)&_txlock=deferred",
			want: "file:x.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(500)&_txlock=deferred",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SQLiteDSN(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	mem, err := SQLiteDSN(":memory:")
	require.NoError(t, err)
	assert.Contains(t, mem, "mode=memory")
	assert.Contains(t, mem, "foreign_keys(ON)")
	assert.Contains(t, mem, "busy_timeout(30000)")
}

func TestSQLiteDSNRejectsForeignKeysOff(t *testing.T) {
	for _, path := range []string{
		"file:x.db?_pragma=foreign_keys(OFF)",
		"file:x.db?_pragma=foreign_keys(0)",
		"file:x.db?mode=rwc&_pragma=foreign_keys%3Dfalse",
	} {
		_, err := SQLiteDSN(path)
		assert.ErrorContains(t, err, "foreign keys", path)
	}

	_, err := InitSQLite(context.Background(), "file:"+filepath.Join(t.TempDir(), "x.db")+"?_pragma=foreign_keys(OFF)")
	assert.Error(t, err)
}

func TestInitSQLiteCompletesURI(t *testing.T) {
	ctx := context.Background()
	db, err := InitSQLite(ctx, "file:"+filepath.Join(t.TempDir(), "uri.db")+"?mode=rwc")
	require.NoError(t, err)
	defer db.Close()

	var fk, busy int
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&busy))
	assert.Equal(t, 1, fk)
	assert.Equal(t, 30000, busy)
}

func TestMySQLDSN(t *testing.T) {
	dsn := MySQLDSN(MySQLConfig{Host: "localhost", Port: 3306, User: "root", Password: "vm", Database: "listify_bdd"})
	assert.Contains(t, dsn, "root:vm@tcp(localhost:3306)/listify_bdd")
	assert.Contains(t, dsn, "parseTime=true")
}

func TestOpenMySQLRejectsBadDSN(t *testing.T) {
	_, err := OpenMySQL(context.Background(), "not a dsn")
	assert.ErrorContains(t, err, "invalid MySQL DSN")
}

func TestInitSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "listify.db")

	db, err := InitSQLite(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	var fk int
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}
