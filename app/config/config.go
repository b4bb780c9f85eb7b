// Package config loads service settings and opens the backends they name.
//
// Settings come from, in increasing priority: defaults, an optional config
// file, LISTIFY_* environment variables, and command-line flags bound by
// the caller. Environment names replace "." and "-" with "_", so
// store.backend is LISTIFY_STORE_BACKEND and server.request-timeout is
// LISTIFY_SERVER_REQUEST_TIMEOUT.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config keys
const (
	KeyServerAddr            = "server.addr"
	KeyServerRequestTimeout  = "server.request-timeout"
	KeyServerShutdownTimeout = "server.shutdown-timeout"
	KeyServerHeaderTimeout   = "server.read-header-timeout"

	KeyStoreBackend = "store.backend"
	KeySQLitePath   = "sqlite.path"

	KeyMySQLHost     = "mysql.host"
	KeyMySQLPort     = "mysql.port"
	KeyMySQLUser     = "mysql.user"
	KeyMySQLPassword = "mysql.password"
	KeyMySQLDatabase = "mysql.database"

	KeyNeo4jURI      = "neo4j.uri"
	KeyNeo4jUser     = "neo4j.user"
	KeyNeo4jPassword = "neo4j.password"

	KeyCacheBackend  = "cache.backend"
	KeyCacheTTL      = "cache.ttl"
	KeyRedisAddr     = "redis.addr"
	KeyRedisPassword = "redis.password"
	KeyRedisDB       = "redis.db"

	KeyLogLevel = "log.level"
	KeyLogFile  = "log.file"
)

// Store backends
const (
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
	BackendNeo4j  = "neo4j"
)

// Cache backends
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config is the resolved service configuration.
type Config struct {
	Server ServerConfig
	Store  StoreConfig
	SQLite SQLiteConfig
	MySQL  MySQLConfig
	Neo4j  Neo4jConfig
	Cache  CacheConfig
	Redis  RedisConfig
	Log    LogConfig
}

type ServerConfig struct {
	Addr            string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	// ReadHeaderTimeout bounds how long a client may take to send headers.
	ReadHeaderTimeout time.Duration
}

type StoreConfig struct {
	Backend string
}

type SQLiteConfig struct {
	// Path is a file path or ":memory:".
	Path string
}

type MySQLConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type Neo4jConfig struct {
	URI      string
	User     string
	Password string
}

type CacheConfig struct {
	Backend string
	TTL     time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LogConfig struct {
	Level string
	File  string
}

// New returns a viper instance with defaults registered and environment
// lookup enabled.
func New() *viper.Viper {
	v := viper.New()
	RegisterDefaults(v)
	v.SetEnvPrefix("LISTIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// RegisterDefaults registers the default value of every key.
func RegisterDefaults(v *viper.Viper) {
	v.SetDefault(KeyServerAddr, "0.0.0.0:8080")
	v.SetDefault(KeyServerRequestTimeout, "30s")
	v.SetDefault(KeyServerShutdownTimeout, "10s")
	v.SetDefault(KeyServerHeaderTimeout, "10s")

	v.SetDefault(KeyStoreBackend, BackendSQLite)
	v.SetDefault(KeySQLitePath, "listify.db")

	v.SetDefault(KeyMySQLHost, "localhost")
	v.SetDefault(KeyMySQLPort, 3306)
	v.SetDefault(KeyMySQLUser, "root")
	v.SetDefault(KeyMySQLPassword, "")
	v.SetDefault(KeyMySQLDatabase, "listify")

	v.SetDefault(KeyNeo4jURI, "neo4j://localhost:7687")
	v.SetDefault(KeyNeo4jUser, "neo4j")
	v.SetDefault(KeyNeo4jPassword, "password")

	v.SetDefault(KeyCacheBackend, CacheNone)
	v.SetDefault(KeyCacheTTL, "5m")
	v.SetDefault(KeyRedisAddr, "localhost:6379")
	v.SetDefault(KeyRedisPassword, "")
	v.SetDefault(KeyRedisDB, 0)

	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, "")
}

// Load reads file into v when it is non-empty and resolves the result.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:              v.GetString(KeyServerAddr),
			RequestTimeout:    v.GetDuration(KeyServerRequestTimeout),
			ShutdownTimeout:   v.GetDuration(KeyServerShutdownTimeout),
			ReadHeaderTimeout: v.GetDuration(KeyServerHeaderTimeout),
		},
		Store:  StoreConfig{Backend: strings.ToLower(v.GetString(KeyStoreBackend))},
		SQLite: SQLiteConfig{Path: v.GetString(KeySQLitePath)},
		MySQL: MySQLConfig{
			Host:     v.GetString(KeyMySQLHost),
			Port:     v.GetInt(KeyMySQLPort),
			User:     v.GetString(KeyMySQLUser),
			Password: v.GetString(KeyMySQLPassword),
			Database: v.GetString(KeyMySQLDatabase),
		},
		Neo4j: Neo4jConfig{
			URI:      v.GetString(KeyNeo4jURI),
			User:     v.GetString(KeyNeo4jUser),
			Password: v.GetString(KeyNeo4jPassword),
		},
		Cache: CacheConfig{
			Backend: strings.ToLower(v.GetString(KeyCacheBackend)),
			TTL:     v.GetDuration(KeyCacheTTL),
		},
		Redis: RedisConfig{
			Addr:     v.GetString(KeyRedisAddr),
			Password: v.GetString(KeyRedisPassword),
			DB:       v.GetInt(KeyRedisDB),
		},
		Log: LogConfig{
			Level: v.GetString(KeyLogLevel),
			File:  v.GetString(KeyLogFile),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown backends and unusable values.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("%s must be set for the sqlite backend", KeySQLitePath)
		}
	case BackendMySQL:
		if c.MySQL.Database == "" {
			return fmt.Errorf("%s must be set for the mysql backend", KeyMySQLDatabase)
		}
	case BackendNeo4j:
		if c.Neo4j.URI == "" {
			return fmt.Errorf("%s must be set for the neo4j backend", KeyNeo4jURI)
		}
	default:
		return fmt.Errorf("unknown %s %q (want sqlite, mysql or neo4j)", KeyStoreBackend, c.Store.Backend)
	}

	switch c.Cache.Backend {
	case CacheNone, CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("unknown %s %q (want none, memory or redis)", KeyCacheBackend, c.Cache.Backend)
	}

	if c.Server.ReadHeaderTimeout <= 0 {
		return fmt.Errorf("%s must be positive", KeyServerHeaderTimeout)
	}
	if c.Server.RequestTimeout < 0 || c.Server.ShutdownTimeout < 0 || c.Cache.TTL < 0 {
		return fmt.Errorf("timeouts and ttl must not be negative")
	}
	return nil
}
