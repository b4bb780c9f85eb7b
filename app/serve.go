package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"listify/app/cache"
	"listify/app/config"
	"listify/app/controllers"
	"listify/app/logging"
	"listify/app/routes"
	"listify/app/services"
)

func newServeCmd() *cobra.Command {
	v := config.New()
	var (
		configFile string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			if verbose {
				cfg.Log.Level = "debug"
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "config file (yaml, toml or json)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.String("addr", "", "listen address")
	flags.String("store", "", "store backend: sqlite, mysql or neo4j")
	bindFlag(v, config.KeyServerAddr, cmd, "addr")
	bindFlag(v, config.KeyStoreBackend, cmd, "store")
	return cmd
}

func bindFlag(v *viper.Viper, key string, cmd *cobra.Command, name string) {
	if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
		panic(err)
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}
	out, releaseOutput := logging.Output(cfg.Log.File)
	defer func() { _ = releaseOutput() }()
	logger := logging.New(out, level)
	ctx = logging.WithLogger(ctx, logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	tc, err := openCache(ctx, cfg)
	if err != nil {
		_ = store.Close(context.Background())
		return err
	}

	service := services.NewProjectService(store, tc, cfg.Cache.TTL)
	defer func() {
		if err := service.Close(context.Background()); err != nil {
			logger.Error("failed to close backends", "err", err)
		}
	}()

	router := mux.NewRouter()
	routes.RegisterRoutes(router, controllers.NewProjectController(service), logger, cfg.Server.RequestTimeout)
	server := newServer(cfg.Server, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server is running", "addr", cfg.Server.Addr, "store", cfg.Store.Backend, "cache", cfg.Cache.Backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func openStore(ctx context.Context, cfg *config.Config) (services.Store, error) {
	logger := logging.FromContext(ctx)

	switch cfg.Store.Backend {
	case config.BackendSQLite:
		db, err := config.InitSQLite(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		logger.Debug("opened sqlite store", "path", cfg.SQLite.Path)
		return newSQLStore(ctx, db, services.DialectSQLite)
	case config.BackendMySQL:
		db, err := config.InitMySQL(ctx, cfg.MySQL)
		if err != nil {
			return nil, err
		}
		logger.Debug("opened mysql store", "host", cfg.MySQL.Host, "database", cfg.MySQL.Database)
		return newSQLStore(ctx, db, services.DialectMySQL)
	case config.BackendNeo4j:
		driver, err := config.InitNeo4j(ctx, cfg.Neo4j)
		if err != nil {
			return nil, err
		}
		store, err := services.NewNeo4jStore(ctx, driver)
		if err != nil {
			_ = driver.Close(context.Background())
			return nil, err
		}
		logger.Debug("opened neo4j store", "uri", cfg.Neo4j.URI)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// newSQLStore closes db when the schema cannot be created.
func newSQLStore(ctx context.Context, db *sql.DB, dialect services.Dialect) (services.Store, error) {
	store, err := services.NewSQLStore(ctx, db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func openCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheMemory:
		return cache.NewMemoryCache(), nil
	case config.CacheRedis:
		client, err := config.InitRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return cache.NewRedisCache(client, "listify:"), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}
