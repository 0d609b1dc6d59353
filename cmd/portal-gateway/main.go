// Command portal-gateway serves the portal pages as JSON on top of the
// backend client and query cache.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/alumni-portal-client/internal/config"
	"github.com/Sternrassler/alumni-portal-client/pkg/client"
	"github.com/Sternrassler/alumni-portal-client/pkg/gallery"
	"github.com/Sternrassler/alumni-portal-client/pkg/logging"
	"github.com/Sternrassler/alumni-portal-client/pkg/mentorship"
	"github.com/Sternrassler/alumni-portal-client/pkg/portal"
	"github.com/Sternrassler/alumni-portal-client/pkg/query"
)

func main() {
	configPath := flag.String("config", os.Getenv("PORTAL_CONFIG"), "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "portal-gateway: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logging.Setup(logging.Config{
		Level:      logging.LogLevel(cfg.Log.Level),
		Pretty:     cfg.Log.Pretty,
		Production: cfg.Log.Production,
		Output:     os.Stderr,
	})
	logger := logging.NewLogger("gateway")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cfg.Cache.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.Cache.RedisAddr, err)
		}
		logger.Info().Str("addr", cfg.Cache.RedisAddr).Msg("Connected to Redis")
	}

	store, closeStore, err := openStore(cfg.Cache, redisClient, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	clientCfg := client.DefaultConfig(cfg.Backend.BaseURL, cfg.Backend.UserAgent)
	clientCfg.ReadTimeout = cfg.Backend.ReadTimeout
	clientCfg.WriteTimeout = cfg.Backend.WriteTimeout
	clientCfg.SendAuthorization = cfg.Backend.SendAuthorization
	clientCfg.Redis = redisClient

	api, err := client.New(clientCfg)
	if err != nil {
		return fmt.Errorf("create backend client: %w", err)
	}
	defer api.Close()

	queryCfg := query.DefaultConfig()
	queryCfg.GCTime = cfg.Cache.GCTime
	queryCfg.RecordTTL = cfg.Cache.RecordTTL
	queryCfg.Store = store
	cache := query.New(queryCfg, logger)
	defer cache.Close()
	go cache.Run(ctx)

	pages, err := portal.New(cache,
		mentorship.NewService(api, cache, logger),
		gallery.NewService(api, cache, logger),
		logger,
	)
	if err != nil {
		return fmt.Errorf("load portal content: %w", err)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      newServer(pages, api, redisClient, logger).routes(cfg.Server.CORSOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * cfg.Backend.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.Server.Addr).
			Str("backend", cfg.Backend.BaseURL).
			Str("user_agent", cfg.Backend.UserAgent).
			Msg("Starting portal gateway")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down portal gateway")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore picks the query persistence layer: Redis when configured,
// else LevelDB on disk, else none.
func openStore(cfg config.CacheConfig, redisClient *redis.Client, logger zerolog.Logger) (query.Store, func(), error) {
	switch {
	case redisClient != nil:
		logger.Info().Str("store", "redis").Msg("Query persistence enabled")
		return query.NewRedisStore(redisClient), func() {}, nil

	case cfg.LevelDBPath != "":
		db, err := query.OpenLevelDBStore(cfg.LevelDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open leveldb store: %w", err)
		}
		logger.Info().Str("store", "leveldb").Str("path", cfg.LevelDBPath).Msg("Query persistence enabled")
		return db, func() {
			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("Failed to close leveldb store")
			}
		}, nil

	default:
		return nil, func() {}, nil
	}
}
