// Command forecastd serves batch ARIMA forecasts over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/sartorproj/arimabatch/internal/cache"
	"github.com/sartorproj/arimabatch/internal/config"
	"github.com/sartorproj/arimabatch/internal/logging"
	"github.com/sartorproj/arimabatch/internal/server"
)

func main() {
	configPath := flag.String("config", "", "config file path (defaults when empty)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "forecastd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	store, err := newCache(cfg.Cache, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv := server.New(cfg.Server,
		server.WithCache(store, cfg.Cache.TTL),
		server.WithLogger(logger),
		server.WithRegistry(reg),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func newCache(cfg config.CacheConfig, logger zerolog.Logger) (cache.Service, error) {
	switch cfg.Backend {
	case "redis":
		rc, err := cache.NewRedisCache(
			cache.WithRedisAddr(cfg.Redis.Addr),
			cache.WithRedisPassword(cfg.Redis.Password),
			cache.WithRedisDB(cfg.Redis.DB),
			cache.WithRedisPrefix(cfg.Redis.Prefix),
			cache.WithRedisPool(cfg.Redis.PoolSize, 0),
		)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("redis cache connected")
		return rc, nil
	case "none":
		return cache.Noop{}, nil
	default:
		logger.Info().Int("max_entries", cfg.MaxEntries).Dur("ttl", cfg.TTL).Msg("memory cache enabled")
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.MaxEntries),
			cache.WithMemoryDefaultTTL(cfg.TTL),
		), nil
	}
}
