package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/AngelCh415/attribution-etl/internal/config"
	"github.com/AngelCh415/attribution-etl/internal/httpx"
	"github.com/AngelCh415/attribution-etl/internal/ingest"
	"github.com/AngelCh415/attribution-etl/internal/metrics"
	"github.com/AngelCh415/attribution-etl/internal/store"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	if err != nil {
		logger.Error("config error", slog.String("err", err.Error()))
		os.Exit(1)
	}

	cl := ingest.NewHTTPClient(cfg.HTTPTimeout)
	src, closeSrc, err := ingest.NewSource(cfg, cl, logger)
	if err != nil {
		logger.Error("data source error", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer closeSrc()

	st := store.NewMemoryStore()
	etl := ingest.NewETL(src, st, cl, logger, cfg)
	if cfg.RedisURL != "" {
		rdb := store.NewRedisClient(cfg.RedisURL)
		defer rdb.Close()
		cache := store.NewRunCache(rdb, cfg.CacheTTL)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := cache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, run cache disabled", slog.String("err", err.Error()))
		} else {
			etl.WithCache(cache)
		}
		cancel()
	}
	mSvc := metrics.NewService(st)

	r := httpx.NewRouter(logger, cfg, etl, st, mSvc)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting server",
		slog.String("port", cfg.Port),
		slog.String("data_source", cfg.DataSource),
		slog.String("store_timezone", cfg.Location.String()))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", slog.String("err", err.Error()))
		os.Exit(1)
	}
}
