package main

import (
	"context"
	"fmt"
	"francoggm/merchant-status-relay/internal/app/contentapi"
	"francoggm/merchant-status-relay/internal/app/history"
	"francoggm/merchant-status-relay/internal/app/merchants"
	"francoggm/merchant-status-relay/internal/app/refresher"
	"francoggm/merchant-status-relay/internal/app/roster"
	"francoggm/merchant-status-relay/internal/app/server"
	"francoggm/merchant-status-relay/internal/app/server/handlers"
	"francoggm/merchant-status-relay/internal/app/storage"
	"francoggm/merchant-status-relay/internal/config"
	"francoggm/merchant-status-relay/internal/logger"
	"francoggm/merchant-status-relay/internal/metrics"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

func main() {
	cfg := config.NewConfig()

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	r := roster.Default()
	if cfg.RosterFile != "" {
		loaded, err := roster.Load(cfg.RosterFile)
		if err != nil {
			return err
		}
		r = loaded
	}

	tokens := loadTokens(ctx, cfg, log)

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Services
	client := contentapi.NewClient(tokens, contentapi.Options{
		BaseURL:     cfg.ContentAPI.BaseURL,
		Timeout:     cfg.ContentAPI.Timeout,
		MaxAttempts: cfg.ContentAPI.MaxAttempts,
		RetryDelay:  cfg.ContentAPI.RetryDelay,
	}, log)

	merchantsService := merchants.NewService(r, client, tokens, merchants.Options{
		Concurrency: cfg.Workers.StatusCount,
		Timeout:     cfg.ContentAPI.AggregationTimeout,
	}, m, log)

	var (
		rdb    *redis.Client
		cache  merchants.ResponseCache
		purger handlers.Purger
	)
	if cfg.Cache.TTL > 0 {
		rdb = redis.NewClient(&redis.Options{
			Addr:         fmt.Sprintf("%s:%s", cfg.Cache.Host, cfg.Cache.Port),
			Password:     cfg.Cache.Password,
			DB:           0,
			PoolSize:     cfg.Workers.StatusCount * 2,
			MinIdleConns: 2,
		})

		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("cache unreachable, serving without it", zap.Error(err))
			rdb.Close()
			rdb = nil
		} else {
			defer rdb.Close()
			storageService := storage.NewStorageService(rdb, cfg.Cache.TTL)
			cache = storageService
			purger = storageService
		}
	}

	var (
		historyRepo *history.HistoryRepo
		recorder    merchants.HistoryRecorder
	)
	if cfg.History.DBPath != "" {
		db, err := history.InitDB(cfg.History.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		historyRepo = history.NewHistoryRepo(db)
		recorder = historyRepo
	}

	cachedService := merchants.NewCachedService(merchantsService, cache, recorder, m, log)

	if rdb != nil && cfg.Refresher.Interval > 0 {
		if cfg.Refresher.Interval >= cfg.Cache.TTL {
			log.Warn("refresh interval is not shorter than the cache ttl, regions will expire between refreshes",
				zap.Duration("interval", cfg.Refresher.Interval),
				zap.Duration("ttl", cfg.Cache.TTL),
			)
		}

		refresherService := refresher.NewRefresherService(cachedService, r.Keys(), rdb, cfg.Refresher.Interval, log)
		refresherService.Start(ctx)
	}

	h := handlers.NewHandlers(r, cachedService, historyRepo, purger, log)
	return server.NewServer(cfg, h, reg, log).Run(ctx)
}

// loadTokens never fails: without usable credentials the service still starts
// and reports an auth error on every status request.
func loadTokens(ctx context.Context, cfg *config.Config, log *zap.Logger) oauth2.TokenSource {
	creds, err := cfg.ContentAPI.Credentials()
	if err != nil {
		log.Warn("no content api credentials", zap.Error(err))
		return contentapi.FailingTokenSource(err)
	}

	tokens, err := contentapi.NewTokenSource(ctx, creds)
	if err != nil {
		log.Warn("invalid content api credentials", zap.Error(err))
		return contentapi.FailingTokenSource(err)
	}

	return tokens
}
