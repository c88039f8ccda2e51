package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"perspective-gateway/analyzer"
	"perspective-gateway/analyzer/domain"
	"perspective-gateway/analyzer/infra"
	"perspective-gateway/gateway"
)

func main() {
	cfg, err := readConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(2)
	}

	zl, err := newZap(cfg.logDev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zl.Sync() }()
	logger := zapr.NewLogger(zl)

	if err := run(cfg, logger); err != nil {
		logger.Error(err, "gateway stopped with error")
		os.Exit(1)
	}
}

func newZap(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg config, logger logr.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	promStats, err := infra.NewPrometheusStatsStore(reg)
	if err != nil {
		return fmt.Errorf("register dispatcher metrics: %w", err)
	}
	stores := []domain.StatsStore{promStats}

	if cfg.statsRedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.statsRedisAddr,
			Password: cfg.statsRedisPassword,
			DB:       cfg.statsRedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		pingCancel()
		if err != nil {
			return fmt.Errorf("redis stats ping: %w", err)
		}

		stores = append(stores, infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.statsPrefix),
			infra.WithStatsTTL(cfg.statsTTL),
			infra.WithStatsBucket(cfg.statsBucket),
			infra.WithStatsTrackIDs(cfg.statsTrackIDs),
		))
	}

	client, err := analyzer.New(cfg.analyzer,
		analyzer.WithLogger(logger.WithName("analyzer")),
		analyzer.WithStats(infra.NewMultiStatsStore(stores...)),
	)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	responses, _ := client.TakeReceiver()
	router := gateway.NewRouter(logger.WithName("router"), cfg.parkTTL)

	h := gateway.NewHandler(client, gateway.HandlerOptions{
		Router:          router,
		ResponseTimeout: cfg.responseTimeout,
		RetryAfter:      cfg.analyzer.TickRate,
		Logger:          logger.WithName("handler"),
	})
	h = gateway.ConcurrencyLimit(gateway.ConcurrencyOptions{
		Max:            int64(cfg.concurrencyMax),
		AcquireTimeout: cfg.concurrencyTimeout,
	})(h)
	if cfg.rateEnabled {
		decisions, err := gateway.NewDecisionsCounter(reg)
		if err != nil {
			return fmt.Errorf("register rate limit metrics: %w", err)
		}
		store := gateway.NewLimiterStore(cfg.rateRPS, cfg.rateBurst)
		store.StartJanitor(ctx)
		h = gateway.RateLimit(gateway.RateLimitOptions{
			Store:               store,
			KeyHeader:           cfg.rateKeyHeader,
			TrustXForwardedFor:  cfg.trustXFF,
			RetryAfter:          cfg.retryAfter,
			AddRateLimitHeaders: cfg.addHeaders,
			Decisions:           decisions,
		})(h)
	}

	mux := http.NewServeMux()
	mux.Handle("/", h)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.responseTimeout + 10*time.Second,
		IdleTimeout:       90 * time.Second,
	}

	logger.Info("gateway listening", "addr", cfg.listenAddr, "endpoint", cfg.analyzer.Endpoint)
	logger.Info("dispatcher", "tickRate", cfg.analyzer.TickRate, "maxQueue", cfg.analyzer.MaximumQueueSize,
		"workConserving", cfg.analyzer.WorkConserving)
	logger.Info("rate", "enabled", cfg.rateEnabled, "rps", cfg.rateRPS, "burst", cfg.rateBurst,
		"keyHeader", cfg.rateKeyHeader, "trustXFF", cfg.trustXFF)
	logger.Info("stats", "redisAddr", cfg.statsRedisAddr, "bucket", cfg.statsBucket, "ttl", cfg.statsTTL)
	logger.Info("concurrency", "max", cfg.concurrencyMax, "acquireTimeout", cfg.concurrencyTimeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := router.Run(gctx, responses)
		if errors.Is(err, context.Canceled) || errors.Is(err, domain.ErrStreamClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		_ = client.Close()
		return err
	})
	return g.Wait()
}
