package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/internal/service"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/catalog-relevance/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/catalog-relevance/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting retrieval service", "port", cfg.Server.Port, "model", cfg.Retrieval.Model)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
	}

	checker := health.NewChecker()

	var pg *postgres.Client
	if cfg.Postgres.Enabled() {
		err := resilience.Retry(ctx, "postgres-connect", resilience.RetryConfig{}, func(ctx context.Context) error {
			var err error
			pg, err = postgres.New(ctx, cfg.Postgres)
			return err
		})
		if err != nil {
			slog.Error("postgres unavailable", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		checker.Register("postgres", health.PingCheck(pg.Ping, true))
		slog.Info("postgres connected", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	}

	var cache *service.ResultCache
	if cfg.Redis.Addr != "" {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			cache = service.NewResultCache(redisClient, cfg.Redis.CacheTTL, m)
			checker.Register("redis", health.PingCheck(redisClient.Ping, false))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	aggregator := analytics.NewAggregator()
	trackers := []analytics.Tracker{aggregator}
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		collector := analytics.NewCollector(producer, 10000, 100, time.Second)
		collector.Start(ctx)
		defer collector.Close()
		trackers = append(trackers, collector)
	}

	var runs service.RunStore
	if pg != nil {
		store := evaluation.NewStore(pg)
		if err := store.EnsureSchema(ctx); err != nil {
			slog.Error("evaluation store unavailable", "error", err)
			os.Exit(1)
		}
		runs = store
	}

	svc := service.New(service.Options{
		Retrieval:  cfg.Retrieval,
		Evaluation: cfg.Evaluation,
		Metrics:    m,
		Cache:      cache,
		Tracker:    analytics.Tee(trackers...),
		Runs:       runs,
	})

	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		snap := svc.Snapshot()
		if snap == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "index not built"}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%s v%d, %d items", snap.Pipeline.Model(), snap.Version, snap.Pipeline.Len()),
		}
	})

	if cfg.Retrieval.BuildOnStart && pg != nil {
		items, err := catalog.NewStore(pg, cfg.Catalog.Table).LoadItems(ctx)
		if err != nil {
			slog.Error("loading catalog from postgres failed", "table", cfg.Catalog.Table, "error", err)
			os.Exit(1)
		}
		if _, err := svc.Build(ctx, "", items, "bootstrap"); err != nil {
			slog.Error("initial index build failed", "error", err)
			os.Exit(1)
		}
	}

	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Topics.IndexRequests != "" {
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexRequests, int(cfg.Server.MaxBodyBytes), service.HandleIndexRequest(svc))
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("index request consumer error", "error", err)
			}
		}()
		slog.Info("index request consumer started", "topic", cfg.Kafka.Topics.IndexRequests)
	}

	mux := http.NewServeMux()
	service.NewHandler(svc, cfg.Retrieval.DefaultK, cfg.Retrieval.MaxQueries).Register(mux)
	mux.HandleFunc("GET /api/v1/stats", analytics.NewHandler(aggregator).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	handler := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Metrics(m),
		middleware.MaxBody(cfg.Server.MaxBodyBytes),
		middleware.Timeout(cfg.Server.WriteTimeout),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout + time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("retrieval service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	// Let in-flight handlers finish before the deferred closes run.
	<-shutdownDone
	slog.Info("retrieval service stopped")
}
