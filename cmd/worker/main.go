package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hendripermana/permoney-analytics/internal/cache"
	"github.com/hendripermana/permoney-analytics/internal/config"
	"github.com/hendripermana/permoney-analytics/internal/model"
	"github.com/hendripermana/permoney-analytics/internal/service"
	"github.com/hendripermana/permoney-analytics/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	now := time.Now()
	window := model.DateRange{Start: now.AddDate(0, -cfg.WindowMonths, 0), End: now}

	var (
		ledger     store.Ledger
		insights   store.InsightStore
		aggregates store.AggregateStore
	)
	if cfg.FirestoreProject != "" {
		client, err := firestore.NewClient(ctx, cfg.FirestoreProject)
		if err != nil {
			logger.Fatal("create firestore client", zap.Error(err))
		}
		defer client.Close()

		fs := store.NewFirestoreStore(client, cfg.Households, window)
		ledger, insights, aggregates = fs, fs, fs
		logger.Info("using firestore store", zap.String("project", cfg.FirestoreProject))
	} else {
		mem := store.NewMemoryStore()
		ledger, insights = mem, mem
		aggregates = store.NewMemoryAggregateStore(mem, cfg.Households, window)
		logger.Info("using in-memory store")
	}

	var c cache.Cache
	if cfg.RedisAddr != "" {
		c = cache.NewRedisCache(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
		logger.Info("using redis cache", zap.String("addr", cfg.RedisAddr))
	} else {
		c = cache.NewMemoryCache()
		logger.Info("using in-memory cache")
	}

	svc := service.NewAnalyticsService(ledger, insights, aggregates, c, logger)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	server := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		logger.Info("serving health and metrics", zap.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("serve", zap.Error(err))
		}
	}()

	go runRefreshLoop(ctx, svc, cfg.Households, cfg.RefreshInterval, logger)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
}

// runRefreshLoop refreshes every materialized view and regenerates each
// configured household's insights once at startup, then on the configured
// cadence until the context is cancelled.
func runRefreshLoop(ctx context.Context, svc *service.AnalyticsService, households []string, interval time.Duration, logger *zap.Logger) {
	refresh := func() {
		statuses := svc.RefreshAllViews(ctx, false)
		for _, status := range statuses {
			if status.Status == model.ViewFailed {
				logger.Warn("scheduled refresh failed",
					zap.String("view", status.ViewName),
					zap.String("error", status.Error))
			}
		}
		for _, hh := range households {
			if _, err := svc.GenerateInsights(ctx, hh); err != nil {
				logger.Warn("scheduled insight run failed",
					zap.String("household_id", hh),
					zap.Error(err))
			}
		}
	}
	refresh()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}

func newLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(os.Stdout), lvl)
	return zap.New(core)
}
