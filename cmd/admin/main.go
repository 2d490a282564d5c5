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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"finitefield.org/orders-admin/internal/admin/backend"
	"finitefield.org/orders-admin/internal/admin/httpserver"
	custommw "finitefield.org/orders-admin/internal/admin/httpserver/middleware"
	"finitefield.org/orders-admin/internal/admin/listing"
	adminorders "finitefield.org/orders-admin/internal/admin/orders"
	"finitefield.org/orders-admin/internal/admin/views"
	"finitefield.org/orders-admin/internal/platform/config"
	"finitefield.org/orders-admin/internal/platform/observability"
)

const (
	janitorInterval = time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	baseLogger, err := observability.NewLogger(cfg.Observability.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named(cfg.Observability.ServiceName)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc, err := newOrderService(cfg.Backend, logger, backend.NewMetrics(registry))
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}

	store, closeStore, err := newStateStore(ctx, cfg.Sessions, logger)
	if err != nil {
		logger.Fatal("failed to initialise session store", zap.Error(err))
	}
	defer closeStore()

	viewRegistry, err := views.NewRegistry(svc, views.RegistryConfig{
		Listing: listing.Config{
			PageSizes:       cfg.Listing.PageSizes,
			DefaultPageSize: cfg.Listing.DefaultPageSize,
		},
		Debounce:                    cfg.Listing.SearchDebounce,
		ExcludeCancelledFromRevenue: cfg.Revenue.ExcludeCancelled,
		IdleTimeout:                 cfg.Sessions.TTL,
	},
		views.WithStore(store),
		views.WithLogger(logger.Named("views")),
		views.WithMetrics(listing.NewMetrics(registry)),
	)
	if err != nil {
		logger.Fatal("failed to initialise view registry", zap.Error(err))
	}
	defer viewRegistry.Close()
	go viewRegistry.RunJanitor(ctx, janitorInterval)

	srv, err := httpserver.New(httpserver.Config{
		Address:     cfg.Server.Address(),
		BasePath:    cfg.Server.BasePath,
		Orders:      svc,
		Views:       viewRegistry,
		Logger:      logger,
		SearchDelay: cfg.Listing.SearchDebounce,
		Session: custommw.ViewSessionConfig{
			CookieName: cfg.Sessions.CookieName,
			Path:       cfg.Server.BasePath,
			TTL:        cfg.Sessions.TTL,
		},
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		RequestTimeout: cfg.Server.RequestTimeout,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		MetricsPath:    cfg.Observability.MetricsEndpoint,
	})
	if err != nil {
		logger.Fatal("failed to initialise http server", zap.Error(err))
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	logger.Info("admin server listening",
		zap.String("addr", srv.Addr),
		zap.String("base_path", cfg.Server.BasePath),
		zap.Bool("fixtures", cfg.Backend.BaseURL == ""),
		zap.String("session_store", cfg.Sessions.Store),
	)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return
	}
	logger.Info("admin server stopped")
}

// newOrderService talks to the commerce backend when a base URL is configured and
// serves the built-in fixtures otherwise.
func newOrderService(cfg config.BackendConfig, logger *zap.Logger, metrics *backend.Metrics) (adminorders.Service, error) {
	if cfg.BaseURL == "" {
		logger.Warn("ADMIN_BACKEND_BASE_URL not set; serving fixture orders")
		return adminorders.NewStaticService(), nil
	}
	return backend.NewClient(backend.Config{
		BaseURL:  cfg.BaseURL,
		TenantID: cfg.TenantID,
		ActorID:  cfg.ActorID,
		Timeout:  cfg.Timeout,
	},
		backend.WithLogger(logger.Named("backend")),
		backend.WithMetrics(metrics),
	)
}

func newStateStore(ctx context.Context, cfg config.SessionConfig, logger *zap.Logger) (views.StateStore, func(), error) {
	if cfg.Store != config.SessionStoreRedis {
		return views.NewMemoryStateStore(cfg.TTL), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
	}

	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Warn("redis close error", zap.Error(err))
		}
	}
	return views.NewRedisStateStore(client, cfg.RedisKeyPrefix, cfg.TTL), closeFn, nil
}
