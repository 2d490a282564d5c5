package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	custommw "finitefield.org/orders-admin/internal/admin/httpserver/middleware"
	"finitefield.org/orders-admin/internal/admin/httpserver/ui"
	"finitefield.org/orders-admin/internal/admin/listing"
	adminorders "finitefield.org/orders-admin/internal/admin/orders"
	"finitefield.org/orders-admin/internal/admin/views"
	"finitefield.org/orders-admin/internal/platform/observability"
)

const (
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 30 * time.Second
	defaultIdleTimeout    = 60 * time.Second
	defaultRequestTimeout = 60 * time.Second
)

// Config holds runtime options for the admin HTTP server.
type Config struct {
	Address  string
	BasePath string
	Orders   adminorders.Service
	// Views keeps the live listings per session. When nil a registry with default
	// settings is created and closed on shutdown.
	Views       *views.Registry
	Logger      *zap.Logger
	SearchDelay time.Duration
	Session     custommw.ViewSessionConfig

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration

	// MetricsHandler is mounted at MetricsPath outside the base path when set.
	MetricsHandler http.Handler
	MetricsPath    string
}

// New constructs the HTTP server with its middleware stack.
func New(cfg Config) (*http.Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := cfg.Views
	ownsRegistry := false
	if registry == nil {
		var err error
		registry, err = views.NewRegistry(cfg.Orders, views.RegistryConfig{
			Listing:  listing.DefaultConfig(),
			Debounce: cfg.SearchDelay,
		}, views.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		ownsRegistry = true
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(observability.TraceMiddleware())
	router.Use(observability.InjectLoggerMiddleware(logger))
	router.Use(observability.RequestLoggerMiddleware())
	router.Use(observability.RecoveryMiddleware())
	router.Use(chimw.Timeout(durationOr(cfg.RequestTimeout, defaultRequestTimeout)))

	router.Get("/healthz", ui.Health)
	if cfg.MetricsHandler != nil {
		router.Handle(firstNonEmpty(cfg.MetricsPath, "/metrics"), cfg.MetricsHandler)
	}

	basePath := normalizeBasePath(cfg.BasePath)
	session := cfg.Session
	if session.Path == "" {
		session.Path = basePath
	}

	handlers := ui.NewHandlers(ui.Dependencies{
		Orders:      cfg.Orders,
		Views:       registry,
		SearchDelay: cfg.SearchDelay,
	})
	mountAdminRoutes(router, basePath, handlers, session)

	srv := &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  durationOr(cfg.ReadTimeout, defaultReadTimeout),
		WriteTimeout: durationOr(cfg.WriteTimeout, defaultWriteTimeout),
		IdleTimeout:  durationOr(cfg.IdleTimeout, defaultIdleTimeout),
	}
	if ownsRegistry {
		srv.RegisterOnShutdown(registry.Close)
	}
	return srv, nil
}

func mountAdminRoutes(router chi.Router, base string, h *ui.Handlers, session custommw.ViewSessionConfig) {
	ordersPath := strings.TrimRight(base, "/") + "/orders"
	if base != "/" {
		router.Get(base, redirectTo(ordersPath))
	}

	router.Route(base, func(r chi.Router) {
		r.Use(custommw.RequestInfoMiddleware(base))
		r.Use(custommw.HTMX())
		r.Use(custommw.NoStore())
		r.Use(custommw.ViewSession(session))

		r.Get("/", redirectTo(ordersPath))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.OrdersPage)
			RegisterFragment(r, "/table", h.OrdersTable)
			r.Post("/filters", h.OrdersFilters)
			r.Post("/page", h.OrdersChangePage)
			r.Post("/page-size", h.OrdersPageSize)
			r.Get("/{orderID}", h.OrderDetail)
			r.Post("/{orderID}/update", h.OrderUpdate)
			r.Post("/{orderID}/cancel", h.OrderCancel)
		})

		r.Route("/returns", func(r chi.Router) {
			r.Get("/", h.ReturnsPage)
			r.Post("/", h.ReturnsCreate)
			r.Post("/{returnID}/approve", h.ReturnsApprove)
			r.Post("/{returnID}/reject", h.ReturnsReject)
			r.Post("/{returnID}/refund", h.ReturnsRefund)
		})

		r.Get("/api/orders/summary", h.OrdersSummary)
	})
}

func redirectTo(location string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, location, http.StatusFound)
	}
}

func normalizeBasePath(path string) string {
	p := strings.TrimSpace(path)
	if p == "" {
		return "/admin"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		return "/"
	}
	return p
}

func durationOr(value, fallback time.Duration) time.Duration {
	if value > 0 {
		return value
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// RegisterFragment registers a GET handler intended for htmx fragment rendering.
func RegisterFragment(r chi.Router, pattern string, handler http.HandlerFunc) {
	r.With(custommw.RequireHTMX()).Get(pattern, handler)
}
