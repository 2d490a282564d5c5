package testutil

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"finitefield.org/orders-admin/internal/admin/httpserver"
	"finitefield.org/orders-admin/internal/admin/listing"
	adminorders "finitefield.org/orders-admin/internal/admin/orders"
	"finitefield.org/orders-admin/internal/admin/views"
)

// ServerOption customises the HTTP server configuration for tests.
type ServerOption func(*serverOptions)

type serverOptions struct {
	cfg      httpserver.Config
	registry views.RegistryConfig
	store    views.StateStore
}

// WithBasePath sets a custom base path for the admin routes.
func WithBasePath(path string) ServerOption {
	return func(o *serverOptions) {
		o.cfg.BasePath = path
	}
}

// WithOrdersService wires a custom orders service implementation.
func WithOrdersService(service adminorders.Service) ServerOption {
	return func(o *serverOptions) {
		o.cfg.Orders = service
	}
}

// WithSearchDebounce overrides how long customer search input must settle.
func WithSearchDebounce(delay time.Duration) ServerOption {
	return func(o *serverOptions) {
		o.registry.Debounce = delay
		o.cfg.SearchDelay = delay
	}
}

// WithStateStore persists listing state through store.
func WithStateStore(store views.StateStore) ServerOption {
	return func(o *serverOptions) {
		o.store = store
	}
}

// NewServer constructs an httptest server running the admin HTTP stack backed by
// the in-memory order fixtures.
func NewServer(t testing.TB, opts ...ServerOption) *httptest.Server {
	t.Helper()

	o := serverOptions{
		cfg: httpserver.Config{
			Address:     ":0",
			BasePath:    "/admin",
			Orders:      adminorders.NewStaticService(),
			SearchDelay: 10 * time.Millisecond,
		},
		registry: views.RegistryConfig{
			Listing:  listing.DefaultConfig(),
			Debounce: 10 * time.Millisecond,
		},
	}
	for _, opt := range opts {
		opt(&o)
	}

	registryOpts := []views.RegistryOption{}
	if o.store != nil {
		registryOpts = append(registryOpts, views.WithStore(o.store))
	}
	registry, err := views.NewRegistry(o.cfg.Orders, o.registry, registryOpts...)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	t.Cleanup(registry.Close)
	o.cfg.Views = registry

	srv, err := httpserver.New(o.cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

// NewClient returns a client that keeps the view session cookie and does not follow redirects.
func NewClient(t testing.TB) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
