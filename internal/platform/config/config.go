package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile         = ".env"
	defaultPort            = "8080"
	defaultBasePath        = "/admin"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultRequestTimeout  = 60 * time.Second
	defaultBackendTimeout  = 10 * time.Second
	defaultTenantID        = "t1"
	defaultActorID         = "admin-console"
	defaultPageSize        = 20
	defaultSearchDebounce  = 300 * time.Millisecond
	defaultSessionStore    = SessionStoreMemory
	defaultSessionTTL      = 12 * time.Hour
	defaultSessionCookie   = "orders_admin_view"
	defaultRedisAddr       = "localhost:6379"
	defaultServiceName     = "orders-admin"
	defaultLogLevel        = "info"
	defaultRedisKeyPrefix  = "orders-admin:listing"
	defaultMetricsEndpoint = "/metrics"
)

var defaultPageSizes = []int{10, 20, 50}

// Session store kinds.
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server        ServerConfig
	Backend       BackendConfig
	Listing       ListingConfig
	Sessions      SessionConfig
	Revenue       RevenueConfig
	Observability ObservabilityConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port           string
	BasePath       string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

// Address returns the listen address for the configured port.
func (s ServerConfig) Address() string {
	return ":" + s.Port
}

// BackendConfig points the console at the order/return REST API. An empty BaseURL
// selects the in-memory fixture service.
type BackendConfig struct {
	BaseURL  string
	TenantID string
	ActorID  string
	Timeout  time.Duration
}

// ListingConfig configures list pagination and search input handling.
type ListingConfig struct {
	PageSizes       []int
	DefaultPageSize int
	SearchDebounce  time.Duration
}

// SessionConfig configures persistence of per-session listing state.
type SessionConfig struct {
	Store          string
	CookieName     string
	TTL            time.Duration
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string
}

// RevenueConfig toggles revenue aggregation policy.
type RevenueConfig struct {
	ExcludeCancelled bool
}

// ObservabilityConfig configures logging, tracing and metrics.
type ObservabilityConfig struct {
	ServiceName     string
	LogLevel        string
	MetricsEndpoint string
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e == nil {
		return "config validation failed"
	}
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	if e == nil {
		return nil
	}
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the console configuration from defaults, .env overrides,
// environment variables, and explicit maps (in increasing precedence).
func Load(_ context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	var invalid []string

	pageSizes, ok := intsWithDefault(lookup, "ADMIN_LISTING_PAGE_SIZES", defaultPageSizes)
	if !ok {
		invalid = append(invalid, "Listing.PageSizes")
	}

	cfg := Config{
		Server: ServerConfig{
			Port:           stringWithDefault(lookup, "ADMIN_SERVER_PORT", defaultPort),
			BasePath:       normalizeBasePath(stringWithDefault(lookup, "ADMIN_SERVER_BASE_PATH", defaultBasePath)),
			ReadTimeout:    durationWithDefault(lookup, "ADMIN_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:   durationWithDefault(lookup, "ADMIN_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:    durationWithDefault(lookup, "ADMIN_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			RequestTimeout: durationWithDefault(lookup, "ADMIN_SERVER_REQUEST_TIMEOUT", defaultRequestTimeout),
		},
		Backend: BackendConfig{
			BaseURL:  strings.TrimRight(stringWithDefault(lookup, "ADMIN_BACKEND_BASE_URL", ""), "/"),
			TenantID: stringWithDefault(lookup, "ADMIN_BACKEND_TENANT_ID", defaultTenantID),
			ActorID:  stringWithDefault(lookup, "ADMIN_BACKEND_ACTOR_ID", defaultActorID),
			Timeout:  durationWithDefault(lookup, "ADMIN_BACKEND_TIMEOUT", defaultBackendTimeout),
		},
		Listing: ListingConfig{
			PageSizes:       pageSizes,
			DefaultPageSize: intWithDefault(lookup, "ADMIN_LISTING_DEFAULT_PAGE_SIZE", defaultPageSize),
			SearchDebounce:  durationWithDefault(lookup, "ADMIN_LISTING_SEARCH_DEBOUNCE", defaultSearchDebounce),
		},
		Sessions: SessionConfig{
			Store:          strings.ToLower(stringWithDefault(lookup, "ADMIN_SESSIONS_STORE", defaultSessionStore)),
			CookieName:     stringWithDefault(lookup, "ADMIN_SESSIONS_COOKIE", defaultSessionCookie),
			TTL:            durationWithDefault(lookup, "ADMIN_SESSIONS_TTL", defaultSessionTTL),
			RedisAddr:      stringWithDefault(lookup, "ADMIN_SESSIONS_REDIS_ADDR", defaultRedisAddr),
			RedisPassword:  stringWithDefault(lookup, "ADMIN_SESSIONS_REDIS_PASSWORD", ""),
			RedisDB:        intWithDefault(lookup, "ADMIN_SESSIONS_REDIS_DB", 0),
			RedisKeyPrefix: stringWithDefault(lookup, "ADMIN_SESSIONS_REDIS_PREFIX", defaultRedisKeyPrefix),
		},
		Revenue: RevenueConfig{
			ExcludeCancelled: boolWithDefault(lookup, "ADMIN_REVENUE_EXCLUDE_CANCELLED", false),
		},
		Observability: ObservabilityConfig{
			ServiceName:     stringWithDefault(lookup, "ADMIN_SERVICE_NAME", defaultServiceName),
			LogLevel:        strings.ToLower(stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel)),
			MetricsEndpoint: stringWithDefault(lookup, "ADMIN_METRICS_ENDPOINT", defaultMetricsEndpoint),
		},
	}

	invalid = append(invalid, validateConfig(cfg)...)
	if len(invalid) > 0 {
		return Config{}, &ValidationError{fields: invalid}
	}
	return cfg, nil
}

func validateConfig(cfg Config) []string {
	var invalid []string

	if strings.TrimSpace(cfg.Server.Port) == "" {
		invalid = append(invalid, "Server.Port")
	} else if port, err := strconv.Atoi(cfg.Server.Port); err != nil || port <= 0 || port > 65535 {
		invalid = append(invalid, "Server.Port")
	}
	if cfg.Backend.BaseURL != "" {
		if u, err := url.Parse(cfg.Backend.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			invalid = append(invalid, "Backend.BaseURL")
		}
		if strings.TrimSpace(cfg.Backend.TenantID) == "" {
			invalid = append(invalid, "Backend.TenantID")
		}
	}
	if cfg.Backend.Timeout <= 0 {
		invalid = append(invalid, "Backend.Timeout")
	}
	if !slices.Contains(cfg.Listing.PageSizes, cfg.Listing.DefaultPageSize) {
		invalid = append(invalid, "Listing.DefaultPageSize")
	}
	if cfg.Listing.SearchDebounce < 0 {
		invalid = append(invalid, "Listing.SearchDebounce")
	}
	switch cfg.Sessions.Store {
	case SessionStoreMemory:
	case SessionStoreRedis:
		if strings.TrimSpace(cfg.Sessions.RedisAddr) == "" {
			invalid = append(invalid, "Sessions.RedisAddr")
		}
	default:
		invalid = append(invalid, "Sessions.Store")
	}
	if cfg.Sessions.TTL <= 0 {
		invalid = append(invalid, "Sessions.TTL")
	}
	if strings.TrimSpace(cfg.Sessions.CookieName) == "" {
		invalid = append(invalid, "Sessions.CookieName")
	}
	return invalid
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	values, err := godotenv.Read(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	return values, nil
}

func normalizeBasePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || path == "/" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(path, "/")
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

// intsWithDefault parses a comma separated list of positive integers. The boolean
// reports whether the configured value was usable.
func intsWithDefault(lookup func(string) (string, bool), key string, fallback []int) ([]int, bool) {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return append([]int(nil), fallback...), true
	}
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		n, err := strconv.Atoi(trimmed)
		if err != nil || n <= 0 {
			return append([]int(nil), fallback...), false
		}
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return append([]int(nil), fallback...), false
	}
	slices.Sort(out)
	return out, true
}
