package views

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"finitefield.org/orders-admin/internal/admin/listing"
	"finitefield.org/orders-admin/internal/admin/orders"
)

const (
	defaultIdleTimeout = 30 * time.Minute
	persistTimeout     = 2 * time.Second
)

// ErrInvalidSession is returned for session identifiers that are not ULIDs.
var ErrInvalidSession = errors.New("views: invalid session id")

// RegistryConfig tunes the live views kept per console session.
type RegistryConfig struct {
	Listing listing.Config
	// Debounce is how long customer search input must settle; zero uses listing.DefaultDebounce.
	Debounce time.Duration
	// ExcludeCancelledFromRevenue leaves cancelled orders out of the revenue metric.
	ExcludeCancelledFromRevenue bool
	// IdleTimeout evicts views of sessions that were not used for this long.
	IdleTimeout time.Duration
}

// RegistryOption customises a Registry.
type RegistryOption func(*Registry)

// WithStore persists listing snapshots; without it nothing survives a restart.
func WithStore(store StateStore) RegistryOption {
	return func(r *Registry) {
		if store != nil {
			r.store = store
		}
	}
}

// WithLogger sets the registry logger.
func WithLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics records listing fetches of every view.
func WithMetrics(m *listing.Metrics) RegistryOption {
	return func(r *Registry) {
		r.metrics = m
	}
}

// Registry owns the live order and return views of every console session.
type Registry struct {
	svc     orders.Service
	cfg     RegistryConfig
	store   StateStore
	logger  *zap.Logger
	metrics *listing.Metrics
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool
}

type session struct {
	id       string
	orders   *OrdersView
	returns  *ReturnsView
	lastSeen time.Time
	// evicted is set once the session left the registry; no views attach after that.
	evicted bool
}

// NewRegistry validates cfg and returns an empty registry.
func NewRegistry(svc orders.Service, cfg RegistryConfig, opts ...RegistryOption) (*Registry, error) {
	if svc == nil {
		return nil, errors.New("views: order service is required")
	}
	if _, err := listing.New(cfg.Listing); err != nil {
		return nil, err
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		svc:      svc,
		cfg:      cfg,
		store:    NewMemoryStateStore(0),
		logger:   zap.NewNop(),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// NewSessionID returns a fresh session identifier.
func NewSessionID() string {
	return ulid.Make().String()
}

// ValidSessionID reports whether id could have been issued by NewSessionID.
func ValidSessionID(id string) bool {
	_, err := ulid.ParseStrict(strings.TrimSpace(id))
	return err == nil
}

// Orders returns the orders view of the session, creating and restoring it on first use.
func (r *Registry) Orders(ctx context.Context, sessionID string) (*OrdersView, error) {
	for {
		s, err := r.session(sessionID)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		view := s.orders
		r.mu.Unlock()
		if view != nil {
			return view, nil
		}

		state, err := r.restore(ctx, s.id, ListOrders)
		if err != nil {
			return nil, err
		}
		created := newOrdersView(state, r.svc, r.env(s.id))

		r.mu.Lock()
		if s.evicted {
			// Swept while restoring; start over with a live session.
			r.mu.Unlock()
			state.Close()
			continue
		}
		if s.orders != nil {
			view = s.orders
			r.mu.Unlock()
			state.Close()
			return view, nil
		}
		s.orders = created
		r.startLocked(created.run)
		r.mu.Unlock()

		state.Reload()
		return created, nil
	}
}

// Returns returns the returns view of the session, creating and restoring it on first use.
func (r *Registry) Returns(ctx context.Context, sessionID string) (*ReturnsView, error) {
	for {
		s, err := r.session(sessionID)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		view := s.returns
		r.mu.Unlock()
		if view != nil {
			return view, nil
		}

		state, err := r.restore(ctx, s.id, ListReturns)
		if err != nil {
			return nil, err
		}
		created := newReturnsView(state, r.svc, r.env(s.id))

		r.mu.Lock()
		if s.evicted {
			r.mu.Unlock()
			state.Close()
			continue
		}
		if s.returns != nil {
			view = s.returns
			r.mu.Unlock()
			state.Close()
			return view, nil
		}
		s.returns = created
		r.startLocked(created.run)
		r.mu.Unlock()

		state.Reload()
		return created, nil
	}
}

// Forget drops the views and the persisted state of a session.
func (r *Registry) Forget(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	var views detachedViews
	if s, ok := r.sessions[sessionID]; ok {
		delete(r.sessions, sessionID)
		views = s.evictLocked()
	}
	r.mu.Unlock()

	views.close()
	return r.store.Delete(ctx, sessionID)
}

// Sweep closes the views of sessions idle for longer than the idle timeout. Their
// persisted state is kept so they can be restored later.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.cfg.IdleTimeout)

	r.mu.Lock()
	var idle []detachedViews
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			idle = append(idle, s.evictLocked())
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, views := range idle {
		views.close()
	}
	if len(idle) > 0 {
		r.logger.Debug("views: evicted idle sessions", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// RunJanitor sweeps idle sessions every interval until ctx is done.
func (r *Registry) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = r.cfg.IdleTimeout / 2
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close stops every view and waits for their loaders to exit.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	detached := make([]detachedViews, 0, len(r.sessions))
	for _, s := range r.sessions {
		detached = append(detached, s.evictLocked())
	}
	r.sessions = make(map[string]*session)
	r.mu.Unlock()

	for _, views := range detached {
		views.close()
	}
	r.cancel()
	r.wg.Wait()
}

func (r *Registry) session(sessionID string) (*session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if !ValidSessionID(sessionID) {
		return nil, ErrInvalidSession
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errors.New("views: registry closed")
	}
	s, ok := r.sessions[sessionID]
	if !ok {
		s = &session{id: sessionID}
		r.sessions[sessionID] = s
	}
	s.lastSeen = r.now()
	return s, nil
}

func (r *Registry) restore(ctx context.Context, sessionID, list string) (*listing.State, error) {
	snap, ok, err := r.store.Load(ctx, sessionID, list)
	if err != nil {
		r.logger.Warn("views: load listing state failed",
			zap.String("session_id", sessionID),
			zap.String("list", list),
			zap.Error(err),
		)
		ok = false
	}
	if !ok {
		return listing.New(r.cfg.Listing)
	}
	return listing.Restore(r.cfg.Listing, snap)
}

// startLocked runs a view loader; r.mu must be held so Close cannot be waiting yet.
func (r *Registry) startLocked(run func(context.Context)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		run(r.ctx)
	}()
}

func (r *Registry) env(sessionID string) viewEnv {
	logger := r.logger.With(zap.String("session_id", sessionID))
	return viewEnv{
		debounce:         r.cfg.Debounce,
		excludeCancelled: r.cfg.ExcludeCancelledFromRevenue,
		logger:           logger,
		metrics:          r.metrics,
		persist: func(ctx context.Context, list string, snap listing.Snapshot) {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
			defer cancel()
			if err := r.store.Save(ctx, sessionID, list, snap); err != nil {
				logger.Warn("views: persist listing state failed", zap.String("list", list), zap.Error(err))
			}
		},
	}
}

// evictLocked marks the session as gone and detaches its views. r.mu must be held;
// the views are closed by the caller once the lock is released.
func (s *session) evictLocked() detachedViews {
	s.evicted = true
	views := detachedViews{orders: s.orders, returns: s.returns}
	s.orders = nil
	s.returns = nil
	return views
}

type detachedViews struct {
	orders  *OrdersView
	returns *ReturnsView
}

func (d detachedViews) close() {
	if d.orders != nil {
		d.orders.close()
	}
	if d.returns != nil {
		d.returns.close()
	}
}

// viewEnv carries the registry settings a view needs.
type viewEnv struct {
	debounce         time.Duration
	excludeCancelled bool
	logger           *zap.Logger
	metrics          *listing.Metrics
	persist          func(ctx context.Context, list string, snap listing.Snapshot)
}

func (e viewEnv) loaderOptions() []listing.LoaderOption {
	return []listing.LoaderOption{
		listing.WithLogger(e.logger),
		listing.WithMetrics(e.metrics),
	}
}
