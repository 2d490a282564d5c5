package listing

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FetchFunc loads the page described by q.
type FetchFunc[T any] func(ctx context.Context, q Query) (T, error)

// Result is the outcome of the fetch triggered by Signal.
type Result[T any] struct {
	Signal    FetchSignal
	Value     T
	Err       error
	FetchedAt time.Time
}

// LoaderOption customises a Loader.
type LoaderOption func(*loaderOptions)

type loaderOptions struct {
	logger  *zap.Logger
	metrics *Metrics
	epochs  *Epochs
	onStale func(FetchSignal)
	now     func() time.Time
}

// WithLogger sets the logger used for fetch diagnostics.
func WithLogger(logger *zap.Logger) LoaderOption {
	return func(o *loaderOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records fetch counts and latencies.
func WithMetrics(m *Metrics) LoaderOption {
	return func(o *loaderOptions) {
		o.metrics = m
	}
}

// WithEpochs shares an epoch tracker between loaders.
func WithEpochs(e *Epochs) LoaderOption {
	return func(o *loaderOptions) {
		if e != nil {
			o.epochs = e
		}
	}
}

// WithStaleHook is called for every response discarded as stale.
func WithStaleHook(fn func(FetchSignal)) LoaderOption {
	return func(o *loaderOptions) {
		o.onStale = fn
	}
}

// Loader turns the fetch signals of a State into fetches. Each new signal cancels
// the fetch it supersedes, and a response is only recorded when its request is
// still the most recent one for the list.
type Loader[T any] struct {
	state *State
	list  string
	fetch FetchFunc[T]
	opts  loaderOptions

	onResult func(Result[T])

	mu       sync.Mutex
	latest   *Result[T]
	changed  chan struct{}
	cancel   context.CancelFunc
	inflight sync.WaitGroup
}

// NewLoader binds fetch to the signals of state. list names the listing in logs,
// metrics and epoch keys.
func NewLoader[T any](state *State, list string, fetch FetchFunc[T], opts ...LoaderOption) *Loader[T] {
	options := loaderOptions{
		logger: zap.NewNop(),
		epochs: NewEpochs(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return &Loader[T]{
		state:   state,
		list:    list,
		fetch:   fetch,
		opts:    options,
		changed: make(chan struct{}),
	}
}

// OnResult registers fn to run for every successful result that is still current,
// before waiters see it. Stale responses never reach fn. fn must not call back into
// the Loader. OnResult must be called before Run.
func (l *Loader[T]) OnResult(fn func(Result[T])) {
	l.onResult = fn
}

// Run dispatches signals until ctx is done or the state is closed.
// In-flight fetches are cancelled and awaited before Run returns.
func (l *Loader[T]) Run(ctx context.Context) error {
	defer func() {
		l.mu.Lock()
		if l.cancel != nil {
			l.cancel()
		}
		l.mu.Unlock()
		l.inflight.Wait()
	}()

	signals := l.state.Signals()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case signal, ok := <-signals:
			if !ok {
				return nil
			}
			l.dispatch(ctx, signal)
		}
	}
}

func (l *Loader[T]) dispatch(ctx context.Context, signal FetchSignal) {
	ticket := l.opts.epochs.Begin(l.list)
	fetchCtx, cancel := context.WithCancel(ctx)

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.cancel = cancel
	l.mu.Unlock()

	l.opts.logger.Debug("listing fetch dispatched",
		zap.String("list", l.list),
		zap.String("reason", string(signal.Reason)),
		zap.Uint64("epoch", signal.Epoch),
		zap.String("token", signal.Token),
		zap.Int("page", signal.Query.Page),
		zap.Int("page_size", signal.Query.PageSize),
	)

	l.inflight.Add(1)
	go func() {
		defer l.inflight.Done()
		defer cancel()

		started := l.opts.now()
		value, err := l.fetch(fetchCtx, signal.Query)
		l.opts.metrics.observeFetch(l.list, started, err)
		l.complete(ticket, Result[T]{Signal: signal, Value: value, Err: err, FetchedAt: l.opts.now()})
	}()
}

func (l *Loader[T]) complete(ticket Ticket, result Result[T]) {
	l.mu.Lock()
	if !l.opts.epochs.IsCurrent(ticket) {
		l.mu.Unlock()
		l.opts.metrics.observeStale(l.list)
		l.opts.logger.Debug("listing response discarded as stale",
			zap.String("list", l.list),
			zap.Uint64("epoch", result.Signal.Epoch),
			zap.String("token", result.Signal.Token),
		)
		if l.opts.onStale != nil {
			l.opts.onStale(result.Signal)
		}
		return
	}

	if result.Err != nil {
		l.opts.logger.Warn("listing fetch failed",
			zap.String("list", l.list),
			zap.String("token", result.Signal.Token),
			zap.Error(result.Err),
		)
	} else if l.onResult != nil {
		l.onResult(result)
	}
	stored := result
	l.latest = &stored
	close(l.changed)
	l.changed = make(chan struct{})
	l.mu.Unlock()
}

// Latest returns the most recent recorded result.
func (l *Loader[T]) Latest() (Result[T], bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.latest == nil {
		return Result[T]{}, false
	}
	return *l.latest, true
}

// Wait blocks until a result for epoch or a later signal has been recorded.
func (l *Loader[T]) Wait(ctx context.Context, epoch uint64) (Result[T], error) {
	for {
		l.mu.Lock()
		if l.latest != nil && l.latest.Signal.Epoch >= epoch {
			result := *l.latest
			l.mu.Unlock()
			return result, nil
		}
		changed := l.changed
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return Result[T]{}, ctx.Err()
		case <-changed:
		}
	}
}
