package listing

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
)

const (
	// DefaultPageSize is the page size of a fresh listing.
	DefaultPageSize = 20

	signalBuffer = 16
)

// DefaultPageSizes are the page sizes offered when none are configured.
var DefaultPageSizes = []int{10, 20, 50}

// Direction selects the neighbouring page for ChangePage.
type Direction string

const (
	Prev Direction = "prev"
	Next Direction = "next"
)

// Reason explains why a fetch signal was emitted.
type Reason string

const (
	ReasonFiltersChanged  Reason = "filters_changed"
	ReasonReload          Reason = "reload"
	ReasonPageChanged     Reason = "page_changed"
	ReasonPageSizeChanged Reason = "page_size_changed"
)

// Config controls the page sizes a State accepts.
type Config struct {
	PageSizes       []int
	DefaultPageSize int
}

// DefaultConfig returns the stock configuration: sizes {10,20,50}, default 20.
func DefaultConfig() Config {
	return Config{
		PageSizes:       append([]int(nil), DefaultPageSizes...),
		DefaultPageSize: DefaultPageSize,
	}
}

func (c Config) normalized() (Config, error) {
	if len(c.PageSizes) == 0 {
		c.PageSizes = append([]int(nil), DefaultPageSizes...)
	}
	if c.DefaultPageSize == 0 {
		c.DefaultPageSize = DefaultPageSize
	}
	sizes := make([]int, 0, len(c.PageSizes))
	seen := make(map[int]struct{}, len(c.PageSizes))
	for _, size := range c.PageSizes {
		if size <= 0 {
			return Config{}, fmt.Errorf("%w: %d", ErrInvalidPageSize, size)
		}
		if _, ok := seen[size]; ok {
			continue
		}
		seen[size] = struct{}{}
		sizes = append(sizes, size)
	}
	sort.Ints(sizes)
	c.PageSizes = sizes
	if _, ok := seen[c.DefaultPageSize]; !ok {
		return Config{}, fmt.Errorf("%w: default %d not in %v", ErrInvalidPageSize, c.DefaultPageSize, sizes)
	}
	return c, nil
}

// Query is an immutable description of the page to fetch.
type Query struct {
	Page     int
	PageSize int
	filters  map[string]string
}

// Filter returns the value of a filter, or "" when unset.
func (q Query) Filter(key string) string {
	return q.filters[key]
}

// Filters returns a copy of the active filters.
func (q Query) Filters() map[string]string {
	return copyFilters(q.filters)
}

// FetchSignal tells the owner of a State to fetch the described page.
type FetchSignal struct {
	Reason Reason
	// Epoch increases by one for every signal emitted by the same State.
	Epoch uint64
	// Token uniquely identifies the request across processes.
	Token string
	Query Query
}

// Snapshot is the persistable part of a State.
type Snapshot struct {
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
	Total    int               `json:"total"`
	Filters  map[string]string `json:"filters,omitempty"`
}

// State holds the page, page size and filters of a listing and emits a fetch signal
// for every transition that invalidates the displayed data.
type State struct {
	mu       sync.Mutex
	cfg      Config
	page     int
	pageSize int
	total    int
	filters  map[string]string
	epoch    uint64
	closed   bool
	signals  chan FetchSignal
}

// New returns a State at page 1 with the default page size and no filters.
func New(cfg Config) (*State, error) {
	normalized, err := cfg.normalized()
	if err != nil {
		return nil, err
	}
	return &State{
		cfg:      normalized,
		page:     1,
		pageSize: normalized.DefaultPageSize,
		filters:  make(map[string]string),
		signals:  make(chan FetchSignal, signalBuffer),
	}, nil
}

// Restore rebuilds a State from a snapshot without emitting a signal.
// Invalid page sizes fall back to the default and the page is clamped to [1, TotalPages].
func Restore(cfg Config, snap Snapshot) (*State, error) {
	s, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if s.validSize(snap.PageSize) {
		s.pageSize = snap.PageSize
	}
	if snap.Total > 0 {
		s.total = snap.Total
	}
	if snap.Page > 1 {
		s.page = min(snap.Page, s.totalPagesLocked())
	}
	for key, value := range snap.Filters {
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key != "" && value != "" {
			s.filters[key] = value
		}
	}
	return s, nil
}

// Signals returns the channel on which fetch signals are delivered.
// When the consumer falls behind, the oldest pending signal is dropped in favour of the newest.
func (s *State) Signals() <-chan FetchSignal {
	return s.signals
}

// SetFilter sets or clears (empty value) a filter. Off page 1 it moves back to page 1;
// on page 1 it requests a reload. Either way exactly one signal is emitted.
func (s *State) SetFilter(key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyFilterKey
	}
	value = strings.TrimSpace(value)

	s.mu.Lock()
	defer s.mu.Unlock()

	if value == "" {
		delete(s.filters, key)
	} else {
		s.filters[key] = value
	}
	s.filtersChangedLocked()
	return nil
}

// ResetFilters clears every filter. It does nothing when no filter is set.
func (s *State) ResetFilters() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.filters) == 0 {
		return false
	}
	s.filters = make(map[string]string)
	s.filtersChangedLocked()
	return true
}

func (s *State) filtersChangedLocked() {
	if s.page != 1 {
		s.page = 1
		s.emitLocked(ReasonFiltersChanged)
		return
	}
	s.emitLocked(ReasonReload)
}

// ChangePage moves to the previous or next page. Requests past either end are
// ignored without a signal; the return value reports whether the page moved.
func (s *State) ChangePage(dir Direction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch dir {
	case Prev:
		if s.page <= 1 {
			return false
		}
		s.page--
	case Next:
		if s.page >= s.totalPagesLocked() {
			return false
		}
		s.page++
	default:
		return false
	}
	s.emitLocked(ReasonPageChanged)
	return true
}

// SetPage jumps directly to page. Pages outside [1, TotalPages] yield *OutOfRangeError.
func (s *State) SetPage(page int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	totalPages := s.totalPagesLocked()
	if page < 1 || page > totalPages {
		return &OutOfRangeError{Page: page, TotalPages: totalPages}
	}
	s.page = page
	s.emitLocked(ReasonPageChanged)
	return nil
}

// SetPageSize changes the page size and always returns to page 1 with a signal,
// even when the page does not change, because page boundaries shift.
func (s *State) SetPageSize(size int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.validSize(size) {
		return fmt.Errorf("%w: %d not in %v", ErrInvalidPageSize, size, s.cfg.PageSizes)
	}
	s.pageSize = size
	s.page = 1
	s.emitLocked(ReasonPageSizeChanged)
	return nil
}

// Reload requests a refetch of the current page.
func (s *State) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitLocked(ReasonReload)
}

// SetTotal records the total number of records reported by the last fetch.
// When the current page no longer exists it moves to the last page and signals
// the change so that page gets fetched. It reports whether the page moved.
func (s *State) SetTotal(total int) bool {
	if total < 0 {
		total = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total = total
	if last := s.totalPagesLocked(); s.page > last {
		s.page = last
		s.emitLocked(ReasonPageChanged)
		return true
	}
	return false
}

// TotalPages returns max(1, ceil(total/pageSize)).
func (s *State) TotalPages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalPagesLocked()
}

func (s *State) totalPagesLocked() int {
	return TotalPages(s.total, s.pageSize)
}

// TotalPages returns the number of pages needed for total records, never less than 1.
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}

// Query returns the page currently described by the state.
func (s *State) Query() Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryLocked()
}

// Snapshot returns the persistable state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Page:     s.page,
		PageSize: s.pageSize,
		Total:    s.total,
		Filters:  copyFilters(s.filters),
	}
}

// Epoch returns the epoch of the most recent signal, 0 when none was emitted.
func (s *State) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// PageSizes returns the accepted page sizes in ascending order.
func (s *State) PageSizes() []int {
	return append([]int(nil), s.cfg.PageSizes...)
}

// Close stops signal delivery and closes the signal channel. Later transitions
// still update the state but emit nothing.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.signals)
}

func (s *State) validSize(size int) bool {
	for _, allowed := range s.cfg.PageSizes {
		if allowed == size {
			return true
		}
	}
	return false
}

func (s *State) queryLocked() Query {
	return Query{Page: s.page, PageSize: s.pageSize, filters: copyFilters(s.filters)}
}

func (s *State) emitLocked(reason Reason) {
	if s.closed {
		return
	}
	s.epoch++
	signal := FetchSignal{
		Reason: reason,
		Epoch:  s.epoch,
		Token:  ulid.Make().String(),
		Query:  s.queryLocked(),
	}
	for {
		select {
		case s.signals <- signal:
			return
		default:
		}
		// Buffer full: drop the oldest pending signal so the newest is always delivered.
		select {
		case <-s.signals:
		default:
		}
	}
}

func copyFilters(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
