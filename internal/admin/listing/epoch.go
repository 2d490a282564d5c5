package listing

import "sync"

// Ticket identifies one request issued for a key.
type Ticket struct {
	Key   string
	Epoch uint64
}

// Epochs hands out increasing request epochs per key so that responses can be
// checked against the most recent request instead of trusting arrival order.
type Epochs struct {
	mu      sync.Mutex
	current map[string]uint64
}

// NewEpochs returns an empty epoch tracker.
func NewEpochs() *Epochs {
	return &Epochs{current: make(map[string]uint64)}
}

// Begin supersedes every earlier ticket for key and returns the new one.
func (e *Epochs) Begin(key string) Ticket {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		e.current = make(map[string]uint64)
	}
	e.current[key]++
	return Ticket{Key: key, Epoch: e.current[key]}
}

// IsCurrent reports whether t is the most recent ticket for its key.
func (e *Epochs) IsCurrent(t Ticket) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return t.Epoch != 0 && e.current[t.Key] == t.Epoch
}

// Current returns the latest epoch issued for key.
func (e *Epochs) Current(key string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current[key]
}
