package views

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"finitefield.org/orders-admin/internal/admin/listing"
)

// StateStore persists the listing state of a console session so that it survives
// process restarts and is shared between replicas.
type StateStore interface {
	Load(ctx context.Context, sessionID, list string) (listing.Snapshot, bool, error)
	Save(ctx context.Context, sessionID, list string, snap listing.Snapshot) error
	Delete(ctx context.Context, sessionID string) error
}

// MemoryStateStore keeps snapshots in process memory.
type MemoryStateStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	snap    listing.Snapshot
	expires time.Time
}

// NewMemoryStateStore returns an in-memory store. Entries expire ttl after their last
// save; a non-positive ttl keeps them forever.
func NewMemoryStateStore(ttl time.Duration) *MemoryStateStore {
	return &MemoryStateStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

// Load implements StateStore.
func (s *MemoryStateStore) Load(_ context.Context, sessionID, list string) (listing.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := stateKey("", sessionID, list)
	entry, ok := s.entries[key]
	if !ok {
		return listing.Snapshot{}, false, nil
	}
	if !entry.expires.IsZero() && !s.now().Before(entry.expires) {
		delete(s.entries, key)
		return listing.Snapshot{}, false, nil
	}
	return cloneSnapshot(entry.snap), true, nil
}

// Save implements StateStore.
func (s *MemoryStateStore) Save(_ context.Context, sessionID, list string, snap listing.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := memoryEntry{snap: cloneSnapshot(snap)}
	if s.ttl > 0 {
		entry.expires = s.now().Add(s.ttl)
	}
	s.entries[stateKey("", sessionID, list)] = entry
	return nil
}

// Delete implements StateStore.
func (s *MemoryStateStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, list := range knownLists {
		delete(s.entries, stateKey("", sessionID, list))
	}
	return nil
}

// redisKV is the subset of the go-redis client used by RedisStateStore.
type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStateStore keeps snapshots as JSON values with a TTL.
type RedisStateStore struct {
	client redisKV
	prefix string
	ttl    time.Duration
}

// NewRedisStateStore wraps a go-redis client. Keys are "<prefix>:<session>:<list>".
func NewRedisStateStore(client redisKV, prefix string, ttl time.Duration) *RedisStateStore {
	return &RedisStateStore{
		client: client,
		prefix: strings.TrimRight(strings.TrimSpace(prefix), ":"),
		ttl:    ttl,
	}
}

// Load implements StateStore.
func (s *RedisStateStore) Load(ctx context.Context, sessionID, list string) (listing.Snapshot, bool, error) {
	key := stateKey(s.prefix, sessionID, list)
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return listing.Snapshot{}, false, nil
	}
	if err != nil {
		return listing.Snapshot{}, false, fmt.Errorf("views: load %s: %w", key, err)
	}

	var snap listing.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return listing.Snapshot{}, false, fmt.Errorf("views: decode %s: %w", key, err)
	}
	return snap, true, nil
}

// Save implements StateStore.
func (s *RedisStateStore) Save(ctx context.Context, sessionID, list string, snap listing.Snapshot) error {
	key := stateKey(s.prefix, sessionID, list)
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("views: encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("views: save %s: %w", key, err)
	}
	return nil
}

// Delete implements StateStore.
func (s *RedisStateStore) Delete(ctx context.Context, sessionID string) error {
	keys := make([]string, 0, len(knownLists))
	for _, list := range knownLists {
		keys = append(keys, stateKey(s.prefix, sessionID, list))
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("views: delete session %s: %w", sessionID, err)
	}
	return nil
}

func stateKey(prefix, sessionID, list string) string {
	key := sessionID + ":" + list
	if prefix == "" {
		return key
	}
	return prefix + ":" + key
}

func cloneSnapshot(snap listing.Snapshot) listing.Snapshot {
	out := snap
	if snap.Filters != nil {
		out.Filters = make(map[string]string, len(snap.Filters))
		for k, v := range snap.Filters {
			out.Filters[k] = v
		}
	}
	return out
}
