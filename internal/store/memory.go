package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/air-quality-ingest/internal/airquality"
)

// MemoryStore is a concurrency-safe in-memory implementation of the reading
// store. The map key plays the role of the unique timestamp constraint.
type MemoryStore struct {
	mu sync.RWMutex

	// key: unix seconds of the UTC timestamp
	data map[int64]airquality.Reading
}

var _ airquality.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[int64]airquality.Reading),
	}
}

// EnsureSchema is a no-op: the map always satisfies the constraint.
func (s *MemoryStore) EnsureSchema(ctx context.Context) error {
	return ctx.Err()
}

// Acquire returns the store itself; there is no connection to scope.
func (s *MemoryStore) Acquire(ctx context.Context) (airquality.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return memorySession{s}, nil
}

// InsertIfAbsent stores r unless its timestamp is already present.
func (s *MemoryStore) InsertIfAbsent(ctx context.Context, r airquality.Reading) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	key := r.Timestamp.UTC().Truncate(time.Second).Unix()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; ok {
		return false, nil
	}
	r.Timestamp = r.Timestamp.UTC().Truncate(time.Second)
	s.data[key] = r
	return true, nil
}

// Range returns readings between from and to (inclusive), oldest first,
// capped at limit when limit > 0.
func (s *MemoryStore) Range(ctx context.Context, from, to time.Time, limit int) ([]airquality.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []airquality.Reading
	for _, r := range s.data {
		if (r.Timestamp.Equal(from) || r.Timestamp.After(from)) &&
			(r.Timestamp.Equal(to) || r.Timestamp.Before(to)) {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Len returns the number of stored readings.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

type memorySession struct {
	*MemoryStore
}

func (memorySession) Close() error { return nil }
