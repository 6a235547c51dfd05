package airquality

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"
)

func f(v float64) *float64 { return &v }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// hourly builds one record per hour in [from, to] starting at base.
func hourly(base time.Time, from, to int) []RawRecord {
	var out []RawRecord
	for h := from; h <= to; h++ {
		ts := base.Add(time.Duration(h) * time.Hour)
		out = append(out, RawRecord{
			Time: ts.Format("2006-01-02T15:04"),
			Values: map[string]*float64{
				FieldPM10: f(float64(h)),
				FieldPM25: f(float64(h) / 2),
				FieldDust: f(1),
			},
		})
	}
	return out
}

var errBoom = errors.New("boom")

// fakeStore is an in-memory Store with fault injection.
type fakeStore struct {
	mu    sync.Mutex
	rows  map[int64]Reading
	order []int64

	failOn     map[int64]error
	acquireErr error
	schemaErr  error

	schemaCalls int
	acquired    int
	released    int

	// afterInsert runs after every successful or skipped insert.
	afterInsert func(n int)
	attempts    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rows:   make(map[int64]Reading),
		failOn: make(map[int64]error),
	}
}

func (s *fakeStore) failAt(ts time.Time, err error) {
	s.failOn[ts.UTC().Unix()] = err
}

func (s *fakeStore) EnsureSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemaCalls++
	return s.schemaErr
}

func (s *fakeStore) Acquire(ctx context.Context) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.acquireErr != nil {
		return nil, s.acquireErr
	}
	s.acquired++
	return fakeSession{s}, nil
}

func (s *fakeStore) Range(ctx context.Context, from, to time.Time, limit int) ([]Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Reading
	for _, r := range s.rows {
		if !r.Timestamp.Before(from) && !r.Timestamp.After(to) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *fakeStore) get(ts time.Time) (Reading, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[ts.UTC().Unix()]
	return r, ok
}

type fakeSession struct{ s *fakeStore }

func (fs fakeSession) InsertIfAbsent(ctx context.Context, r Reading) (bool, error) {
	s := fs.s
	s.mu.Lock()
	key := r.Timestamp.Unix()
	if err, ok := s.failOn[key]; ok {
		s.mu.Unlock()
		return false, fmt.Errorf("insert: %w", err)
	}
	_, exists := s.rows[key]
	if !exists {
		s.rows[key] = r
		s.order = append(s.order, key)
	}
	s.attempts++
	n := s.attempts
	hook := s.afterInsert
	s.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return !exists, nil
}

func (fs fakeSession) Close() error {
	fs.s.mu.Lock()
	defer fs.s.mu.Unlock()
	fs.s.released++
	return nil
}

// fakeFetcher returns canned records or an error.
type fakeFetcher struct {
	records []RawRecord
	err     error
	calls   int

	gotCoord    Coordinate
	gotPastDays int
}

func (f *fakeFetcher) Name() string { return "fake" }

func (f *fakeFetcher) Fetch(ctx context.Context, coord Coordinate, pastDays int) ([]RawRecord, error) {
	f.calls++
	f.gotCoord = coord
	f.gotPastDays = pastDays
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

type fakeRecorder struct {
	runs []IngestionRun
}

func (r *fakeRecorder) ObserveRun(run IngestionRun) {
	r.runs = append(r.runs, run)
}
