package airquality

import (
	"context"
	"time"
)

// Fetcher abstracts the upstream air-quality data source.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, coord Coordinate, pastDays int) ([]RawRecord, error)
}

// Store is the contract the persistent reading table must satisfy.
type Store interface {
	// EnsureSchema creates the table if absent and verifies the unique
	// timestamp constraint. It returns a *SchemaError on incompatibility.
	EnsureSchema(ctx context.Context) error

	// Acquire returns a session scoped to a single run. Callers must Close it.
	Acquire(ctx context.Context) (Session, error)

	// Range returns at most limit readings with from <= timestamp <= to,
	// oldest first. A limit <= 0 returns every match.
	Range(ctx context.Context, from, to time.Time, limit int) ([]Reading, error)
}

// Session is a scoped connection used for the write path of one run.
type Session interface {
	// InsertIfAbsent writes r unless a reading with the same timestamp exists.
	// A conflict is not an error: it reports inserted=false with a nil error.
	InsertIfAbsent(ctx context.Context, r Reading) (inserted bool, err error)
	Close() error
}

// Recorder receives the outcome of every run. Used for metrics.
type Recorder interface {
	ObserveRun(run IngestionRun)
}
