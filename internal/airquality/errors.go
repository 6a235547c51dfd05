package airquality

import (
	"fmt"
	"time"
)

// FetchError means the upstream provider was unreachable or returned a payload
// that could not be turned into records. It is terminal for a run.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SchemaError means the store table is missing or incompatible with the
// insert-if-absent contract. It is terminal for a run and never auto-repaired.
type SchemaError struct {
	Table  string
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("schema %s: %s: %v", e.Table, e.Reason, e.Err)
	}
	return fmt.Sprintf("schema %s: %s", e.Table, e.Reason)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// NormalizationError rejects a single raw record.
type NormalizationError struct {
	Index int
	Time  string
	Err   error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("record %d (time %q): %v", e.Index, e.Time, e.Err)
}

func (e *NormalizationError) Unwrap() error { return e.Err }

// WriteError is a non-conflict failure to persist a reading.
// A zero Timestamp means the failure was not tied to a single row.
type WriteError struct {
	Timestamp time.Time
	Err       error
}

func (e *WriteError) Error() string {
	if e.Timestamp.IsZero() {
		return fmt.Sprintf("write: %v", e.Err)
	}
	return fmt.Sprintf("write %s: %v", e.Timestamp.Format(time.RFC3339), e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
