package airquality

import (
	"context"
	"log/slog"
	"time"
)

// Pipeline merges raw records into the Store with insert-if-absent semantics.
// It holds no state between runs.
type Pipeline struct {
	store  Store
	loc    *time.Location
	logger *slog.Logger
	now    func() time.Time
}

// NewPipeline creates a Pipeline writing to store. Provider timestamps
// without an offset are read in loc; nil means UTC.
func NewPipeline(store Store, loc *time.Location, logger *slog.Logger) *Pipeline {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:  store,
		loc:    loc,
		logger: logger,
		now:    time.Now,
	}
}

// EnsureSchema idempotently prepares the store. Safe to call on every run.
func (p *Pipeline) EnsureSchema(ctx context.Context) error {
	return p.store.EnsureSchema(ctx)
}

// Run normalizes records and writes every valid reading that is not already
// stored. Per-record failures are counted in the returned run; the error is
// non-nil only when the run as a whole could not proceed (no session, or ctx
// cancelled between rows).
func (p *Pipeline) Run(ctx context.Context, records []RawRecord) (IngestionRun, error) {
	return p.process(ctx, records, newRun(p.now()))
}

func (p *Pipeline) process(ctx context.Context, records []RawRecord, run IngestionRun) (IngestionRun, error) {
	run.Requested = len(records)

	readings, rejected := normalizeAll(records, p.loc)
	run.Rejected = len(rejected)
	run.Errors = append(run.Errors, rejected...)
	for _, err := range rejected {
		p.logger.Debug("record rejected", "run_id", run.ID, "error", err)
	}

	if len(readings) == 0 {
		return p.finish(run, nil), nil
	}

	sess, err := p.store.Acquire(ctx)
	if err != nil {
		werr := &WriteError{Err: err}
		run.Errors = append(run.Errors, werr)
		run.Status = StatusFailed
		run.FinishedAt = p.now()
		return run, werr
	}
	defer func() {
		if err := sess.Close(); err != nil {
			p.logger.Error("release store session", "run_id", run.ID, "error", err)
		}
	}()

	run, err = ingest(ctx, sess, readings, run)
	return p.finish(run, err), err
}

func (p *Pipeline) finish(run IngestionRun, cancelErr error) IngestionRun {
	run.Status = resolveStatus(run, cancelErr)
	run.FinishedAt = p.now()
	return run
}

// ingest folds apply over readings in order. ctx is checked between rows;
// every row already written stays durable when the fold stops early.
func ingest(ctx context.Context, sess Session, readings []Reading, run IngestionRun) (IngestionRun, error) {
	for _, r := range readings {
		if err := ctx.Err(); err != nil {
			return run, err
		}
		run = apply(ctx, sess, r, run)
	}
	return run, nil
}

// apply performs one insert attempt and counts its outcome.
func apply(ctx context.Context, sess Session, r Reading, run IngestionRun) IngestionRun {
	inserted, err := sess.InsertIfAbsent(ctx, r)
	switch {
	case err != nil:
		run.Failed++
		run.Errors = append(run.Errors, &WriteError{Timestamp: r.Timestamp, Err: err})
	case inserted:
		run.Inserted++
	default:
		run.Skipped++
	}
	return run
}

func resolveStatus(run IngestionRun, cancelErr error) RunStatus {
	succeeded := run.Inserted + run.Skipped
	switch {
	case cancelErr == nil && run.Failed == 0:
		return StatusSuccess
	case succeeded > 0:
		return StatusPartial
	default:
		return StatusFailed
	}
}
