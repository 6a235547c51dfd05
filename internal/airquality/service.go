package airquality

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ServiceConfig holds the fixed parameters of every run.
type ServiceConfig struct {
	Coordinate Coordinate
	PastDays   int
	Location   *time.Location
	RunTimeout time.Duration
}

// Service orchestrates fetch, schema check and ingestion, and reports runs.
type Service struct {
	fetcher  Fetcher
	store    Store
	pipeline *Pipeline
	recorder Recorder
	cfg      ServiceConfig
	logger   *slog.Logger
}

// NewService creates a new Service. recorder may be nil.
func NewService(fetcher Fetcher, store Store, recorder Recorder, cfg ServiceConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		fetcher:  fetcher,
		store:    store,
		pipeline: NewPipeline(store, cfg.Location, logger),
		recorder: recorder,
		cfg:      cfg,
		logger:   logger,
	}
}

// RunOnce executes one complete, self-contained ingestion run.
// Fetch and schema failures abort the run and are returned to the caller.
func (s *Service) RunOnce(ctx context.Context) (IngestionRun, error) {
	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	run := newRun(s.pipeline.now())

	records, err := s.fetcher.Fetch(ctx, s.cfg.Coordinate, s.cfg.PastDays)
	if err != nil {
		var fe *FetchError
		if !errors.As(err, &fe) {
			err = &FetchError{Op: s.fetcher.Name(), Err: err}
		}
		return s.abort(run, err)
	}

	if err := s.pipeline.EnsureSchema(ctx); err != nil {
		return s.abort(run, err)
	}

	run, err = s.pipeline.process(ctx, records, run)
	s.report(run, err)
	return run, err
}

func (s *Service) abort(run IngestionRun, err error) (IngestionRun, error) {
	run.Status = StatusFailed
	run.FinishedAt = s.pipeline.now()
	s.report(run, err)
	return run, err
}

func (s *Service) report(run IngestionRun, err error) {
	attrs := []any{
		"run_id", run.ID,
		"provider", s.fetcher.Name(),
		"requested", run.Requested,
		"inserted", run.Inserted,
		"skipped", run.Skipped,
		"rejected", run.Rejected,
		"failed", run.Failed,
		"status", run.Status,
		"duration", run.Duration(),
	}
	if err != nil {
		attrs = append(attrs, "error", err)
	}

	switch run.Status {
	case StatusSuccess:
		s.logger.Info("ingestion run finished", attrs...)
	case StatusPartial:
		s.logger.Warn("ingestion run finished", attrs...)
	default:
		s.logger.Error("ingestion run finished", attrs...)
	}

	if s.recorder != nil {
		s.recorder.ObserveRun(run)
	}
}

// Readings returns up to limit stored readings in [from, to], oldest first.
func (s *Service) Readings(ctx context.Context, from, to time.Time, limit int) ([]Reading, error) {
	return s.store.Range(ctx, from.UTC(), to.UTC(), limit)
}

// Summary returns null-aware aggregates for readings in [from, to].
func (s *Service) Summary(ctx context.Context, from, to time.Time) (Summary, error) {
	readings, err := s.store.Range(ctx, from.UTC(), to.UTC(), 0)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(from.UTC(), to.UTC(), readings), nil
}
