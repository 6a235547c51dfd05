package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/atomic"

	"github.com/i474232898/air-quality-ingest/internal/airquality"
)

// ErrRunInProgress is returned by Trigger when a previous run is still active.
var ErrRunInProgress = errors.New("ingestion run already in progress")

const defaultInterval = time.Hour

// Runner executes one ingestion run.
type Runner interface {
	RunOnce(ctx context.Context) (airquality.IngestionRun, error)
}

// Scheduler periodically triggers ingestion runs, one at a time.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	interval  time.Duration
	logger    *slog.Logger

	running  atomic.Bool
	failures atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Scheduler.
func New(runner Runner, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := gocron.NewScheduler(time.UTC)
	s.SetMaxConcurrentJobs(1, gocron.RescheduleMode)

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		interval:  interval,
		logger:    logger.With("component", "scheduler"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules the periodic job, runs it immediately and starts the
// underlying scheduler.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.interval).StartImmediately().Do(s.tick)
	if err != nil {
		return err
	}

	s.logger.Info("scheduler started", "interval", s.interval)
	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels the active run, if any.
func (s *Scheduler) Stop() {
	s.cancel()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// Trigger runs ingestion now unless a run is already active, in which case
// it returns ErrRunInProgress without waiting.
func (s *Scheduler) Trigger(ctx context.Context) (airquality.IngestionRun, error) {
	if !s.running.CAS(false, true) {
		return airquality.IngestionRun{}, ErrRunInProgress
	}
	defer s.running.Store(false)

	run, err := s.runner.RunOnce(ctx)
	if err != nil || run.Status == airquality.StatusFailed {
		n := s.failures.Inc()
		s.logger.Error("ingestion run failed", "run_id", run.ID, "consecutive_failures", n, "error", err)
	} else {
		s.failures.Store(0)
	}
	return run, err
}

// Running reports whether a run is active.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// ConsecutiveFailures is the number of failed runs since the last success.
func (s *Scheduler) ConsecutiveFailures() int64 {
	return s.failures.Load()
}

func (s *Scheduler) tick() {
	s.logger.Debug("tick")
	if _, err := s.Trigger(s.ctx); errors.Is(err, ErrRunInProgress) {
		s.logger.Warn("previous run still active; skipping tick")
	}
}
