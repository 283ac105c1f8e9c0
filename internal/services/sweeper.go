package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/taskwarden/backend/internal/infrastructure/outbox"
	"github.com/taskwarden/backend/repository"
	"github.com/taskwarden/backend/usecase"
	"github.com/taskwarden/backend/usecase/alert"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// SweeperConfig controls how frequently the background pass runs.
type SweeperConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

// Sweeper is the background deadline pass: on each tick it re-evaluates
// approaching deadlines across all tasks (so warnings fire even for viewers
// who never load their board) and retries undelivered warnings from the
// outbox.
type Sweeper struct {
	tasks    repository.TaskRepository
	alerts   *alert.Evaluator
	notifier usecase.Notifier
	store    *outbox.Store
	monitor  ConnectionHealth
	logger   *zap.Logger
	cron     *cron.Cron
	cfg      SweeperConfig
}

func NewSweeper(
	tasks repository.TaskRepository,
	alerts *alert.Evaluator,
	notifier usecase.Notifier,
	store *outbox.Store,
	monitor ConnectionHealth,
	logger *zap.Logger,
	cfg SweeperConfig,
) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	// The schedule is expressed in whole seconds, so anything shorter would
	// render as "@every 0s" and fail to parse.
	if cfg.Interval < time.Second {
		cfg.Interval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Sweeper{
		tasks:    tasks,
		alerts:   alerts,
		notifier: notifier,
		store:    store,
		monitor:  monitor,
		logger:   logger,
		cfg:      cfg,
		cron:     cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	if _, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		s.Sweep(ctx)
	}); err != nil {
		logger.Error("failed to schedule deadline sweep",
			zap.String("schedule", schedule), zap.Error(err))
	}

	return s
}

// Start launches the cron scheduler.
func (s *Sweeper) Start() {
	if s == nil || s.cron == nil {
		return
	}
	s.cron.Start()
	s.logger.Info("deadline sweeper started")
}

// Stop gracefully stops the scheduler.
func (s *Sweeper) Stop(ctx context.Context) {
	if s == nil || s.cron == nil {
		return
	}
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	s.logger.Info("deadline sweeper stopped")
}

// Sweep runs one full background pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	if s.monitor != nil && !s.monitor.IsOnline() {
		s.logger.Debug("skipping sweep (offline)")
		return
	}

	if err := s.scanDeadlines(ctx); err != nil {
		s.logger.Error("deadline scan failed", zap.Error(err))
	}
	if err := s.drainOutbox(ctx); err != nil {
		s.logger.Error("outbox drain failed", zap.Error(err))
	}
}

// scanDeadlines evaluates the full task set. The ledger keeps this idempotent
// with respect to warnings already fired from board refreshes.
func (s *Sweeper) scanDeadlines(ctx context.Context) error {
	if s.tasks == nil || s.alerts == nil {
		return nil
	}

	all, err := s.tasks.List(ctx, repository.TaskFilter{})
	if err != nil {
		return err
	}

	result := s.alerts.Evaluate(ctx, all)
	if len(result.Dispatched) > 0 || result.Failures > 0 {
		s.logger.Info("deadline scan finished",
			zap.Int("dispatched", len(result.Dispatched)),
			zap.Int("failures", result.Failures))
	}
	return nil
}

// drainOutbox retries queued warnings, dropping envelopes that exhausted
// their retry cap.
func (s *Sweeper) drainOutbox(ctx context.Context) error {
	if s.store == nil || s.notifier == nil {
		return nil
	}

	envelopes, err := s.store.GetBatch(s.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, env := range envelopes {
		warning := usecase.DeadlineWarning{
			TaskID:    env.TaskID,
			Email:     env.Email,
			TaskTitle: env.TaskTitle,
			Deadline:  env.Deadline,
			Message:   env.Message,
		}

		if err := s.notifier.Send(ctx, warning); err != nil {
			s.logger.Warn("outbox retry failed",
				zap.String("envelope_id", env.ID),
				zap.String("task_id", env.TaskID),
				zap.Error(err))

			env.Retries++
			if env.Retries >= s.cfg.MaxRetries {
				s.logger.Warn("dropping outbox envelope (max retries reached)",
					zap.String("envelope_id", env.ID))
				_ = s.store.Remove(env)
				continue
			}

			if err := s.store.Remove(env); err != nil {
				s.logger.Warn("failed to remove outbox envelope", zap.Error(err))
			}
			if err := s.store.Requeue(env); err != nil {
				s.logger.Error("failed to requeue outbox envelope", zap.Error(err))
			}
			continue
		}

		if err := s.store.Remove(env); err != nil {
			s.logger.Warn("failed to purge delivered envelope", zap.Error(err))
		}
	}
	return nil
}
