package recommend

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Trainer rebuilds the model.
type Trainer interface {
	Train(ctx context.Context) (*Generation, error)
}

// Scheduler retrains periodically and after debounced catalog change triggers.
type Scheduler struct {
	trainer  Trainer
	interval time.Duration
	debounce time.Duration
	trigger  chan struct{}
	logger   *zap.Logger
}

// NewScheduler creates a scheduler. interval <= 0 disables periodic retraining.
func NewScheduler(trainer Trainer, interval, debounce time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		trainer:  trainer,
		interval: interval,
		debounce: debounce,
		trigger:  make(chan struct{}, 1),
		logger:   logger,
	}
}

// Trigger requests a retrain. Triggers arriving within the debounce window collapse into one run.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			s.retrain(ctx, "interval")
		case <-s.trigger:
			if timer == nil {
				timer = time.NewTimer(s.debounce)
			} else {
				timer.Reset(s.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			s.retrain(ctx, "catalog change")
		}
	}
}

func (s *Scheduler) retrain(ctx context.Context, reason string) {
	gen, err := s.trainer.Train(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("scheduled retrain failed", zap.String("reason", reason), zap.Error(err))
		}
		return
	}
	s.logger.Debug("scheduled retrain finished", zap.String("reason", reason), zap.String("generation", gen.ID))
}
