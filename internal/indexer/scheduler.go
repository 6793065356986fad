package indexer

import (
	"context"
	"time"

	"github.com/goran-ethernal/TokenIndexor/internal/db"
	"github.com/goran-ethernal/TokenIndexor/internal/logger"
	"github.com/goran-ethernal/TokenIndexor/internal/metrics"
	"github.com/goran-ethernal/TokenIndexor/internal/rpc"
)

// Cycler runs one sync cycle.
type Cycler interface {
	RunCycle(ctx context.Context) error
}

// Scheduler repeats the cycles of one feed with a fixed sleep in between.
// Cycle failures are logged and never stop the loop.
type Scheduler struct {
	name     string
	cycler   Cycler
	interval time.Duration
	log      *logger.Logger
}

// NewScheduler creates a scheduler for the feed called name.
func NewScheduler(name string, cycler Cycler, interval time.Duration, log *logger.Logger) *Scheduler {
	return &Scheduler{name: name, cycler: cycler, interval: interval, log: log}
}

// Name returns the feed name.
func (s *Scheduler) Name() string {
	return s.name
}

// Run loops until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Infof("starting %s feed, interval %s", s.name, s.interval)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Infof("%s feed stopped", s.name)
			return nil
		case <-timer.C:
		}

		s.RunOnce(ctx)
		timer.Reset(s.interval)
	}
}

// RunOnce runs a single cycle, logs its failure class and returns the outcome.
func (s *Scheduler) RunOnce(ctx context.Context) (outcome string) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("An exception occurred during event synchronization", "feed", s.name, "panic", r)
			outcome = metrics.OutcomeFailed
		}
		metrics.CycleInc(s.name, outcome)
		metrics.CycleDuration(s.name, time.Since(start))
		metrics.ComponentHealthSet(s.name, outcome == metrics.OutcomeOK)
	}()

	err := s.cycler.RunCycle(ctx)
	if err != nil && ctx.Err() != nil {
		s.log.Debugf("%s cycle interrupted: %v", s.name, err)
		return metrics.OutcomeOK
	}

	outcome = Classify(err)
	switch outcome {
	case metrics.OutcomeUnavailable:
		s.log.Warnw("An external service was unavailable", "feed", s.name, "error", err)
	case metrics.OutcomeStorage:
		se, _ := db.AsStorageError(err)
		s.log.Errorw("A database error occurred", "feed", s.name, "code", se.Code, "op", se.Op, "error", err)
	case metrics.OutcomeFailed:
		s.log.Errorw("An exception occurred during event synchronization", "feed", s.name, "error", err)
	}

	return outcome
}

// Classify maps a cycle error to its recoverable failure class.
func Classify(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case rpc.IsUnavailable(err):
		return metrics.OutcomeUnavailable
	case isStorage(err):
		return metrics.OutcomeStorage
	default:
		return metrics.OutcomeFailed
	}
}

func isStorage(err error) bool {
	_, ok := db.AsStorageError(err)
	return ok
}
