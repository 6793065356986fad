package indexer

import (
	"context"
	"fmt"

	"github.com/goran-ethernal/TokenIndexor/internal/common"
	"github.com/goran-ethernal/TokenIndexor/internal/logger"
	"github.com/goran-ethernal/TokenIndexor/pkg/config"
	"github.com/goran-ethernal/TokenIndexor/pkg/indexer"
	"golang.org/x/sync/errgroup"
)

// LoggerFactory returns the logger of a component.
type LoggerFactory func(component string) *logger.Logger

// Coordinator runs one scheduler per feed. Feeds share no state and fail independently.
type Coordinator struct {
	schedulers []*Scheduler
	log        *logger.Logger
}

// NewCoordinator creates an empty coordinator.
func NewCoordinator(log *logger.Logger) *Coordinator {
	return &Coordinator{log: log}
}

// Add registers a scheduler.
func (c *Coordinator) Add(s *Scheduler) {
	c.schedulers = append(c.schedulers, s)
}

// Feeds returns the names of the registered schedulers.
func (c *Coordinator) Feeds() []string {
	names := make([]string, 0, len(c.schedulers))
	for _, s := range c.schedulers {
		names = append(names, s.Name())
	}
	return names
}

// Run starts every scheduler and blocks until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	if len(c.schedulers) == 0 {
		return fmt.Errorf("no feeds to run")
	}

	c.log.Infof("running feeds %v", c.Feeds())

	g, ctx := errgroup.WithContext(ctx)
	for _, s := range c.schedulers {
		g.Go(func() error {
			return s.Run(ctx)
		})
	}

	return g.Wait()
}

// Build creates a scheduler per feed name. names defaults to cfg.Feeds and
// then to every registered feed. Any feed construction failure is returned.
// Feeds get their component loggers from newLog unless deps carries its own.
func Build(cfg config.IndexerConfig, deps indexer.Deps, names []string, newLog LoggerFactory) (*Coordinator, error) {
	if len(names) == 0 {
		names = cfg.Feeds
	}
	if len(names) == 0 {
		names = indexer.ListRegistered()
	}

	if deps.NewLogger == nil {
		deps.NewLogger = newLog
	}

	c := NewCoordinator(newLog(common.ComponentCoordinator))
	head := NewPolicyHead(deps.Gateway, cfg.HeadPolicy())

	for _, name := range names {
		feed, err := indexer.Create(name, deps)
		if err != nil {
			return nil, fmt.Errorf("create feed %s: %w", name, err)
		}

		orch := NewOrchestrator(feed, deps.DB, head, cfg.BlockLotMaxSize,
			newLog(common.ComponentOrchestrator).WithFields("feed", feed.Name()))
		c.Add(NewScheduler(feed.Name(), orch, cfg.SyncInterval.Duration,
			newLog(common.ComponentScheduler).WithFields("feed", feed.Name())))
	}

	return c, nil
}
