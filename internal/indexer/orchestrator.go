// Package indexer drives feeds: the orchestrator runs one sync cycle, the
// scheduler repeats cycles, and the coordinator runs a scheduler per feed.
package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/goran-ethernal/TokenIndexor/internal/db"
	"github.com/goran-ethernal/TokenIndexor/internal/logger"
	"github.com/goran-ethernal/TokenIndexor/internal/metrics"
	"github.com/goran-ethernal/TokenIndexor/internal/scanner"
	"github.com/goran-ethernal/TokenIndexor/pkg/indexer"
)

// HeadSource reports the chain head.
type HeadSource interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

// Orchestrator syncs every stream of one feed up to the chain head.
type Orchestrator struct {
	feed indexer.Feed
	db   *db.DB
	head HeadSource
	span uint64
	log  *logger.Logger
}

// NewOrchestrator creates an orchestrator scanning at most span blocks per log query.
func NewOrchestrator(feed indexer.Feed, database *db.DB, head HeadSource, span uint64, log *logger.Logger) *Orchestrator {
	return &Orchestrator{feed: feed, db: database, head: head, span: span, log: log}
}

// RunCycle resolves the streams of the feed and syncs them one after another.
// The first failing stream ends the cycle; streams committed before it stay committed.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	o.log.Debug("resolving watch set")
	streams, err := o.feed.Streams(ctx)
	if err != nil {
		return fmt.Errorf("resolve streams: %w", err)
	}

	for _, st := range streams {
		if err := o.syncStream(ctx, st); err != nil {
			return fmt.Errorf("sync %s: %w", st.Key.Hex(), err)
		}
	}

	o.log.Debug("cycle idle")
	return nil
}

func (o *Orchestrator) syncStream(ctx context.Context, st indexer.Stream) error {
	cursors := o.feed.Cursors()

	cursor, err := cursors.Get(ctx, o.db, st.Key)
	if err != nil {
		return err
	}

	latest, err := o.head.LatestBlockNumber(ctx)
	if err != nil {
		return err
	}

	if cursor >= latest {
		o.log.Debugw("skip process", "exchange", st.Key.Hex(), "cursor", cursor, "latest", latest)
		return nil
	}

	o.log.Infof("Syncing from=%d, to=%d, exchange=%s", cursor+1, latest, st.Key.Hex())
	start := time.Now()

	var mutations []indexer.Mutation
	for _, w := range scanner.SplitWindows(cursor+1, latest, o.span) {
		o.log.Debugw("scanning window", "exchange", st.Key.Hex(), "from", w.From, "to", w.To)

		batch, err := o.feed.Scan(ctx, st, w.From, w.To)
		if err != nil {
			return fmt.Errorf("scan [%d, %d]: %w", w.From, w.To, err)
		}
		metrics.WindowsScannedInc(o.feed.Name())
		mutations = append(mutations, batch...)
	}

	o.log.Debugw("committing", "exchange", st.Key.Hex(), "writes", len(mutations))
	err = o.db.InSession(ctx, o.log, func(s *db.Session) error {
		for _, m := range mutations {
			if err := m(ctx, s); err != nil {
				return err
			}
		}
		return cursors.Set(ctx, s, st.Key, latest)
	})
	if err != nil {
		return err
	}

	metrics.MutationsAppliedAdd(o.feed.Name(), len(mutations))
	metrics.BlocksProcessedAdd(o.feed.Name(), latest-cursor)
	metrics.LastSyncedBlockSet(o.feed.Name(), st.Key.Hex(), latest)
	o.log.Debugw("stream synced", "exchange", st.Key.Hex(), "block", latest, "writes", len(mutations),
		"elapsed", time.Since(start))

	return nil
}
