package indexer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/TokenIndexor/internal/db"
	"github.com/goran-ethernal/TokenIndexor/internal/store"
)

// Mutation is one write produced while scanning a window. The orchestrator
// applies every mutation of a stream, then its cursor, in a single session.
type Mutation func(ctx context.Context, s *db.Session) error

// Stream is one independently cursored scan target of a feed. Key is the
// exchange address for keyed feeds and the zero address otherwise.
type Stream struct {
	Key   common.Address
	Label string
}

// Feed indexes one family of contract events into its own tables.
type Feed interface {
	// Name is the registered feed name.
	Name() string

	// Cursors returns the cursor table of the feed.
	Cursors() store.Cursors

	// Streams refreshes the watch set and returns the streams to sync this cycle.
	Streams(ctx context.Context) ([]Stream, error)

	// Scan reads the events of stream in [from, to] and returns the writes
	// they imply, in chain order. Scan must not write to the database.
	Scan(ctx context.Context, stream Stream, from, to uint64) ([]Mutation, error)
}
