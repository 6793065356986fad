// Package issueredeem appends one row per Issue or Redeem event of the
// watched tokens. It runs as a single stream.
package issueredeem

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	internalcommon "github.com/goran-ethernal/TokenIndexor/internal/common"
	"github.com/goran-ethernal/TokenIndexor/internal/db"
	"github.com/goran-ethernal/TokenIndexor/internal/feeds"
	"github.com/goran-ethernal/TokenIndexor/internal/logger"
	"github.com/goran-ethernal/TokenIndexor/internal/scanner"
	"github.com/goran-ethernal/TokenIndexor/internal/store"
	"github.com/goran-ethernal/TokenIndexor/internal/watchset"
	"github.com/goran-ethernal/TokenIndexor/pkg/indexer"
)

// Name is the registered feed name.
const Name = "issue-redeem"

const table = "issue_redeem"

// Row kinds.
const (
	KindIssue  = "Issue"
	KindRedeem = "Redeem"
)

func init() {
	indexer.Register(Name, func(deps indexer.Deps) (indexer.Feed, error) {
		return New(deps), nil
	})
}

// IssueRedeem is one issue or redeem of a token.
type IssueRedeem struct {
	ID              int64          `meddler:"id,pk"`
	EventType       string         `meddler:"event_type"`
	TransactionHash common.Hash    `meddler:"transaction_hash,hash"`
	TokenAddress    common.Address `meddler:"token_address,address"`
	LockedAddress   common.Address `meddler:"locked_address,address"`
	TargetAddress   common.Address `meddler:"target_address,address"`
	Amount          *big.Int       `meddler:"amount,bigint"`
	BlockTimestamp  time.Time      `meddler:"block_timestamp,utctime"`
}

// NewIssueRedeem maps an Issue or Redeem event to its row.
func NewIssueRedeem(ev scanner.Event) *IssueRedeem {
	return &IssueRedeem{
		EventType:       ev.Name,
		TransactionHash: ev.TxHash(),
		TokenAddress:    ev.Log.Address,
		LockedAddress:   ev.Address("locked_address"),
		TargetAddress:   ev.Address("target_address"),
		Amount:          ev.BigInt("amount"),
		BlockTimestamp:  ev.Timestamp,
	}
}

// Feed is the issue/redeem feed.
type Feed struct {
	resolver *watchset.Resolver
	scanner  *scanner.Scanner
	snapshot *watchset.Snapshot
	log      *logger.Logger
}

// New creates the issue/redeem feed.
func New(deps indexer.Deps) *Feed {
	return &Feed{
		resolver: feeds.NewResolver(deps, nil, internalcommon.ComponentWatchSet),
		scanner:  scanner.New(deps.Gateway, deps.Logger(internalcommon.ComponentScanner)),
		snapshot: &watchset.Snapshot{},
		log:      deps.Logger(internalcommon.ComponentIssueRedeem),
	}
}

func (f *Feed) Name() string { return Name }

func (f *Feed) Cursors() store.Cursors {
	return store.Cursors{Table: "idx_issue_redeem_block_number"}
}

func (f *Feed) Streams(ctx context.Context) ([]indexer.Stream, error) {
	snap, err := f.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	f.snapshot = snap
	feeds.WatchSetSize(Name, len(snap.Tokens), 0)

	return []indexer.Stream{{Key: internalcommon.ZeroAddress, Label: Name}}, nil
}

func (f *Feed) Scan(ctx context.Context, _ indexer.Stream, from, to uint64) ([]indexer.Mutation, error) {
	var mutations []indexer.Mutation

	for _, tok := range f.snapshot.Tokens {
		events, err := f.scanner.ScanEvents(ctx, tok.Handle, from, to,
			scanner.Query{Event: KindIssue}, scanner.Query{Event: KindRedeem})
		if err != nil {
			return nil, err
		}

		for _, ev := range events {
			row := NewIssueRedeem(ev)
			mutations = append(mutations, func(_ context.Context, s *db.Session) error {
				if err := s.Insert(table, row); err != nil {
					return err
				}
				feeds.RecordWritten(table)
				return nil
			})
		}
	}

	return mutations, nil
}
