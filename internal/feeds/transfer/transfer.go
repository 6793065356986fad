// Package transfer records token movements: plain transfers and the
// unlock-derived movements of locked balances.
package transfer

import (
	"context"
	"math/big"
	"slices"
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
const Name = "transfer"

const table = "transfer"

// Source events.
const (
	SourceTransfer                 = "Transfer"
	SourceUnlock                   = "Unlock"
	SourceForceUnlock              = "ForceUnlock"
	SourceForceChangeLockedAccount = "ForceChangeLockedAccount"
)

var sources = []string{SourceTransfer, SourceUnlock, SourceForceUnlock, SourceForceChangeLockedAccount}

// messages are the data.message values kept on a row.
var messages = []string{
	"garnishment",
	"inheritance",
	"force_unlock",
	"force_change_locked_account",
	"ibet_wst_bridge",
}

func init() {
	indexer.Register(Name, func(deps indexer.Deps) (indexer.Feed, error) {
		return New(deps), nil
	})
}

// Transfer is one movement of a token balance.
type Transfer struct {
	ID              int64          `meddler:"id,pk"`
	TransactionHash common.Hash    `meddler:"transaction_hash,hash"`
	TokenAddress    common.Address `meddler:"token_address,address"`
	FromAddress     common.Address `meddler:"from_address,address"`
	ToAddress       common.Address `meddler:"to_address,address"`
	Amount          *big.Int       `meddler:"amount,bigint"`
	SourceEvent     string         `meddler:"source_event"`
	Data            string         `meddler:"data"`
	Message         *string        `meddler:"message"`
	BlockTimestamp  time.Time      `meddler:"block_timestamp,utctime"`
}

// NewTransfer maps a source event to its row. It returns nil when an
// unlock-derived event moves the balance to the account it came from.
func NewTransfer(ev scanner.Event) *Transfer {
	row := &Transfer{
		TransactionHash: ev.TxHash(),
		TokenAddress:    ev.Log.Address,
		SourceEvent:     ev.Name,
		Data:            "{}",
		BlockTimestamp:  ev.Timestamp,
	}

	switch ev.Name {
	case SourceTransfer:
		row.FromAddress = ev.Address("from")
		row.ToAddress = ev.Address("to")
		row.Amount = ev.BigInt("value")
		return row
	case SourceUnlock, SourceForceUnlock:
		row.FromAddress = ev.Address("accountAddress")
		row.ToAddress = ev.Address("recipientAddress")
	case SourceForceChangeLockedAccount:
		row.FromAddress = ev.Address("beforeAccountAddress")
		row.ToAddress = ev.Address("afterAccountAddress")
	default:
		return nil
	}

	if row.FromAddress == row.ToAddress {
		return nil
	}

	row.Amount = ev.BigInt("value")

	data, ok := feeds.ParseObject(ev.String("data"))
	row.Data = feeds.EncodeObject(data)
	if ok {
		if msg, isString := data["message"].(string); isString && slices.Contains(messages, msg) {
			row.Message = &msg
		}
	}

	return row
}

// Feed is the transfer feed.
type Feed struct {
	resolver *watchset.Resolver
	scanner  *scanner.Scanner
	snapshot *watchset.Snapshot
	log      *logger.Logger
}

// New creates the transfer feed.
func New(deps indexer.Deps) *Feed {
	return &Feed{
		resolver: feeds.NewResolver(deps, nil, internalcommon.ComponentWatchSet),
		scanner:  scanner.New(deps.Gateway, deps.Logger(internalcommon.ComponentScanner)),
		snapshot: &watchset.Snapshot{},
		log:      deps.Logger(internalcommon.ComponentTransfer),
	}
}

func (f *Feed) Name() string { return Name }

func (f *Feed) Cursors() store.Cursors {
	return store.Cursors{Table: "idx_transfer_block_number"}
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
	queries := make([]scanner.Query, 0, len(sources))
	for _, src := range sources {
		queries = append(queries, scanner.Query{Event: src})
	}

	var mutations []indexer.Mutation
	for _, tok := range f.snapshot.Tokens {
		events, err := f.scanner.ScanEvents(ctx, tok.Handle, from, to, queries...)
		if err != nil {
			return nil, err
		}

		for _, ev := range events {
			row := NewTransfer(ev)
			if row == nil {
				f.log.Debugw("skipping self movement", "token", tok.Address.Hex(), "event", ev.Name, "tx", ev.TxHash().Hex())
				feeds.RecordSkipped(table, "self")
				continue
			}

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
