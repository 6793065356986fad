// Package transferapproval indexes transfer applications made on tokens and
// on escrow exchanges, and notifies issuers about phase changes.
//
// Applications made on the token itself are synced as one stream keyed by
// the zero address; each escrow exchange is a stream of its own.
package transferapproval

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	internalcommon "github.com/goran-ethernal/TokenIndexor/internal/common"
	"github.com/goran-ethernal/TokenIndexor/internal/contract"
	"github.com/goran-ethernal/TokenIndexor/internal/db"
	"github.com/goran-ethernal/TokenIndexor/internal/feeds"
	"github.com/goran-ethernal/TokenIndexor/internal/logger"
	"github.com/goran-ethernal/TokenIndexor/internal/scanner"
	"github.com/goran-ethernal/TokenIndexor/internal/store"
	"github.com/goran-ethernal/TokenIndexor/internal/watchset"
	"github.com/goran-ethernal/TokenIndexor/pkg/indexer"
)

// Name is the registered feed name.
const Name = "transfer-approval"

func init() {
	indexer.Register(Name, func(deps indexer.Deps) (indexer.Feed, error) {
		return New(deps), nil
	})
}

var link = &watchset.Link{Method: "tradableExchange", ContractName: contract.IbetSecurityTokenEscrow}

var (
	tokenEvents  = []string{EventApply, EventCancel, EventApprove}
	escrowEvents = []string{EventApply, EventCancel, EventEscrowFinish, EventApprove}
)

// SenderSource resolves the sender of a transaction.
type SenderSource interface {
	TransactionSender(ctx context.Context, txHash common.Hash) (common.Address, error)
}

// Feed is the transfer approval feed.
type Feed struct {
	resolver *watchset.Resolver
	scanner  *scanner.Scanner
	senders  SenderSource
	snapshot *watchset.Snapshot
	log      *logger.Logger
}

// New creates the transfer approval feed.
func New(deps indexer.Deps) *Feed {
	return &Feed{
		resolver: feeds.NewResolver(deps, link, internalcommon.ComponentWatchSet),
		scanner:  scanner.New(deps.Gateway, deps.Logger(internalcommon.ComponentScanner)),
		senders:  deps.Gateway,
		snapshot: &watchset.Snapshot{},
		log:      deps.Logger(internalcommon.ComponentTransferApproval),
	}
}

func (f *Feed) Name() string { return Name }

func (f *Feed) Cursors() store.Cursors {
	return store.Cursors{Table: "idx_transfer_approval_block_number", Keyed: true}
}

// Streams returns the token stream followed by one stream per escrow.
func (f *Feed) Streams(ctx context.Context) ([]indexer.Stream, error) {
	snap, err := f.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	f.snapshot = snap
	feeds.WatchSetSize(Name, len(snap.Tokens), len(snap.Links))

	streams := make([]indexer.Stream, 0, len(snap.Links)+1)
	streams = append(streams, indexer.Stream{Key: internalcommon.ZeroAddress, Label: "token"})
	for _, l := range snap.Links {
		streams = append(streams, indexer.Stream{Key: l.Address, Label: l.Handle.Name})
	}
	return streams, nil
}

func (f *Feed) Scan(ctx context.Context, stream indexer.Stream, from, to uint64) ([]indexer.Mutation, error) {
	var (
		inputs []Input
		err    error
	)

	if internalcommon.IsZeroAddress(stream.Key) {
		inputs, err = f.scanTokens(ctx, from, to)
	} else {
		inputs, err = f.scanEscrow(ctx, stream.Key, from, to)
	}
	if err != nil {
		return nil, err
	}

	senders := make(map[common.Hash]common.Address)
	mutations := make([]indexer.Mutation, 0, len(inputs))
	for _, in := range inputs {
		hash := in.Event.TxHash()
		sender, ok := senders[hash]
		if !ok {
			sender, err = f.senders.TransactionSender(ctx, hash)
			if err != nil {
				return nil, fmt.Errorf("sender of %s: %w", hash.Hex(), err)
			}
			senders[hash] = sender
		}
		in.Sender = sender

		mutations = append(mutations, func(ctx context.Context, s *db.Session) error {
			return Apply(ctx, s, in, f.log)
		})
	}

	return mutations, nil
}

func (f *Feed) scanTokens(ctx context.Context, from, to uint64) ([]Input, error) {
	queries := make([]scanner.Query, 0, len(tokenEvents))
	for _, name := range tokenEvents {
		queries = append(queries, scanner.Query{Event: name})
	}

	var inputs []Input
	for _, tok := range f.snapshot.Tokens {
		events, err := f.scanner.ScanEvents(ctx, tok.Handle, from, to, queries...)
		if err != nil {
			return nil, err
		}
		for _, ev := range events {
			inputs = append(inputs, Input{Exchange: internalcommon.ZeroAddress, Token: tok, Event: ev})
		}
	}

	return inputs, nil
}

func (f *Feed) scanEscrow(ctx context.Context, addr common.Address, from, to uint64) ([]Input, error) {
	escrow, ok := f.snapshot.Link(addr)
	if !ok || len(escrow.Tokens) == 0 {
		return nil, nil
	}

	tokens := make([]any, 0, len(escrow.Tokens))
	for _, t := range escrow.Tokens {
		tokens = append(tokens, t.Address)
	}

	queries := make([]scanner.Query, 0, len(escrowEvents))
	for _, name := range escrowEvents {
		queries = append(queries, scanner.Query{Event: name, Filters: [][]any{nil, tokens}})
	}

	events, err := f.scanner.ScanEvents(ctx, escrow.Handle, from, to, queries...)
	if err != nil {
		return nil, err
	}

	inputs := make([]Input, 0, len(events))
	for _, ev := range events {
		tok, ok := f.snapshot.Token(ev.Address("token"))
		if !ok {
			continue
		}
		inputs = append(inputs, Input{Exchange: escrow.Address, Token: tok, Event: ev})
	}

	return inputs, nil
}
