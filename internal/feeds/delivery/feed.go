// Package delivery indexes the DVP delivery lifecycle of exchanges linked
// from watched tokens. Each exchange is a separately cursored stream.
package delivery

import (
	"context"

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
const Name = "delivery"

func init() {
	indexer.Register(Name, func(deps indexer.Deps) (indexer.Feed, error) {
		return New(deps), nil
	})
}

var link = &watchset.Link{Method: "tradableExchange", ContractName: contract.IbetSecurityTokenDVP}

// Feed is the delivery feed.
type Feed struct {
	resolver *watchset.Resolver
	scanner  *scanner.Scanner
	snapshot *watchset.Snapshot
	log      *logger.Logger
}

// New creates the delivery feed.
func New(deps indexer.Deps) *Feed {
	return &Feed{
		resolver: feeds.NewResolver(deps, link, internalcommon.ComponentWatchSet),
		scanner:  scanner.New(deps.Gateway, deps.Logger(internalcommon.ComponentScanner)),
		snapshot: &watchset.Snapshot{},
		log:      deps.Logger(internalcommon.ComponentDelivery),
	}
}

func (f *Feed) Name() string { return Name }

func (f *Feed) Cursors() store.Cursors {
	return store.Cursors{Table: "idx_delivery_block_number", Keyed: true}
}

// Streams returns one stream per DVP exchange.
func (f *Feed) Streams(ctx context.Context) ([]indexer.Stream, error) {
	snap, err := f.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	f.snapshot = snap
	feeds.WatchSetSize(Name, len(snap.Tokens), len(snap.Links))

	streams := make([]indexer.Stream, 0, len(snap.Links))
	for _, l := range snap.Links {
		streams = append(streams, indexer.Stream{Key: l.Address, Label: l.Handle.Name})
	}
	return streams, nil
}

// Scan reads the delivery events of the exchange, limited to its watched tokens.
func (f *Feed) Scan(ctx context.Context, stream indexer.Stream, from, to uint64) ([]indexer.Mutation, error) {
	exchange, ok := f.snapshot.Link(stream.Key)
	if !ok || len(exchange.Tokens) == 0 {
		return nil, nil
	}

	tokens := make([]any, 0, len(exchange.Tokens))
	for _, t := range exchange.Tokens {
		tokens = append(tokens, t.Address)
	}

	queries := make([]scanner.Query, 0, len(Events))
	for _, name := range Events {
		queries = append(queries, scanner.Query{Event: name, Filters: [][]any{tokens}})
	}

	events, err := f.scanner.ScanEvents(ctx, exchange.Handle, from, to, queries...)
	if err != nil {
		return nil, err
	}

	mutations := make([]indexer.Mutation, 0, len(events))
	for _, ev := range events {
		mutations = append(mutations, f.mutation(exchange.Address, ev))
	}
	return mutations, nil
}

func (f *Feed) mutation(exchange common.Address, ev scanner.Event) indexer.Mutation {
	return func(ctx context.Context, s *db.Session) error {
		return Apply(ctx, s, exchange, ev, f.log)
	}
}
