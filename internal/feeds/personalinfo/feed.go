// Package personalinfo keeps the decrypted personal info registered by
// token holders for each issuer, with a history row per register or modify
// event. It runs as a single stream over every PersonalInfo contract the
// watched tokens point at.
package personalinfo

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
const Name = "personal-info"

// Contract events.
const (
	EventRegister = "Register"
	EventModify   = "Modify"
)

var eventTypes = map[string]string{
	EventRegister: EventTypeRegister,
	EventModify:   EventTypeModify,
}

func init() {
	indexer.Register(Name, func(deps indexer.Deps) (indexer.Feed, error) {
		return New(deps), nil
	})
}

var link = &watchset.Link{Method: "personalInfoAddress", ContractName: contract.PersonalInfo}

// Decrypter opens the envelope stored on chain for an issuer.
type Decrypter interface {
	Decrypt(issuer common.Address, envelope string) ([]byte, error)
}

// Feed is the personal info feed.
type Feed struct {
	resolver *watchset.Resolver
	scanner  *scanner.Scanner
	caller   contract.Caller
	keys     Decrypter
	snapshot *watchset.Snapshot
	log      *logger.Logger
}

// New creates the personal info feed. Without a key store every record
// falls back to the default mapping.
func New(deps indexer.Deps) *Feed {
	f := &Feed{
		resolver: feeds.NewResolver(deps, link, internalcommon.ComponentWatchSet),
		scanner:  scanner.New(deps.Gateway, deps.Logger(internalcommon.ComponentScanner)),
		caller:   deps.Gateway,
		snapshot: &watchset.Snapshot{},
		log:      deps.Logger(internalcommon.ComponentPersonalInfo),
	}
	if deps.Keys != nil {
		f.keys = deps.Keys
	}
	return f
}

func (f *Feed) Name() string { return Name }

func (f *Feed) Cursors() store.Cursors {
	return store.Cursors{Table: "idx_personal_info_block_number"}
}

func (f *Feed) Streams(ctx context.Context) ([]indexer.Stream, error) {
	snap, err := f.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	f.snapshot = snap
	feeds.WatchSetSize(Name, len(snap.Tokens), len(snap.Links))

	return []indexer.Stream{{Key: internalcommon.ZeroAddress, Label: Name}}, nil
}

func (f *Feed) Scan(ctx context.Context, _ indexer.Stream, from, to uint64) ([]indexer.Mutation, error) {
	var events []scanner.Event

	for _, l := range f.snapshot.Links {
		issuers := issuersOf(l)
		if len(issuers) == 0 {
			continue
		}

		found, err := f.scanner.ScanEvents(ctx, l.Handle, from, to,
			scanner.Query{Event: EventRegister, Filters: [][]any{nil, issuers}},
			scanner.Query{Event: EventModify, Filters: [][]any{nil, issuers}},
		)
		if err != nil {
			return nil, err
		}
		events = append(events, found...)
	}
	scanner.SortEvents(events)

	mutations := make([]indexer.Mutation, 0, len(events))
	for _, ev := range events {
		l, ok := f.snapshot.Link(ev.Log.Address)
		if !ok {
			continue
		}

		account := ev.Address("account_address")
		issuer := ev.Address("link_address")

		info, err := f.read(ctx, l.Handle, account, issuer)
		if err != nil {
			return nil, err
		}

		history := &History{
			AccountAddress: account,
			IssuerAddress:  issuer,
			EventType:      eventTypes[ev.Name],
			PersonalInfo:   feeds.EncodeObject(info),
			BlockTimestamp: ev.Timestamp,
		}
		mutations = append(mutations, func(_ context.Context, s *db.Session) error {
			return Apply(s, history)
		})
	}

	return mutations, nil
}

// read fetches and opens the current envelope of account for issuer. Any
// failure short of gateway unavailability yields the default mapping.
func (f *Feed) read(ctx context.Context, h *contract.Handle, account, issuer common.Address) (map[string]any, error) {
	values, ok, err := contract.ReadValues(ctx, f.caller, h, "personal_info", account, issuer)
	if err != nil {
		return nil, err
	}
	if !ok || len(values) < 3 {
		f.log.Debugw("personal info not readable", "account", account.Hex(), "issuer", issuer.Hex())
		return DefaultInfo(), nil
	}

	envelope, _ := values[2].(string)
	if envelope == "" || f.keys == nil {
		return DefaultInfo(), nil
	}

	plain, err := f.keys.Decrypt(issuer, envelope)
	if err != nil {
		f.log.Warnw("failed to decrypt personal info", "account", account.Hex(), "issuer", issuer.Hex(), "error", err)
		feeds.RecordSkipped(table, "decrypt")
		return DefaultInfo(), nil
	}

	info, ok := ParseInfo(plain)
	if !ok {
		f.log.Warnw("personal info is not a JSON object", "account", account.Hex(), "issuer", issuer.Hex())
		feeds.RecordSkipped(table, "parse")
	}
	return info, nil
}

// Apply upserts the current record from h and appends h to the history.
func Apply(s *db.Session, h *History) error {
	row := &PersonalInfo{}
	found, err := s.GetForUpdate(row,
		`SELECT * FROM personal_info WHERE account_address = ? AND issuer_address = ?`,
		h.AccountAddress.Hex(), h.IssuerAddress.Hex())
	if err != nil {
		return err
	}
	if !found {
		row = &PersonalInfo{
			AccountAddress: h.AccountAddress,
			IssuerAddress:  h.IssuerAddress,
			Created:        h.BlockTimestamp,
		}
	}
	row.PersonalInfo = h.PersonalInfo
	row.DataSource = DataSourceOnChain
	row.Modified = h.BlockTimestamp

	if err := s.Save(table, row); err != nil {
		return err
	}
	feeds.RecordWritten(table)

	if err := s.Insert(historyTable, h); err != nil {
		return err
	}
	feeds.RecordWritten(historyTable)
	return nil
}

func issuersOf(l watchset.LinkedContract) []any {
	seen := make(map[common.Address]struct{}, len(l.Tokens))
	out := make([]any, 0, len(l.Tokens))
	for _, t := range l.Tokens {
		if _, ok := seen[t.Issuer]; ok {
			continue
		}
		seen[t.Issuer] = struct{}{}
		out = append(out, t.Issuer)
	}
	return out
}
