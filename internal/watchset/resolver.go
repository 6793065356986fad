// Package watchset tracks which token and exchange contracts a feed scans.
// The set only grows for the lifetime of a Resolver: tokens deactivated
// upstream stay watched until restart.
package watchset

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	internalcommon "github.com/goran-ethernal/TokenIndexor/internal/common"
	"github.com/goran-ethernal/TokenIndexor/internal/contract"
	"github.com/goran-ethernal/TokenIndexor/internal/logger"
	"github.com/goran-ethernal/TokenIndexor/internal/store"
)

// TokenSource is the authoritative list of active tokens.
type TokenSource interface {
	ActiveTokens(ctx context.Context) ([]store.Token, error)
}

// Link names the read-only token method returning a downstream contract
// address and the interface that contract implements.
type Link struct {
	Method       string
	ContractName string
}

// WatchedContract is a token bound to its interface. LinkAddress is the
// zero address when the token has no downstream contract.
type WatchedContract struct {
	Address     common.Address
	Issuer      common.Address
	TokenType   string
	Handle      *contract.Handle
	LinkAddress common.Address
}

// LinkedContract is a downstream contract and the tokens that point at it.
type LinkedContract struct {
	Address common.Address
	Handle  *contract.Handle
	Tokens  []WatchedContract
}

// Snapshot is a copy of the watch set at one point in time.
type Snapshot struct {
	Tokens []WatchedContract
	Links  []LinkedContract
}

// TokenAddresses returns the addresses of all watched tokens.
func (s *Snapshot) TokenAddresses() []common.Address {
	out := make([]common.Address, 0, len(s.Tokens))
	for _, t := range s.Tokens {
		out = append(out, t.Address)
	}
	return out
}

// Token returns the watched token with the given address.
func (s *Snapshot) Token(addr common.Address) (WatchedContract, bool) {
	for _, t := range s.Tokens {
		if t.Address == addr {
			return t, true
		}
	}
	return WatchedContract{}, false
}

// Link returns the linked contract with the given address.
func (s *Snapshot) Link(addr common.Address) (LinkedContract, bool) {
	for _, l := range s.Links {
		if l.Address == addr {
			return l, true
		}
	}
	return LinkedContract{}, false
}

var contractNames = map[string]string{
	"bond":                    contract.IbetStraightBond,
	"share":                   contract.IbetShare,
	contract.IbetStraightBond: contract.IbetStraightBond,
	contract.IbetShare:        contract.IbetShare,
}

// ContractName maps a token kind to its interface name.
func ContractName(tokenType string) (string, bool) {
	name, ok := contractNames[tokenType]
	return name, ok
}

// Resolver grows a feed's watch set from the active token list.
// It is owned by a single scheduler loop and is not safe for concurrent use.
type Resolver struct {
	registry *contract.Registry
	caller   contract.Caller
	source   TokenSource
	link     *Link
	log      *logger.Logger

	tokens     map[common.Address]*WatchedContract
	tokenOrder []common.Address
	links      map[common.Address]*LinkedContract
	linkOrder  []common.Address
}

// NewResolver creates a resolver. link may be nil for feeds that only scan tokens.
func NewResolver(
	registry *contract.Registry,
	caller contract.Caller,
	source TokenSource,
	link *Link,
	log *logger.Logger,
) *Resolver {
	return &Resolver{
		registry: registry,
		caller:   caller,
		source:   source,
		link:     link,
		log:      log,
		tokens:   make(map[common.Address]*WatchedContract),
		links:    make(map[common.Address]*LinkedContract),
	}
}

// Resolve loads tokens that became active since the previous call and their
// linked contracts, then returns a snapshot of the whole set. When an error
// is returned the set is left as it was.
func (r *Resolver) Resolve(ctx context.Context) (*Snapshot, error) {
	active, err := r.source.ActiveTokens(ctx)
	if err != nil {
		return nil, err
	}

	var added []*WatchedContract
	for _, tok := range active {
		if _, ok := r.tokens[tok.TokenAddress]; ok {
			continue
		}

		wc, err := r.bind(ctx, tok)
		if err != nil {
			return nil, err
		}
		if wc != nil {
			added = append(added, wc)
		}
	}

	newLinks := make(map[common.Address]*LinkedContract)
	for _, wc := range added {
		if internalcommon.IsZeroAddress(wc.LinkAddress) {
			continue
		}
		if _, ok := r.links[wc.LinkAddress]; ok {
			continue
		}
		if _, ok := newLinks[wc.LinkAddress]; ok {
			continue
		}

		h, err := r.registry.Resolve(r.link.ContractName, wc.LinkAddress)
		if err != nil {
			return nil, fmt.Errorf("resolve %s at %s: %w", r.link.ContractName, wc.LinkAddress.Hex(), err)
		}
		newLinks[wc.LinkAddress] = &LinkedContract{Address: wc.LinkAddress, Handle: h}
	}

	for _, wc := range added {
		r.tokens[wc.Address] = wc
		r.tokenOrder = append(r.tokenOrder, wc.Address)

		if internalcommon.IsZeroAddress(wc.LinkAddress) {
			continue
		}

		lc, ok := r.links[wc.LinkAddress]
		if !ok {
			lc = newLinks[wc.LinkAddress]
			r.links[wc.LinkAddress] = lc
			r.linkOrder = append(r.linkOrder, wc.LinkAddress)
			r.log.Infow("watching linked contract", "address", lc.Address.Hex(), "contract", lc.Handle.Name)
		} else {
			// the link's stream keeps its cursor, so older events of this token are not rescanned
			r.log.Infow("token joined a watched linked contract, earlier events need a cursor reset",
				"token", wc.Address.Hex(), "link", lc.Address.Hex())
		}
		lc.Tokens = append(lc.Tokens, *wc)
	}

	if len(added) > 0 {
		r.log.Infow("watch set grew", "new_tokens", len(added), "tokens", len(r.tokens), "links", len(r.links))
	}

	return r.snapshot(), nil
}

func (r *Resolver) bind(ctx context.Context, tok store.Token) (*WatchedContract, error) {
	name, ok := ContractName(tok.TokenType)
	if !ok {
		r.log.Warnw("skipping token of unknown type", "token", tok.TokenAddress.Hex(), "type", tok.TokenType)
		return nil, nil
	}

	h, err := r.registry.Resolve(name, tok.TokenAddress)
	if err != nil {
		return nil, fmt.Errorf("resolve token %s: %w", tok.TokenAddress.Hex(), err)
	}

	wc := &WatchedContract{
		Address:     tok.TokenAddress,
		Issuer:      tok.IssuerAddress,
		TokenType:   name,
		Handle:      h,
		LinkAddress: internalcommon.ZeroAddress,
	}

	if r.link == nil {
		return wc, nil
	}

	res, err := contract.Read(ctx, r.caller, h, r.link.Method, internalcommon.ZeroAddress)
	if err != nil {
		return nil, err
	}
	wc.LinkAddress = res.Value

	return wc, nil
}

func (r *Resolver) snapshot() *Snapshot {
	s := &Snapshot{
		Tokens: make([]WatchedContract, 0, len(r.tokenOrder)),
		Links:  make([]LinkedContract, 0, len(r.linkOrder)),
	}

	for _, addr := range r.tokenOrder {
		s.Tokens = append(s.Tokens, *r.tokens[addr])
	}

	for _, addr := range r.linkOrder {
		lc := r.links[addr]
		s.Links = append(s.Links, LinkedContract{
			Address: lc.Address,
			Handle:  lc.Handle,
			Tokens:  append([]WatchedContract(nil), lc.Tokens...),
		})
	}

	return s
}
