// Package scanner fetches and decodes contract events over bounded block windows.
package scanner

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/TokenIndexor/internal/contract"
	"github.com/goran-ethernal/TokenIndexor/internal/logger"
	"github.com/goran-ethernal/TokenIndexor/internal/rpc"
)

// Chain is the part of the gateway the scanner needs.
type Chain interface {
	FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)
	HeaderByNumber(ctx context.Context, number uint64) (*types.Header, error)
}

// Event is a decoded log with the timestamp of its block.
type Event struct {
	Name      string
	Log       types.Log
	Args      map[string]any
	Timestamp time.Time
}

// Query selects one event with optional indexed argument filters, one value
// list per indexed argument in declaration order.
type Query struct {
	Event   string
	Filters [][]any
}

// Scanner fetches logs of a single contract.
type Scanner struct {
	chain Chain
	log   *logger.Logger
}

// New creates a scanner.
func New(chain Chain, log *logger.Logger) *Scanner {
	return &Scanner{chain: chain, log: log}
}

// Scan returns the events named event emitted by h in [from, to].
// It returns nothing when from > to or when h does not declare the event.
func (s *Scanner) Scan(ctx context.Context, h *contract.Handle, event string, from, to uint64, filters ...[]any) ([]Event, error) {
	if from > to || !h.HasEvent(event) {
		return nil, nil
	}

	topics, err := h.FilterTopics(event, filters...)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	logs, err := s.fetch(ctx, h.Address, topics, from, to)
	if err != nil {
		return nil, err
	}
	scanDurationLog(event, time.Since(start))

	events := make([]Event, 0, len(logs))
	for _, l := range logs {
		if l.Removed {
			continue
		}

		name, args, err := h.DecodeLog(l)
		if err != nil {
			s.log.Warnw("skipping undecodable log",
				"contract", h.Name, "address", h.Address.Hex(), "tx", l.TxHash.Hex(), "error", err)
			continue
		}

		header, err := s.chain.HeaderByNumber(ctx, l.BlockNumber)
		if err != nil {
			return nil, fmt.Errorf("header %d: %w", l.BlockNumber, err)
		}

		events = append(events, Event{
			Name:      name,
			Log:       l,
			Args:      args,
			Timestamp: time.Unix(int64(header.Time), 0).UTC(), //nolint:gosec
		})
	}

	eventsScannedAdd(event, len(events))
	return events, nil
}

// ScanEvents runs Scan for each query and merges the results in chain order.
func (s *Scanner) ScanEvents(ctx context.Context, h *contract.Handle, from, to uint64, queries ...Query) ([]Event, error) {
	var all []Event
	for _, q := range queries {
		events, err := s.Scan(ctx, h, q.Event, from, to, q.Filters...)
		if err != nil {
			return nil, err
		}
		all = append(all, events...)
	}

	SortEvents(all)
	return all, nil
}

// fetch issues one eth_getLogs call for the range. When the node refuses to
// return that many results the range is split at the end of the range the
// node suggests, or halved when it suggests none.
func (s *Scanner) fetch(ctx context.Context, addr common.Address, topics [][]common.Hash, from, to uint64) ([]types.Log, error) {
	logs, err := s.chain.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{addr},
		Topics:    topics,
	})
	if err == nil {
		return logs, nil
	}

	tooMany, msg := rpc.IsTooManyResultsError(err)
	if !tooMany || from == to {
		return nil, err
	}

	mid := from + (to-from)/2
	if sFrom, sTo, ok := rpc.ParseSuggestedBlockRange(msg); ok && sFrom == from && sTo < to {
		mid = sTo
	}
	s.log.Debugf("too many results for [%d, %d], splitting at %d", from, to, mid)

	left, err := s.fetch(ctx, addr, topics, from, mid)
	if err != nil {
		return nil, err
	}
	right, err := s.fetch(ctx, addr, topics, mid+1, to)
	if err != nil {
		return nil, err
	}

	return append(left, right...), nil
}

// SortEvents orders events by block number then log index.
func SortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].Log, events[j].Log
		if a.BlockNumber != b.BlockNumber {
			return a.BlockNumber < b.BlockNumber
		}
		return a.Index < b.Index
	})
}
