// Package types holds small value types shared by configuration and the
// sync loop.
package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
)

// BlockFinality is the block tag a sync cycle treats as the chain head.
type BlockFinality string

const (
	// FinalityFinalized uses the finalized block tag (highest level of finality)
	FinalityFinalized BlockFinality = "finalized"

	// FinalitySafe uses the safe block tag (medium level of finality)
	FinalitySafe BlockFinality = "safe"

	// FinalityLatest uses the latest block tag (no finality guarantees)
	FinalityLatest BlockFinality = "latest"
)

// String returns the string representation of BlockFinality.
func (f BlockFinality) String() string {
	return string(f)
}

// IsValid checks if the BlockFinality value is valid.
func (f BlockFinality) IsValid() bool {
	switch f {
	case FinalityFinalized, FinalitySafe, FinalityLatest:
		return true
	default:
		return false
	}
}

// BlockNumber returns the JSON-RPC block tag of f. Unknown values map to latest.
func (f BlockFinality) BlockNumber() rpc.BlockNumber {
	switch f {
	case FinalityFinalized:
		return rpc.FinalizedBlockNumber
	case FinalitySafe:
		return rpc.SafeBlockNumber
	default:
		return rpc.LatestBlockNumber
	}
}

// ParseBlockFinality parses a string into a BlockFinality type.
func ParseBlockFinality(s string) (BlockFinality, error) {
	f := BlockFinality(s)
	if !f.IsValid() {
		return "", fmt.Errorf("invalid block finality: %s (must be one of: finalized, safe, latest)", s)
	}
	return f, nil
}

// HeadPolicy picks the block a cycle syncs up to: the block carrying the
// Finality tag, minus Confirmations blocks.
type HeadPolicy struct {
	Finality      BlockFinality
	Confirmations uint64
}

// Apply subtracts the confirmation depth from head, stopping at zero.
func (p HeadPolicy) Apply(head uint64) uint64 {
	if head < p.Confirmations {
		return 0
	}
	return head - p.Confirmations
}
