package indexer

import (
	"context"

	"github.com/goran-ethernal/TokenIndexor/internal/types"
)

// TaggedHeadSource resolves block tags to numbers.
type TaggedHeadSource interface {
	BlockNumberAt(ctx context.Context, finality types.BlockFinality) (uint64, error)
}

// PolicyHead is a HeadSource that applies a finality tag and a confirmation
// depth to the chain head.
type PolicyHead struct {
	chain  TaggedHeadSource
	policy types.HeadPolicy
}

// NewPolicyHead creates a head source over chain.
func NewPolicyHead(chain TaggedHeadSource, policy types.HeadPolicy) *PolicyHead {
	return &PolicyHead{chain: chain, policy: policy}
}

func (h *PolicyHead) LatestBlockNumber(ctx context.Context) (uint64, error) {
	n, err := h.chain.BlockNumberAt(ctx, h.policy.Finality)
	if err != nil {
		return 0, err
	}
	return h.policy.Apply(n), nil
}
