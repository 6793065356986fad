package types

import (
	"testing"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"
)

func TestBlockFinality_Tags(t *testing.T) {
	tags := map[BlockFinality]rpc.BlockNumber{
		FinalityFinalized: rpc.FinalizedBlockNumber,
		FinalitySafe:      rpc.SafeBlockNumber,
		FinalityLatest:    rpc.LatestBlockNumber,
	}

	for f, tag := range tags {
		require.True(t, f.IsValid(), f)
		require.Equal(t, tag, f.BlockNumber(), f)

		parsed, err := ParseBlockFinality(f.String())
		require.NoError(t, err)
		require.Equal(t, f, parsed)
	}
}

func TestBlockFinality_Unknown(t *testing.T) {
	for _, s := range []string{"", "pending", "Finalized", "invalid"} {
		f := BlockFinality(s)
		require.False(t, f.IsValid(), s)
		require.Equal(t, rpc.LatestBlockNumber, f.BlockNumber(), s)

		_, err := ParseBlockFinality(s)
		require.ErrorContains(t, err, "invalid block finality")
	}
}

func TestHeadPolicy_Apply(t *testing.T) {
	tests := []struct {
		name          string
		confirmations uint64
		head          uint64
		want          uint64
	}{
		{name: "no depth", head: 100, want: 100},
		{name: "depth", confirmations: 12, head: 100, want: 88},
		{name: "depth equals head", confirmations: 100, head: 100, want: 0},
		{name: "depth above head", confirmations: 12, head: 5, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := HeadPolicy{Finality: FinalitySafe, Confirmations: tt.confirmations}
			require.Equal(t, tt.want, p.Apply(tt.head))
		})
	}
}
