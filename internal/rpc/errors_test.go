package rpc

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/stretchr/testify/require"
)

type mockDataError struct {
	data any
	msg  string
}

func (m *mockDataError) Error() string  { return m.msg }
func (m *mockDataError) ErrorData() any { return m.data }

func TestIsTooManyResultsError(t *testing.T) {
	hint := "Query returned more than 10000 results. Try with this block range [0x10, 0x20]."

	tests := []struct {
		name      string
		err       error
		wantMatch bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"data error with hint", &mockDataError{data: hint, msg: "invalid params"}, true},
		{"data error without hint", &mockDataError{data: "other", msg: "invalid params"}, false},
		{"message only", errors.New("query returned more than 5000 results"), true},
		{"wrapped", fmt.Errorf("filter: %w", &mockDataError{data: hint}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, _ := IsTooManyResultsError(tt.err)
			require.Equal(t, tt.wantMatch, ok)
		})
	}
}

func TestParseSuggestedBlockRange(t *testing.T) {
	from, to, ok := ParseSuggestedBlockRange("Try with this block range [0x7dfd25, 0x7e0fcc].")
	require.True(t, ok)
	require.Equal(t, uint64(0x7dfd25), from)
	require.Equal(t, uint64(0x7e0fcc), to)

	for _, msg := range []string{"", "no range here", "[0x20, 0x10]", "[0xzz, 0x10]"} {
		_, _, ok := ParseSuggestedBlockRange(msg)
		require.False(t, ok, msg)
	}
}

func TestIsNodeAnswer(t *testing.T) {
	require.True(t, isNodeAnswer(ethereum.NotFound))
	require.True(t, isNodeAnswer(fmt.Errorf("call: %w", &mockRPCError{code: 3, msg: "execution reverted"})))
	require.True(t, isNodeAnswer(&mockDataError{data: "0x08c379a0"}))
	require.False(t, isNodeAnswer(errors.New("connection refused")))
	require.True(t, isNodeAnswer(errors.New("query returned more than 10000 results")))
}

func TestIsUnavailable(t *testing.T) {
	require.True(t, IsUnavailable(fmt.Errorf("%w: eth_call: %w", ErrServiceUnavailable, errors.New("dial"))))
	require.False(t, IsUnavailable(errors.New("dial")))
}
