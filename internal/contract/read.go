package contract

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum"
	"github.com/goran-ethernal/TokenIndexor/internal/rpc"
)

// Caller is the part of the gateway used for read-only calls.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
}

// Result is the outcome of a read-only call. Present is false when the
// fallback value was substituted.
type Result[T any] struct {
	Value   T
	Present bool
}

// Read calls method on h and returns its first output as T.
// A missing method, a revert, or output that does not decode to T yields the
// fallback. Only gateway unavailability and context errors are returned.
func Read[T any](ctx context.Context, c Caller, h *Handle, method string, fallback T, args ...any) (Result[T], error) {
	values, ok, err := ReadValues(ctx, c, h, method, args...)
	if err != nil || !ok || len(values) == 0 {
		return Result[T]{Value: fallback}, err
	}

	v, ok := values[0].(T)
	if !ok {
		return Result[T]{Value: fallback}, nil
	}

	return Result[T]{Value: v, Present: true}, nil
}

// ReadValues calls method on h and returns all decoded outputs.
// The bool is false when the call produced nothing usable.
func ReadValues(ctx context.Context, c Caller, h *Handle, method string, args ...any) ([]any, bool, error) {
	m, ok := h.ABI.Methods[method]
	if !ok {
		return nil, false, nil
	}

	input, err := h.ABI.Pack(method, args...)
	if err != nil {
		return nil, false, nil
	}

	to := h.Address
	out, err := c.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input})
	if err != nil {
		if rpc.IsUnavailable(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, false, err
		}
		return nil, false, nil
	}

	if len(out) == 0 {
		return nil, false, nil
	}

	values, err := m.Outputs.Unpack(out)
	if err != nil {
		return nil, false, nil
	}

	return values, true, nil
}
