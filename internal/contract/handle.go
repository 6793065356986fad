package contract

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrUnknownEvent is returned when a log's signature is not declared by the handle's interface.
var ErrUnknownEvent = errors.New("event not declared by contract interface")

// Handle is a contract interface bound to one address.
type Handle struct {
	Name    string
	Address common.Address
	ABI     *abi.ABI
}

// HasEvent reports whether the interface declares the event.
func (h *Handle) HasEvent(event string) bool {
	_, ok := h.ABI.Events[event]
	return ok
}

// HasMethod reports whether the interface declares the method.
func (h *Handle) HasMethod(method string) bool {
	_, ok := h.ABI.Methods[method]
	return ok
}

// EventID returns the topic hash of the event.
func (h *Handle) EventID(event string) (common.Hash, bool) {
	ev, ok := h.ABI.Events[event]
	if !ok {
		return common.Hash{}, false
	}
	return ev.ID, true
}

// FilterTopics builds the topic filter for event. indexed holds one value
// list per indexed argument in declaration order; a nil list matches anything.
func (h *Handle) FilterTopics(event string, indexed ...[]any) ([][]common.Hash, error) {
	ev, ok := h.ABI.Events[event]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownEvent, h.Name, event)
	}

	topics := [][]common.Hash{{ev.ID}}
	if len(indexed) == 0 {
		return topics, nil
	}

	rest, err := abi.MakeTopics(indexed...)
	if err != nil {
		return nil, fmt.Errorf("topics for %s.%s: %w", h.Name, event, err)
	}

	return append(topics, rest...), nil
}

// DecodeLog unpacks both indexed and data arguments of l into a map keyed by argument name.
func (h *Handle) DecodeLog(l types.Log) (string, map[string]any, error) {
	if len(l.Topics) == 0 {
		return "", nil, fmt.Errorf("%w: anonymous log", ErrUnknownEvent)
	}

	ev, err := h.ABI.EventByID(l.Topics[0])
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s", ErrUnknownEvent, l.Topics[0].Hex())
	}

	args := make(map[string]any, len(ev.Inputs))
	if err := ev.Inputs.UnpackIntoMap(args, l.Data); err != nil {
		return ev.Name, nil, fmt.Errorf("unpack %s data: %w", ev.Name, err)
	}

	var indexed abi.Arguments
	for _, in := range ev.Inputs {
		if in.Indexed {
			indexed = append(indexed, in)
		}
	}

	if err := abi.ParseTopicsIntoMap(args, indexed, l.Topics[1:]); err != nil {
		return ev.Name, nil, fmt.Errorf("unpack %s topics: %w", ev.Name, err)
	}

	return ev.Name, args, nil
}
