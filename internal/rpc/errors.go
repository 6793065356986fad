package rpc

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	internalcommon "github.com/goran-ethernal/TokenIndexor/internal/common"
)

var (
	// ErrServiceUnavailable is returned when no configured endpoint could serve a request.
	ErrServiceUnavailable = errors.New("chain service unavailable")

	// ErrTransactionTimeout is returned when a submitted transaction has no receipt in time.
	ErrTransactionTimeout = errors.New("timed out waiting for transaction receipt")

	tooManyResultsRe = regexp.MustCompile(`(?i)query returned more than \d+ results`)
	blockRangeRe     = regexp.MustCompile(`\[(0x[0-9a-fA-F]+),\s*(0x[0-9a-fA-F]+)\]`)
)

// TransactionRevertedError reports a mined transaction with a failed status.
type TransactionRevertedError struct {
	TxHash  common.Hash
	Receipt *types.Receipt
}

func (e *TransactionRevertedError) Error() string {
	return fmt.Sprintf("transaction %s reverted in block %v", e.TxHash.Hex(), e.Receipt.BlockNumber)
}

// IsUnavailable reports whether err means the chain could not be reached at all.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable)
}

// isNodeAnswer reports whether err is a definite answer from a node. Such
// errors are neither retried nor failed over, since another node would say the same.
func isNodeAnswer(err error) bool {
	if errors.Is(err, ethereum.NotFound) {
		return true
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return true
	}

	var dataErr rpc.DataError
	return errors.As(err, &dataErr) || IsTooManyResultsErrorFrom(err)
}

// IsTooManyResultsErrorFrom reports whether a log query was rejected for
// returning too many results.
func IsTooManyResultsErrorFrom(err error) bool {
	ok, _ := IsTooManyResultsError(err)
	return ok
}

// IsTooManyResultsError checks if the error is an RPC "too many results" error.
// The second return value carries the node's message, which may hold a suggested range.
func IsTooManyResultsError(err error) (bool, string) {
	if err == nil {
		return false, ""
	}

	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		errData := fmt.Sprintf("%v", dataErr.ErrorData())
		if tooManyResultsRe.MatchString(errData) {
			return true, errData
		}
	}

	if tooManyResultsRe.MatchString(err.Error()) {
		return true, err.Error()
	}

	return false, ""
}

// ParseSuggestedBlockRange extracts the block range suggested by the node.
// Expected format: "Query returned more than 20000 results. Try with this block range [0x7dfd25, 0x7e0fcc]."
func ParseSuggestedBlockRange(msg string) (fromBlock, toBlock uint64, ok bool) {
	matches := blockRangeRe.FindStringSubmatch(msg)
	if len(matches) != 3 { //nolint:mnd
		return 0, 0, false
	}

	from, err1 := internalcommon.ParseUint64orHex(&matches[1])
	to, err2 := internalcommon.ParseUint64orHex(&matches[2])
	if err1 != nil || err2 != nil || from > to {
		return 0, 0, false
	}

	return from, to, true
}
