package rpc

import (
	"context"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	internaltypes "github.com/goran-ethernal/TokenIndexor/internal/types"
)

// Gateway is the chain access surface used by the indexer.
// Implementations fail over between endpoints and report exhaustion of all of
// them with an error wrapping ErrServiceUnavailable from internal/rpc.
type Gateway interface {
	// LatestBlockNumber returns the current head block number.
	LatestBlockNumber(ctx context.Context) (uint64, error)

	// BlockNumberAt returns the number of the block carrying the finality tag.
	BlockNumberAt(ctx context.Context, finality internaltypes.BlockFinality) (uint64, error)

	// HeaderByNumber returns the header of a block. Headers are immutable once
	// finalized so implementations may cache them.
	HeaderByNumber(ctx context.Context, number uint64) (*types.Header, error)

	// BlockByTxHash returns the header of the block that included the transaction.
	BlockByTxHash(ctx context.Context, txHash common.Hash) (*types.Header, error)

	// CallContract executes a read-only call against the latest state.
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)

	// FilterLogs retrieves logs matching the query.
	FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)

	// TransactionSender returns the from address of a mined transaction.
	TransactionSender(ctx context.Context, txHash common.Hash) (common.Address, error)

	// SendTransactionAndWait submits a signed transaction and waits for its receipt.
	SendTransactionAndWait(ctx context.Context, tx *types.Transaction) (common.Hash, *types.Receipt, error)

	// Close releases the underlying connections.
	Close()
}
