package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/lru"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/goran-ethernal/TokenIndexor/internal/logger"
	internaltypes "github.com/goran-ethernal/TokenIndexor/internal/types"
	"github.com/goran-ethernal/TokenIndexor/pkg/config"
	pkgrpc "github.com/goran-ethernal/TokenIndexor/pkg/rpc"
)

// Compile-time check to ensure Client implements pkgrpc.Gateway interface.
var _ pkgrpc.Gateway = (*Client)(nil)

const defaultReceiptPollInterval = 500 * time.Millisecond

type endpoint struct {
	url string
	eth *ethclient.Client
	rpc *rpc.Client
}

// Client is a Gateway over one or more JSON-RPC endpoints. Each request is
// retried with backoff on the active endpoint, then handed to the next one.
type Client struct {
	endpoints []*endpoint
	active    atomic.Int64

	retry          *config.RetryConfig
	receiptTimeout time.Duration
	pollInterval   time.Duration
	chainID        uint64

	// nil when caching is disabled
	headers *lru.Cache[uint64, *types.Header]
	log     *logger.Logger
}

// NewClient dials every configured endpoint. HTTP endpoints connect lazily,
// so an unreachable node only surfaces on its first request.
func NewClient(ctx context.Context, cfg config.ChainConfig, log *logger.Logger) (*Client, error) {
	if len(cfg.RPCURLs) == 0 {
		return nil, errors.New("no rpc endpoints configured")
	}

	c := &Client{
		retry:          cfg.Retry,
		receiptTimeout: cfg.TxReceiptTimeout.Duration,
		pollInterval:   defaultReceiptPollInterval,
		chainID:        cfg.ChainID,
		log:            log,
	}
	if cfg.HeaderCacheSize > 0 {
		c.headers = lru.NewCache[uint64, *types.Header](cfg.HeaderCacheSize)
	}

	for _, url := range cfg.RPCURLs {
		rpcClient, err := rpc.DialContext(ctx, url)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("dial %s: %w", url, err)
		}

		c.endpoints = append(c.endpoints, &endpoint{
			url: url,
			eth: ethclient.NewClient(rpcClient),
			rpc: rpcClient,
		})
	}

	return c, nil
}

// Close closes all endpoint connections.
func (c *Client) Close() {
	for _, ep := range c.endpoints {
		ep.rpc.Close()
	}
}

// VerifyChainID compares the node's chain id with the configured one.
func (c *Client) VerifyChainID(ctx context.Context) error {
	if c.chainID == 0 {
		return nil
	}

	id, err := call(ctx, c, "eth_chainId", func(ctx context.Context, ep *endpoint) (*big.Int, error) {
		return ep.eth.ChainID(ctx)
	})
	if err != nil {
		return err
	}

	if !id.IsUint64() || id.Uint64() != c.chainID {
		return fmt.Errorf("chain id mismatch: configured %d, node reports %s", c.chainID, id)
	}

	return nil
}

// LatestBlockNumber returns the current head block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return call(ctx, c, "eth_blockNumber", func(ctx context.Context, ep *endpoint) (uint64, error) {
		return ep.eth.BlockNumber(ctx)
	})
}

// BlockNumberAt returns the number of the block tagged finality. Tagged
// headers move, so they bypass the header cache.
func (c *Client) BlockNumberAt(ctx context.Context, finality internaltypes.BlockFinality) (uint64, error) {
	if finality == internaltypes.FinalityLatest || finality == "" {
		return c.LatestBlockNumber(ctx)
	}

	tag := big.NewInt(finality.BlockNumber().Int64())
	h, err := call(ctx, c, "eth_getBlockByNumber", func(ctx context.Context, ep *endpoint) (*types.Header, error) {
		return ep.eth.HeaderByNumber(ctx, tag)
	})
	if err != nil {
		return 0, err
	}

	return h.Number.Uint64(), nil
}

// HeaderByNumber returns the header of a block, served from the cache when possible.
func (c *Client) HeaderByNumber(ctx context.Context, number uint64) (*types.Header, error) {
	if c.headers != nil {
		if h, ok := c.headers.Get(number); ok {
			HeaderCacheHits.Inc()
			return h, nil
		}
	}

	h, err := call(ctx, c, "eth_getBlockByNumber", func(ctx context.Context, ep *endpoint) (*types.Header, error) {
		return ep.eth.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	})
	if err != nil {
		return nil, err
	}

	if c.headers != nil {
		c.headers.Add(number, h)
	}
	return h, nil
}

// BlockByTxHash returns the header of the block containing txHash.
func (c *Client) BlockByTxHash(ctx context.Context, txHash common.Hash) (*types.Header, error) {
	receipt, err := call(ctx, c, "eth_getTransactionReceipt", func(ctx context.Context, ep *endpoint) (*types.Receipt, error) {
		return ep.eth.TransactionReceipt(ctx, txHash)
	})
	if err != nil {
		return nil, err
	}

	return c.HeaderByNumber(ctx, receipt.BlockNumber.Uint64())
}

// CallContract executes a read-only call at the latest block.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	return call(ctx, c, "eth_call", func(ctx context.Context, ep *endpoint) ([]byte, error) {
		return ep.eth.CallContract(ctx, msg, nil)
	})
}

// FilterLogs retrieves logs matching the given filter query.
func (c *Client) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	return call(ctx, c, "eth_getLogs", func(ctx context.Context, ep *endpoint) ([]types.Log, error) {
		return ep.eth.FilterLogs(ctx, query)
	})
}

// TransactionSender returns the from address of a transaction as reported by the node.
func (c *Client) TransactionSender(ctx context.Context, txHash common.Hash) (common.Address, error) {
	return call(ctx, c, "eth_getTransactionByHash", func(ctx context.Context, ep *endpoint) (common.Address, error) {
		var tx *struct {
			From common.Address `json:"from"`
		}
		if err := ep.rpc.CallContext(ctx, &tx, "eth_getTransactionByHash", txHash); err != nil {
			return common.Address{}, err
		}
		if tx == nil {
			return common.Address{}, ethereum.NotFound
		}
		return tx.From, nil
	})
}

// SendTransactionAndWait submits tx and polls for its receipt until the
// configured timeout. A receipt with failed status yields a TransactionRevertedError.
func (c *Client) SendTransactionAndWait(
	ctx context.Context, tx *types.Transaction,
) (common.Hash, *types.Receipt, error) {
	hash := tx.Hash()

	_, err := call(ctx, c, "eth_sendRawTransaction", func(ctx context.Context, ep *endpoint) (struct{}, error) {
		return struct{}{}, ep.eth.SendTransaction(ctx, tx)
	})
	if err != nil {
		return hash, nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.receiptTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := call(waitCtx, c, "eth_getTransactionReceipt", func(ctx context.Context, ep *endpoint) (*types.Receipt, error) {
			return ep.eth.TransactionReceipt(ctx, hash)
		})
		switch {
		case err == nil:
			if receipt.Status == types.ReceiptStatusFailed {
				return hash, receipt, &TransactionRevertedError{TxHash: hash, Receipt: receipt}
			}
			return hash, receipt, nil
		case errors.Is(err, ethereum.NotFound):
		case waitCtx.Err() != nil && ctx.Err() == nil:
			return hash, nil, fmt.Errorf("%w: %s", ErrTransactionTimeout, hash.Hex())
		default:
			return hash, nil, err
		}

		select {
		case <-ticker.C:
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return hash, nil, ctx.Err()
			}
			return hash, nil, fmt.Errorf("%w: %s", ErrTransactionTimeout, hash.Hex())
		}
	}
}

// call runs fn on the active endpoint and fails over to the others in turn.
// Node answers and context errors end the walk immediately.
func call[T any](ctx context.Context, c *Client, method string, fn func(context.Context, *endpoint) (T, error)) (T, error) {
	start := time.Now()
	RPCMethodInc(method)
	defer func() { RPCMethodDuration(method, time.Since(start)) }()

	var (
		zero    T
		lastErr error
	)

	n := int64(len(c.endpoints))
	first := c.active.Load()

	for i := range n {
		idx := (first + i) % n
		ep := c.endpoints[idx]

		var result T
		err := retryWithBackoff(ctx, c.retry, method, func() error {
			var err error
			result, err = fn(ctx, ep)
			return err
		})
		if err == nil {
			c.active.Store(idx)
			return result, nil
		}

		if ctx.Err() != nil {
			RPCMethodError(method, "context")
			return zero, err
		}

		if isNodeAnswer(err) {
			RPCMethodError(method, "node")
			return zero, err
		}

		lastErr = err
		RPCMethodError(method, "endpoint")

		if i+1 < n {
			RPCFailoverInc(method)
			c.log.Warnf("endpoint %s failed for %s, failing over: %v", ep.url, method, err)
		}
	}

	return zero, fmt.Errorf("%w: %s: %w", ErrServiceUnavailable, method, lastErr)
}
