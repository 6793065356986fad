package testutil

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/TokenIndexor/internal/contract"
	"github.com/goran-ethernal/TokenIndexor/internal/rpc"
	internaltypes "github.com/goran-ethernal/TokenIndexor/internal/types"
	pkgrpc "github.com/goran-ethernal/TokenIndexor/pkg/rpc"
	"github.com/stretchr/testify/require"
)

// GenesisTime is the timestamp of block 0 on a FakeChain. Block n is n seconds later.
const GenesisTime = 1_700_000_000

var _ pkgrpc.Gateway = (*FakeChain)(nil)

// FakeChain is an in-memory Gateway serving pre-recorded logs and call results.
type FakeChain struct {
	t  *testing.T
	mu sync.Mutex

	head        uint64
	lag         uint64
	logs        []types.Log
	senders     map[common.Hash]common.Address
	calls       map[string][]byte
	unavailable bool
	txIndex     uint

	FilterQueries []ethereum.FilterQuery
	Sent          []*types.Transaction
}

// NewFakeChain returns an empty chain at block 0.
func NewFakeChain(t *testing.T) *FakeChain {
	t.Helper()
	return &FakeChain{
		t:       t,
		senders: make(map[common.Hash]common.Address),
		calls:   make(map[string][]byte),
	}
}

// SetHead moves the latest block number.
func (f *FakeChain) SetHead(n uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.head = n
}

// SetFinalityLag makes safe and finalized tags trail the head by lag blocks.
func (f *FakeChain) SetFinalityLag(lag uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lag = lag
}

// SetUnavailable makes every call fail with ErrServiceUnavailable.
func (f *FakeChain) SetUnavailable(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unavailable = v
}

// FilterCalls returns the number of FilterLogs calls so far.
func (f *FakeChain) FilterCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.FilterQueries)
}

// Tx describes the transaction an emitted event belongs to.
type Tx struct {
	Hash   common.Hash
	Sender common.Address
}

// NewTx returns a transaction with a fresh hash sent by sender.
func (f *FakeChain) NewTx(sender common.Address) Tx {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txIndex++
	return Tx{Hash: common.BigToHash(new(big.Int).SetUint64(uint64(f.txIndex) + 0xabc000)), Sender: sender}
}

// Emit records event of h at block with the given indexed and data values,
// in declaration order, and returns the stored log.
func (f *FakeChain) Emit(h *contract.Handle, event string, block uint64, tx Tx, indexed []any, data ...any) types.Log {
	f.t.Helper()

	ev, ok := h.ABI.Events[event]
	require.True(f.t, ok, "%s has no event %s", h.Name, event)

	query := make([][]any, len(indexed))
	for i, v := range indexed {
		query[i] = []any{v}
	}
	topics, err := abi.MakeTopics(query...)
	require.NoError(f.t, err)

	packed, err := ev.Inputs.NonIndexed().Pack(data...)
	require.NoError(f.t, err)

	f.mu.Lock()
	defer f.mu.Unlock()

	var index uint
	for _, l := range f.logs {
		if l.BlockNumber == block {
			index++
		}
	}

	l := types.Log{
		Address:     h.Address,
		Topics:      []common.Hash{ev.ID},
		Data:        packed,
		BlockNumber: block,
		TxHash:      tx.Hash,
		Index:       index,
	}
	for _, tp := range topics {
		l.Topics = append(l.Topics, tp[0])
	}

	f.logs = append(f.logs, l)
	if tx.Sender != (common.Address{}) {
		f.senders[tx.Hash] = tx.Sender
	}
	if block > f.head {
		f.head = block
	}

	return l
}

// SetCall records the outputs returned when method is called on h with args.
func (f *FakeChain) SetCall(h *contract.Handle, method string, args []any, outputs ...any) {
	f.t.Helper()

	input, err := h.ABI.Pack(method, args...)
	require.NoError(f.t, err)

	out, err := h.ABI.Methods[method].Outputs.Pack(outputs...)
	require.NoError(f.t, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[callKey(h.Address, input)] = out
}

func callKey(to common.Address, input []byte) string {
	return to.Hex() + hex.EncodeToString(input)
}

func (f *FakeChain) check() error {
	if f.unavailable {
		return fmt.Errorf("%w: fake chain offline", rpc.ErrServiceUnavailable)
	}
	return nil
}

func (f *FakeChain) LatestBlockNumber(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return 0, err
	}
	return f.head, nil
}

func (f *FakeChain) BlockNumberAt(_ context.Context, finality internaltypes.BlockFinality) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return 0, err
	}
	if finality == internaltypes.FinalityLatest || finality == "" {
		return f.head, nil
	}
	if f.head < f.lag {
		return 0, nil
	}
	return f.head - f.lag, nil
}

func (f *FakeChain) HeaderByNumber(_ context.Context, n uint64) (*types.Header, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return nil, err
	}
	return &types.Header{Number: new(big.Int).SetUint64(n), Time: GenesisTime + n}, nil
}

func (f *FakeChain) BlockByTxHash(ctx context.Context, hash common.Hash) (*types.Header, error) {
	f.mu.Lock()
	var (
		block uint64
		found bool
	)
	for _, l := range f.logs {
		if l.TxHash == hash {
			block, found = l.BlockNumber, true
			break
		}
	}
	f.mu.Unlock()

	if !found {
		return nil, ethereum.NotFound
	}
	return f.HeaderByNumber(ctx, block)
}

func (f *FakeChain) CallContract(_ context.Context, msg ethereum.CallMsg) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return nil, err
	}

	out, ok := f.calls[callKey(*msg.To, msg.Data)]
	if !ok {
		return nil, fmt.Errorf("execution reverted")
	}
	return out, nil
}

func (f *FakeChain) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return nil, err
	}

	f.FilterQueries = append(f.FilterQueries, q)

	var out []types.Log
	for _, l := range f.logs {
		if matches(q, l) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *FakeChain) TransactionSender(_ context.Context, hash common.Hash) (common.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return common.Address{}, err
	}

	sender, ok := f.senders[hash]
	if !ok {
		return common.Address{}, ethereum.NotFound
	}
	return sender, nil
}

func (f *FakeChain) SendTransactionAndWait(_ context.Context, tx *types.Transaction) (common.Hash, *types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return common.Hash{}, nil, err
	}

	f.Sent = append(f.Sent, tx)
	return tx.Hash(), &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      tx.Hash(),
		BlockNumber: new(big.Int).SetUint64(f.head),
	}, nil
}

func (f *FakeChain) Close() {}

func matches(q ethereum.FilterQuery, l types.Log) bool {
	if q.FromBlock != nil && l.BlockNumber < q.FromBlock.Uint64() {
		return false
	}
	if q.ToBlock != nil && l.BlockNumber > q.ToBlock.Uint64() {
		return false
	}

	if len(q.Addresses) > 0 {
		found := false
		for _, a := range q.Addresses {
			if a == l.Address {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	for i, want := range q.Topics {
		if len(want) == 0 {
			continue
		}
		if i >= len(l.Topics) {
			return false
		}

		found := false
		for _, h := range want {
			if h == l.Topics[i] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}
