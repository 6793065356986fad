package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"testing/fstest"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/TokenIndexor/internal/rpc"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	out   []byte
	err   error
	calls int
	last  ethereum.CallMsg
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg) ([]byte, error) {
	f.calls++
	f.last = msg
	return f.out, f.err
}

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry()

	a, err := r.Resolve(IbetStraightBond, common.HexToAddress("0x1"))
	require.NoError(t, err)
	b, err := r.Resolve(IbetStraightBond, common.HexToAddress("0x2"))
	require.NoError(t, err)

	require.Same(t, a.ABI, b.ABI, "interface is cached per name")
	require.NotEqual(t, a.Address, b.Address)

	_, err = r.Resolve("Unknown", common.HexToAddress("0x1"))
	require.ErrorIs(t, err, ErrNotFound)

	names, err := r.Names()
	require.NoError(t, err)
	require.Equal(t, []string{
		IbetSecurityTokenDVP, IbetSecurityTokenEscrow, IbetShare, IbetStraightBond, PersonalInfo,
	}, names)
}

func TestRegistry_InvalidDefinition(t *testing.T) {
	r := NewRegistryFromFS(fstest.MapFS{"Broken.json": {Data: []byte("{not json")}})

	_, err := r.Resolve("Broken", common.Address{})
	require.ErrorContains(t, err, "parse abi Broken")
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestHandle_Capabilities(t *testing.T) {
	r := NewRegistry()

	bond, err := r.Resolve(IbetStraightBond, common.Address{})
	require.NoError(t, err)
	share, err := r.Resolve(IbetShare, common.Address{})
	require.NoError(t, err)

	require.True(t, bond.HasEvent("ForceChangeLockedAccount"))
	require.False(t, share.HasEvent("ForceChangeLockedAccount"))
	require.True(t, share.HasEvent("Unlock"))
	require.True(t, share.HasMethod("tradableExchange"))
	require.False(t, share.HasMethod("faceValue"))

	id, ok := bond.EventID("Transfer")
	require.True(t, ok)
	require.Equal(t, common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"), id)

	_, err = share.FilterTopics("ForceChangeLockedAccount")
	require.ErrorIs(t, err, ErrUnknownEvent)
}

func TestHandle_FilterTopics(t *testing.T) {
	dvp, err := NewRegistry().Resolve(IbetSecurityTokenDVP, common.Address{})
	require.NoError(t, err)

	token := common.HexToAddress("0xaa")
	topics, err := dvp.FilterTopics("CreateDelivery", []any{token})
	require.NoError(t, err)
	require.Len(t, topics, 2)
	require.Equal(t, dvp.ABI.Events["CreateDelivery"].ID, topics[0][0])
	require.Equal(t, common.BytesToHash(token.Bytes()), topics[1][0])

	topics, err = dvp.FilterTopics("CancelDelivery")
	require.NoError(t, err)
	require.Len(t, topics, 1)
}

func TestHandle_DecodeLog(t *testing.T) {
	dvp, err := NewRegistry().Resolve(IbetSecurityTokenDVP, common.HexToAddress("0xd"))
	require.NoError(t, err)

	token := common.HexToAddress("0xaa")
	seller := common.HexToAddress("0xbb")
	buyer := common.HexToAddress("0xcc")
	agent := common.HexToAddress("0xdd")

	l := packLog(t, dvp, "CreateDelivery",
		[]any{token, big.NewInt(7)},
		seller, buyer, big.NewInt(30), agent, `{"settlement":"cash"}`)

	name, args, err := dvp.DecodeLog(l)
	require.NoError(t, err)
	require.Equal(t, "CreateDelivery", name)
	require.Equal(t, token, args["token"])
	require.Equal(t, big.NewInt(7), args["deliveryId"])
	require.Equal(t, seller, args["seller"])
	require.Equal(t, buyer, args["buyer"])
	require.Equal(t, big.NewInt(30), args["amount"])
	require.Equal(t, agent, args["agent"])
	require.Equal(t, `{"settlement":"cash"}`, args["data"])

	_, _, err = dvp.DecodeLog(types.Log{Topics: []common.Hash{common.HexToHash("0x1234")}})
	require.ErrorIs(t, err, ErrUnknownEvent)

	_, _, err = dvp.DecodeLog(types.Log{})
	require.ErrorIs(t, err, ErrUnknownEvent)
}

func TestHandle_DecodeLog_IndexedOnly(t *testing.T) {
	pi, err := NewRegistry().Resolve(PersonalInfo, common.Address{})
	require.NoError(t, err)

	account := common.HexToAddress("0x11")
	link := common.HexToAddress("0x22")

	_, args, err := pi.DecodeLog(packLog(t, pi, "Register", []any{account, link}))
	require.NoError(t, err)
	require.Equal(t, account, args["account_address"])
	require.Equal(t, link, args["link_address"])
}

func TestRead(t *testing.T) {
	bond, err := NewRegistry().Resolve(IbetStraightBond, common.HexToAddress("0xb"))
	require.NoError(t, err)

	exchange := common.HexToAddress("0xe")
	encoded, err := bond.ABI.Methods["tradableExchange"].Outputs.Pack(exchange)
	require.NoError(t, err)

	fallback := common.Address{}

	tests := []struct {
		name        string
		method      string
		caller      *fakeCaller
		want        common.Address
		wantPresent bool
		wantErr     error
		wantCalls   int
	}{
		{
			name:        "decoded value",
			method:      "tradableExchange",
			caller:      &fakeCaller{out: encoded},
			want:        exchange,
			wantPresent: true,
			wantCalls:   1,
		},
		{
			name:      "method not declared",
			method:    "notAMethod",
			caller:    &fakeCaller{out: encoded},
			want:      fallback,
			wantCalls: 0,
		},
		{
			name:      "reverted",
			method:    "tradableExchange",
			caller:    &fakeCaller{err: errors.New("execution reverted")},
			want:      fallback,
			wantCalls: 1,
		},
		{
			name:      "empty output",
			method:    "tradableExchange",
			caller:    &fakeCaller{out: nil},
			want:      fallback,
			wantCalls: 1,
		},
		{
			name:      "undecodable output",
			method:    "tradableExchange",
			caller:    &fakeCaller{out: []byte{0x01, 0x02}},
			want:      fallback,
			wantCalls: 1,
		},
		{
			name:      "gateway unavailable",
			method:    "tradableExchange",
			caller:    &fakeCaller{err: fmt.Errorf("%w: eth_call: refused", rpc.ErrServiceUnavailable)},
			want:      fallback,
			wantErr:   rpc.ErrServiceUnavailable,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Read(context.Background(), tt.caller, bond, tt.method, fallback)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tt.want, res.Value)
			require.Equal(t, tt.wantPresent, res.Present)
			require.Equal(t, tt.wantCalls, tt.caller.calls)
			if tt.wantCalls > 0 {
				require.Equal(t, bond.Address, *tt.caller.last.To)
			}
		})
	}
}

func TestRead_WrongType(t *testing.T) {
	bond, err := NewRegistry().Resolve(IbetStraightBond, common.HexToAddress("0xb"))
	require.NoError(t, err)

	encoded, err := bond.ABI.Methods["owner"].Outputs.Pack(common.HexToAddress("0x1"))
	require.NoError(t, err)

	res, err := Read(context.Background(), &fakeCaller{out: encoded}, bond, "owner", "none")
	require.NoError(t, err)
	require.False(t, res.Present)
	require.Equal(t, "none", res.Value)
}

// packLog builds a log for event with the given indexed values and data arguments.
func packLog(t *testing.T, h *Handle, event string, indexed []any, data ...any) types.Log {
	t.Helper()

	ev := h.ABI.Events[event]

	query := make([][]any, len(indexed))
	for i, v := range indexed {
		query[i] = []any{v}
	}
	topics, err := abi.MakeTopics(query...)
	require.NoError(t, err)

	packed, err := ev.Inputs.NonIndexed().Pack(data...)
	require.NoError(t, err)

	l := types.Log{Address: h.Address, Topics: []common.Hash{ev.ID}, Data: packed}
	for _, tp := range topics {
		l.Topics = append(l.Topics, tp[0])
	}

	return l
}
