package delivery

import (
	"context"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/TokenIndexor/internal/contract"
	"github.com/goran-ethernal/TokenIndexor/internal/db"
	"github.com/goran-ethernal/TokenIndexor/internal/feeds"
	internalindexer "github.com/goran-ethernal/TokenIndexor/internal/indexer"
	"github.com/goran-ethernal/TokenIndexor/internal/logger"
	"github.com/goran-ethernal/TokenIndexor/internal/scanner"
	"github.com/goran-ethernal/TokenIndexor/internal/store"
	"github.com/goran-ethernal/TokenIndexor/internal/testutil"
	pkgconfig "github.com/goran-ethernal/TokenIndexor/pkg/config"
	"github.com/goran-ethernal/TokenIndexor/pkg/indexer"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var (
	tokenAddr    = common.HexToAddress("0x1000000000000000000000000000000000000001")
	otherToken   = common.HexToAddress("0x1000000000000000000000000000000000000002")
	issuer       = common.HexToAddress("0x2000000000000000000000000000000000000001")
	exchangeAddr = common.HexToAddress("0x3000000000000000000000000000000000000001")
	seller       = common.HexToAddress("0x4000000000000000000000000000000000000001")
	buyer        = common.HexToAddress("0x4000000000000000000000000000000000000002")
	agent        = common.HexToAddress("0x4000000000000000000000000000000000000003")
)

type env struct {
	ctx   context.Context
	db    *db.DB
	chain *testutil.FakeChain
	dvp   *contract.Handle
	feed  *Feed
	orch  *internalindexer.Orchestrator
}

func newEnv(t *testing.T, withToken bool) *env {
	t.Helper()

	database := testutil.NewTestDB(t)
	chain := testutil.NewFakeChain(t)
	reg := contract.NewRegistry()

	bond, err := reg.Resolve(contract.IbetStraightBond, tokenAddr)
	require.NoError(t, err)
	other, err := reg.Resolve(contract.IbetStraightBond, otherToken)
	require.NoError(t, err)
	dvp, err := reg.Resolve(contract.IbetSecurityTokenDVP, exchangeAddr)
	require.NoError(t, err)

	chain.SetCall(bond, "tradableExchange", nil, exchangeAddr)
	chain.SetCall(other, "tradableExchange", nil, exchangeAddr)

	if withToken {
		testutil.AddToken(t, database, tokenAddr, issuer, store.TokenTypeBond)
	}

	feed := New(indexer.Deps{Gateway: chain, Registry: reg, DB: database, Log: logger.NewNopLogger()})

	return &env{
		ctx:   context.Background(),
		db:    database,
		chain: chain,
		dvp:   dvp,
		feed:  feed,
		orch:  internalindexer.NewOrchestrator(feed, database, chain, 1000, logger.NewNopLogger()),
	}
}

func (e *env) sync(t *testing.T) {
	t.Helper()
	require.NoError(t, e.orch.RunCycle(e.ctx))
}

func (e *env) create(token common.Address, block uint64, id int64, amount *big.Int, data string) types.Log {
	return e.chain.Emit(e.dvp, EventCreate, block, e.chain.NewTx(seller),
		[]any{token, big.NewInt(id)}, seller, buyer, amount, agent, data)
}

func (e *env) phase(event string, block uint64, id int64) types.Log {
	return e.chain.Emit(e.dvp, event, block, e.chain.NewTx(seller),
		[]any{tokenAddr, big.NewInt(id)}, seller, buyer, big.NewInt(30), agent)
}

func (e *env) row(t *testing.T, id int64) (*Delivery, bool) {
	t.Helper()

	row := &Delivery{}
	var found bool
	err := e.db.InSession(e.ctx, nil, func(s *db.Session) error {
		var err error
		found, err = s.Get(row, `SELECT * FROM delivery WHERE exchange_address = ? AND delivery_id = ?`, exchangeAddr.Hex(), id)
		return err
	})
	require.NoError(t, err)
	return row, found
}

func blockTime(n uint64) time.Time {
	return time.Unix(int64(testutil.GenesisTime+n), 0).UTC()
}

func TestDeliveryLifecycle(t *testing.T) {
	e := newEnv(t, true)

	created := e.create(tokenAddr, 1, 1, big.NewInt(30), `{"delivery_type":"offering"}`)
	e.sync(t)

	row, ok := e.row(t, 1)
	require.True(t, ok)
	require.Equal(t, StatusCreated, row.Status)
	require.True(t, row.Valid)
	require.False(t, row.Confirmed)
	require.Equal(t, int64(30), row.Amount)
	require.Equal(t, tokenAddr, row.TokenAddress)
	require.Equal(t, buyer, row.BuyerAddress)
	require.Equal(t, seller, row.SellerAddress)
	require.Equal(t, agent, row.AgentAddress)
	require.Equal(t, created.TxHash, row.CreateTransactionHash)
	require.True(t, row.CreateBlockTimestamp.Equal(blockTime(1)))
	require.Nil(t, row.ConfirmTransactionHash)
	require.True(t, row.ConfirmBlockTimestamp.IsZero())

	data, ok := feeds.ParseObject(row.Data)
	require.True(t, ok)
	require.Equal(t, map[string]any{"delivery_type": "offering"}, data)

	id := row.ID

	confirmed := e.phase(EventConfirm, 2, 1)
	finished := e.phase(EventFinish, 3, 1)
	e.sync(t)

	row, ok = e.row(t, 1)
	require.True(t, ok)
	require.Equal(t, id, row.ID)
	require.True(t, row.Confirmed)
	require.False(t, row.Valid)
	require.Equal(t, StatusFinished, row.Status)
	require.Equal(t, confirmed.TxHash, *row.ConfirmTransactionHash)
	require.Equal(t, finished.TxHash, *row.FinishTransactionHash)
	require.True(t, row.ConfirmBlockTimestamp.Equal(blockTime(2)))
	require.True(t, row.FinishBlockTimestamp.Equal(blockTime(3)))
	require.Nil(t, row.CancelTransactionHash)

	cursor, err := e.feed.Cursors().Get(e.ctx, e.db, exchangeAddr)
	require.NoError(t, err)
	require.Equal(t, uint64(3), cursor)
}

func TestDeliveryTerminalStates(t *testing.T) {
	tests := []struct {
		name      string
		events    []string
		status    int
		valid     bool
		confirmed bool
	}{
		{name: "cancel", events: []string{EventCancel}, status: StatusCanceled},
		{name: "abort after confirm", events: []string{EventConfirm, EventAbort}, status: StatusAborted, confirmed: true},
		{name: "confirm keeps validity", events: []string{EventConfirm}, status: StatusConfirmed, valid: true, confirmed: true},
		{name: "finish after cancel keeps cancel", events: []string{EventCancel, EventFinish}, status: StatusCanceled},
		{name: "confirm after finish", events: []string{EventFinish, EventConfirm}, status: StatusFinished, confirmed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, true)
			e.create(tokenAddr, 1, 7, big.NewInt(5), "")
			for i, ev := range tt.events {
				e.phase(ev, uint64(2+i), 7)
			}
			e.sync(t)

			row, ok := e.row(t, 7)
			require.True(t, ok)
			require.Equal(t, tt.status, row.Status)
			require.Equal(t, tt.valid, row.Valid)
			require.Equal(t, tt.confirmed, row.Confirmed)
		})
	}
}

func TestDeliveryReplayedCreateKeepsProgress(t *testing.T) {
	e := newEnv(t, true)
	e.create(tokenAddr, 1, 3, big.NewInt(5), "")
	e.phase(EventCancel, 2, 3)
	e.sync(t)

	// rescanning the same window applies create and cancel again
	require.NoError(t, e.db.InSession(e.ctx, nil, func(s *db.Session) error {
		return e.feed.Cursors().Reset(e.ctx, s, exchangeAddr, 0)
	}))
	e.sync(t)

	row, ok := e.row(t, 3)
	require.True(t, ok)
	require.Equal(t, StatusCanceled, row.Status)
	require.False(t, row.Valid)

	var n int
	require.NoError(t, e.db.GetContext(e.ctx, &n, `SELECT COUNT(*) FROM delivery`))
	require.Equal(t, 1, n)
}

func TestDeliverySkips(t *testing.T) {
	e := newEnv(t, true)

	overflow := new(big.Int).Add(big.NewInt(math.MaxInt64), big.NewInt(1))
	e.create(tokenAddr, 1, 1, overflow, "")
	e.chain.Emit(e.dvp, EventCreate, 1, e.chain.NewTx(seller),
		[]any{tokenAddr, overflow}, seller, buyer, big.NewInt(1), agent, "")
	e.create(tokenAddr, 1, 2, big.NewInt(math.MaxInt64), "not json")
	e.create(otherToken, 1, 3, big.NewInt(1), "")
	e.phase(EventFinish, 2, 4)
	e.sync(t)

	_, ok := e.row(t, 1)
	require.False(t, ok, "amount above the ceiling")

	row, ok := e.row(t, 2)
	require.True(t, ok)
	require.Equal(t, int64(math.MaxInt64), row.Amount)
	require.Equal(t, "{}", row.Data)

	_, ok = e.row(t, 3)
	require.False(t, ok, "token not in the watch set")

	_, ok = e.row(t, 4)
	require.False(t, ok, "finish without create")

	var n int
	require.NoError(t, e.db.GetContext(e.ctx, &n, `SELECT COUNT(*) FROM delivery`))
	require.Equal(t, 1, n)
}

func TestDeliveryWatchSetGrowth(t *testing.T) {
	e := newEnv(t, false)
	e.chain.SetHead(5)

	e.sync(t)
	require.Empty(t, e.feed.snapshot.Tokens)
	require.Empty(t, e.feed.snapshot.Links)

	rows, err := e.feed.Cursors().List(e.ctx, e.db)
	require.NoError(t, err)
	require.Empty(t, rows)

	testutil.AddToken(t, e.db, tokenAddr, issuer, store.TokenTypeBond)
	e.sync(t)

	require.Len(t, e.feed.snapshot.Tokens, 1)
	require.Len(t, e.feed.snapshot.Links, 1)
	require.Equal(t, exchangeAddr, e.feed.snapshot.Links[0].Address)

	rows, err = e.feed.Cursors().List(e.ctx, e.db)
	require.NoError(t, err)
	require.Equal(t, []store.Cursor{{Key: exchangeAddr, Block: 5}}, rows)
}

func event(name string, block uint64, id int64, data string) scanner.Event {
	args := map[string]any{
		"token":      tokenAddr,
		"deliveryId": big.NewInt(id),
		"seller":     seller,
		"buyer":      buyer,
		"amount":     big.NewInt(10),
		"agent":      agent,
	}
	if name == EventCreate {
		args["data"] = data
	}

	return scanner.Event{
		Name:      name,
		Log:       types.Log{BlockNumber: block, TxHash: common.BigToHash(big.NewInt(int64(block)))},
		Args:      args,
		Timestamp: blockTime(block),
	}
}

func TestDeliveryApplyIsIdempotent(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	log := logger.NewNopLogger()
	var next int64

	load := func(t *rapid.T, id int64) Delivery {
		row := Delivery{}
		err := database.InSession(ctx, nil, func(s *db.Session) error {
			found, err := s.Get(&row, `SELECT * FROM delivery WHERE exchange_address = ? AND delivery_id = ?`, exchangeAddr.Hex(), id)
			require.True(t, found)
			return err
		})
		require.NoError(t, err)
		row.ID, row.DeliveryID = 0, 0
		return row
	}

	rapid.Check(t, func(t *rapid.T) {
		later := rapid.SliceOfN(rapid.SampledFrom(Events[1:]), 0, 6).Draw(t, "events")
		data := rapid.SampledFrom([]string{"", "{}", `{"a":1}`, "[1]"}).Draw(t, "data")

		next += 2
		once, twice := next, next+1

		replay := func(id int64, times int) {
			err := database.InSession(ctx, nil, func(s *db.Session) error {
				for range times {
					if err := Apply(ctx, s, exchangeAddr, event(EventCreate, 1, id, data), log); err != nil {
						return err
					}
					for i, name := range later {
						if err := Apply(ctx, s, exchangeAddr, event(name, uint64(2+i), id, ""), log); err != nil {
							return err
						}
					}
				}
				return nil
			})
			require.NoError(t, err)
		}

		replay(once, 1)
		replay(twice, 2)

		require.Equal(t, load(t, once), load(t, twice))
	})
}

func TestFeedUsesComponentLevels(t *testing.T) {
	cfg := &pkgconfig.LoggingConfig{
		DefaultLevel:    "info",
		ComponentLevels: map[string]string{"delivery": "debug"},
	}
	deps := indexer.Deps{
		Gateway:  testutil.NewFakeChain(t),
		Registry: contract.NewRegistry(),
		DB:       testutil.NewTestDB(t),
		Log:      logger.NewComponentLoggerFromConfig("coordinator", cfg),
		NewLogger: func(component string) *logger.Logger {
			return logger.NewComponentLoggerFromConfig(component, cfg)
		},
	}

	feed := New(deps)
	require.Equal(t, "delivery", feed.log.GetComponent())
	require.Equal(t, "debug", feed.log.GetLevel())
	require.Equal(t, "info", deps.Log.GetLevel())
}
