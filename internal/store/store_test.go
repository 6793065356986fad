package store_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/TokenIndexor/internal/db"
	"github.com/goran-ethernal/TokenIndexor/internal/store"
	"github.com/goran-ethernal/TokenIndexor/internal/testutil"
	"github.com/stretchr/testify/require"
)

func TestCursors_Keyed(t *testing.T) {
	d := testutil.NewTestDB(t)
	ctx := context.Background()
	cursors := store.Cursors{Table: "idx_delivery_block_number", Keyed: true}

	exA := common.HexToAddress("0xa")
	exB := common.HexToAddress("0xb")

	got, err := cursors.Get(ctx, d, exA)
	require.NoError(t, err)
	require.Zero(t, got, "absent row starts from block 0")

	require.NoError(t, d.InSession(ctx, nil, func(s *db.Session) error {
		if err := cursors.Set(ctx, s, exA, 100); err != nil {
			return err
		}
		return cursors.Set(ctx, s, exB, 5)
	}))

	got, err = cursors.Get(ctx, d, exA)
	require.NoError(t, err)
	require.Equal(t, uint64(100), got)

	// Set never moves a cursor backwards.
	require.NoError(t, d.InSession(ctx, nil, func(s *db.Session) error {
		return cursors.Set(ctx, s, exA, 50)
	}))
	got, err = cursors.Get(ctx, d, exA)
	require.NoError(t, err)
	require.Equal(t, uint64(100), got)

	// Reset does.
	require.NoError(t, d.InSession(ctx, nil, func(s *db.Session) error {
		return cursors.Reset(ctx, s, exA, 10)
	}))

	list, err := cursors.List(ctx, d)
	require.NoError(t, err)
	require.Equal(t, []store.Cursor{{Key: exA, Block: 10}, {Key: exB, Block: 5}}, list)
}

func TestCursors_Singleton(t *testing.T) {
	d := testutil.NewTestDB(t)
	ctx := context.Background()
	cursors := store.Cursors{Table: "idx_transfer_block_number"}

	for _, block := range []uint64{7, 9, 8} {
		require.NoError(t, d.InSession(ctx, nil, func(s *db.Session) error {
			return cursors.Set(ctx, s, common.Address{}, block)
		}))
	}

	got, err := cursors.Get(ctx, d, common.HexToAddress("0xignored"))
	require.NoError(t, err)
	require.Equal(t, uint64(9), got)

	list, err := cursors.List(ctx, d)
	require.NoError(t, err)
	require.Equal(t, []store.Cursor{{Block: 9}}, list)
}

func TestCursors_RolledBackSessionKeepsCursor(t *testing.T) {
	d := testutil.NewTestDB(t)
	ctx := context.Background()
	cursors := store.Cursors{Table: "idx_issue_redeem_block_number"}

	sess, err := d.Begin(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, cursors.Set(ctx, sess, common.Address{}, 42))

	inSession, err := cursors.Get(ctx, sess, common.Address{})
	require.NoError(t, err)
	require.Equal(t, uint64(42), inSession)
	sess.Rollback()

	got, err := cursors.Get(ctx, d, common.Address{})
	require.NoError(t, err)
	require.Zero(t, got)
}

func TestTokens(t *testing.T) {
	d := testutil.NewTestDB(t)
	ctx := context.Background()
	tokens := store.Tokens{}

	bond := store.Token{
		TokenAddress:  common.HexToAddress("0x1"),
		IssuerAddress: common.HexToAddress("0x11"),
		TokenType:     store.TokenTypeBond,
		TokenStatus:   store.TokenStatusActive,
	}
	share := store.Token{
		TokenAddress:  common.HexToAddress("0x2"),
		IssuerAddress: common.HexToAddress("0x22"),
		TokenType:     store.TokenTypeShare,
		TokenStatus:   store.TokenStatusActive,
	}

	require.NoError(t, d.InSession(ctx, nil, func(s *db.Session) error {
		if err := tokens.Upsert(ctx, s, bond); err != nil {
			return err
		}
		return tokens.Upsert(ctx, s, share)
	}))

	active, err := tokens.Active(ctx, d)
	require.NoError(t, err)
	require.Len(t, active, 2)
	require.Equal(t, bond.TokenAddress, active[0].TokenAddress)
	require.Equal(t, bond.IssuerAddress, active[0].IssuerAddress)
	require.Equal(t, store.TokenTypeShare, active[1].TokenType)
	require.False(t, active[0].Created.IsZero())

	require.NoError(t, d.InSession(ctx, nil, func(s *db.Session) error {
		ok, err := tokens.SetStatus(ctx, s, share.TokenAddress, store.TokenStatusInactive)
		require.True(t, ok)
		return err
	}))

	active, err = tokens.Active(ctx, d)
	require.NoError(t, err)
	require.Len(t, active, 1)

	all, err := tokens.All(ctx, d)
	require.NoError(t, err)
	require.Len(t, all, 2)

	require.NoError(t, d.InSession(ctx, nil, func(s *db.Session) error {
		ok, err := tokens.SetStatus(ctx, s, common.HexToAddress("0x99"), store.TokenStatusInactive)
		require.False(t, ok)
		return err
	}))
}
