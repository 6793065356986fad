package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/TokenIndexor/internal/db"
	"github.com/goran-ethernal/TokenIndexor/internal/store"
	"github.com/stretchr/testify/require"
)

// AddToken registers an active token in the tokens table.
func AddToken(t *testing.T, database *db.DB, token, issuer common.Address, tokenType string) {
	t.Helper()

	err := database.InSession(context.Background(), nil, func(s *db.Session) error {
		return store.Tokens{}.Upsert(context.Background(), s, store.Token{
			TokenAddress:  token,
			IssuerAddress: issuer,
			TokenType:     tokenType,
			TokenStatus:   store.TokenStatusActive,
			Created:       time.Unix(GenesisTime, 0),
		})
	})
	require.NoError(t, err)
}
