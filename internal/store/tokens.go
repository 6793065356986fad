package store

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/TokenIndexor/internal/db"
)

// Token statuses.
const (
	TokenStatusInactive = 0
	TokenStatusActive   = 1
)

// Token kinds as recorded in the tokens table.
const (
	TokenTypeBond  = "IbetStraightBond"
	TokenTypeShare = "IbetShare"
)

// Token is a row of the authoritative token list.
type Token struct {
	ID            int64
	TokenAddress  common.Address
	IssuerAddress common.Address
	TokenType     string
	TokenStatus   int
	Created       time.Time
}

type tokenRow struct {
	ID            int64     `db:"id"`
	TokenAddress  string    `db:"token_address"`
	IssuerAddress string    `db:"issuer_address"`
	TokenType     string    `db:"token_type"`
	TokenStatus   int       `db:"token_status"`
	Created       time.Time `db:"created"`
}

func (r tokenRow) token() Token {
	return Token{
		ID:            r.ID,
		TokenAddress:  common.HexToAddress(r.TokenAddress),
		IssuerAddress: common.HexToAddress(r.IssuerAddress),
		TokenType:     r.TokenType,
		TokenStatus:   r.TokenStatus,
		Created:       r.Created.UTC(),
	}
}

// Tokens reads and maintains the tokens table.
type Tokens struct{}

// Active returns the active tokens in registration order.
func (Tokens) Active(ctx context.Context, r db.Reader) ([]Token, error) {
	return selectTokens(ctx, r, `SELECT * FROM tokens WHERE token_status = ? ORDER BY id`, TokenStatusActive)
}

// All returns every token in registration order.
func (Tokens) All(ctx context.Context, r db.Reader) ([]Token, error) {
	return selectTokens(ctx, r, `SELECT * FROM tokens ORDER BY id`)
}

// Upsert inserts tok or updates the row with the same token address.
// The created time of an existing row is kept.
func (Tokens) Upsert(ctx context.Context, s *db.Session, tok Token) error {
	created := tok.Created
	if created.IsZero() {
		created = time.Now()
	}

	_, err := s.Exec(ctx, "upsert token", `
		INSERT INTO tokens (token_address, issuer_address, token_type, token_status, created)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (token_address) DO UPDATE SET
			issuer_address = excluded.issuer_address,
			token_type = excluded.token_type,
			token_status = excluded.token_status`,
		tok.TokenAddress.Hex(), tok.IssuerAddress.Hex(), tok.TokenType, tok.TokenStatus, created.UTC())
	return err
}

// SetStatus changes the status of a token. It reports whether a row matched.
func (Tokens) SetStatus(ctx context.Context, s *db.Session, addr common.Address, status int) (bool, error) {
	res, err := s.Exec(ctx, "set token status",
		`UPDATE tokens SET token_status = ? WHERE token_address = ?`, status, addr.Hex())
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, db.Wrap("set token status", err)
	}

	return n > 0, nil
}

func selectTokens(ctx context.Context, r db.Reader, query string, args ...any) ([]Token, error) {
	var rows []tokenRow
	if err := r.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	out := make([]Token, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.token())
	}

	return out, nil
}

// ActiveSource serves the active token list from the tokens table.
type ActiveSource struct {
	Reader db.Reader
}

// ActiveTokens returns the active tokens in registration order.
func (a ActiveSource) ActiveTokens(ctx context.Context) ([]Token, error) {
	return Tokens{}.Active(ctx, a.Reader)
}
