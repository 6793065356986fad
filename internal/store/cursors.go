// Package store holds the tables shared by every feed: block cursors and the
// active token list.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/TokenIndexor/internal/db"
)

// singletonID is the row id of a singleton cursor.
const singletonID = 1

// Cursors is the block cursor table of one feed. Keyed tables hold one row per
// exchange address; singleton tables hold a single row with id 1.
type Cursors struct {
	Table string
	Keyed bool
}

// Cursor is one persisted cursor row. Key is the zero address for singletons.
type Cursor struct {
	Key   common.Address
	Block uint64
}

type cursorRow struct {
	Key   sql.NullString `db:"exchange_address"`
	Block int64          `db:"latest_block_number"`
}

// Get returns the last indexed block for key, or 0 when no row exists.
// Singleton cursors ignore key.
func (c Cursors) Get(ctx context.Context, r db.Reader, key common.Address) (uint64, error) {
	var (
		block int64
		err   error
	)

	if c.Keyed {
		err = r.GetContext(ctx, &block,
			fmt.Sprintf(`SELECT latest_block_number FROM %s WHERE exchange_address = ?`, c.Table), key.Hex())
	} else {
		err = r.GetContext(ctx, &block,
			fmt.Sprintf(`SELECT latest_block_number FROM %s WHERE id = ?`, c.Table), singletonID)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return uint64(block), nil
}

// Set upserts the cursor for key. The stored value never decreases.
func (c Cursors) Set(ctx context.Context, s *db.Session, key common.Address, block uint64) error {
	op := "set cursor " + c.Table

	if c.Keyed {
		_, err := s.Exec(ctx, op, fmt.Sprintf(`
			INSERT INTO %[1]s (exchange_address, latest_block_number) VALUES (?, ?)
			ON CONFLICT (exchange_address) DO UPDATE SET latest_block_number = excluded.latest_block_number
			WHERE %[1]s.latest_block_number < excluded.latest_block_number`, c.Table),
			key.Hex(), int64(block))
		return err
	}

	_, err := s.Exec(ctx, op, fmt.Sprintf(`
		INSERT INTO %[1]s (id, latest_block_number) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET latest_block_number = excluded.latest_block_number
		WHERE %[1]s.latest_block_number < excluded.latest_block_number`, c.Table),
		singletonID, int64(block))
	return err
}

// Reset overwrites the cursor for key, allowing it to move backwards.
func (c Cursors) Reset(ctx context.Context, s *db.Session, key common.Address, block uint64) error {
	op := "reset cursor " + c.Table

	if c.Keyed {
		_, err := s.Exec(ctx, op, fmt.Sprintf(`
			INSERT INTO %s (exchange_address, latest_block_number) VALUES (?, ?)
			ON CONFLICT (exchange_address) DO UPDATE SET latest_block_number = excluded.latest_block_number`, c.Table),
			key.Hex(), int64(block))
		return err
	}

	_, err := s.Exec(ctx, op, fmt.Sprintf(`
		INSERT INTO %s (id, latest_block_number) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET latest_block_number = excluded.latest_block_number`, c.Table),
		singletonID, int64(block))
	return err
}

// List returns every cursor row of the table.
func (c Cursors) List(ctx context.Context, r db.Reader) ([]Cursor, error) {
	query := fmt.Sprintf(`SELECT NULL AS exchange_address, latest_block_number FROM %s ORDER BY id`, c.Table)
	if c.Keyed {
		query = fmt.Sprintf(`SELECT exchange_address, latest_block_number FROM %s ORDER BY id`, c.Table)
	}

	var rows []cursorRow
	if err := r.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	out := make([]Cursor, 0, len(rows))
	for _, row := range rows {
		cur := Cursor{Block: uint64(row.Block)}
		if row.Key.Valid {
			cur.Key = common.HexToAddress(row.Key.String)
		}
		out = append(out, cur)
	}

	return out, nil
}
