package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goran-ethernal/TokenIndexor/internal/logger"
	"github.com/jmoiron/sqlx"
)

// Session is one database transaction. Every write a feed performs for a
// stream, including the cursor update, goes through a single Session.
type Session struct {
	tx     *sqlx.Tx
	db     *DB
	unlock func()
	log    *logger.Logger
}

// Begin starts a session. The caller must Commit or Rollback it.
func (d *DB) Begin(ctx context.Context, log *logger.Logger) (*Session, error) {
	unlock := d.ops.AcquireOperationLock()

	tx, err := d.x.BeginTxx(ctx, nil)
	if err != nil {
		unlock()
		return nil, Wrap("begin", err)
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Session{tx: tx, db: d, unlock: unlock, log: log}, nil
}

// Commit commits the transaction.
func (s *Session) Commit() error {
	defer s.release()
	if err := s.tx.Commit(); err != nil {
		return Wrap("commit", err)
	}
	return nil
}

// Rollback aborts the transaction. Calling it after Commit is a no-op, so it
// can always be deferred.
func (s *Session) Rollback() {
	defer s.release()
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		s.log.Errorf("failed to rollback transaction: %v", err)
	}
}

func (s *Session) release() {
	if s.unlock != nil {
		s.unlock()
		s.unlock = nil
	}
}

// Exec runs a statement written with '?' placeholders.
func (s *Session) Exec(ctx context.Context, op, query string, args ...any) (sql.Result, error) {
	res, err := s.tx.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, Wrap(op, err)
	}
	return res, nil
}

// GetContext scans one row into dst using sqlx `db` tags.
// sql.ErrNoRows is returned unwrapped.
func (s *Session) GetContext(ctx context.Context, dst any, query string, args ...any) error {
	return wrapRead(s.tx.GetContext(ctx, dst, s.db.Rebind(query), args...))
}

// SelectContext scans all rows into dst using sqlx `db` tags.
func (s *Session) SelectContext(ctx context.Context, dst any, query string, args ...any) error {
	return wrapRead(s.tx.SelectContext(ctx, dst, s.db.Rebind(query), args...))
}

// Get loads one row into dst, a pointer to a meddler tagged struct.
// It returns false when no row matched.
func (s *Session) Get(dst any, query string, args ...any) (bool, error) {
	err := s.db.dialect.QueryRow(s.tx, dst, s.db.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, Wrap("select", err)
	}
	return true, nil
}

// GetForUpdate is Get with a row lock where the backend supports one.
// sqlite sessions already hold the database write lock (_txlock=immediate).
func (s *Session) GetForUpdate(dst any, query string, args ...any) (bool, error) {
	if !s.db.IsSQLite() {
		query += " FOR UPDATE"
	}
	return s.Get(dst, query, args...)
}

// Select loads all matching rows into dst, a pointer to a slice of struct pointers.
func (s *Session) Select(dst any, query string, args ...any) error {
	if err := s.db.dialect.QueryAll(s.tx, dst, s.db.Rebind(query), args...); err != nil {
		return Wrap("select", err)
	}
	return nil
}

// Insert inserts src into table and fills its primary key.
func (s *Session) Insert(table string, src any) error {
	if err := s.db.dialect.Insert(s.tx, table, src); err != nil {
		return Wrap(fmt.Sprintf("insert %s", table), err)
	}
	return nil
}

// Update writes src back to table by primary key.
func (s *Session) Update(table string, src any) error {
	if err := s.db.dialect.Update(s.tx, table, src); err != nil {
		return Wrap(fmt.Sprintf("update %s", table), err)
	}
	return nil
}

// Save inserts src when its primary key is zero and updates it otherwise.
func (s *Session) Save(table string, src any) error {
	if err := s.db.dialect.Save(s.tx, table, src); err != nil {
		return Wrap(fmt.Sprintf("save %s", table), err)
	}
	return nil
}

// DB returns the handle the session was opened on.
func (s *Session) DB() *DB {
	return s.db
}

// InSession runs fn inside a new session and commits when fn succeeds.
func (d *DB) InSession(ctx context.Context, log *logger.Logger, fn func(*Session) error) error {
	sess, err := d.Begin(ctx, log)
	if err != nil {
		return err
	}
	defer sess.Rollback()

	if err := fn(sess); err != nil {
		return err
	}
	return sess.Commit()
}
