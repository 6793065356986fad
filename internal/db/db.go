package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goran-ethernal/TokenIndexor/pkg/config"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/russross/meddler"
)

const (
	sqliteDriverName   = "sqlite3"
	postgresDriverName = "pgx"
)

// DB is a database handle that remembers which backend it talks to, so that
// queries can be rebound and meddler can use the matching dialect.
type DB struct {
	*sql.DB

	x       *sqlx.DB
	driver  string
	dialect *meddler.Database
	ops     OperationLocker
}

// Open connects to the database described by cfg.
func Open(cfg config.DatabaseConfig) (*DB, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return NewPostgresDBFromConfig(cfg)
	case config.DriverSQLite, "":
		return NewSQLiteDBFromConfig(cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// NewSQLiteDBFromConfig creates a new SQLite DB with the given configuration.
func NewSQLiteDBFromConfig(cfg config.DatabaseConfig) (*DB, error) {
	connStr := fmt.Sprintf(
		"file:%s?_txlock=immediate&_foreign_keys=on&_journal_mode=%s&_busy_timeout=%d",
		cfg.Path,
		cfg.JournalMode,
		cfg.BusyTimeout,
	)

	sqlDB, err := sql.Open(sqliteDriverName, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConnections)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConnections)

	if cfg.Synchronous != "" {
		if _, err := sqlDB.Exec(fmt.Sprintf("PRAGMA synchronous = %s", cfg.Synchronous)); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	return newDB(sqlDB, sqliteDriverName, meddler.SQLite), nil
}

// NewPostgresDBFromConfig opens a postgres pool through the pgx stdlib driver.
func NewPostgresDBFromConfig(cfg config.DatabaseConfig) (*DB, error) {
	sqlDB, err := sql.Open(postgresDriverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConnections)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConnections)

	return newDB(sqlDB, postgresDriverName, meddler.PostgreSQL), nil
}

func newDB(sqlDB *sql.DB, driver string, dialect *meddler.Database) *DB {
	return &DB{
		DB:      sqlDB,
		x:       sqlx.NewDb(sqlDB, driver),
		driver:  driver,
		dialect: dialect,
		ops:     noopLocker{},
	}
}

// Driver returns the database/sql driver name.
func (d *DB) Driver() string {
	return d.driver
}

// IsSQLite reports whether the handle talks to sqlite.
func (d *DB) IsSQLite() bool {
	return d.driver == sqliteDriverName
}

// Dialect returns the meddler dialect for this backend.
func (d *DB) Dialect() *meddler.Database {
	return d.dialect
}

// Rebind converts '?' placeholders to the backend's bind style.
func (d *DB) Rebind(query string) string {
	return sqlx.Rebind(sqlx.BindType(d.driver), query)
}

// Reader runs reads written with '?' placeholders and scans them with sqlx
// `db` struct tags. Both *DB and *Session implement it.
type Reader interface {
	GetContext(ctx context.Context, dst any, query string, args ...any) error
	SelectContext(ctx context.Context, dst any, query string, args ...any) error
}

var (
	_ Reader = (*DB)(nil)
	_ Reader = (*Session)(nil)
)

// GetContext scans one row into dst outside of any session.
// sql.ErrNoRows is returned unwrapped.
func (d *DB) GetContext(ctx context.Context, dst any, query string, args ...any) error {
	return wrapRead(d.x.GetContext(ctx, dst, d.Rebind(query), args...))
}

// SelectContext scans all rows into dst outside of any session.
func (d *DB) SelectContext(ctx context.Context, dst any, query string, args ...any) error {
	return wrapRead(d.x.SelectContext(ctx, dst, d.Rebind(query), args...))
}

func wrapRead(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sql.ErrNoRows
	}
	return Wrap("select", err)
}

// SetOperationLocker installs the lock sessions hold while open.
func (d *DB) SetOperationLocker(l OperationLocker) {
	if l == nil {
		l = noopLocker{}
	}
	d.ops = l
}

// migrationDialect is the sql-migrate dialect name.
func (d *DB) migrationDialect() string {
	if d.IsSQLite() {
		return "sqlite3"
	}
	return "postgres"
}
