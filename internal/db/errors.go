package db

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// StorageError is an underlying persistence failure. Code carries the
// vendor error code when the driver reported one.
type StorageError struct {
	Op   string
	Code string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("storage %s failed (code %s): %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Wrap tags err as a StorageError for op. Nil stays nil and errors that are
// already StorageErrors are returned unchanged.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}

	var se *StorageError
	if errors.As(err, &se) {
		return err
	}

	se = &StorageError{Op: op, Code: vendorCode(err), Err: err}
	storageErrorInc(op, se.Code)
	return se
}

// AsStorageError finds a StorageError in err's chain, also recognising raw
// sqlite and postgres driver errors that were not wrapped.
func AsStorageError(err error) (*StorageError, bool) {
	if err == nil {
		return nil, false
	}

	var se *StorageError
	if errors.As(err, &se) {
		return se, true
	}

	if code := vendorCode(err); code != "" {
		return &StorageError{Op: "query", Code: code, Err: err}, true
	}

	return nil, false
}

func vendorCode(err error) string {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return strconv.Itoa(int(sqliteErr.ExtendedCode))
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	return ""
}
