package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/tasktree/internal/model"
)

// IsBusyError returns true if the error is a SQLITE_BUSY or SQLITE_LOCKED error.
func IsBusyError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

// IsUniqueConstraintError returns true if the error is a UNIQUE or PRIMARY KEY violation.
func IsUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// IsNotFoundError returns true if the error is a "no rows" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// classify maps driver errors onto model error codes.
// Errors that already carry a code pass through unchanged; anything the
// gateway cannot classify is wrapped as a plain transport failure.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var me *model.Error
	if errors.As(err, &me) {
		return err
	}
	switch {
	case IsBusyError(err):
		return model.WrapError(model.CodeConcurrentModification, op, err)
	case IsUniqueConstraintError(err):
		return model.WrapError(model.CodeDuplicateKey, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
