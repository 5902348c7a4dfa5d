package inventory

import (
	"errors"
)

var (
	// ErrNilDatabaseConnection is returned when a nil database connection is supplied to an engine constructor.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	// ErrEmptyTablePrefix is returned when an empty table prefix is supplied via WithTablePrefix.
	ErrEmptyTablePrefix = errors.New("empty table prefix supplied")

	// ErrInvalidCopyCount is returned when an item is built with fewer than one copy.
	ErrInvalidCopyCount = errors.New("item must have at least one copy")

	// ErrItemNotFound is returned when a referenced item does not exist in the backing store.
	ErrItemNotFound = errors.New("item not found")

	// ErrObligationNotFound is returned when a rental, reservation or booking does not exist in the backing store.
	ErrObligationNotFound = errors.New("obligation not found")

	// ErrItemUnavailable is the availability conflict: a hold was requested on an item
	// with zero free copies. It is a client error and always aborts the whole transaction.
	ErrItemUnavailable = errors.New("item is not available")

	// ErrBeforeCommitHookFailed is returned when a registered before-commit hook rejects a change.
	ErrBeforeCommitHookFailed = errors.New("before-commit hook rejected the change")

	// ErrBuildingQueryFailed is returned when building a database query fails.
	ErrBuildingQueryFailed = errors.New("building database query failed")

	// ErrQueryFailed is returned when a database query execution fails.
	ErrQueryFailed = errors.New("database query execution failed")

	// ErrExecFailed is returned when a database statement execution fails.
	ErrExecFailed = errors.New("database execution failed")

	// ErrScanningDBRowFailed is returned when scanning a database row fails.
	ErrScanningDBRowFailed = errors.New("scanning database row failed")

	// ErrTransactionFailed is returned when beginning or committing a database transaction fails.
	// It is a server error: the whole transaction rolls back and the caller must resubmit.
	ErrTransactionFailed = errors.New("database transaction failed")
)
