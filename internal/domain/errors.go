package domain

import "errors"

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrItemNotFound      = errors.New("reward item not found")
	ErrItemInactive      = errors.New("reward item is not active")
	ErrInvalidItem       = errors.New("invalid reward item")
	ErrInvalidRate       = errors.New("invalid rate")
	ErrInvalidContext    = errors.New("invalid reward context")
	ErrInboxItemNotFound = errors.New("inbox item not found")
)

// StorageError wraps an opaque failure from the persistence layer. Callers
// decide whether to retry; nothing in the core retries on its own.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return "storage: " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageError reports whether err came from the persistence layer.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
