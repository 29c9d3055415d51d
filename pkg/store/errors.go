package store

import "fmt"

// NotFoundError means the requested conversation does not exist.
type NotFoundError struct {
	ConversationID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("conversation %q not found", e.ConversationID)
}

// StorageError wraps a backend failure with the backend and operation
// that produced it.
type StorageError struct {
	Backend string
	Op      string
	Cause   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store %s: %s: %v", e.Backend, e.Op, e.Cause)
}

func (e *StorageError) Unwrap() error { return e.Cause }
