package dataset

import "fmt"

// StorageError reports a failed read or write of a dataset artifact.
type StorageError struct {
	Path      string // Artifact path
	Operation string // "read", "append", "write", ...
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("dataset storage error [path=%s, operation=%s]: %v", e.Path, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

func storageError(path, op string, cause error) *StorageError {
	return &StorageError{Path: path, Operation: op, Cause: cause}
}
