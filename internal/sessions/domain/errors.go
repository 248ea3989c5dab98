package domain

import "fmt"

// ValidationError reports a settings or record field outside its domain.
type ValidationError struct {
	Field string
	Value any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Value)
}

// PersistenceError wraps a storage failure with the operation that failed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// DuplicateSessionError is returned when a record with the same GUID was
// already written.
type DuplicateSessionError struct {
	GUID string
}

func (e *DuplicateSessionError) Error() string {
	return fmt.Sprintf("session %s already recorded", e.GUID)
}
