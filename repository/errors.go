package repository

import (
	"fmt"
	"strings"
)

// StoreIOError means the backing storage misbehaved after the bounded retry
// budget was exhausted.
type StoreIOError struct {
	Op  string
	Err error
}

func (e *StoreIOError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StoreIOError) Unwrap() error { return e.Err }

// InvalidMergeFieldError rejects a merge containing an unrecognized metadata
// field before any write happens; the record is left unchanged.
type InvalidMergeFieldError struct {
	Field string
}

func (e *InvalidMergeFieldError) Error() string {
	return fmt.Sprintf("unrecognized merge field %q", e.Field)
}

// isTransient reports whether an sqlite error is worth retrying. WAL mode
// still surfaces short lock windows under concurrent writers.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked") || strings.Contains(msg, "busy")
}

// withRetries runs fn up to retries+1 times while it keeps failing
// transiently, then wraps the final error as a StoreIOError.
func withRetries(op string, retries int, fn func() error) error {
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		err = fn()
		if err == nil || !isTransient(err) {
			break
		}
	}
	if err == nil {
		return nil
	}
	if isTransient(err) {
		return &StoreIOError{Op: op, Err: err}
	}
	return err
}
