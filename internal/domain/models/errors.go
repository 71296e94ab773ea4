package models

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested archive entry or record does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidPeriod indicates a period key that is not a valid YYYY-MM month.
var ErrInvalidPeriod = errors.New("invalid period")

// ValidationError rejects an observation before anything is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "is required"
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, reason)
}

// ConflictError is returned by storage adapters on a uniqueness violation.
type ConflictError struct {
	Field string
	Cause error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s: %v", e.Field, e.Cause)
}

func (e *ConflictError) Unwrap() error { return e.Cause }

// QueryError reports a failed observation query during synthesis. It is retryable.
type QueryError struct {
	TenantID string
	Period   Period
	Cause    error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query error [tenant=%s, period=%s]: %v", e.TenantID, e.Period, e.Cause)
}

func (e *QueryError) Unwrap() error { return e.Cause }

// RenderError reports a record that could not be rendered. A structural error means
// the whole document could not be built.
type RenderError struct {
	ObservationID string
	Structural    bool
	Cause         error
}

func (e *RenderError) Error() string {
	if e.Structural {
		return fmt.Sprintf("render error: %v", e.Cause)
	}
	return fmt.Sprintf("render error [observation=%s]: %v", e.ObservationID, e.Cause)
}

func (e *RenderError) Unwrap() error { return e.Cause }

// PersistError reports a failed archive write.
type PersistError struct {
	Key   ArchiveKey
	Cause error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist error [tenant=%s, period=%s]: %v", e.Key.TenantID, e.Key.Period, e.Cause)
}

func (e *PersistError) Unwrap() error { return e.Cause }

// PurgeError reports a single archive entry that could not be deleted.
type PurgeError struct {
	Key   ArchiveKey
	Cause error
}

func (e *PurgeError) Error() string {
	return fmt.Sprintf("purge error [tenant=%s, period=%s]: %v", e.Key.TenantID, e.Key.Period, e.Cause)
}

func (e *PurgeError) Unwrap() error { return e.Cause }
