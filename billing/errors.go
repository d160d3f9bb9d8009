/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Transport and sync packages wrap these with additional context.

ERROR CATEGORIES:
  1. Local validation  - InvalidRange, MissingField (rejected, never coerced)
  2. Remote data       - MalformedRecord (bad shape coming off the wire)
  3. Integrity         - ReferentialConflict (delete blocked, carries count)
  4. Remote transport  - RemoteUnavailable, PartialSync, NotFound

USAGE:
  Callers branch with errors.Is / errors.As, or ask KindOf(err) for a stable
  classification to present:

    if errors.Is(err, billing.ErrReferentialConflict) {
        var rc *billing.ReferentialConflictError
        errors.As(err, &rc)
        // tell the user rc.BlockingCount assignments must be reassigned
    }

SEE ALSO:
  - integrity.go: produces ReferentialConflictError
  - reconcile/coordinator.go: produces PartialSyncError, RemoteError
*/
package billing

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRange is returned when an assignment ends at or before its start.
	ErrInvalidRange = errors.New("invalid range: end must be after start")

	// ErrMissingField is returned when a required field is empty.
	ErrMissingField = errors.New("missing required field")

	// ErrMalformedRecord is returned when remote data cannot be decoded.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrReferentialConflict is returned when a delete would orphan assignments.
	ErrReferentialConflict = errors.New("referential conflict")

	// ErrRemoteUnavailable is returned on network failure, timeout or non-2xx.
	ErrRemoteUnavailable = errors.New("remote unavailable")

	// ErrPartialSync is returned when some collections failed to load.
	ErrPartialSync = errors.New("partial sync failure")

	// ErrNotFound is returned when a record id is unknown to the store.
	ErrNotFound = errors.New("not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidRangeError details an assignment whose end is not after its start.
type InvalidRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range: end %s is not after start %s",
		e.End.Format(time.RFC3339), e.Start.Format(time.RFC3339))
}

func (e *InvalidRangeError) Unwrap() error { return ErrInvalidRange }

// MissingFieldError names the required field that was empty.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingField }

// MalformedRecordError describes a record that could not be decoded.
type MalformedRecordError struct {
	Collection Collection
	ID         string // empty when the id itself was unreadable
	Field      string
	Err        error
}

func (e *MalformedRecordError) Error() string {
	msg := fmt.Sprintf("malformed %s record", e.Collection)
	if e.ID != "" {
		msg += fmt.Sprintf(" %q", e.ID)
	}
	if e.Field != "" {
		msg += ": field " + e.Field
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedRecordError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedRecord}
	}
	return []error{ErrMalformedRecord, e.Err}
}

// ReferentialConflictError reports how many assignments block a delete.
type ReferentialConflictError struct {
	Kind          EntityKind
	ID            string
	BlockingCount int
}

func (e *ReferentialConflictError) Error() string {
	return fmt.Sprintf("cannot delete %s %q: referenced by %d assignment(s)",
		e.Kind, e.ID, e.BlockingCount)
}

func (e *ReferentialConflictError) Unwrap() error { return ErrReferentialConflict }

// RecordNotFoundError names the record that does not exist.
type RecordNotFoundError struct {
	Collection Collection
	ID         string
}

func (e *RecordNotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Collection, e.ID)
}

func (e *RecordNotFoundError) Unwrap() error { return ErrNotFound }

// RemoteError wraps a failed remote call.
type RemoteError struct {
	Op     string
	Status int // HTTP status, 0 when the request never completed
	Msg    string
	Err    error
}

func (e *RemoteError) Error() string {
	var b strings.Builder
	b.WriteString("remote ")
	b.WriteString(e.Op)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *RemoteError) Unwrap() []error {
	errs := []error{ErrRemoteUnavailable}
	if e.Status == 404 {
		errs = append(errs, ErrNotFound)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// PartialSyncError lists the collections that failed during a full load.
// Collections not listed loaded successfully.
type PartialSyncError struct {
	Failed map[Collection]error
}

func (e *PartialSyncError) Error() string {
	names := make([]string, 0, len(e.Failed))
	for c := range e.Failed {
		names = append(names, string(c))
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n + ": " + e.Failed[Collection(n)].Error()
	}
	return "partial sync failure: " + strings.Join(parts, "; ")
}

func (e *PartialSyncError) Unwrap() error { return ErrPartialSync }

// =============================================================================
// ERROR KINDS - Stable classification for presentation
// =============================================================================

// ErrorKind classifies an error for callers that only need to decide how to
// present it.
type ErrorKind string

const (
	KindNone                ErrorKind = ""
	KindInvalidRange        ErrorKind = "invalid_range"
	KindMissingField        ErrorKind = "missing_field"
	KindMalformedRecord     ErrorKind = "malformed_record"
	KindReferentialConflict ErrorKind = "referential_conflict"
	KindRemoteUnavailable   ErrorKind = "remote_unavailable"
	KindPartialSync         ErrorKind = "partial_sync_failure"
	KindNotFound            ErrorKind = "not_found"
	KindInternal            ErrorKind = "internal"
)

// KindOf returns the ErrorKind for err. Order matters: a 404 from the remote
// is NotFound, not RemoteUnavailable.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidRange):
		return KindInvalidRange
	case errors.Is(err, ErrMissingField):
		return KindMissingField
	case errors.Is(err, ErrMalformedRecord):
		return KindMalformedRecord
	case errors.Is(err, ErrReferentialConflict):
		return KindReferentialConflict
	case errors.Is(err, ErrPartialSync):
		return KindPartialSync
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrRemoteUnavailable):
		return KindRemoteUnavailable
	default:
		return KindInternal
	}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrMalformedRecord)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
