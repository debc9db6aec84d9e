// Package errs provides the unified error type used across mautic-fix-db-ai.
//
// Every subsystem (config, tunnel, database, inspect, diagnose) wraps its
// native errors into *errs.Error before returning them to callers. Callers
// use the Is* predicates to handle errors without importing subsystem
// packages.
//
// Usage:
//
//	// In the tunnel — wrap native errors:
//	return errs.Wrap(errs.ErrKindTransportFailed, "ssh dial failed", err)
//
//	// In the command — check error kind:
//	if errs.IsConstraintNotFound(err) {
//	    log.Errorf("constraint %q does not exist", name)
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing subsystem-specific codes.
// The tunnel, the MySQL driver, and the inspector all map their native
// errors to one of these kinds, giving callers a single consistent API.
type ErrKind int

const (
	ErrKindUnknown            ErrKind = iota
	ErrKindConfigMissing              // required environment value absent
	ErrKindTransportFailed            // ssh tunnel setup or forwarding failure
	ErrKindConnectionFailed           // cannot reach or authenticate to MySQL
	ErrKindTimeout                    // context deadline / cancellation
	ErrKindQueryFailed                // SQL execution error
	ErrKindConstraintNotFound         // no catalog rows match the constraint name
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindConfigMissing:
		return "config_missing"
	case ErrKindTransportFailed:
		return "transport_failed"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindConstraintNotFound:
		return "constraint_not_found"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all subsystems.
// Subsystems produce it; callers inspect it via the Is* predicates below.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original lower-level error, preserved for debug logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf creates an *Error with a formatted message and no cause.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// --- Predicates ---

// IsConfigMissing reports whether err was caused by an absent required
// configuration value.
func IsConfigMissing(err error) bool {
	return kindOf(err) == ErrKindConfigMissing
}

// IsTransportFailed reports whether err is an SSH tunnel failure.
func IsTransportFailed(err error) bool {
	return kindOf(err) == ErrKindTransportFailed
}

// IsConnectionFailed reports whether err is a connectivity or auth failure.
func IsConnectionFailed(err error) bool {
	return kindOf(err) == ErrKindConnectionFailed
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return kindOf(err) == ErrKindTimeout
}

// IsQueryFailed reports whether err is a SQL execution failure.
func IsQueryFailed(err error) bool {
	return kindOf(err) == ErrKindQueryFailed
}

// IsConstraintNotFound reports whether err means the extracted constraint
// name matched nothing in the catalog.
func IsConstraintNotFound(err error) bool {
	return kindOf(err) == ErrKindConstraintNotFound
}

// kindOf extracts the ErrKind from any error in the chain.
func kindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
