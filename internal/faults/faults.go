// Package faults defines the error taxonomy shared by the pipeline, the
// registry cache, and the external surfaces. Every user-visible error maps to
// exactly one Kind; anything unclassified falls back to a safe default
// message instead of leaking internal detail.
package faults

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for user-facing handling.
type Kind string

const (
	KindValidation Kind = "Validation"          // local precondition failure, never contacts the ledger
	KindDuplicate  Kind = "DuplicateSubmission" // ledger reports the identity already has a record
	KindTransport  Kind = "Transport"           // ledger or storage unreachable, retryable by the user
	KindIntegrity  Kind = "Integrity"           // persisted blob failed to parse on load
)

// Error is a classified error carrying an optional wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Validation builds a local, recoverable precondition error.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// ValidationList folds a list of precondition failures into one error.
func ValidationList(msgs []string) *Error {
	return &Error{Kind: KindValidation, Msg: strings.Join(msgs, "; ")}
}

// Duplicate builds the ledger-reported "already submitted" error.
func Duplicate(address string) *Error {
	return &Error{Kind: KindDuplicate, Msg: fmt.Sprintf("identity %s already has a confirmed record", address)}
}

// Transport wraps a network or availability failure.
func Transport(err error, format string, args ...any) *Error {
	return &Error{Kind: KindTransport, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Integrity wraps a persisted-state parse failure.
func Integrity(err error, format string, args ...any) *Error {
	return &Error{Kind: KindIntegrity, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the classification of err, or the empty Kind when err is nil
// or carries no classification.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// User-facing message templates, one per kind.
const (
	msgValidation = "Submission rejected: %s"
	msgDuplicate  = "Already submitted: %s"
	msgTransport  = "Service unavailable, please retry: %s"
	msgIntegrity  = "Stored registry data could not be read and was reset"
	msgFallback   = "An unexpected error occurred, please try again"
)

// UserMessage renders err as the message template for its kind. Unclassified
// errors get the generic fallback.
func UserMessage(err error) string {
	var fe *Error
	if !errors.As(err, &fe) {
		return msgFallback
	}
	switch fe.Kind {
	case KindValidation:
		return fmt.Sprintf(msgValidation, fe.Msg)
	case KindDuplicate:
		return fmt.Sprintf(msgDuplicate, fe.Msg)
	case KindTransport:
		return fmt.Sprintf(msgTransport, fe.Msg)
	case KindIntegrity:
		return msgIntegrity
	default:
		return msgFallback
	}
}
