// Package apperr provides structured, sentinel-based error handling for
// wallet-core, following the error taxonomy every component reports
// against: a machine-readable Kind, a human message, optional structured
// details, an actionable suggestion, and a wrapped cause.
package apperr

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes a hosting CLI may map Kind onto.
const (
	ExitSuccess    = 0
	ExitGeneral    = 1
	ExitInput      = 2
	ExitAuth       = 3
	ExitNotFound   = 4
	ExitPermission = 5
)

// Kind is the machine-readable error category a component reports.
type Kind string

// The error taxonomy every component in this module reports against.
const (
	KindGeneral               Kind = "GENERAL_ERROR"
	KindInvalidInput          Kind = "INVALID_INPUT"
	KindWrongPassword         Kind = "WRONG_PASSWORD"
	KindNotFound              Kind = "NOT_FOUND"
	KindIntegrityError        Kind = "INTEGRITY_ERROR"
	KindWalletLocked          Kind = "WALLET_LOCKED"
	KindNetworkMismatch       Kind = "NETWORK_MISMATCH"
	KindInsufficientBalance   Kind = "INSUFFICIENT_BALANCE"
	KindUpstreamFailure       Kind = "UPSTREAM_FAILURE"
	KindPaymentRetryExceeded  Kind = "PAYMENT_RETRY_EXCEEDED"
	KindBlindSignNotConfirmed Kind = "BLIND_SIGN_NOT_CONFIRMED"
)

// exitCodeFor maps a Kind to the exit code a hosting CLI would use.
var exitCodeFor = map[Kind]int{
	KindGeneral:               ExitGeneral,
	KindInvalidInput:          ExitInput,
	KindWrongPassword:         ExitAuth,
	KindNotFound:              ExitNotFound,
	KindIntegrityError:        ExitPermission,
	KindWalletLocked:          ExitAuth,
	KindNetworkMismatch:       ExitInput,
	KindInsufficientBalance:   ExitPermission,
	KindUpstreamFailure:       ExitGeneral,
	KindPaymentRetryExceeded:  ExitGeneral,
	KindBlindSignNotConfirmed: ExitPermission,
}

// Error is the structured error type returned by every component in this
// module.
type Error struct {
	Kind       Kind
	Message    string
	Details    map[string]string
	Suggestion string
	Cause      error
}

func (e *Error) Error() string {
	msg := e.Message

	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports equality by Kind, so errors.Is(err, apperr.New(KindNotFound, ""))
// matches any *Error of the same kind regardless of message or details.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// ExitCode returns the process exit code a hosting CLI should use for err,
// or ExitGeneral if err is not an *Error.
func ExitCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		if code, ok := exitCodeFor[e.Kind]; ok {
			return code
		}
	}
	return ExitGeneral
}

// KindOf returns the Kind of err, or KindGeneral if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindGeneral
}

// New builds an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithDetails returns a copy of e with detail key=value attached.
func (e *Error) WithDetails(key, value string) *Error {
	out := *e
	out.Details = make(map[string]string, len(e.Details)+1)
	for k, v := range e.Details {
		out.Details[k] = v
	}
	out.Details[key] = value
	return &out
}

// WithSuggestion returns a copy of e with Suggestion set.
func (e *Error) WithSuggestion(suggestion string) *Error {
	out := *e
	out.Suggestion = suggestion
	return &out
}

// Sentinel errors matched via errors.Is; components return Wrap/New with
// the same Kind but a more specific Message/Details/Cause.
var (
	ErrGeneral               = New(KindGeneral, "an error occurred")
	ErrInvalidInput          = New(KindInvalidInput, "invalid input")
	ErrWrongPassword         = New(KindWrongPassword, "wrong password or corrupted keystore")
	ErrNotFound              = New(KindNotFound, "resource not found")
	ErrIntegrityError        = New(KindIntegrityError, "integrity check failed")
	ErrWalletLocked          = New(KindWalletLocked, "wallet is locked")
	ErrNetworkMismatch       = New(KindNetworkMismatch, "operation targets the wrong network")
	ErrInsufficientBalance   = New(KindInsufficientBalance, "insufficient balance")
	ErrUpstreamFailure       = New(KindUpstreamFailure, "upstream service failure")
	ErrPaymentRetryExceeded  = New(KindPaymentRetryExceeded, "payment retry limit exceeded")
	ErrBlindSignNotConfirmed = New(KindBlindSignNotConfirmed, "blind signing requires explicit confirmation")
)
