// Package apperr defines the application error taxonomy shared by the
// entitlement engine and the transport layer.
package apperr

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Kind classifies an application error for programmatic branching.
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindAlreadyResolved Kind = "already_resolved"
	KindAlreadyUsed     Kind = "already_used"
	KindExpired         Kind = "expired"
	KindUnauthorized    Kind = "unauthorized"
	KindInvalidArgument Kind = "invalid_argument"
	KindInternal        Kind = "internal"
)

// Error carries both an operator-facing message and the text shown to the
// Telegram user when the error surfaces at the engine boundary.
type Error struct {
	Kind        Kind
	Message     string
	UserMessage string
	Severity    Severity
	cause       error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

// NotFound reports that the named entity does not exist.
func NotFound(entity string) *Error {
	return &Error{
		Kind:        KindNotFound,
		Message:     fmt.Sprintf("%s not found", entity),
		UserMessage: fmt.Sprintf("❌ %s not found.", entity),
		Severity:    SeverityLow,
	}
}

// AlreadyResolved reports a second approve/reject attempt on the same request.
func AlreadyResolved(requestID int64) *Error {
	return &Error{
		Kind:        KindAlreadyResolved,
		Message:     fmt.Sprintf("redeem request %d is already resolved", requestID),
		UserMessage: fmt.Sprintf("⚠️ Request #%d has already been resolved.", requestID),
		Severity:    SeverityLow,
	}
}

// AlreadyUsed reports a redemption attempt on a consumed premium key.
func AlreadyUsed() *Error {
	return &Error{
		Kind:        KindAlreadyUsed,
		Message:     "premium key already used",
		UserMessage: "❌ This key has already been used.",
		Severity:    SeverityLow,
	}
}

// Expired reports a redemption attempt on a key past its validity window.
func Expired() *Error {
	return &Error{
		Kind:        KindExpired,
		Message:     "premium key expired",
		UserMessage: "❌ This key has expired.",
		Severity:    SeverityLow,
	}
}

// Unauthorized reports a privileged operation invoked by a non-admin.
func Unauthorized() *Error {
	return &Error{
		Kind:        KindUnauthorized,
		Message:     "caller is not an admin",
		UserMessage: "🚫 This command is for admins only.",
		Severity:    SeverityLow,
	}
}

// InvalidArgument reports malformed command input.
func InvalidArgument(msg string) *Error {
	return &Error{
		Kind:        KindInvalidArgument,
		Message:     msg,
		UserMessage: fmt.Sprintf("⚠️ %s", msg),
		Severity:    SeverityLow,
	}
}

// Internal wraps an unexpected failure from a store or the transport.
func Internal(cause error) *Error {
	var underlying string
	if cause != nil {
		underlying = cause.Error()
	}

	return &Error{
		Kind:        KindInternal,
		Message:     fmt.Sprintf("internal error: %s", underlying),
		UserMessage: "⚠️ Something went wrong. Please try again later.",
		Severity:    SeverityHigh,
		cause:       cause,
	}
}
