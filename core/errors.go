package core

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for comparison using errors.Is()
// These are generic errors that can be wrapped with additional context
var (
	// Validation errors are raised locally, before any backend call
	ErrValidation        = errors.New("validation failed")
	ErrMissingCredential = errors.New("missing credential")

	// Backend-reported auth errors
	ErrUnauthorized = errors.New("invalid or expired credential")
	ErrForbidden    = errors.New("role not permitted for this action")

	// Resource errors
	ErrNotFound = errors.New("resource not found")

	// Transport errors
	ErrConnectionFailed = errors.New("connection failed")
	ErrTimeout          = errors.New("operation timeout")

	// Backend internal failures
	ErrServer = errors.New("server error")

	// ErrRequestRejected marks a well-formed response whose envelope
	// reported success=false. Always carries the server's message.
	ErrRequestRejected = errors.New("request rejected")

	// Order lifecycle errors
	ErrCancelWindowExpired = errors.New("cancellation window expired")
	ErrTerminalStatus      = errors.New("order is in a terminal status")

	// Live channel errors
	ErrChannelClosed      = errors.New("channel closed")
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingConfiguration = errors.New("missing required configuration")
)

// ClientError provides structured error information with context.
// It implements the error interface and supports error wrapping.
// Message, when set, is safe to surface to a user verbatim.
type ClientError struct {
	Op      string // Operation that failed (e.g., "order.Cancel")
	Kind    string // Error kind (e.g., "auth", "order", "transport")
	ID      string // Optional ID of the entity involved
	Message string // Human-readable, user-displayable message
	Err     error  // Underlying error for wrapping
}

// Error returns the string representation of the error
func (e *ClientError) Error() string {
	if e.Op != "" && e.Err != nil {
		if e.ID != "" {
			return fmt.Sprintf("%s [%s]: %v", e.Op, e.ID, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error", e.Kind)
}

// Unwrap returns the underlying error for use with errors.Is/As
func (e *ClientError) Unwrap() error {
	return e.Err
}

// UserMessage returns the message intended for display. When no explicit
// message was attached (e.g., pure transport failures) a generic one is
// derived from the error category so views never show raw error objects.
func (e *ClientError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	switch {
	case errors.Is(e.Err, ErrUnauthorized):
		return "Your session has expired. Please log in again."
	case errors.Is(e.Err, ErrForbidden):
		return "You do not have permission to perform this action."
	case errors.Is(e.Err, ErrNotFound):
		return "The requested resource was not found."
	case errors.Is(e.Err, ErrConnectionFailed), errors.Is(e.Err, ErrTimeout):
		return "No response from server. Please check your connection and try again."
	case errors.Is(e.Err, ErrServer):
		return "An unexpected error occurred. Please try again later."
	}
	return "Something went wrong. Please try again."
}

// NewClientError creates a new ClientError
func NewClientError(op, kind string, err error) *ClientError {
	return &ClientError{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// UserMessage extracts a displayable message from any error.
func UserMessage(err error) string {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.UserMessage()
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// IsAuthError checks if an error reports a rejected or missing credential.
// These trigger the global logout side effect.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrMissingCredential)
}

// IsValidation checks if an error was caught locally before any backend call
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrCancelWindowExpired) ||
		errors.Is(err, ErrTerminalStatus)
}

// IsNotFound checks if an error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRetryable checks if an error is retryable.
// Retryable errors are typically transient network or availability issues.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConnectionFailed) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrServer)
}

// IsConfigurationError checks if an error is configuration-related
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrMissingConfiguration)
}
