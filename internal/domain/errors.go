package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation error")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrStoreUnreachable = errors.New("store unreachable")
	ErrRemoteRejected   = errors.New("remote rejected")
)

// AppError carries a human-readable message on top of one of the sentinel errors
type AppError struct {
	Err     error
	Message string
	Field   string
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound returns an AppError for a missing resource
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// ValidationFailed returns an AppError for rejected local input
func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Unauthorized returns an AppError for a missing or invalid session
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// RemoteError is a failure reported by the Admin API itself.
// Status 200 means the request went through and GraphQL returned top-level errors;
// any other status is an HTTP-level rejection.
type RemoteError struct {
	Status   int
	Messages []string
}

func (e *RemoteError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("shopify admin api returned status %d", e.Status)
	}
	return fmt.Sprintf("shopify admin api returned status %d: %s", e.Status, strings.Join(e.Messages, "; "))
}

// Unwrap classifies the failure: GraphQL errors are a remote rejection, non-2xx is a connectivity failure
func (e *RemoteError) Unwrap() error {
	if e.IsGraphQL() {
		return ErrRemoteRejected
	}
	return ErrStoreUnreachable
}

// IsGraphQL reports whether the error came from the GraphQL errors array of a 200 response
func (e *RemoteError) IsGraphQL() bool {
	return e.Status == http.StatusOK
}

// RemoteMessages returns the remote messages carried by err, if any
func RemoteMessages(err error) []string {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.Messages
	}
	return nil
}
