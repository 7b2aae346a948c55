package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface enables extensible error handling.
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a resource (usually a session) was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input, including a structured
	// clinical document missing one of its required fields.
	ValidationError struct {
		Message string
	}

	// BusyError indicates a single-flight operation was invoked while a
	// previous invocation was still in flight.
	BusyError struct {
		Message string
	}
)

// Error implementations
func (e *NotFoundError) Error() string   { return e.Message }
func (e *ValidationError) Error() string { return e.Message }
func (e *BusyError) Error() string       { return e.Message }

// StatusCode implementations (HTTPError interface)
func (e *NotFoundError) StatusCode() int   { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }
func (e *BusyError) StatusCode() int       { return http.StatusConflict }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation failed")
	ErrBusy          = errors.New("operation already in flight")
	ErrProvider      = errors.New("inference provider error")
	ErrEmptyResponse = errors.New("inference response contained no text")
)

func (e *NotFoundError) Is(target error) bool   { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
func (e *BusyError) Is(target error) bool       { return target == ErrBusy }

// ProviderError carries the provider-reported message for a failed
// inference call, falling back to the raw HTTP status text when the
// provider's error body could not be decoded.
type ProviderError struct {
	HTTPStatus int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("provider: %s", e.Message)
	}
	return fmt.Sprintf("provider: %s", http.StatusText(e.HTTPStatus))
}

// StatusCode implements the HTTPError interface. Provider failures are
// surfaced as a bad gateway regardless of the upstream status.
func (e *ProviderError) StatusCode() int { return http.StatusBadGateway }

// Is allows errors.Is() to match against ErrProvider
func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// ImageDecodeError indicates an uploaded image could not be decoded.
// Preprocessing has no partial-success path: one undecodable image fails
// the whole call.
type ImageDecodeError struct {
	Filename string
	Err      error
}

func (e *ImageDecodeError) Error() string {
	return fmt.Sprintf("decode image %q: %v", e.Filename, e.Err)
}

func (e *ImageDecodeError) Unwrap() error { return e.Err }

func (e *ImageDecodeError) StatusCode() int { return http.StatusUnprocessableEntity }
