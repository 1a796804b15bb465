package genclient

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyPrompt rejects blank input before any network call.
	ErrEmptyPrompt = errors.New("prompt must not be empty")
	// ErrMissingImage rejects an image request without picture bytes.
	ErrMissingImage = errors.New("image payload must not be empty")
	// ErrPayloadTooLarge rejects image uploads over MaxImageBytes before any
	// network call.
	ErrPayloadTooLarge = errors.New("image exceeds the 5 MB upload limit")
)

// APIError is an HTTP error status from a generation endpoint. Message is
// taken from the response body's error field when present.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("generation service error (%d): %s", e.Status, e.Message)
}

// TransportError wraps a request that never produced an HTTP response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "generation service unreachable: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedResponseError is a success status whose body is missing the
// expected field, or is not JSON at all.
type MalformedResponseError struct {
	Field string
}

func (e *MalformedResponseError) Error() string {
	if e.Field == "" {
		return "generation response is not valid JSON"
	}
	return "generation response missing field " + e.Field
}
