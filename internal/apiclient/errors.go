package apiclient

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the API answers 401. The session has
	// already been cleared by the time callers see it.
	ErrUnauthorized = errors.New("apiclient: unauthorized")
	// ErrTransport covers network failures and timeouts.
	ErrTransport = errors.New("apiclient: transport failure")
	// ErrNoToken is returned by calls that need a token when none is held.
	ErrNoToken = errors.New("apiclient: not signed in")
)

const fallbackMessage = "Something went wrong"

// APIError is a non-2xx response other than 401.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("apiclient: status %d: %s", e.Status, e.Message)
}

// RejectedError is a 2xx response whose body carried success:false.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return "apiclient: rejected: " + e.Message
}

// Message extracts the user-facing message from an error returned by the
// client, falling back to a generic one.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	var rejected *RejectedError
	if errors.As(err, &rejected) && rejected.Message != "" {
		return rejected.Message
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "Session expired. Please sign in again."
	case errors.Is(err, ErrNoToken):
		return "Please sign in first."
	}
	return fallbackMessage
}
