package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for backend operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrUnauthorized indicates the bearer credential was rejected.
	// With a refresh token installed the client refreshes and retries
	// the call once; the stream core never retries a failed stream
	// itself.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConversationNotFound indicates the conversation does not
	// exist or belongs to another user.
	ErrConversationNotFound = errors.New("conversation not found")
)

// statusError maps a non-2xx response onto the sentinel taxonomy,
// keeping the server's error body for context.
func statusError(status int, body string) error {
	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, body)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrConversationNotFound, body)
	default:
		return fmt.Errorf("server error: %d - %s", status, body)
	}
}
