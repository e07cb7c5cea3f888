package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrMalformedResponse is wrapped when the backend answers with an unexpected payload.
var ErrMalformedResponse = errors.New("malformed response")

// Error is a non-2xx answer from the backend. Message is empty when the
// backend did not explain the failure.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	message := e.Message
	if message == "" {
		message = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("bad status %d: %s", e.StatusCode, message)
}

// Unauthorized reports whether the backend rejected the credentials or token.
func (e *Error) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// Message extracts a human-readable message from err, falling back to fallback
// when the error carries nothing useful for a user.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}

	return fallback
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}

// newError builds an Error from the response body. The backend reports failures
// as {"message": "..."} or {"error": "..."}.
func newError(status int, body []byte) *Error {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}

	message := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		message = strings.TrimSpace(payload.Message)
		if message == "" {
			message = strings.TrimSpace(payload.Error)
		}
	}

	return &Error{StatusCode: status, Message: message}
}
