package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/bkx/internal/shared"
)

// APIError is a non-2xx gateway response.
//
// It matches [shared.ErrAPIRequest], and [shared.ErrUnauthorized] when the status is 401.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string { return e.Message }

// Is lets callers test with errors.Is against the shared sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case shared.ErrAPIRequest:
		return true
	case shared.ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	default:
		return false
	}
}

// IsUnauthorized reports whether err is a 401 from the gateway.
func IsUnauthorized(err error) bool {
	return errors.Is(err, shared.ErrUnauthorized)
}

// ExtractMessage pulls a display message out of an error body.
//
// Tried in order: error.message, message, error (string). Returns "" when none match.
func ExtractMessage(body any) string {
	obj, ok := body.(map[string]any)
	if !ok {
		return ""
	}

	if nested, ok := obj["error"].(map[string]any); ok {
		if msg, ok := nested["message"].(string); ok && msg != "" {
			return msg
		}
	}
	if msg, ok := obj["message"].(string); ok && msg != "" {
		return msg
	}
	if msg, ok := obj["error"].(string); ok && msg != "" {
		return msg
	}
	return ""
}

// Message returns the text to show for err: the gateway's message for API errors, fallback otherwise.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, shared.ErrNotAuthenticated) {
		return "Please log in."
	}
	return fallback
}

// statusError builds the [APIError] for a non-2xx response using fallback when the body has no message.
func statusError(op string, resp *APIResponse, fallback string) *APIError {
	msg := ""
	if resp.IsJSON {
		msg = ExtractMessage(resp.JSONData)
	}
	if msg == "" {
		msg = fallback
	}
	return &APIError{Op: op, StatusCode: resp.StatusCode, Message: msg}
}

func statusText(resp *APIResponse) string {
	return fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}
