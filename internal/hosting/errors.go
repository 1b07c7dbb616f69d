package hosting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

var (
	// ErrAlreadyExists is matched by APIErrors reporting a naming collision.
	ErrAlreadyExists = errors.New("repository already exists")
	// ErrVisibilityMismatch is returned when the requested visibility differs
	// from the project's, which repositories cannot override.
	ErrVisibilityMismatch = errors.New("requested visibility does not match project visibility")
)

// APIError is a non-2xx response from the hosting API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	TypeKey    string
	Message    string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("hosting API %s %s: status %d", e.Method, e.Path, e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *APIError) Is(target error) bool {
	if target != ErrAlreadyExists {
		return false
	}
	return e.StatusCode == http.StatusConflict || strings.Contains(e.TypeKey, "AlreadyExists")
}

// readAPIError builds an APIError from resp, using the service's JSON error
// body when present and the raw body otherwise.
func readAPIError(method, path string, resp *http.Response) *APIError {
	apiErr := &APIError{Method: method, Path: path, StatusCode: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var payload struct {
		Message string `json:"message"`
		TypeKey string `json:"typeKey"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		apiErr.Message = payload.Message
		apiErr.TypeKey = payload.TypeKey
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(body))
	return apiErr
}

// IsTransient reports whether err is worth retrying: throttling, 5xx
// responses, request timeouts and network failures. Caller cancellation is
// never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests ||
			apiErr.StatusCode == http.StatusRequestTimeout ||
			apiErr.StatusCode >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
