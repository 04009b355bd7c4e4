package gemini

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// APIError is a non-2xx response from the Gemini API.
type APIError struct {
	HTTPStatus int
	Status     string // Gemini status string, e.g. "RESOURCE_EXHAUSTED"
	Message    string
	RetryAfter time.Duration // zero when the server gave no hint
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("gemini: %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("gemini: http %d: %s", e.HTTPStatus, e.Message)
}

// Retryable reports whether repeating the request may succeed.
func (e *APIError) Retryable() bool {
	switch e.HTTPStatus {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable:
		return true
	}
	switch e.Status {
	case "RESOURCE_EXHAUSTED", "INTERNAL", "UNAVAILABLE":
		return true
	}
	return false
}

// IsAuthError reports whether err means the API key is missing, wrong,
// or lacks access, so callers can tell the user to check it.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.HTTPStatus == http.StatusUnauthorized || apiErr.HTTPStatus == http.StatusForbidden {
		return true
	}
	return apiErr.Status == "UNAUTHENTICATED" || apiErr.Status == "PERMISSION_DENIED"
}

// errorEnvelope is the JSON body Gemini wraps errors in.
type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// parseError reads an error response body into an *APIError. The body
// is usually an errorEnvelope but proxies sometimes return plain text.
func parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	apiErr := &APIError{HTTPStatus: resp.StatusCode}
	if after := resp.Header.Get("Retry-After"); after != "" {
		if secs, err := strconv.Atoi(after); err == nil && secs > 0 {
			apiErr.RetryAfter = time.Duration(secs) * time.Second
		}
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Message == "" {
		apiErr.Message = string(body)
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	apiErr.Status = envelope.Error.Status
	apiErr.Message = envelope.Error.Message
	return apiErr
}
