package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// AuthError reports a rejected or missing credential (HTTP 401/403)
type AuthError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: authentication failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: authentication failed (status %d): %v", e.Provider, e.StatusCode, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// RateLimitError reports HTTP 429 from a provider
type RateLimitError struct {
	Provider string
	Err      error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limited (status 429): %v", e.Provider, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// TransportError reports any other non-success status or a network failure.
// StatusCode is 0 when no response was received.
type TransportError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: request failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: request failed (status %d): %v", e.Provider, e.StatusCode, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// MalformedResponseError reports a response without the expected shape
type MalformedResponseError struct {
	Provider string
	Reason   string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %s", e.Provider, e.Reason)
}

// classifyStatus turns an HTTP status from an SDK error into one of the
// error kinds. Context errors pass through untouched so callers can tell
// cancellation apart from provider failures.
func classifyStatus(provider string, status int, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &AuthError{Provider: provider, StatusCode: status, Err: err}
	case status == http.StatusTooManyRequests:
		return &RateLimitError{Provider: provider, Err: err}
	default:
		return &TransportError{Provider: provider, StatusCode: status, Err: err}
	}
}

// IsRetryable reports whether the error kind warrants another attempt:
// transport failures and rate limits do, auth and malformed responses do not
func IsRetryable(err error) bool {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return true
	}
	var te *TransportError
	return errors.As(err, &te)
}

// isDecodeError reports whether err came from decoding a response body
func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
