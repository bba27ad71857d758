package source

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by source adapters.
var (
	// ErrNotFound indicates the source has no record for the query.
	ErrNotFound = errors.New("not found")

	// ErrAuthError indicates a missing or rejected API key.
	ErrAuthError = errors.New("authentication error")

	// ErrRateLimited indicates the source rejected the call for rate.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrNetworkError indicates a transport failure.
	ErrNetworkError = errors.New("network error")

	// ErrInvalidResponse indicates a payload that could not be decoded.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrUnsupportedQuery indicates the source cannot answer this kind of
	// query, e.g. an ISBN lookup against a journal index.
	ErrUnsupportedQuery = errors.New("unsupported query")

	// ErrSourceUnavailable wraps any failure of a single source call.
	// Resolution treats it as "this source found nothing".
	ErrSourceUnavailable = errors.New("source unavailable")
)

// APIError represents a non-2xx response from a source.
type APIError struct {
	Source     string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Source, e.StatusCode, e.Message)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsAuthError returns true if the error indicates an authentication problem.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrAuthError) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
	}
	return false
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// checkHTTPErrors returns an error if the HTTP response indicates a problem.
func checkHTTPErrors(source string, resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s: %w: status %d", source, ErrAuthError, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w: status %d", source, ErrRateLimited, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", source, ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &APIError{Source: source, StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return nil
}
