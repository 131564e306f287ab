package telegram

import (
	"errors"
	"fmt"
)

// ErrFileTooLarge is returned by DownloadFile when the body exceeds the
// caller's byte limit.
var ErrFileTooLarge = errors.New("telegram file too large")

// APIError is a failed Bot API call: either a non-2xx HTTP status or an
// envelope with ok=false.
type APIError struct {
	Method      string
	StatusCode  int
	ErrorCode   int
	Description string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("telegram %s (%d): %s", e.Method, e.StatusCode, e.Description)
	}
	return fmt.Sprintf("telegram %s: http %d", e.Method, e.StatusCode)
}

// Unauthorized reports whether the bot token was rejected.
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == 401 || e.ErrorCode == 401
}

// IsAPIError reports whether err (or any error in its chain) is an APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// IsUnauthorized reports whether err carries a rejected-token APIError.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Unauthorized()
}
