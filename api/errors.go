package api

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error is a server-rejected outcome: the request reached the server and came
// back with a non-2xx status. Anything else the client returns is a transport
// error.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server rejected request: status %d", e.StatusCode)
	}
	return fmt.Sprintf("server rejected request: status %d: %s", e.StatusCode, e.Message)
}

// IsServerError reports whether err (anywhere in its chain) is a
// server-rejected response.
func IsServerError(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr)
}

// StatusOf returns the HTTP status of a server-rejected error, 0 otherwise.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsTransportError reports whether err is a failure to reach or parse the
// server at all, the fallback-worthy condition.
func IsTransportError(err error) bool {
	return err != nil && !IsServerError(err)
}
