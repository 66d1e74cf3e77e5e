// Package repository implements the client's data access: every operation
// calls the remote API first, then falls back to the local cache or the
// synthetic generator so a fully offline client still renders. Operations
// return (value, error); errors never escape as panics.
package repository

import (
	"github.com/pkg/errors"

	"github.com/pulsefeed/pulsefeed-go/api"
)

// ErrNotFound marks an entity lookup that legitimately has no row, remotely
// or locally.
var ErrNotFound = errors.New("not found")

// ValidationError is input rejected before any remote call is attempted.
// It is never a fallback-worthy condition.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// ErrorMessage derives the user-visible message from any failure a
// repository returns. It always yields something presentable.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Message
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, ErrNotFound) {
		return "not found"
	}
	if api.IsTransportError(err) {
		return "network unavailable, please try again"
	}
	return err.Error()
}
