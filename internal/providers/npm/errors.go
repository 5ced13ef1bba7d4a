package npm

import (
	"fmt"

	"github.com/ossignal/ossignal/internal/core/domain"
)

// npm-specific errors.
var (
	// ErrMissingName indicates a fetch call without the required name
	// argument, rejected before any network call.
	ErrMissingName = fmt.Errorf("npm: missing required argument name: %w", domain.ErrInvalidInput)
)

// APIError represents a non-2xx response from the registry or the
// downloads API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("npm: API error %d: %s", e.StatusCode, e.Message)
}
