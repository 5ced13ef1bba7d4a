package github

import (
	"errors"
	"fmt"
	"time"

	"github.com/ossignal/ossignal/internal/core/domain"
)

// GitHub-specific errors.
var (
	// ErrMissingOrg indicates a fetch call without the required org
	// argument, rejected before any network call.
	ErrMissingOrg = fmt.Errorf("github: missing required argument org: %w", domain.ErrInvalidInput)

	// ErrMissingRepo indicates a fetch call without the required repo
	// argument, rejected before any network call.
	ErrMissingRepo = fmt.Errorf("github: missing required argument repo: %w", domain.ErrInvalidInput)

	// ErrOrgNotFound indicates the organisation was not found at the provider.
	ErrOrgNotFound = errors.New("github: organization not found")
)

// RateLimitError represents a rate limit exceeded error with reset time.
type RateLimitError struct {
	ResetAt   time.Time
	Remaining int
	Cost      int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("github: rate limit exceeded, resets at %s", e.ResetAt.Format(time.RFC3339))
}

// Unwrap maps the error to the domain sentinel so callers outside this
// package can match it with errors.Is.
func (e *RateLimitError) Unwrap() error {
	return domain.ErrRateLimited
}

// APIError represents a GitHub API error response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: API error %d: %s", e.StatusCode, e.Message)
}

// GraphQLError represents errors returned in a GraphQL response body.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	if len(e.Messages) == 0 {
		return "github: graphql error"
	}
	return "github: graphql: " + e.Messages[0]
}

// IsNotFound checks if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404
	}
	return errors.Is(err, ErrOrgNotFound)
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}

// IsUnauthorized checks if the error indicates an authentication failure.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401
	}
	return false
}
