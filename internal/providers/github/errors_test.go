package github

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ossignal/ossignal/internal/core/domain"
)

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(&APIError{StatusCode: 404, Message: "Not Found"}))
	assert.True(t, IsNotFound(ErrOrgNotFound))
	assert.True(t, IsNotFound(fmt.Errorf("org acme: %w", ErrOrgNotFound)))
	assert.False(t, IsNotFound(&APIError{StatusCode: 500}))
	assert.False(t, IsNotFound(errors.New("boom")))
}

func TestIsRateLimited(t *testing.T) {
	rl := &RateLimitError{ResetAt: time.Date(2024, 3, 8, 1, 0, 0, 0, time.UTC)}
	assert.True(t, IsRateLimited(rl))
	assert.True(t, IsRateLimited(fmt.Errorf("search: %w", rl)))
	assert.False(t, IsRateLimited(&APIError{StatusCode: 403}))
}

func TestRateLimitErrorMatchesDomainSentinel(t *testing.T) {
	rl := &RateLimitError{ResetAt: time.Date(2024, 3, 8, 1, 0, 0, 0, time.UTC)}
	assert.ErrorIs(t, rl, domain.ErrRateLimited)
	assert.Contains(t, rl.Error(), "2024-03-08T01:00:00Z")
}

func TestIsUnauthorized(t *testing.T) {
	assert.True(t, IsUnauthorized(&APIError{StatusCode: 401}))
	assert.False(t, IsUnauthorized(&APIError{StatusCode: 404}))
}
