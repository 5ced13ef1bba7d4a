package github

import (
	"time"

	"github.com/ossignal/ossignal/internal/core/domain"
)

// FormatTime renders a query-boundary timestamp the way GitHub's search
// qualifiers expect it: second precision, zero padded, explicit UTC.
// Sub-second precision is truncated, never rounded, so a window boundary
// can never drift past the instant it was computed from.
func FormatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(domain.GitHubTimeLayout)
}

// ParseTime parses a GitHub-formatted timestamp.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
