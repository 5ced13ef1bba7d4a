package domain

import (
	"encoding/json"
	"time"
)

// EventType is the closed enumeration of activity kinds the crawler
// understands. Each artifact carries at most one EventSourcePointer per
// event type.
type EventType string

const (
	EventIssueFiled  EventType = "ISSUE_FILED"
	EventIssueClosed EventType = "ISSUE_CLOSED"
	EventPRCreated   EventType = "PULL_REQUEST_CREATED"
	EventPRMerged    EventType = "PULL_REQUEST_MERGED"
	EventCommitCode  EventType = "COMMIT_CODE"
	EventDownloads   EventType = "DOWNLOADS"
)

// AllEventTypes returns every known event type.
func AllEventTypes() []EventType {
	return []EventType{
		EventIssueFiled,
		EventIssueClosed,
		EventPRCreated,
		EventPRMerged,
		EventCommitCode,
		EventDownloads,
	}
}

// GitHubRepoEventTypes returns the event types seeded for every tracked
// GitHub repository. These are exactly the types a fetcher exists for;
// seeding anything else would leave dead pointers in the autocrawl set.
func GitHubRepoEventTypes() []EventType {
	return []EventType{
		EventIssueFiled,
		EventIssueClosed,
		EventPRCreated,
		EventPRMerged,
	}
}

// ParseEventType validates a string against the closed enumeration.
func ParseEventType(s string) (EventType, error) {
	for _, et := range AllEventTypes() {
		if string(et) == s {
			return et, nil
		}
	}
	return "", ErrUnknownEventType
}

// Event is an immutable append-only fact about an artifact at a point in
// time. Events are created only by fetchers; corrections are modelled as new
// events, never as updates.
type Event struct {
	// ID is the store-assigned identifier.
	ID int64

	// ArtifactID references the owning artifact.
	ArtifactID int64

	// Type is the kind of activity recorded.
	Type EventType

	// Time is when the activity happened at the provider.
	Time time.Time

	// Amount is the quantity for quantitative events (e.g. download
	// counts). Zero for point events such as an issue being filed.
	Amount int64

	// Details is an event-type-specific payload, e.g. {"url","login"}
	// for an issue event.
	Details json.RawMessage

	// Contributor is the provider login of the acting user, when known.
	Contributor string
}

// IssueDetails is the Details payload for issue and pull request events.
type IssueDetails struct {
	URL   string `json:"url"`
	Login string `json:"login,omitempty"`
	Title string `json:"title,omitempty"`
}
