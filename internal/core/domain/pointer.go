package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// GitHubTimeLayout is the second-precision, zero-padded UTC layout GitHub's
// search API expects for timestamp boundaries. Pointer payloads use the same
// layout so a persisted lastFetch can be pasted straight into a query window.
const GitHubTimeLayout = "2006-01-02T15:04:05Z"

// DateLayout is the day-precision layout used by the npm downloads API.
const DateLayout = "2006-01-02"

// EventSourcePointer is the persisted crawl bookmark for one
// (artifact, event type) pair. It records how far ingestion has progressed
// and how to re-invoke the fetch that advances it.
//
// The payload is monotonically non-decreasing across successful runs: a
// fetch never rewinds the bookmark, and a failed or cancelled fetch leaves
// it untouched.
type EventSourcePointer struct {
	// ID is the store-assigned identifier.
	ID int64

	// ArtifactID references the owning artifact. (ArtifactID, EventType)
	// is unique.
	ArtifactID int64

	// EventType is the activity kind this pointer bookmarks.
	EventType EventType

	// Payload is the event-type-specific bookmark, decoded by the owning
	// adapter via TimePointer or DatePointer.
	Payload json.RawMessage

	// Autocrawl marks the pointer for unattended crawling.
	Autocrawl bool

	// QueryCommand names the registry entry that advances this pointer.
	QueryCommand string

	// QueryArgs are the arguments to re-invoke QueryCommand with.
	QueryArgs map[string]string

	// UpdatedAt is when the pointer last advanced.
	UpdatedAt time.Time
}

// PayloadEqual reports whether the pointer's payload is semantically equal
// to raw, ignoring JSON key ordering and whitespace.
func (p *EventSourcePointer) PayloadEqual(raw json.RawMessage) bool {
	var a, b any
	if err := json.Unmarshal(normalizePayload(p.Payload), &a); err != nil {
		return false
	}
	if err := json.Unmarshal(normalizePayload(raw), &b); err != nil {
		return false
	}
	na, err := json.Marshal(a)
	if err != nil {
		return false
	}
	nb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(na, nb)
}

func normalizePayload(raw json.RawMessage) json.RawMessage {
	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage("null")
	}
	return raw
}

// TimePointer is the payload shape for timestamp-window adapters (GitHub).
// LastFetch is the exclusive lower bound of the next fetch window.
type TimePointer struct {
	LastFetch time.Time
}

type timePointerJSON struct {
	LastFetch string `json:"lastFetch"`
}

// MarshalJSON encodes LastFetch in the GitHub second-precision UTC layout.
func (p TimePointer) MarshalJSON() ([]byte, error) {
	return json.Marshal(timePointerJSON{
		LastFetch: p.LastFetch.UTC().Format(GitHubTimeLayout),
	})
}

// UnmarshalJSON decodes the persisted {lastFetch} payload.
func (p *TimePointer) UnmarshalJSON(data []byte) error {
	var aux timePointerJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t, err := time.Parse(GitHubTimeLayout, aux.LastFetch)
	if err != nil {
		return err
	}
	p.LastFetch = t
	return nil
}

// DecodeTimePointer decodes a pointer payload as a TimePointer.
func DecodeTimePointer(raw json.RawMessage) (TimePointer, error) {
	var p TimePointer
	if err := json.Unmarshal(raw, &p); err != nil {
		return TimePointer{}, ErrInvalidPointer
	}
	return p, nil
}

// DatePointer is the payload shape for day-window adapters (npm downloads).
// LastDate is the last day, inclusive, for which data has been ingested.
type DatePointer struct {
	LastDate string `json:"lastDate"`
}

// Date parses LastDate. A zero time with nil error means the pointer has
// never advanced.
func (p DatePointer) Date() (time.Time, error) {
	if p.LastDate == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, p.LastDate)
	if err != nil {
		return time.Time{}, ErrInvalidPointer
	}
	return t, nil
}

// DecodeDatePointer decodes a pointer payload as a DatePointer.
func DecodeDatePointer(raw json.RawMessage) (DatePointer, error) {
	var p DatePointer
	if err := json.Unmarshal(raw, &p); err != nil {
		return DatePointer{}, ErrInvalidPointer
	}
	return p, nil
}

// MustMarshalPayload marshals a pointer payload, panicking on failure.
// Payload types marshal deterministically, so failure indicates a
// programming error.
func MustMarshalPayload(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
