package driven

import (
	"context"
	"encoding/json"

	"github.com/ossignal/ossignal/internal/core/domain"
)

// PointerAdvance describes the atomic unit a successful fetch commits: the
// batch of new events plus the advanced pointer payload. Either everything
// commits or nothing does.
type PointerAdvance struct {
	// ArtifactID and EventType identify the pointer being advanced.
	ArtifactID int64
	EventType  domain.EventType

	// PreviousPayload is the payload the fetch started from. The store
	// aborts with domain.ErrPointerConflict if the persisted payload no
	// longer matches (a concurrent job advanced the pointer).
	PreviousPayload json.RawMessage

	// NewPayload replaces the pointer payload on success. It must never
	// rewind the bookmark.
	NewPayload json.RawMessage

	// Events is the batch to insert. Duplicates of already ingested
	// events are ignored, keeping replays idempotent.
	Events []domain.Event

	// QueryCommand and QueryArgs are re-recorded so the pointer can be
	// re-invoked unattended.
	QueryCommand string
	QueryArgs    map[string]string

	// Autocrawl marks the pointer for unattended crawling. Only an
	// explicit true updates the stored flag; false leaves it untouched.
	Autocrawl bool
}

// PointerStore persists event source pointers and owns the one required
// atomic-write boundary: AdvancePointer.
type PointerStore interface {
	// EnsurePointer creates the pointer if absent and returns the
	// existing one otherwise. Seeding is idempotent.
	EnsurePointer(ctx context.Context, pointer domain.EventSourcePointer) (*domain.EventSourcePointer, error)

	// GetPointer retrieves the pointer for (artifactID, eventType).
	// Returns domain.ErrNoPointer if it was never seeded.
	GetPointer(ctx context.Context, artifactID int64, eventType domain.EventType) (*domain.EventSourcePointer, error)

	// ListAutocrawl returns all pointers flagged for unattended crawling.
	ListAutocrawl(ctx context.Context) ([]domain.EventSourcePointer, error)

	// AdvancePointer atomically inserts the event batch and advances the
	// pointer. On any failure (including domain.ErrPointerConflict and
	// context cancellation) nothing is committed and the pointer stays
	// put.
	AdvancePointer(ctx context.Context, advance PointerAdvance) error
}

// EventStore provides read access to ingested events.
type EventStore interface {
	// ListEvents returns events for an artifact and event type, ordered
	// by event time ascending.
	ListEvents(ctx context.Context, artifactID int64, eventType domain.EventType) ([]domain.Event, error)

	// CountEvents returns the number of events for an artifact and event
	// type.
	CountEvents(ctx context.Context, artifactID int64, eventType domain.EventType) (int64, error)
}
