package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ossignal/ossignal/internal/core/domain"
	"github.com/ossignal/ossignal/internal/core/ports/driven"
)

// Ensure PointerStore implements both interfaces.
var (
	_ driven.PointerStore = (*PointerStore)(nil)
	_ driven.EventStore   = (*PointerStore)(nil)
)

// PointerStore is an in-memory implementation of driven.PointerStore and
// driven.EventStore. Pointers and events live together so AdvancePointer
// can commit both under one lock, mirroring the transactional semantics of
// the SQLite store.
type PointerStore struct {
	mu       sync.RWMutex
	pointers map[string]domain.EventSourcePointer
	events   map[string]domain.Event
	nextID   int64
}

// NewPointerStore creates a new in-memory pointer store.
func NewPointerStore() *PointerStore {
	return &PointerStore{
		pointers: make(map[string]domain.EventSourcePointer),
		events:   make(map[string]domain.Event),
	}
}

func pointerKey(artifactID int64, eventType domain.EventType) string {
	return fmt.Sprintf("%d|%s", artifactID, eventType)
}

// eventKey is the natural identity of an event, matching the SQLite
// store's unique key.
func eventKey(e domain.Event) string {
	return fmt.Sprintf("%d|%s|%s|%s|%s",
		e.ArtifactID, e.Type, e.Time.UTC().Format(time.RFC3339), e.Contributor, string(e.Details))
}

// EnsurePointer creates the pointer if absent and returns the stored one.
func (s *PointerStore) EnsurePointer(_ context.Context, pointer domain.EventSourcePointer) (*domain.EventSourcePointer, error) {
	if pointer.ArtifactID == 0 || pointer.EventType == "" {
		return nil, fmt.Errorf("pointer needs artifact and event type: %w", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := pointerKey(pointer.ArtifactID, pointer.EventType)
	if existing, ok := s.pointers[key]; ok {
		return &existing, nil
	}

	s.nextID++
	pointer.ID = s.nextID
	pointer.UpdatedAt = time.Now().UTC()
	s.pointers[key] = pointer
	return &pointer, nil
}

// GetPointer retrieves the pointer for (artifactID, eventType).
func (s *PointerStore) GetPointer(_ context.Context, artifactID int64, eventType domain.EventType) (*domain.EventSourcePointer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pointer, ok := s.pointers[pointerKey(artifactID, eventType)]
	if !ok {
		return nil, domain.ErrNoPointer
	}
	return &pointer, nil
}

// ListAutocrawl returns all pointers flagged for unattended crawling.
func (s *PointerStore) ListAutocrawl(_ context.Context) ([]domain.EventSourcePointer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pointers []domain.EventSourcePointer
	for _, pointer := range s.pointers {
		if pointer.Autocrawl {
			pointers = append(pointers, pointer)
		}
	}
	sort.Slice(pointers, func(i, j int) bool { return pointers[i].ID < pointers[j].ID })
	return pointers, nil
}

// AdvancePointer inserts the event batch and advances the pointer under
// one lock.
func (s *PointerStore) AdvancePointer(_ context.Context, advance driven.PointerAdvance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pointerKey(advance.ArtifactID, advance.EventType)
	pointer, ok := s.pointers[key]
	if !ok {
		return domain.ErrNoPointer
	}
	if !pointer.PayloadEqual(advance.PreviousPayload) {
		return domain.ErrPointerConflict
	}

	for _, event := range advance.Events {
		k := eventKey(event)
		if _, exists := s.events[k]; exists {
			continue
		}
		s.nextID++
		event.ID = s.nextID
		s.events[k] = event
	}

	pointer.Payload = advance.NewPayload
	pointer.QueryCommand = advance.QueryCommand
	pointer.QueryArgs = advance.QueryArgs
	if advance.Autocrawl {
		pointer.Autocrawl = true
	}
	pointer.UpdatedAt = time.Now().UTC()
	s.pointers[key] = pointer
	return nil
}

// ListEvents returns events for an artifact and event type, ordered by
// event time ascending.
func (s *PointerStore) ListEvents(_ context.Context, artifactID int64, eventType domain.EventType) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []domain.Event
	for _, event := range s.events {
		if event.ArtifactID == artifactID && event.Type == eventType {
			events = append(events, event)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Time.Equal(events[j].Time) {
			return events[i].ID < events[j].ID
		}
		return events[i].Time.Before(events[j].Time)
	})
	return events, nil
}

// CountEvents returns the number of events for an artifact and event type.
func (s *PointerStore) CountEvents(ctx context.Context, artifactID int64, eventType domain.EventType) (int64, error) {
	events, err := s.ListEvents(ctx, artifactID, eventType)
	if err != nil {
		return 0, err
	}
	return int64(len(events)), nil
}
