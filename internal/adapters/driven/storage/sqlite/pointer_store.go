package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ossignal/ossignal/internal/core/domain"
	"github.com/ossignal/ossignal/internal/core/ports/driven"
)

// pointerStore implements driven.PointerStore.
type pointerStore struct {
	store *Store
}

var _ driven.PointerStore = (*pointerStore)(nil)

// EnsurePointer creates the pointer if absent and returns the persisted row.
func (s *pointerStore) EnsurePointer(ctx context.Context, pointer domain.EventSourcePointer) (*domain.EventSourcePointer, error) {
	if pointer.ArtifactID == 0 || pointer.EventType == "" {
		return nil, fmt.Errorf("pointer needs artifact and event type: %w", domain.ErrInvalidInput)
	}

	argsJSON, err := marshalQueryArgs(pointer.QueryArgs)
	if err != nil {
		return nil, err
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO event_source_pointers (artifact_id, event_type, payload, autocrawl, query_command, query_args, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(artifact_id, event_type) DO NOTHING
	`, pointer.ArtifactID, string(pointer.EventType), payloadText(pointer.Payload),
		boolToInt(pointer.Autocrawl), pointer.QueryCommand, argsJSON,
		formatTime(time.Now()))
	if err != nil {
		return nil, fmt.Errorf("ensuring pointer: %w", err)
	}

	return s.GetPointer(ctx, pointer.ArtifactID, pointer.EventType)
}

// GetPointer retrieves the pointer for (artifactID, eventType).
func (s *pointerStore) GetPointer(ctx context.Context, artifactID int64, eventType domain.EventType) (*domain.EventSourcePointer, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, artifact_id, event_type, payload, autocrawl, query_command, query_args, updated_at
		FROM event_source_pointers WHERE artifact_id = ? AND event_type = ?
	`, artifactID, string(eventType))

	pointer, err := scanPointer(row.Scan)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNoPointer
	}
	if err != nil {
		return nil, fmt.Errorf("scanning pointer: %w", err)
	}
	return pointer, nil
}

// ListAutocrawl returns all pointers flagged for unattended crawling.
func (s *pointerStore) ListAutocrawl(ctx context.Context) ([]domain.EventSourcePointer, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, artifact_id, event_type, payload, autocrawl, query_command, query_args, updated_at
		FROM event_source_pointers WHERE autocrawl = 1
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying autocrawl pointers: %w", err)
	}
	defer rows.Close()

	var pointers []domain.EventSourcePointer //nolint:prealloc // size unknown from query
	for rows.Next() {
		pointer, err := scanPointer(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning pointer: %w", err)
		}
		pointers = append(pointers, *pointer)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pointers: %w", err)
	}

	return pointers, nil
}

// AdvancePointer inserts the event batch and advances the pointer in one
// transaction. The stored payload is re-read inside the transaction and
// compared against the payload the fetch started from; on mismatch the
// whole write aborts with domain.ErrPointerConflict.
func (s *pointerStore) AdvancePointer(ctx context.Context, advance driven.PointerAdvance) error {
	argsJSON, err := marshalQueryArgs(advance.QueryArgs)
	if err != nil {
		return err
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var pointerID int64
	var storedPayload string
	row := tx.QueryRowContext(ctx, `
		SELECT id, payload FROM event_source_pointers
		WHERE artifact_id = ? AND event_type = ?
	`, advance.ArtifactID, string(advance.EventType))
	if err := row.Scan(&pointerID, &storedPayload); err != nil {
		if err == sql.ErrNoRows {
			return domain.ErrNoPointer
		}
		return fmt.Errorf("reading pointer: %w", err)
	}

	stored := domain.EventSourcePointer{Payload: json.RawMessage(storedPayload)}
	if !stored.PayloadEqual(advance.PreviousPayload) {
		return domain.ErrPointerConflict
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO events (artifact_id, event_type, event_time, amount, details, contributor)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, event := range advance.Events {
		if _, err := stmt.ExecContext(ctx, event.ArtifactID, string(event.Type),
			formatTime(event.Time), event.Amount, payloadText(event.Details),
			event.Contributor); err != nil {
			return fmt.Errorf("inserting event: %w", err)
		}
	}

	// Autocrawl only ever turns on through an advance; clearing it is an
	// explicit operation.
	_, err = tx.ExecContext(ctx, `
		UPDATE event_source_pointers
		SET payload = ?, query_command = ?, query_args = ?,
			autocrawl = CASE WHEN ? THEN 1 ELSE autocrawl END,
			updated_at = ?
		WHERE id = ?
	`, payloadText(advance.NewPayload), advance.QueryCommand, argsJSON,
		boolToInt(advance.Autocrawl), formatTime(time.Now()), pointerID)
	if err != nil {
		return fmt.Errorf("updating pointer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// scanPointer scans one pointer row via the given Scan function.
func scanPointer(scan func(...any) error) (*domain.EventSourcePointer, error) {
	var pointer domain.EventSourcePointer
	var payload, argsJSON string
	var autocrawl int
	var updatedAt sql.NullString
	if err := scan(&pointer.ID, &pointer.ArtifactID, &pointer.EventType,
		&payload, &autocrawl, &pointer.QueryCommand, &argsJSON, &updatedAt); err != nil {
		return nil, err
	}

	pointer.Payload = json.RawMessage(payload)
	pointer.Autocrawl = autocrawl == 1
	if argsJSON != "" && argsJSON != jsonNull {
		if err := json.Unmarshal([]byte(argsJSON), &pointer.QueryArgs); err != nil {
			return nil, fmt.Errorf("unmarshaling query args: %w", err)
		}
	}
	if updatedAt.Valid {
		pointer.UpdatedAt = parseTime(updatedAt.String)
	}
	return &pointer, nil
}

// marshalQueryArgs encodes query args for storage, normalising nil to {}.
func marshalQueryArgs(args map[string]string) (string, error) {
	if args == nil {
		return "{}", nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("marshalling query args: %w", err)
	}
	return string(data), nil
}

// payloadText normalises a raw JSON payload for storage.
func payloadText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return jsonNull
	}
	return string(raw)
}

// ==================== Event Store ====================

// eventStore implements driven.EventStore.
type eventStore struct {
	store *Store
}

var _ driven.EventStore = (*eventStore)(nil)

// ListEvents returns events for an artifact and event type, ordered by
// event time ascending.
func (s *eventStore) ListEvents(ctx context.Context, artifactID int64, eventType domain.EventType) ([]domain.Event, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, artifact_id, event_type, event_time, amount, details, contributor
		FROM events WHERE artifact_id = ? AND event_type = ?
		ORDER BY event_time, id
	`, artifactID, string(eventType))
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event //nolint:prealloc // size unknown from query
	for rows.Next() {
		var event domain.Event
		var eventTime, details string
		if err := rows.Scan(&event.ID, &event.ArtifactID, &event.Type,
			&eventTime, &event.Amount, &details, &event.Contributor); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		event.Time = parseTime(eventTime)
		if details != jsonNull {
			event.Details = json.RawMessage(details)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}

	return events, nil
}

// CountEvents returns the number of events for an artifact and event type.
func (s *eventStore) CountEvents(ctx context.Context, artifactID int64, eventType domain.EventType) (int64, error) {
	var count int64
	row := s.store.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM events WHERE artifact_id = ? AND event_type = ?
	`, artifactID, string(eventType))
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("counting events: %w", err)
	}
	return count, nil
}
