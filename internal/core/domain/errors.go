package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input, rejected
	// before any network call.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownEventType indicates a string outside the EventType
	// enumeration.
	ErrUnknownEventType = errors.New("unknown event type")

	// ErrNoFetcher indicates no registry entry matches a pointer's
	// command or an artifact's (namespace, type, eventType) triple.
	// Reportable and non-fatal; the crawl driver logs and skips.
	ErrNoFetcher = errors.New("no matching fetcher")

	// ErrNoPointer indicates a fetch was invoked for an artifact and
	// event type that was never seeded with a pointer. A catalog bug,
	// fatal to that single pointer's run.
	ErrNoPointer = errors.New("no event source pointer")

	// ErrInvalidPointer indicates a pointer payload that does not decode
	// into the adapter's expected shape.
	ErrInvalidPointer = errors.New("invalid pointer payload")

	// ErrPointerConflict indicates the stored pointer changed while a
	// fetch was in flight (a concurrent job advanced it). The write is
	// aborted and nothing commits.
	ErrPointerConflict = errors.New("event source pointer changed")

	// ErrMalformedData indicates provider data that violates the
	// adapter's expectations (duplicate days, missing ranges).
	ErrMalformedData = errors.New("malformed provider data")

	// ErrRateLimited indicates the provider rate limit was exceeded and
	// backoff could not complete.
	ErrRateLimited = errors.New("rate limited")
)
