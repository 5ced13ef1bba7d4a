// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the crawler to function:
//
//   - CatalogStore: Organization and Artifact persistence (idempotent upserts)
//   - PointerStore: EventSourcePointer persistence and the atomic
//     pointer-advance + event-insert write
//   - EventStore: Read access to ingested events
//   - ConfigStore: Application configuration
//   - TokenProvider: Access tokens for provider API calls
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - SchedulerStore: Scheduler state for the unattended crawl loop
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or provider package
package driven
