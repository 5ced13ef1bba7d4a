// Package domain defines the core business entities for ossignal.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Organization: A provider-namespace owner of artifacts
//   - Artifact: A tracked unit of external activity (repo, package)
//   - Event: An immutable fact about an artifact at a point in time
//   - EventSourcePointer: The crawl bookmark for one (artifact, event type)
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
