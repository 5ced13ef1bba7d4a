package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ossignal/ossignal/internal/core/domain"
	"github.com/ossignal/ossignal/internal/core/ports/driven"
	"github.com/ossignal/ossignal/internal/core/ports/driving"
	"github.com/ossignal/ossignal/internal/providers/github"
	"github.com/ossignal/ossignal/internal/providers/npm"
)

// Ensure FetcherRegistry implements the invoker interface.
var _ driving.FetchInvoker = (*FetcherRegistry)(nil)

// RegistryEntry binds one registry command to its fetcher and the
// (namespace, artifact type, event type) triple it serves.
type RegistryEntry struct {
	Command      string
	Namespace    domain.Namespace
	ArtifactType domain.ArtifactType
	EventType    domain.EventType
	Fetch        driven.Fetcher
}

// eventTriple is the closed dispatch key alternative to the command name.
type eventTriple struct {
	namespace    domain.Namespace
	artifactType domain.ArtifactType
	eventType    domain.EventType
}

// FetcherRegistry dispatches pointer commands to fetchers. Entries are
// fixed at construction; lookups after that are read-only and safe for
// concurrent use.
type FetcherRegistry struct {
	byCommand map[string]RegistryEntry
	byTriple  map[eventTriple]RegistryEntry
}

// NewFetcherRegistry creates a registry from the given entries.
// Duplicate commands or triples are a programming error.
func NewFetcherRegistry(entries ...RegistryEntry) (*FetcherRegistry, error) {
	r := &FetcherRegistry{
		byCommand: make(map[string]RegistryEntry, len(entries)),
		byTriple:  make(map[eventTriple]RegistryEntry, len(entries)),
	}
	for _, entry := range entries {
		if entry.Command == "" || entry.Fetch == nil {
			return nil, fmt.Errorf("registry entry needs command and fetcher: %w", domain.ErrInvalidInput)
		}
		if _, exists := r.byCommand[entry.Command]; exists {
			return nil, fmt.Errorf("duplicate registry command %q: %w", entry.Command, domain.ErrAlreadyExists)
		}
		triple := eventTriple{entry.Namespace, entry.ArtifactType, entry.EventType}
		if _, exists := r.byTriple[triple]; exists {
			return nil, fmt.Errorf("duplicate registry triple for %q: %w", entry.Command, domain.ErrAlreadyExists)
		}
		r.byCommand[entry.Command] = entry
		r.byTriple[triple] = entry
	}
	return r, nil
}

// ByCommand returns the entry registered under the given command.
// Returns domain.ErrNoFetcher on a miss.
func (r *FetcherRegistry) ByCommand(command string) (RegistryEntry, error) {
	entry, ok := r.byCommand[command]
	if !ok {
		return RegistryEntry{}, fmt.Errorf("command %q: %w", command, domain.ErrNoFetcher)
	}
	return entry, nil
}

// ByTriple returns the entry registered for the given
// (namespace, artifact type, event type).
// Returns domain.ErrNoFetcher on a miss.
func (r *FetcherRegistry) ByTriple(namespace domain.Namespace, artifactType domain.ArtifactType, eventType domain.EventType) (RegistryEntry, error) {
	entry, ok := r.byTriple[eventTriple{namespace, artifactType, eventType}]
	if !ok {
		return RegistryEntry{}, fmt.Errorf("%s/%s/%s: %w", namespace, artifactType, eventType, domain.ErrNoFetcher)
	}
	return entry, nil
}

// Invoke runs the named command once, against the current wall clock.
func (r *FetcherRegistry) Invoke(ctx context.Context, command string, args map[string]string, autocrawl bool) (driving.FetchOutcome, error) {
	entry, err := r.ByCommand(command)
	if err != nil {
		return driving.FetchOutcome{}, err
	}
	result, err := entry.Fetch(ctx, driven.FetchRequest{
		Args:      args,
		Now:       time.Now(),
		Autocrawl: autocrawl,
	})
	if err != nil {
		return driving.FetchOutcome{}, err
	}
	return driving.FetchOutcome{Cached: result.Cached, Count: result.Count}, nil
}

// Commands returns all registered commands, sorted.
func (r *FetcherRegistry) Commands() []string {
	commands := make([]string, 0, len(r.byCommand))
	for command := range r.byCommand {
		commands = append(commands, command)
	}
	sort.Strings(commands)
	return commands
}

// DefaultEntries wires the built-in fetchers into registry entries.
func DefaultEntries(gh *github.Fetchers, downloads *npm.Fetcher) []RegistryEntry {
	return []RegistryEntry{
		{
			Command:      github.CommandIssueFiled,
			Namespace:    domain.NamespaceGitHub,
			ArtifactType: domain.ArtifactGitRepository,
			EventType:    domain.EventIssueFiled,
			Fetch:        gh.IssueFiled,
		},
		{
			Command:      github.CommandIssueClosed,
			Namespace:    domain.NamespaceGitHub,
			ArtifactType: domain.ArtifactGitRepository,
			EventType:    domain.EventIssueClosed,
			Fetch:        gh.IssueClosed,
		},
		{
			Command:      github.CommandPRCreated,
			Namespace:    domain.NamespaceGitHub,
			ArtifactType: domain.ArtifactGitRepository,
			EventType:    domain.EventPRCreated,
			Fetch:        gh.PRCreated,
		},
		{
			Command:      github.CommandPRMerged,
			Namespace:    domain.NamespaceGitHub,
			ArtifactType: domain.ArtifactGitRepository,
			EventType:    domain.EventPRMerged,
			Fetch:        gh.PRMerged,
		},
		{
			Command:      npm.CommandDownloads,
			Namespace:    domain.NamespaceNPMRegistry,
			ArtifactType: domain.ArtifactNPMPackage,
			EventType:    domain.EventDownloads,
			Fetch:        downloads.Downloads,
		},
	}
}
