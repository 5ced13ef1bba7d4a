package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ossignal/ossignal/internal/core/domain"
	"github.com/ossignal/ossignal/internal/core/ports/driven"
	"github.com/ossignal/ossignal/internal/core/ports/driving"
	"github.com/ossignal/ossignal/internal/logger"
	"github.com/ossignal/ossignal/internal/metrics"
)

// DefaultNamespaceConcurrency bounds in-flight fetches per provider
// namespace so one run cannot burn a provider's whole quota at once.
const DefaultNamespaceConcurrency = 2

// Ensure Crawler implements the interface.
var _ driving.Crawler = (*Crawler)(nil)

// Crawler runs every autocrawl pointer once per Run call. Pointers of
// different namespaces crawl in parallel; within a namespace concurrency
// is bounded by a semaphore.
type Crawler struct {
	registry    *FetcherRegistry
	pointers    driven.PointerStore
	concurrency int64

	// now is injectable for deterministic tests.
	now func() time.Time

	mu   sync.Mutex
	sems map[domain.Namespace]*semaphore.Weighted
}

// NewCrawler creates a crawl driver. A concurrency of 0 or less falls
// back to DefaultNamespaceConcurrency.
func NewCrawler(registry *FetcherRegistry, pointers driven.PointerStore, concurrency int) *Crawler {
	if concurrency <= 0 {
		concurrency = DefaultNamespaceConcurrency
	}
	return &Crawler{
		registry:    registry,
		pointers:    pointers,
		concurrency: int64(concurrency),
		now:         time.Now,
		sems:        make(map[domain.Namespace]*semaphore.Weighted),
	}
}

// Run crawls every autocrawl pointer once. One summary is returned per
// pointer; a pointer's failure never aborts the batch. The returned error
// covers only the initial pointer listing.
func (c *Crawler) Run(ctx context.Context) ([]driving.Summary, error) {
	pointers, err := c.pointers.ListAutocrawl(ctx)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	now := c.now()
	logger.Section("autocrawl " + runID)
	logger.Info("%d autocrawl pointers", len(pointers))

	summaries := make([]driving.Summary, len(pointers))
	var g errgroup.Group
	for i, pointer := range pointers {
		g.Go(func() error {
			summaries[i] = c.crawlOne(ctx, runID, now, pointer)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // goroutines only write their summary slot

	for _, summary := range summaries {
		metrics.CrawlOutcomes.WithLabelValues(string(summary.Outcome)).Inc()
	}
	return summaries, nil
}

// crawlOne dispatches a single pointer and folds the result into a summary.
func (c *Crawler) crawlOne(ctx context.Context, runID string, now time.Time, pointer domain.EventSourcePointer) driving.Summary {
	summary := driving.Summary{
		RunID:   runID,
		Command: pointer.QueryCommand,
		Args:    pointer.QueryArgs,
	}

	entry, err := c.registry.ByCommand(pointer.QueryCommand)
	if err != nil {
		logger.Warn("Unknown query command %q for pointer %d", pointer.QueryCommand, pointer.ID)
		summary.Outcome = driving.OutcomeSkipped
		summary.Detail = err.Error()
		return summary
	}

	sem := c.namespaceSem(entry.Namespace)
	if err := sem.Acquire(ctx, 1); err != nil {
		summary.Outcome = driving.OutcomeFailed
		summary.Detail = err.Error()
		return summary
	}
	defer sem.Release(1)

	logger.Info("Running %s with args %v", pointer.QueryCommand, pointer.QueryArgs)
	result, err := entry.Fetch(ctx, driven.FetchRequest{
		Args:      pointer.QueryArgs,
		Now:       now,
		Autocrawl: true,
	})
	switch {
	case err != nil:
		summary.Outcome = driving.OutcomeFailed
		summary.Detail = err.Error()
	case result.Cached:
		summary.Outcome = driving.OutcomeCached
	default:
		summary.Outcome = driving.OutcomeSuccess
		summary.Count = result.Count
	}
	return summary
}

// namespaceSem returns the semaphore bounding the namespace's in-flight
// fetches, creating it on first use.
func (c *Crawler) namespaceSem(namespace domain.Namespace) *semaphore.Weighted {
	c.mu.Lock()
	defer c.mu.Unlock()
	sem, ok := c.sems[namespace]
	if !ok {
		sem = semaphore.NewWeighted(c.concurrency)
		c.sems[namespace] = sem
	}
	return sem
}
