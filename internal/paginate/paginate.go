// Package paginate implements generic cursor-walking over paged provider
// responses, respecting the provider's reported rate-limit envelope.
package paginate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ossignal/ossignal/internal/logger"
	"github.com/ossignal/ossignal/internal/metrics"
)

// resetEpsilon is added to the provider's reset time before resuming, so a
// request issued immediately after the sleep lands inside the fresh quota.
const resetEpsilon = time.Second

// maxCursorRepeats bounds how often the same endCursor may be served with
// hasNextPage=true before pagination aborts instead of looping forever.
const maxCursorRepeats = 3

// ErrCursorStuck indicates the provider kept returning the same endCursor
// while claiming more pages exist.
var ErrCursorStuck = errors.New("paginate: cursor did not advance")

// PageInfo is the provider's cursor envelope.
type PageInfo struct {
	HasNextPage bool
	EndCursor   string
}

// RateLimit is the provider-reported quota envelope. A nil RateLimit on a
// page means the provider reports no quota and pagination never sleeps.
type RateLimit struct {
	Limit     int
	Cost      int
	Remaining int
	ResetAt   time.Time
}

// exhausted reports whether the next request would overdraw the quota.
func (r *RateLimit) exhausted() bool {
	return r.Remaining == 0 || r.Remaining-r.Cost <= 0
}

// Page is one page of items plus its envelopes.
type Page[T any] struct {
	Items     []T
	PageInfo  PageInfo
	RateLimit *RateLimit
}

// FetchFunc requests one page. An empty cursor requests the first page.
type FetchFunc[T any] func(ctx context.Context, cursor string) (Page[T], error)

// All walks every page and returns the concatenated items in request order.
// No cross-page re-sorting is performed.
//
// Transport errors from fetch propagate unwrapped; All does not retry.
// When a page reports quota exhaustion and more pages remain, All sleeps
// until the reported reset time (plus a small buffer) or until ctx is
// cancelled, whichever comes first.
func All[T any](ctx context.Context, fetch FetchFunc[T]) ([]T, error) {
	var (
		items   []T
		cursor  string
		repeats int
	)

	for {
		page, err := fetch(ctx, cursor)
		if err != nil {
			return nil, err
		}

		items = append(items, page.Items...)

		if !page.PageInfo.HasNextPage {
			return items, nil
		}

		if page.PageInfo.EndCursor == cursor {
			repeats++
			if repeats >= maxCursorRepeats {
				return nil, fmt.Errorf("%w: %q repeated %d times", ErrCursorStuck, cursor, repeats)
			}
		} else {
			repeats = 0
		}

		if rl := page.RateLimit; rl != nil && rl.exhausted() {
			if err := sleepUntil(ctx, rl.ResetAt.Add(resetEpsilon)); err != nil {
				return nil, err
			}
		}

		cursor = page.PageInfo.EndCursor
	}
}

// sleepUntil suspends until the deadline passes or ctx is cancelled.
func sleepUntil(ctx context.Context, deadline time.Time) error {
	wait := time.Until(deadline)
	if wait <= 0 {
		return nil
	}

	logger.Info("Rate limit exhausted, sleeping %s until reset", wait.Round(time.Millisecond))
	metrics.RateLimitSleeps.Inc()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
