package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	gh "github.com/google/go-github/v80/github"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/ossignal/ossignal/internal/core/ports/driven"
	"github.com/ossignal/ossignal/internal/metrics"
	"github.com/ossignal/ossignal/internal/paginate"
)

const (
	// DefaultEndpoint is the GitHub GraphQL API endpoint.
	DefaultEndpoint = "https://api.github.com/graphql"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// ProactiveRate is the proactive throttle rate (~1.2 req/sec), kept
	// under the authenticated quota so the reactive envelope rarely
	// trips.
	ProactiveRate = 1.2

	// repoMetaCacheSize bounds the repository metadata LRU.
	repoMetaCacheSize = 1024
)

// Client issues GraphQL queries and a small set of REST calls against
// GitHub. GraphQL carries the event queries; REST covers credential
// validation and repository metadata lookups.
type Client struct {
	httpClient *http.Client
	endpoint   string
	rest       *gh.Client
	limiter    *rate.Limiter

	// createdAt caches repository creation times keyed by
	// "owner/name"; they are immutable so the cache never invalidates.
	createdAt *lru.Cache[string, time.Time]
}

// NewClient creates a GitHub client with a token provider.
func NewClient(ctx context.Context, tokenProvider driven.TokenProvider) (*Client, error) {
	token, err := tokenProvider.GetToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	tc.Timeout = DefaultTimeout

	cache, err := lru.New[string, time.Time](repoMetaCacheSize)
	if err != nil {
		return nil, err
	}

	return &Client{
		httpClient: tc,
		endpoint:   DefaultEndpoint,
		rest:       gh.NewClient(tc),
		limiter:    rate.NewLimiter(rate.Limit(ProactiveRate), 1),
		createdAt:  cache,
	}, nil
}

// NewClientWithHTTPClient creates a client over a custom http.Client and
// endpoint. Used by tests to point at an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, endpoint string) *Client {
	cache, _ := lru.New[string, time.Time](repoMetaCacheSize)
	restBase := endpoint
	rest := gh.NewClient(httpClient)
	if u, err := rest.BaseURL.Parse(restBase + "/"); err == nil {
		rest.BaseURL = u
	}
	return &Client{
		httpClient: httpClient,
		endpoint:   endpoint,
		rest:       rest,
		limiter:    rate.NewLimiter(rate.Inf, 1),
		createdAt:  cache,
	}
}

// graphqlRequest is the GraphQL POST body.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphqlResponse is the GraphQL response envelope.
type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"errors"`
}

// query executes one GraphQL request and decodes data into out.
func (c *Client) query(ctx context.Context, query string, variables map[string]any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	metrics.PagesFetched.WithLabelValues("GITHUB").Inc()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(msg))}
	}

	var envelope graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if len(envelope.Errors) > 0 {
		gqlErr := &GraphQLError{}
		for _, e := range envelope.Errors {
			if e.Type == "RATE_LIMITED" {
				return &RateLimitError{ResetAt: headerResetTime(resp.Header)}
			}
			gqlErr.Messages = append(gqlErr.Messages, e.Message)
		}
		return gqlErr
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// headerResetTime reads the quota reset instant from the X-RateLimit-Reset
// response header (unix seconds). Zero when absent or unparseable.
func headerResetTime(h http.Header) time.Time {
	secs, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}

// rateLimitEnvelope is the quota sub-object every event query selects.
type rateLimitEnvelope struct {
	Limit     int    `json:"limit"`
	Cost      int    `json:"cost"`
	Remaining int    `json:"remaining"`
	ResetAt   string `json:"resetAt"`
}

// toRateLimit converts the wire envelope for the paginator. A zero
// envelope (provider did not report) maps to nil, meaning unlimited.
func (e rateLimitEnvelope) toRateLimit() *paginate.RateLimit {
	if e.Limit == 0 && e.ResetAt == "" {
		return nil
	}
	resetAt, err := ParseTime(e.ResetAt)
	if err != nil {
		return nil
	}
	return &paginate.RateLimit{
		Limit:     e.Limit,
		Cost:      e.Cost,
		Remaining: e.Remaining,
		ResetAt:   resetAt,
	}
}

// pageInfoEnvelope is the cursor sub-object of paged queries.
type pageInfoEnvelope struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

// ValidateCredentials checks the token by fetching the authenticated user.
func (c *Client) ValidateCredentials(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	_, _, err := c.rest.Users.Get(ctx, "")
	return wrapRESTError(err, "validate credentials")
}

// RepositoryCreatedAt returns when the repository was created at GitHub,
// used to seed new event source pointers. Results are cached; creation
// times never change.
func (c *Client) RepositoryCreatedAt(ctx context.Context, owner, name string) (time.Time, error) {
	key := owner + "/" + name
	if t, ok := c.createdAt.Get(key); ok {
		return t, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return time.Time{}, fmt.Errorf("rate limit wait: %w", err)
	}

	repo, _, err := c.rest.Repositories.Get(ctx, owner, name)
	if err != nil {
		return time.Time{}, wrapRESTError(err, "get repository")
	}

	t := repo.GetCreatedAt().Time.UTC()
	c.createdAt.Add(key, t)
	return t, nil
}

// wrapRESTError converts go-github errors to our error types.
func wrapRESTError(err error, operation string) error {
	if err == nil {
		return nil
	}

	var rlErr *gh.RateLimitError
	if errors.As(err, &rlErr) {
		return &RateLimitError{
			ResetAt:   rlErr.Rate.Reset.Time,
			Remaining: rlErr.Rate.Remaining,
		}
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) {
		return &APIError{
			StatusCode: ghErr.Response.StatusCode,
			Message:    ghErr.Message,
		}
	}

	return fmt.Errorf("%s: %w", operation, err)
}
