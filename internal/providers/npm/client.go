// Package npm fetches download statistics and package metadata from the
// public npm registry.
package npm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/ossignal/ossignal/internal/core/domain"
	"github.com/ossignal/ossignal/internal/logger"
	"github.com/ossignal/ossignal/internal/metrics"
)

const (
	// DefaultRegistryURL serves package manifests.
	DefaultRegistryURL = "https://registry.npmjs.org"

	// DefaultAPIURL serves download statistics.
	DefaultAPIURL = "https://api.npmjs.org"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second
)

// Client talks to the npm registry and its downloads API. Neither endpoint
// requires authentication.
type Client struct {
	httpClient  *http.Client
	registryURL string
	apiURL      string
}

// NewClient creates an npm client against the public endpoints.
func NewClient() *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		registryURL: DefaultRegistryURL,
		apiURL:      DefaultAPIURL,
	}
}

// NewClientWithHTTPClient creates a client over a custom http.Client with
// both endpoints pointed at base. Used by tests.
func NewClientWithHTTPClient(httpClient *http.Client, base string) *Client {
	return &Client{
		httpClient:  httpClient,
		registryURL: base,
		apiURL:      base,
	}
}

// Manifest is the subset of a package manifest the crawler needs.
type Manifest struct {
	Name       string `json:"name"`
	Repository struct {
		URL string `json:"url"`
	} `json:"repository"`
}

// DayDownloads is one day's download count for a package.
type DayDownloads struct {
	Downloads int64  `json:"downloads"`
	Day       string `json:"day"`
}

// downloadsRange is the downloads API response envelope.
type downloadsRange struct {
	Start     string         `json:"start"`
	End       string         `json:"end"`
	Package   string         `json:"package"`
	Downloads []DayDownloads `json:"downloads"`
}

// Latest fetches the latest published manifest for a package.
func (c *Client) Latest(ctx context.Context, name string) (*Manifest, error) {
	var manifest Manifest
	u := fmt.Sprintf("%s/%s/latest", c.registryURL, url.PathEscape(name))
	if err := c.getJSON(ctx, u, &manifest); err != nil {
		return nil, fmt.Errorf("package %s: %w", name, err)
	}
	return &manifest, nil
}

// DailyDownloads returns one entry per day in [start, end], both inclusive.
// The downloads API caps how far back a single range reaches; when the
// response starts later than requested the older remainder is fetched with
// further requests and prepended, so the result always covers the full
// range in day order.
func (c *Client) DailyDownloads(ctx context.Context, name string, start, end time.Time) ([]DayDownloads, error) {
	u := fmt.Sprintf("%s/downloads/range/%s:%s/%s",
		c.apiURL, FormatDay(start), FormatDay(end), url.PathEscape(name))
	logger.Debug("Fetching %s", u)

	var result downloadsRange
	if err := c.getJSON(ctx, u, &result); err != nil {
		return nil, fmt.Errorf("downloads %s: %w", name, err)
	}

	resultStart, err := ParseDay(result.Start)
	if err != nil {
		return nil, fmt.Errorf("downloads %s: bad start %q: %w", name, result.Start, domain.ErrMalformedData)
	}
	resultEnd, err := ParseDay(result.End)
	if err != nil {
		return nil, fmt.Errorf("downloads %s: bad end %q: %w", name, result.End, domain.ErrMalformedData)
	}
	logger.Info("npm downloads: got %d results from %s to %s", len(result.Downloads), result.Start, result.End)

	// The API serves the newest portion of a truncated range, so a
	// shifted end means something else went wrong.
	if !resultEnd.Equal(end) {
		return nil, fmt.Errorf("downloads %s: expected end %s but got %s: %w",
			name, FormatDay(end), result.End, domain.ErrMalformedData)
	}
	if resultStart.Equal(start) {
		return result.Downloads, nil
	}

	missing, err := c.DailyDownloads(ctx, name, start, resultStart.AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}
	return append(missing, result.Downloads...), nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	metrics.PagesFetched.WithLabelValues(string(domain.NamespaceNPMRegistry)).Inc()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{StatusCode: resp.StatusCode, Message: string(msg)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// githubOrgPattern extracts the organisation from a manifest repository
// URL, tolerating the git+https, git:// and .git decorations manifests
// carry.
var githubOrgPattern = regexp.MustCompile(`(?://|@)github\.com[:/]([^/]+)/([^/.]+)`)

// GitHubOrg returns the GitHub organisation referenced by the manifest's
// repository URL, or empty when none can be determined.
func (m *Manifest) GitHubOrg() string {
	matches := githubOrgPattern.FindStringSubmatch(m.Repository.URL)
	if matches == nil {
		return ""
	}
	return matches[1]
}

// FormatDay renders a date the way the npm APIs expect.
func FormatDay(t time.Time) string {
	return t.Format(domain.DateLayout)
}

// ParseDay parses an npm API date into a UTC midnight instant.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(domain.DateLayout, s)
}
