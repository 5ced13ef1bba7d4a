package github

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ossignal/ossignal/internal/logger"
	"github.com/ossignal/ossignal/internal/paginate"
)

// searchQuery is the paged issue/PR search document. Every page selects the
// rate-limit envelope so pagination can budget the quota.
const searchQuery = `query search($searchString: String!, $cursor: String) {
  rateLimit {
    limit
    cost
    remaining
    resetAt
  }
  search(query: $searchString, first: 100, type: ISSUE, after: $cursor) {
    pageInfo {
      hasNextPage
      endCursor
    }
    nodes {
      ... on Issue {
        createdAt
        closedAt
        author { login }
        title
        url
        state
      }
      ... on PullRequest {
        createdAt
        closedAt
        mergedAt
        author { login }
        title
        url
        state
      }
    }
  }
}`

// searchData is the decoded data section of searchQuery. Nodes stay raw so
// one malformed record can be skipped without dropping the page.
type searchData struct {
	RateLimit rateLimitEnvelope `json:"rateLimit"`
	Search    struct {
		PageInfo pageInfoEnvelope  `json:"pageInfo"`
		Nodes    []json.RawMessage `json:"nodes"`
	} `json:"search"`
}

// Item is one issue or pull request from a search window.
type Item struct {
	CreatedAt string `json:"createdAt"`
	ClosedAt  string `json:"closedAt"`
	MergedAt  string `json:"mergedAt"`
	Author    struct {
		Login string `json:"login"`
	} `json:"author"`
	Title string `json:"title"`
	URL   string `json:"url"`
	State string `json:"state"`
}

// Search exhausts all pages matching the search string, in provider cursor
// order. Individual nodes that fail to decode are skipped and logged.
func (c *Client) Search(ctx context.Context, searchString string) ([]Item, error) {
	return paginate.All(ctx, func(ctx context.Context, cursor string) (paginate.Page[Item], error) {
		variables := map[string]any{"searchString": searchString}
		if cursor != "" {
			variables["cursor"] = cursor
		}

		var data searchData
		if err := c.query(ctx, searchQuery, variables, &data); err != nil {
			return paginate.Page[Item]{}, err
		}

		items := make([]Item, 0, len(data.Search.Nodes))
		for _, node := range data.Search.Nodes {
			var item Item
			if err := json.Unmarshal(node, &item); err != nil {
				logger.Warn("Skipping unparseable search node: %v", err)
				continue
			}
			items = append(items, item)
		}

		return paginate.Page[Item]{
			Items: items,
			PageInfo: paginate.PageInfo{
				HasNextPage: data.Search.PageInfo.HasNextPage,
				EndCursor:   data.Search.PageInfo.EndCursor,
			},
			RateLimit: data.RateLimit.toRateLimit(),
		}, nil
	})
}

// Search string builders. Windows are closed-open: [from, to). GitHub's
// range qualifier is inclusive on both ends at second precision, so the
// upper bound backs off by one second.
func searchWindow(from, to time.Time) string {
	return FormatTime(from) + ".." + FormatTime(to.Add(-time.Second))
}

// IssuesFiledSearch matches issues created inside the window, excluding
// not-planned discards.
func IssuesFiledSearch(nameWithOwner string, from, to time.Time) string {
	return fmt.Sprintf("repo:%s is:issue -reason:NOT_PLANNED created:%s", nameWithOwner, searchWindow(from, to))
}

// IssuesClosedSearch matches issues closed inside the window.
func IssuesClosedSearch(nameWithOwner string, from, to time.Time) string {
	return fmt.Sprintf("repo:%s is:issue -reason:NOT_PLANNED closed:%s", nameWithOwner, searchWindow(from, to))
}

// PRsCreatedSearch matches pull requests opened inside the window.
func PRsCreatedSearch(nameWithOwner string, from, to time.Time) string {
	return fmt.Sprintf("repo:%s is:pr created:%s", nameWithOwner, searchWindow(from, to))
}

// PRsMergedSearch matches pull requests merged inside the window.
func PRsMergedSearch(nameWithOwner string, from, to time.Time) string {
	return fmt.Sprintf("repo:%s is:pr is:merged merged:%s", nameWithOwner, searchWindow(from, to))
}
