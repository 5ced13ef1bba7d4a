package github

import (
	"context"

	"github.com/ossignal/ossignal/internal/paginate"
)

// orgReposQuery pages through every repository of an organisation.
const orgReposQuery = `query orgRepos($login: String!, $cursor: String) {
  rateLimit {
    limit
    cost
    remaining
    resetAt
  }
  organization(login: $login) {
    repositories(first: 100, after: $cursor) {
      pageInfo {
        hasNextPage
        endCursor
      }
      nodes {
        name
        nameWithOwner
        url
      }
    }
  }
}`

// Repository is one repository from an organisation listing.
type Repository struct {
	Name          string `json:"name"`
	NameWithOwner string `json:"nameWithOwner"`
	URL           string `json:"url"`
}

type orgReposData struct {
	RateLimit    rateLimitEnvelope `json:"rateLimit"`
	Organization *struct {
		Repositories struct {
			PageInfo pageInfoEnvelope `json:"pageInfo"`
			Nodes    []Repository     `json:"nodes"`
		} `json:"repositories"`
	} `json:"organization"`
}

// OrgRepos returns every repository of the organisation, in provider
// cursor order.
func (c *Client) OrgRepos(ctx context.Context, login string) ([]Repository, error) {
	return paginate.All(ctx, func(ctx context.Context, cursor string) (paginate.Page[Repository], error) {
		variables := map[string]any{"login": login}
		if cursor != "" {
			variables["cursor"] = cursor
		}

		var data orgReposData
		if err := c.query(ctx, orgReposQuery, variables, &data); err != nil {
			return paginate.Page[Repository]{}, err
		}
		if data.Organization == nil {
			return paginate.Page[Repository]{}, ErrOrgNotFound
		}

		repos := data.Organization.Repositories
		return paginate.Page[Repository]{
			Items: repos.Nodes,
			PageInfo: paginate.PageInfo{
				HasNextPage: repos.PageInfo.HasNextPage,
				EndCursor:   repos.PageInfo.EndCursor,
			},
			RateLimit: data.RateLimit.toRateLimit(),
		}, nil
	})
}
