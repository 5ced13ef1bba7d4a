package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ossignal/ossignal/internal/providers/github"
)

var (
	githubOrg       string
	githubRepo      string
	githubAutocrawl bool
)

var githubCmd = &cobra.Command{
	Use:   "github",
	Short: "Fetch GitHub repository events",
	Long: `Fetches new GitHub issue and pull request events for a tracked
repository, from the repository's event source pointer up to now.`,
}

var githubIssueFiledCmd = &cobra.Command{
	Use:   "issue-filed",
	Short: "Fetch newly filed issues",
	RunE:  runGitHubFetch(github.CommandIssueFiled),
}

var githubIssueClosedCmd = &cobra.Command{
	Use:   "issue-closed",
	Short: "Fetch newly closed issues",
	RunE:  runGitHubFetch(github.CommandIssueClosed),
}

var githubPRCreatedCmd = &cobra.Command{
	Use:   "pr-created",
	Short: "Fetch newly opened pull requests",
	RunE:  runGitHubFetch(github.CommandPRCreated),
}

var githubPRMergedCmd = &cobra.Command{
	Use:   "pr-merged",
	Short: "Fetch newly merged pull requests",
	RunE:  runGitHubFetch(github.CommandPRMerged),
}

func init() {
	githubCmd.PersistentFlags().StringVar(&githubOrg, "org", "", "GitHub organisation login")
	githubCmd.PersistentFlags().StringVar(&githubRepo, "repo", "", "repository name within the organisation")
	githubCmd.PersistentFlags().BoolVar(&githubAutocrawl, "autocrawl", false, "include this source in unattended crawls")
	githubCmd.MarkPersistentFlagRequired("org")  //nolint:errcheck
	githubCmd.MarkPersistentFlagRequired("repo") //nolint:errcheck

	githubCmd.AddCommand(githubIssueFiledCmd)
	githubCmd.AddCommand(githubIssueClosedCmd)
	githubCmd.AddCommand(githubPRCreatedCmd)
	githubCmd.AddCommand(githubPRMergedCmd)
	rootCmd.AddCommand(githubCmd)
}

// runGitHubFetch builds the RunE for one event fetch command.
func runGitHubFetch(command string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		if fetchInvoker == nil {
			return errors.New("fetchers not configured")
		}

		args := map[string]string{"org": githubOrg, "repo": githubRepo}
		outcome, err := fetchInvoker.Invoke(cmd.Context(), command, args, githubAutocrawl)
		if err != nil {
			if github.IsRateLimited(err) {
				return fmt.Errorf("GitHub rate limit exhausted, retry after the reset: %w", err)
			}
			if github.IsUnauthorized(err) {
				return fmt.Errorf("GitHub rejected the token, check GITHUB_TOKEN: %w", err)
			}
			return fmt.Errorf("%s %s/%s: %w", command, githubOrg, githubRepo, err)
		}

		if outcome.Cached {
			cmd.Printf("%s/%s is already up to date.\n", githubOrg, githubRepo)
			return nil
		}
		cmd.Printf("Ingested %d events for %s/%s.\n", outcome.Count, githubOrg, githubRepo)
		return nil
	}
}
