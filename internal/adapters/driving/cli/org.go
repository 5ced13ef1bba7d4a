package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	orgName      string
	orgGitHubOrg string
)

var orgCmd = &cobra.Command{
	Use:   "org",
	Short: "Manage tracked organisations",
}

var orgAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Track a GitHub organisation",
	Long: `Registers a GitHub organisation, discovers its repositories, and
seeds an event source pointer per repository event type at the repository's
creation time. The first crawl then backfills the full history.

Re-running is safe: only repositories not yet tracked are added.`,
	RunE: runOrgAdd,
}

func init() {
	orgAddCmd.Flags().StringVar(&orgName, "name", "", "display name (defaults to the login)")
	orgAddCmd.Flags().StringVar(&orgGitHubOrg, "github-org", "", "GitHub organisation login")
	orgAddCmd.MarkFlagRequired("github-org") //nolint:errcheck

	orgCmd.AddCommand(orgAddCmd)
	rootCmd.AddCommand(orgCmd)
}

func runOrgAdd(cmd *cobra.Command, _ []string) error {
	if catalogManager == nil {
		return errors.New("catalog manager not configured")
	}

	added, err := catalogManager.TrackGitHubOrg(cmd.Context(), orgName, orgGitHubOrg)
	if err != nil {
		return fmt.Errorf("tracking %s: %w", orgGitHubOrg, err)
	}

	if len(added) == 0 {
		cmd.Printf("No new repositories for %s.\n", orgGitHubOrg)
		return nil
	}
	cmd.Printf("Tracking %d new repositories:\n", len(added))
	for _, artifact := range added {
		cmd.Printf("  %s\n", artifact.Name)
	}
	return nil
}
