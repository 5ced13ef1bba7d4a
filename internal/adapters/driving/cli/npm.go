package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ossignal/ossignal/internal/providers/npm"
)

var (
	npmName      string
	npmAutocrawl bool
)

var npmCmd = &cobra.Command{
	Use:   "npm",
	Short: "Fetch npm registry events",
}

var npmDownloadsCmd = &cobra.Command{
	Use:   "downloads",
	Short: "Fetch daily download counts for a package",
	Long: `Fetches daily download counts for an npm package from the day after
the package's bookmark up to yesterday. A package seen for the first time is
registered in the catalog, together with its owning GitHub organisation when
the package manifest points at one.`,
	RunE: runNPMDownloads,
}

func init() {
	npmDownloadsCmd.Flags().StringVar(&npmName, "name", "", "npm package name")
	npmDownloadsCmd.Flags().BoolVar(&npmAutocrawl, "autocrawl", false, "include this source in unattended crawls")
	npmDownloadsCmd.MarkFlagRequired("name") //nolint:errcheck

	npmCmd.AddCommand(npmDownloadsCmd)
	rootCmd.AddCommand(npmCmd)
}

func runNPMDownloads(cmd *cobra.Command, _ []string) error {
	if fetchInvoker == nil {
		return errors.New("fetchers not configured")
	}

	args := map[string]string{"name": npmName}
	outcome, err := fetchInvoker.Invoke(cmd.Context(), npm.CommandDownloads, args, npmAutocrawl)
	if err != nil {
		return fmt.Errorf("npm downloads %s: %w", npmName, err)
	}

	if outcome.Cached {
		cmd.Printf("%s is already up to date.\n", npmName)
		return nil
	}
	cmd.Printf("Ingested %d download days for %s.\n", outcome.Count, npmName)
	return nil
}
