// Package cli wires the cobra command tree. Commands register themselves
// on rootCmd in their init functions; services are injected once through
// Execute.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ossignal/ossignal/internal/core/ports/driving"
	"github.com/ossignal/ossignal/internal/logger"
)

var (
	version = "dev"

	crawler        driving.Crawler
	scheduler      driving.Scheduler
	catalogManager driving.CatalogManager
	fetchInvoker   driving.FetchInvoker

	verbose bool
)

// Services bundles everything the commands need. Fields left nil make the
// corresponding commands fail with a configuration error instead of
// panicking.
type Services struct {
	Crawler        driving.Crawler
	Scheduler      driving.Scheduler
	CatalogManager driving.CatalogManager
	FetchInvoker   driving.FetchInvoker
}

var rootCmd = &cobra.Command{
	Use:   "ossignal",
	Short: "Track open-source project activity",
	Long: `ossignal ingests open-source activity signals (GitHub issues and
pull requests, npm downloads) into a local database, incrementally and
idempotently. Event source pointers remember how far each source has been
read, so every run fetches only what is new.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
}

// Execute runs the CLI with the given build version and services. The
// context bounds long-running commands such as autocrawl --watch.
func Execute(ctx context.Context, v string, services Services) error {
	version = v
	crawler = services.Crawler
	scheduler = services.Scheduler
	catalogManager = services.CatalogManager
	fetchInvoker = services.FetchInvoker
	return rootCmd.ExecuteContext(ctx)
}
