package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/ossignal/ossignal/internal/core/ports/driving"
	"github.com/ossignal/ossignal/internal/logger"
	"github.com/ossignal/ossignal/internal/metrics"
)

var (
	autocrawlWatch       bool
	autocrawlMetricsAddr string
)

var autocrawlCmd = &cobra.Command{
	Use:   "autocrawl",
	Short: "Crawl every tracked event source once",
	Long: `Runs every event source pointer flagged for autocrawl and prints a
per-pointer summary. One source failing never stops the others.

With --watch the crawl repeats on the configured schedule until
interrupted.`,
	RunE: runAutocrawl,
}

func init() {
	autocrawlCmd.Flags().BoolVar(&autocrawlWatch, "watch", false, "keep crawling on the configured schedule")
	autocrawlCmd.Flags().StringVar(&autocrawlMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	rootCmd.AddCommand(autocrawlCmd)
}

func runAutocrawl(cmd *cobra.Command, _ []string) error {
	if crawler == nil {
		return errors.New("crawler not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if autocrawlMetricsAddr != "" {
		startMetricsServer(autocrawlMetricsAddr)
	}

	if autocrawlWatch {
		if scheduler == nil {
			return errors.New("scheduler not configured")
		}
		cmd.Println("Watching for due crawls. Press Ctrl+C to stop.")
		err := scheduler.Start(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	summaries, err := crawler.Run(ctx)
	if err != nil {
		return fmt.Errorf("autocrawl failed: %w", err)
	}

	printSummaries(cmd, summaries)
	return nil
}

// startMetricsServer serves /metrics in the background for the lifetime of
// the process.
func startMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server: %v", err)
		}
	}()
	logger.Info("Serving metrics on %s", addr)
}

func printSummaries(cmd *cobra.Command, summaries []driving.Summary) {
	if len(summaries) == 0 {
		cmd.Println("No autocrawl pointers. Add one with 'ossignal org add' or a fetch command with --autocrawl.")
		return
	}

	counts := map[driving.Outcome]int{}
	for _, s := range summaries {
		counts[s.Outcome]++

		line := fmt.Sprintf("  %-8s %s %v", s.Outcome, s.Command, s.Args)
		switch s.Outcome {
		case driving.OutcomeSuccess:
			line += fmt.Sprintf(" (%d events)", s.Count)
		case driving.OutcomeFailed, driving.OutcomeSkipped:
			line += ": " + s.Detail
		}
		cmd.Println(line)
	}

	cmd.Println()
	cmd.Printf("%d pointers: %d fetched, %d cached, %d skipped, %d failed\n",
		len(summaries),
		counts[driving.OutcomeSuccess],
		counts[driving.OutcomeCached],
		counts[driving.OutcomeSkipped],
		counts[driving.OutcomeFailed])
}
