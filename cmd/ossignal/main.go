package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ossignal/ossignal/internal/adapters/driven/config/file"
	"github.com/ossignal/ossignal/internal/adapters/driven/storage/sqlite"
	"github.com/ossignal/ossignal/internal/adapters/driving/cli"
	"github.com/ossignal/ossignal/internal/core/domain"
	"github.com/ossignal/ossignal/internal/core/ports/driven"
	"github.com/ossignal/ossignal/internal/core/services"
	"github.com/ossignal/ossignal/internal/logger"
	"github.com/ossignal/ossignal/internal/providers/github"
	"github.com/ossignal/ossignal/internal/providers/npm"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A .env next to the binary or in the working directory may carry
	// GITHUB_TOKEN; absence is not an error.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	if err := config.Load(); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := sqlite.NewStore("")
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close() //nolint:errcheck

	ghClient, err := github.NewClient(ctx, tokenProvider(config))
	if err != nil {
		return fmt.Errorf("github client: %w", err)
	}
	npmClient := npm.NewClient()

	catalog := store.CatalogStore()
	pointers := store.PointerStore()

	registry, err := services.NewFetcherRegistry(services.DefaultEntries(
		github.NewFetchers(ghClient, catalog, pointers),
		npm.NewFetcher(npmClient, catalog, pointers),
	)...)
	if err != nil {
		return fmt.Errorf("fetcher registry: %w", err)
	}

	crawler := services.NewCrawler(registry, pointers, config.GetInt("crawl.concurrency"))
	scheduler := services.NewScheduler(schedulerConfig(config), store.SchedulerStore(), crawler)
	defer func() {
		if err := scheduler.Stop(); err != nil {
			logger.Warn("stopping scheduler: %v", err)
		}
	}()

	return cli.Execute(ctx, version, cli.Services{
		Crawler:        crawler,
		Scheduler:      scheduler,
		CatalogManager: services.NewCatalogManager(ghClient, catalog, pointers),
		FetchInvoker:   registry,
	})
}

// tokenProvider resolves the GitHub token: the environment wins over the
// config file.
func tokenProvider(config driven.ConfigStore) driven.TokenProvider {
	token := config.GetString("github.token")
	if env := os.Getenv("GITHUB_TOKEN"); env != "" {
		token = env
	}
	return driven.StaticTokenProvider(token)
}

// schedulerConfig applies config-file overrides to the scheduler defaults.
func schedulerConfig(config driven.ConfigStore) domain.SchedulerConfig {
	cfg := domain.DefaultSchedulerConfig()
	if minutes := config.GetInt("scheduler.interval_minutes"); minutes > 0 {
		task := cfg.TaskConfigs[domain.TaskIDAutocrawl]
		task.Interval = time.Duration(minutes) * time.Minute
		cfg.TaskConfigs[domain.TaskIDAutocrawl] = task
	}
	return cfg
}
