package cli

import (
	"context"
	"strings"

	"github.com/ossignal/ossignal/internal/core/domain"
	"github.com/ossignal/ossignal/internal/core/ports/driving"
)

// --- Mock services for command tests ---

type mockCrawler struct {
	summaries []driving.Summary
	err       error
	called    bool
}

func (m *mockCrawler) Run(_ context.Context) ([]driving.Summary, error) {
	m.called = true
	return m.summaries, m.err
}

type mockCatalogManager struct {
	added       []domain.Artifact
	err         error
	gotName     string
	gotLogin    string
	trackCalled bool
}

func (m *mockCatalogManager) TrackGitHubOrg(_ context.Context, displayName, login string) ([]domain.Artifact, error) {
	m.trackCalled = true
	m.gotName = displayName
	m.gotLogin = login
	return m.added, m.err
}

type mockFetchInvoker struct {
	outcome      driving.FetchOutcome
	err          error
	gotCommand   string
	gotArgs      map[string]string
	gotAutocrawl bool
}

func (m *mockFetchInvoker) Invoke(_ context.Context, command string, args map[string]string, autocrawl bool) (driving.FetchOutcome, error) {
	m.gotCommand = command
	m.gotArgs = args
	m.gotAutocrawl = autocrawl
	return m.outcome, m.err
}

type mockScheduler struct {
	startErr error
	started  bool
}

func (m *mockScheduler) Start(_ context.Context) error {
	m.started = true
	return m.startErr
}

func (m *mockScheduler) Stop() error { return nil }

// setupTestServices installs mocks into the package-level service slots and
// returns them plus a cleanup restoring the previous state.
func setupTestServices() (*mockCrawler, *mockCatalogManager, *mockFetchInvoker, *mockScheduler, func()) {
	prevCrawler := crawler
	prevScheduler := scheduler
	prevCatalog := catalogManager
	prevInvoker := fetchInvoker

	mc := &mockCrawler{}
	mm := &mockCatalogManager{}
	mf := &mockFetchInvoker{}
	ms := &mockScheduler{}

	crawler = mc
	scheduler = ms
	catalogManager = mm
	fetchInvoker = mf

	cleanup := func() {
		crawler = prevCrawler
		scheduler = prevScheduler
		catalogManager = prevCatalog
		fetchInvoker = prevInvoker
		resetFlags()
	}
	return mc, mm, mf, ms, cleanup
}

// resetFlags clears package-level flag state between tests. Changed has to
// be reset too or required-flag checks go stale across executions.
func resetFlags() {
	autocrawlWatch = false
	autocrawlMetricsAddr = ""
	githubOrg = ""
	githubRepo = ""
	githubAutocrawl = false
	npmName = ""
	npmAutocrawl = false
	orgName = ""
	orgGitHubOrg = ""

	for _, name := range []string{"org", "repo", "autocrawl"} {
		if f := githubCmd.PersistentFlags().Lookup(name); f != nil {
			f.Changed = false
		}
	}
	for _, name := range []string{"name", "autocrawl"} {
		if f := npmDownloadsCmd.Flags().Lookup(name); f != nil {
			f.Changed = false
		}
	}
	for _, name := range []string{"name", "github-org"} {
		if f := orgAddCmd.Flags().Lookup(name); f != nil {
			f.Changed = false
		}
	}
	rootCmd.SetArgs(nil)
}

// executeCommand runs the root command with args and captures the output.
func executeCommand(args ...string) (string, error) {
	buf := new(strings.Builder)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}
