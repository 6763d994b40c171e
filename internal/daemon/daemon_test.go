package daemon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"newsblaster/internal/config"
	"newsblaster/internal/run"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDaemonConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Feed: config.FeedConfig{
			Query:       "technology",
			URLTemplate: "http://127.0.0.1:0/rss?q=%s",
			Limit:       5,
		},
		Site: config.SiteConfig{Generator: "astro", Dir: t.TempDir()},
		Publish: config.PublishConfig{
			Strategy: "git",
			Repo:     "acme/news-site",
			Branch:   "gh-pages",
			Token:    "test-token",
		},
		Daemon: config.DaemonConfig{Interval: "1h"},
	}
}

// fakeRunner stands in for the pipeline so daemon tests never touch the
// network. began receives one signal per Run call; block, when set, holds
// the run open until closed.
type fakeRunner struct {
	calls atomic.Int32
	began chan struct{}
	block chan struct{}
}

func (f *fakeRunner) Run(context.Context) (*run.Report, error) {
	f.calls.Add(1)
	if f.began != nil {
		select {
		case f.began <- struct{}{}:
		default:
		}
	}
	if f.block != nil {
		<-f.block
	}
	return nil, nil
}

func TestDaemon_SkipsOverlappingRuns(t *testing.T) {
	d, err := New(testDaemonConfig(t), "", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.scheduler.Shutdown() })

	runner := &fakeRunner{began: make(chan struct{}, 1), block: make(chan struct{})}
	d.newRunner = func(*config.Config) (pipelineRunner, error) { return runner, nil }

	first := make(chan struct{})
	go func() {
		d.runOnce(context.Background())
		close(first)
	}()
	<-runner.began

	// A tick arriving while the first run is still in flight is skipped.
	d.runOnce(context.Background())
	require.EqualValues(t, 1, runner.calls.Load())

	close(runner.block)
	<-first

	// Once the first run finishes the guard is released again.
	d.runOnce(context.Background())
	require.EqualValues(t, 2, runner.calls.Load())
}

func TestDaemon_RunOnce_ReleasesGuardOnAssemblyFailure(t *testing.T) {
	d, err := New(testDaemonConfig(t), "", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.scheduler.Shutdown() })

	d.newRunner = func(*config.Config) (pipelineRunner, error) {
		return nil, errors.New("no such generator")
	}

	d.runOnce(context.Background())
	require.False(t, d.running.Load())
}

func TestDaemon_ReloadConfig_SwapsConfiguration(t *testing.T) {
	cfg := testDaemonConfig(t)
	d, err := New(cfg, "", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.scheduler.Shutdown() })

	require.NoError(t, d.scheduleRuns(cfg.Daemon.IntervalDuration()))

	next := *cfg
	next.Feed.Query = "quantum computing"
	next.Daemon.Interval = "30m"
	d.ReloadConfig(&next)

	require.Same(t, &next, d.currentConfig())
	require.NotNil(t, d.job)
}

func TestDaemon_ReloadConfig_BeforeSchedulingOnlySwaps(t *testing.T) {
	cfg := testDaemonConfig(t)
	d, err := New(cfg, "", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.scheduler.Shutdown() })

	next := *cfg
	next.Daemon.Interval = "15m"
	d.ReloadConfig(&next)

	require.Same(t, &next, d.currentConfig())
}

func TestDaemon_Lifecycle_RunsImmediatelyAndServesMetrics(t *testing.T) {
	cfg := testDaemonConfig(t)
	cfg.Daemon.MetricsAddr = "127.0.0.1:0"
	cfg.History.Path = filepath.Join(t.TempDir(), "history.db")

	d, err := New(cfg, "", testLogger())
	require.NoError(t, err)

	runner := &fakeRunner{began: make(chan struct{}, 4)}
	d.newRunner = func(*config.Config) (pipelineRunner, error) { return runner, nil }

	ctx, cancel := context.WithCancel(context.Background())
	startErr := make(chan error, 1)
	go func() { startErr <- d.Start(ctx) }()

	select {
	case <-runner.began:
	case <-time.After(5 * time.Second):
		t.Fatal("first scheduled run never fired")
	}

	base := "http://" + d.metricsLn.Addr().String()

	resp, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "newsblaster_items_fetched")

	resp, err = http.Get(base + "/healthz")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-startErr:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not return after context cancellation")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	require.NoError(t, d.Stop(stopCtx))
}
