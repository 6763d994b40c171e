// Package daemon republishes the site on a fixed interval. It owns the
// long-lived resources a one-shot run does not need: the gocron scheduler,
// the config file watcher, the optional Prometheus endpoint, the history
// store and the NATS notifier.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus"

	"newsblaster/internal/config"
	"newsblaster/internal/history"
	"newsblaster/internal/logfields"
	"newsblaster/internal/metrics"
	"newsblaster/internal/notify"
	"newsblaster/internal/pipeline"
	"newsblaster/internal/run"
)

// pipelineRunner is the slice of pipeline.Runner the daemon drives.
type pipelineRunner interface {
	Run(ctx context.Context) (*run.Report, error)
}

// Daemon schedules periodic publish runs.
type Daemon struct {
	configPath string
	logger     *slog.Logger

	mu  sync.Mutex
	cfg *config.Config
	job gocron.Job

	// running enforces the single-flight guard: at most one pipeline run
	// at a time, late ticks are skipped.
	running atomic.Bool
	runCtx  context.Context

	scheduler gocron.Scheduler
	watcher   *ConfigWatcher
	recorder  metrics.Recorder
	registry  *prometheus.Registry
	history   *history.Store
	notifier  notify.Notifier

	metricsSrv *http.Server
	metricsLn  net.Listener

	newRunner func(cfg *config.Config) (pipelineRunner, error)
}

// New creates a daemon for cfg. configPath enables the config file watcher
// when non-empty.
func New(cfg *config.Config, configPath string, logger *slog.Logger) (*Daemon, error) {
	if logger == nil {
		logger = slog.Default()
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	d := &Daemon{
		configPath: configPath,
		logger:     logger,
		cfg:        cfg,
		scheduler:  scheduler,
		recorder:   metrics.NoopRecorder{},
		notifier:   notify.NoopNotifier{},
	}
	d.newRunner = func(cfg *config.Config) (pipelineRunner, error) {
		runner, err := pipeline.NewRunner(cfg, d.logger)
		if err != nil {
			return nil, err
		}
		return runner.WithRecorder(d.recorder).
			WithHistory(d.history).
			WithNotifier(d.notifier), nil
	}
	return d, nil
}

// Start brings up every subsystem, fires an immediate first run and blocks
// until ctx ends. Call Stop afterwards for a graceful teardown.
func (d *Daemon) Start(ctx context.Context) error {
	cfg := d.currentConfig()
	d.runCtx = ctx

	if cfg.History.Path != "" {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return fmt.Errorf("open run history: %w", err)
		}
		d.history = store
	}

	notifier, err := notify.ForConfig(cfg.Daemon, d.logger)
	if err != nil {
		return err
	}
	d.notifier = notifier

	if cfg.Daemon.MetricsAddr != "" {
		if err := d.startMetrics(cfg.Daemon.MetricsAddr); err != nil {
			return err
		}
	}

	if d.configPath != "" {
		watcher, err := NewConfigWatcher(d.configPath, 2*time.Second, d.ReloadConfig, d.logger)
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		d.watcher = watcher
	}

	if err := d.scheduleRuns(cfg.Daemon.IntervalDuration()); err != nil {
		return err
	}
	d.scheduler.Start()

	d.logger.Info("Daemon started",
		slog.String("interval", cfg.Daemon.Interval),
		logfields.Query(cfg.Feed.Query),
		logfields.Repository(cfg.Publish.Repo))

	<-ctx.Done()
	return nil
}

// Stop tears the daemon down in reverse start order.
func (d *Daemon) Stop(ctx context.Context) error {
	d.logger.Info("Stopping daemon")

	var errs []error
	if err := d.scheduler.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("shutdown scheduler: %w", err))
	}
	if d.watcher != nil {
		d.watcher.Stop()
	}
	if d.metricsSrv != nil {
		if err := d.metricsSrv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
		}
	}
	d.notifier.Close()
	if err := d.history.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close run history: %w", err))
	}
	return errors.Join(errs...)
}

// ReloadConfig swaps in a new validated configuration. The publish interval
// is rescheduled live; resources bound at startup (metrics address, NATS,
// history path) need a restart and only log a warning.
func (d *Daemon) ReloadConfig(newCfg *config.Config) {
	d.mu.Lock()
	defer d.mu.Unlock()

	old := d.cfg
	d.cfg = newCfg

	if old.Daemon.MetricsAddr != newCfg.Daemon.MetricsAddr ||
		old.Daemon.NATSURL != newCfg.Daemon.NATSURL ||
		old.Daemon.NATSSubject != newCfg.Daemon.NATSSubject ||
		old.History.Path != newCfg.History.Path {
		d.logger.Warn("Changed daemon resources take effect after a restart")
	}

	oldInterval, newInterval := old.Daemon.IntervalDuration(), newCfg.Daemon.IntervalDuration()
	if oldInterval != newInterval && d.job != nil {
		job, err := d.scheduler.Update(d.job.ID(),
			gocron.DurationJob(newInterval),
			gocron.NewTask(d.tick),
		)
		if err != nil {
			d.logger.Error("Failed to reschedule publish job", logfields.Error(err))
		} else {
			d.job = job
			d.logger.Info("Publish interval updated", slog.String("interval", newCfg.Daemon.Interval))
		}
	}

	d.logger.Info("Configuration reloaded", logfields.Query(newCfg.Feed.Query))
}

func (d *Daemon) currentConfig() *config.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

func (d *Daemon) scheduleRuns(interval time.Duration) error {
	job, err := d.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(d.tick),
		gocron.WithName("publish-run"),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule publish job: %w", err)
	}
	d.mu.Lock()
	d.job = job
	d.mu.Unlock()
	return nil
}

func (d *Daemon) tick() {
	d.runOnce(d.runCtx)
}

// runOnce executes one publish run unless a previous one is still going.
func (d *Daemon) runOnce(ctx context.Context) {
	if !d.running.CompareAndSwap(false, true) {
		d.logger.Warn("Previous publish run still in progress, skipping this tick")
		return
	}
	defer d.running.Store(false)

	runner, err := d.newRunner(d.currentConfig())
	if err != nil {
		d.logger.Error("Failed to assemble pipeline", logfields.Error(err))
		return
	}

	// The run logs its own outcome through the console observer; a failed
	// tick simply waits for the next interval.
	_, _ = runner.Run(ctx)
}

// startMetrics binds the Prometheus endpoint and swaps the recorder every
// scheduled run reports into.
func (d *Daemon) startMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bind metrics address %s: %w", addr, err)
	}

	d.registry = prometheus.NewRegistry()
	d.recorder = metrics.NewPrometheusRecorder(d.registry)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(d.registry))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	d.metricsLn = ln
	d.metricsSrv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := d.metricsSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error("Metrics server failed", logfields.Error(err))
		}
	}()

	d.logger.Info("Metrics endpoint listening", slog.String("addr", ln.Addr().String()))
	return nil
}
