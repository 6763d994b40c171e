package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"newsblaster/internal/config"
	"newsblaster/internal/content"
	"newsblaster/internal/feed"
	"newsblaster/internal/history"
	"newsblaster/internal/logfields"
	"newsblaster/internal/metrics"
	"newsblaster/internal/notify"
	"newsblaster/internal/publish"
	"newsblaster/internal/run"
	"newsblaster/internal/site"
)

// Fetcher pulls feed items for a query.
type Fetcher interface {
	Fetch(ctx context.Context, query string) ([]feed.Item, error)
}

// Renderer writes posts into the site source tree and reports how many
// files it wrote.
type Renderer interface {
	RenderAll(siteDir string, items []feed.Item) (int, error)
}

// Runner wires the pipeline stages to their implementations for one
// configuration.
type Runner struct {
	cfg       *config.Config
	fetcher   Fetcher
	renderer  Renderer
	generator site.Generator
	publisher publish.Publisher
	observer  Observer
	recorder  metrics.Recorder
	history   *history.Store
	notifier  notify.Notifier
	logger    *slog.Logger
}

// NewRunner builds a runner from validated configuration. The generator and
// publisher are resolved from their config switches; everything else can be
// swapped with the With methods.
func NewRunner(cfg *config.Config, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	generator, err := site.GeneratorFor(cfg, logger)
	if err != nil {
		return nil, err
	}
	publisher, err := publish.PublisherFor(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Runner{
		cfg:       cfg,
		fetcher:   feed.NewFetcher(cfg.Feed.URLTemplate, cfg.Feed.Limit, logger),
		renderer:  content.NewRenderer(generator.Format(), logger),
		generator: generator,
		publisher: publisher,
		observer:  NewConsoleObserver(logger),
		recorder:  metrics.NoopRecorder{},
		notifier:  notify.NoopNotifier{},
		logger:    logger,
	}, nil
}

// WithObserver replaces the default console observer.
func (r *Runner) WithObserver(obs Observer) *Runner {
	if obs == nil {
		obs = NoopObserver{}
	}
	r.observer = obs
	return r
}

// WithRecorder injects a metrics recorder.
func (r *Runner) WithRecorder(rec metrics.Recorder) *Runner {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	r.recorder = rec
	return r
}

// WithHistory records finished publish runs into store. A nil store
// disables recording.
func (r *Runner) WithHistory(store *history.Store) *Runner {
	r.history = store
	return r
}

// WithNotifier publishes finished-run events through n.
func (r *Runner) WithNotifier(n notify.Notifier) *Runner {
	if n == nil {
		n = notify.NoopNotifier{}
	}
	r.notifier = n
	return r
}

// WithFetcher replaces the feed fetcher.
func (r *Runner) WithFetcher(f Fetcher) *Runner {
	r.fetcher = f
	return r
}

// WithRenderer replaces the post renderer.
func (r *Runner) WithRenderer(rend Renderer) *Runner {
	r.renderer = rend
	return r
}

// WithGenerator replaces the site generator.
func (r *Runner) WithGenerator(g site.Generator) *Runner {
	r.generator = g
	return r
}

// WithPublisher replaces the publisher.
func (r *Runner) WithPublisher(p publish.Publisher) *Runner {
	r.publisher = p
	return r
}

// Run executes one full publish run synchronously. The returned error is
// nil for published and unchanged outcomes.
func (r *Runner) Run(ctx context.Context) (*run.Report, error) {
	return r.execute(ctx, r.observer, r.stages(true), true)
}

// Build runs fetch, render and build but stops short of publishing. Dry
// runs are not persisted or recorded.
func (r *Runner) Build(ctx context.Context) (*run.Report, error) {
	return r.execute(ctx, r.observer, r.stages(false), false)
}

// Handle tracks a run executing on a worker goroutine.
type Handle struct {
	status *ChannelObserver
	done   chan struct{}
	report *run.Report
	err    error
}

// Status streams user-facing progress lines. The channel is closed after
// the final DONE or Error line.
func (h *Handle) Status() <-chan string { return h.status.Status() }

// Wait blocks until the run finishes and returns its report.
func (h *Handle) Wait() (*run.Report, error) {
	<-h.done
	return h.report, h.err
}

// Start launches a full run on a worker goroutine so an interactive caller
// can keep consuming status lines while the pipeline works.
func (r *Runner) Start(ctx context.Context) *Handle {
	status := NewChannelObserver(r.generator.Name(), 0)
	h := &Handle{status: status, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		h.report, h.err = r.execute(ctx, MultiObserver{r.observer, status}, r.stages(true), true)
	}()
	return h
}

// stages assembles the standard pipeline. deploy toggles the publish stage
// for build-only runs.
func (r *Runner) stages(deploy bool) []StageDef {
	return NewPipeline().
		Add(StageFetch, r.stageFetch).
		Add(StageRender, r.stageRender).
		Add(StageBuild, r.stageBuild).
		AddIf(deploy, StagePublish, r.stagePublish).
		Build()
}

func (r *Runner) execute(ctx context.Context, obs Observer, stages []StageDef, record bool) (*run.Report, error) {
	report := run.NewReport(uuid.NewString(), r.cfg.Feed.Query, r.generator.Name(), r.publisher.Name())
	st := &RunState{Report: report}

	r.logger.Info("Run started",
		logfields.RunID(report.ID),
		logfields.Query(report.Query),
		logfields.Generator(report.Generator),
		logfields.Strategy(report.Strategy))

	err := runStages(ctx, st, stages, obs, r.recorder)
	report.Finish(err)
	r.finishRun(ctx, report, obs, record)

	if report.Failed() {
		return report, err
	}
	return report, nil
}

// finishRun fans the finished report out to metrics, the report artifact,
// the history store, the notifier and finally the observer. Everything is
// best effort; a failed sink never changes the run outcome.
func (r *Runner) finishRun(ctx context.Context, report *run.Report, obs Observer, record bool) {
	if record {
		r.recorder.ObserveRunDuration(report.Duration())
		r.recorder.IncRunOutcome(string(report.Outcome))
		r.recorder.SetItemsFetched(report.ItemsFetched)
		r.recorder.SetFilesPublished(report.FilesPublished)

		if err := report.Persist(r.cfg.Site.Dir); err != nil {
			r.logger.Warn("Failed to persist run report",
				logfields.RunID(report.ID), logfields.Error(err))
		}
		bg := context.WithoutCancel(ctx)
		if err := r.history.Record(bg, report); err != nil {
			r.logger.Warn("Failed to record run in history",
				logfields.RunID(report.ID), logfields.Error(err))
		}
		if err := r.notifier.NotifyRun(report); err != nil {
			r.logger.Warn("Failed to publish run event",
				logfields.RunID(report.ID), logfields.Error(err))
		}
	}

	obs.OnRunComplete(report)
}

func (r *Runner) stageFetch(ctx context.Context, st *RunState) error {
	items, err := r.fetcher.Fetch(ctx, r.cfg.Feed.Query)
	if err != nil {
		return fmt.Errorf("%w: %v", run.ErrFetch, err)
	}
	st.Items = items
	st.Report.ItemsFetched = len(items)
	return nil
}

func (r *Runner) stageRender(ctx context.Context, st *RunState) error {
	n, err := r.renderer.RenderAll(r.cfg.Site.Dir, st.Items)
	if err != nil {
		return fmt.Errorf("render posts: %w", err)
	}
	st.Report.FilesRendered = n
	return nil
}

func (r *Runner) stageBuild(ctx context.Context, st *RunState) error {
	if err := r.generator.Prepare(ctx); err != nil {
		return err
	}
	if err := r.generator.Build(ctx); err != nil {
		return err
	}
	st.OutputDir = r.generator.OutputDir()
	return nil
}

func (r *Runner) stagePublish(ctx context.Context, st *RunState) error {
	if st.OutputDir == "" {
		st.OutputDir = r.generator.OutputDir()
	}
	if _, err := os.Stat(st.OutputDir); err != nil {
		return fmt.Errorf("%w: %s", run.ErrOutputMissing, st.OutputDir)
	}
	if err := r.publisher.Publish(ctx, st.OutputDir); err != nil {
		return err
	}
	st.Report.FilesPublished = countFiles(st.OutputDir)
	return nil
}

// countFiles counts regular files under dir, best effort.
func countFiles(dir string) int {
	n := 0
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	return n
}
