package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"newsblaster/internal/logfields"
	"newsblaster/internal/run"
)

// Observer receives callbacks around stage execution and the run lifecycle.
// It abstracts away logging, status reporting and metrics so new observers
// can hook in without changing stage code. Callbacks run inline on the
// pipeline goroutine and must not block.
type Observer interface {
	OnStageStart(stage StageName)
	// OnStageComplete reports a finished stage. err can be
	// run.ErrNothingToPublish, which ends the run successfully.
	OnStageComplete(stage StageName, duration time.Duration, err error)
	OnRunComplete(report *run.Report)
}

// NoopObserver is a no-op implementation.
type NoopObserver struct{}

func (NoopObserver) OnStageStart(stage StageName)                                {}
func (NoopObserver) OnStageComplete(stage StageName, d time.Duration, err error) {}
func (NoopObserver) OnRunComplete(report *run.Report)                            {}

// MultiObserver fans each callback out to every observer in order.
type MultiObserver []Observer

func (m MultiObserver) OnStageStart(stage StageName) {
	for _, o := range m {
		o.OnStageStart(stage)
	}
}

func (m MultiObserver) OnStageComplete(stage StageName, d time.Duration, err error) {
	for _, o := range m {
		o.OnStageComplete(stage, d, err)
	}
}

func (m MultiObserver) OnRunComplete(report *run.Report) {
	for _, o := range m {
		o.OnRunComplete(report)
	}
}

// ConsoleObserver logs run progress through slog.
type ConsoleObserver struct {
	logger *slog.Logger
}

func NewConsoleObserver(logger *slog.Logger) ConsoleObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return ConsoleObserver{logger: logger}
}

func (c ConsoleObserver) OnStageStart(stage StageName) {
	c.logger.Debug("Stage started", logfields.Stage(string(stage)))
}

func (c ConsoleObserver) OnStageComplete(stage StageName, d time.Duration, err error) {
	switch {
	case err == nil:
		c.logger.Debug("Stage completed",
			logfields.Stage(string(stage)),
			logfields.DurationMS(float64(d.Milliseconds())))
	case errors.Is(err, run.ErrNothingToPublish):
		c.logger.Info("Stage completed with no changes",
			logfields.Stage(string(stage)),
			logfields.DurationMS(float64(d.Milliseconds())))
	default:
		c.logger.Error("Stage failed",
			logfields.Stage(string(stage)),
			logfields.DurationMS(float64(d.Milliseconds())),
			logfields.Error(err))
	}
}

func (c ConsoleObserver) OnRunComplete(report *run.Report) {
	attrs := []any{
		logfields.RunID(report.ID),
		logfields.Outcome(string(report.Outcome)),
		logfields.DurationMS(float64(report.Duration().Milliseconds())),
		logfields.Items(report.ItemsFetched),
		logfields.Files(report.FilesPublished),
	}
	if report.Failed() {
		attrs = append(attrs, logfields.Error(report.Err))
		c.logger.Error("Run failed", attrs...)
		return
	}
	c.logger.Info("Run finished", attrs...)
}

// ChannelObserver streams the user-facing status lines a front end would
// display: one line per stage start plus a final DONE or Error line. Sends
// never block; a slow consumer loses intermediate lines rather than
// stalling the run.
type ChannelObserver struct {
	generator string
	ch        chan string
}

// NewChannelObserver creates a status observer for the named generator.
// buffer <= 0 selects a default large enough for an unconsumed run.
func NewChannelObserver(generator string, buffer int) *ChannelObserver {
	if buffer <= 0 {
		buffer = 16
	}
	return &ChannelObserver{generator: generator, ch: make(chan string, buffer)}
}

// Status returns the receive side of the status feed. The channel is
// closed after the final line.
func (c *ChannelObserver) Status() <-chan string { return c.ch }

func (c *ChannelObserver) OnStageStart(stage StageName) {
	c.send(StatusText(stage, c.generator))
}

func (c *ChannelObserver) OnStageComplete(stage StageName, d time.Duration, err error) {}

func (c *ChannelObserver) OnRunComplete(report *run.Report) {
	if report.Failed() {
		c.send("Error: " + report.Err.Error())
	} else {
		// Unchanged runs report DONE too; the site is live either way.
		c.send(StatusDone)
	}
	close(c.ch)
}

func (c *ChannelObserver) send(line string) {
	select {
	case c.ch <- line:
	default:
	}
}

// StatusDone is the final status line of a successful run.
const StatusDone = "DONE! Google News live on your domain!"

// StatusText returns the user-facing progress line for a stage. Generator
// names are title-cased for display ("astro" reads as Astro).
func StatusText(stage StageName, generator string) string {
	switch stage {
	case StageFetch:
		return "Fetching Google News..."
	case StageRender:
		return fmt.Sprintf("Generating %s posts...", cases.Title(language.English).String(generator))
	case StageBuild:
		return fmt.Sprintf("Building %s site...", cases.Title(language.English).String(generator))
	case StagePublish:
		return "Deploying to GitHub Pages..."
	default:
		return fmt.Sprintf("Running %s...", string(stage))
	}
}
