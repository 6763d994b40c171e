package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"newsblaster/internal/run"
)

// recordingObserver captures every callback for assertions. The pipeline
// invokes observers from a single goroutine, so no locking is needed as
// long as assertions happen after the run returns.
type recordingObserver struct {
	starts    []StageName
	completes []StageName
	errs      map[StageName]error
	report    *run.Report
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{errs: make(map[StageName]error)}
}

func (r *recordingObserver) OnStageStart(stage StageName) {
	r.starts = append(r.starts, stage)
}

func (r *recordingObserver) OnStageComplete(stage StageName, d time.Duration, err error) {
	r.completes = append(r.completes, stage)
	r.errs[stage] = err
}

func (r *recordingObserver) OnRunComplete(report *run.Report) {
	r.report = report
}

func publishedReport() *run.Report {
	r := run.NewReport("run-1", "technology", "astro", "git")
	r.Finish(nil)
	return r
}

func TestStatusText_MatchesDeployFlow(t *testing.T) {
	cases := []struct {
		stage     StageName
		generator string
		want      string
	}{
		{StageFetch, "astro", "Fetching Google News..."},
		{StageRender, "astro", "Generating Astro posts..."},
		{StageRender, "hugo", "Generating Hugo posts..."},
		{StageBuild, "astro", "Building Astro site..."},
		{StageBuild, "hugo", "Building Hugo site..."},
		{StagePublish, "hugo", "Deploying to GitHub Pages..."},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, StatusText(tc.stage, tc.generator))
	}
}

func TestChannelObserver_StreamsStagesThenDone(t *testing.T) {
	obs := NewChannelObserver("astro", 0)

	for _, stage := range []StageName{StageFetch, StageRender, StageBuild, StagePublish} {
		obs.OnStageStart(stage)
	}
	obs.OnRunComplete(publishedReport())

	var lines []string
	for line := range obs.Status() {
		lines = append(lines, line)
	}
	require.Equal(t, []string{
		"Fetching Google News...",
		"Generating Astro posts...",
		"Building Astro site...",
		"Deploying to GitHub Pages...",
		StatusDone,
	}, lines)
}

func TestChannelObserver_ErrorLineOnFailure(t *testing.T) {
	obs := NewChannelObserver("hugo", 0)

	obs.OnStageStart(StageFetch)
	report := run.NewReport("run-err", "technology", "hugo", "git")
	report.Finish(errors.New("feed unreachable"))
	obs.OnRunComplete(report)

	var lines []string
	for line := range obs.Status() {
		lines = append(lines, line)
	}
	require.Equal(t, []string{"Fetching Google News...", "Error: feed unreachable"}, lines)
}

func TestChannelObserver_UnchangedRunStillReportsDone(t *testing.T) {
	obs := NewChannelObserver("astro", 0)

	report := run.NewReport("run-same", "technology", "astro", "git")
	report.Finish(run.ErrNothingToPublish)
	obs.OnRunComplete(report)

	var lines []string
	for line := range obs.Status() {
		lines = append(lines, line)
	}
	require.Equal(t, []string{StatusDone}, lines)
}

func TestChannelObserver_SlowConsumerNeverBlocks(t *testing.T) {
	obs := NewChannelObserver("astro", 1)

	// Nothing reads the channel while the run emits far more lines than
	// the buffer holds; every send must return immediately.
	for range 50 {
		obs.OnStageStart(StageFetch)
	}
	obs.OnRunComplete(publishedReport())

	var lines []string
	for line := range obs.Status() {
		lines = append(lines, line)
	}
	require.Equal(t, []string{"Fetching Google News..."}, lines)
}

func TestMultiObserver_FansOutInOrder(t *testing.T) {
	first := newRecordingObserver()
	second := newRecordingObserver()
	multi := MultiObserver{first, second}

	multi.OnStageStart(StageFetch)
	multi.OnStageComplete(StageFetch, time.Second, nil)
	report := publishedReport()
	multi.OnRunComplete(report)

	for _, obs := range []*recordingObserver{first, second} {
		require.Equal(t, []StageName{StageFetch}, obs.starts)
		require.Equal(t, []StageName{StageFetch}, obs.completes)
		require.NoError(t, obs.errs[StageFetch])
		require.Same(t, report, obs.report)
	}
}
