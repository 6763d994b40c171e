// Package pipeline orchestrates a publish run as an ordered sequence of
// stages: fetch feed items, render posts, build the site, publish the
// output. Stages report into a run.Report; observers receive lifecycle
// callbacks so the CLI, metrics and any future front end can follow a run
// without the stages knowing about them.
package pipeline

import (
	"context"
	"errors"
	"time"

	"newsblaster/internal/feed"
	"newsblaster/internal/metrics"
	"newsblaster/internal/run"
)

// Stage is a discrete unit of work in a publish run.
type Stage func(ctx context.Context, st *RunState) error

// StageName is a strongly-typed identifier for a pipeline stage.
type StageName string

// Canonical stage names.
const (
	StageFetch   StageName = "fetch"
	StageRender  StageName = "render"
	StageBuild   StageName = "build"
	StagePublish StageName = "publish"
)

// RunState carries intermediate results between the stages of one run.
type RunState struct {
	Items     []feed.Item
	OutputDir string
	Report    *run.Report
}

// StageDef pairs a stage name with its executing function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

// Pipeline is a fluent builder for ordered stage definitions.
type Pipeline struct{ Defs []StageDef }

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline { return &Pipeline{Defs: make([]StageDef, 0, 4)} }

// Add appends a stage unconditionally.
func (p *Pipeline) Add(name StageName, fn Stage) *Pipeline {
	p.Defs = append(p.Defs, StageDef{Name: name, Fn: fn})
	return p
}

// AddIf appends a stage only if cond is true.
func (p *Pipeline) AddIf(cond bool, name StageName, fn Stage) *Pipeline {
	if cond {
		p.Add(name, fn)
	}
	return p
}

// Build returns a defensive copy of the stage definitions slice.
func (p *Pipeline) Build() []StageDef {
	out := make([]StageDef, len(p.Defs))
	copy(out, p.Defs)
	return out
}

// runStages executes stages in order, timing each one into the run report
// and stopping at the first error. The context is checked between stages
// only; a stage that has started runs to completion.
func runStages(ctx context.Context, st *RunState, stages []StageDef, obs Observer, rec metrics.Recorder) error {
	for _, stage := range stages {
		select {
		case <-ctx.Done():
			rec.IncStageResult(string(stage.Name), metrics.ResultCanceled)
			obs.OnStageComplete(stage.Name, 0, ctx.Err())
			return ctx.Err()
		default:
		}

		obs.OnStageStart(stage.Name)
		t0 := time.Now()
		err := stage.Fn(ctx, st)
		dur := time.Since(t0)
		st.Report.StageDurations[string(stage.Name)] = dur
		rec.ObserveStageDuration(string(stage.Name), dur)
		rec.IncStageResult(string(stage.Name), stageResult(err))
		obs.OnStageComplete(stage.Name, dur, err)
		if err != nil {
			return err
		}
	}
	return nil
}

// stageResult maps a stage error to its metrics label. ErrNothingToPublish
// is a success short-circuit, not a failure.
func stageResult(err error) metrics.ResultLabel {
	switch {
	case err == nil, errors.Is(err, run.ErrNothingToPublish):
		return metrics.ResultSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.ResultCanceled
	default:
		return metrics.ResultFailed
	}
}
