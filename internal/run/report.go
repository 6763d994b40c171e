package run

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Outcome is the typed enumeration of final run result states.
type Outcome string

const (
	// OutcomePublished means new content reached the target repository.
	OutcomePublished Outcome = "published"
	// OutcomeUnchanged means the run completed but the published site was
	// already up to date (the ErrNothingToPublish fast path).
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomeFailed means a stage returned a terminal error.
	OutcomeFailed Outcome = "failed"
	// OutcomeCanceled means the run stopped because its context ended.
	OutcomeCanceled Outcome = "canceled"
)

// ParseOutcome resolves a user-supplied outcome name.
func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(s) {
	case OutcomePublished, OutcomeUnchanged, OutcomeFailed, OutcomeCanceled:
		return Outcome(s), nil
	default:
		return "", fmt.Errorf("unknown outcome %q (expected published, unchanged, failed or canceled)", s)
	}
}

// DeriveOutcome classifies a finished run by its terminal error.
func DeriveOutcome(err error) Outcome {
	switch {
	case err == nil:
		return OutcomePublished
	case errors.Is(err, ErrNothingToPublish):
		return OutcomeUnchanged
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeFailed
	}
}

// Report captures high-level metrics about a single publishing run.
type Report struct {
	SchemaVersion  int
	ID             string
	Query          string
	Generator      string
	Strategy       string
	Start          time.Time
	End            time.Time
	ItemsFetched   int
	FilesRendered  int
	FilesPublished int
	StageDurations map[string]time.Duration
	Outcome        Outcome
	Err            error
}

func NewReport(id, query, generator, strategy string) *Report {
	return &Report{
		SchemaVersion:  1,
		ID:             id,
		Query:          query,
		Generator:      generator,
		Strategy:       strategy,
		Start:          time.Now(),
		StageDurations: make(map[string]time.Duration),
	}
}

// Finish stamps the end time and classifies the outcome. The unchanged fast
// path keeps its sentinel in Err for reporting but counts as success.
func (r *Report) Finish(err error) {
	r.End = time.Now()
	r.Err = err
	r.Outcome = DeriveOutcome(err)
}

// Failed reports whether the run ended in a state callers must treat as an error.
func (r *Report) Failed() bool {
	return r.Outcome == OutcomeFailed || r.Outcome == OutcomeCanceled
}

func (r *Report) Duration() time.Duration { return r.End.Sub(r.Start) }

// Summary returns a human-readable single-line summary.
func (r *Report) Summary() string {
	errText := ""
	if r.Err != nil {
		errText = fmt.Sprintf(" error=%q", r.Err.Error())
	}
	return fmt.Sprintf("run=%s outcome=%s items=%d rendered=%d published=%d duration=%s%s",
		r.ID, r.Outcome, r.ItemsFetched, r.FilesRendered, r.FilesPublished,
		r.Duration().Truncate(time.Millisecond), errText)
}

// Persist writes the report atomically into the provided directory:
//
//	publish-report.json  (machine readable)
//	publish-report.txt   (human summary)
//
// Best effort; errors are returned for caller logging but do not change the
// run outcome.
func (r *Report) Persist(dir string) error {
	if r.End.IsZero() {
		r.End = time.Now()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("ensure report dir: %w", err)
	}
	jb, err := json.MarshalIndent(r.serializable(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	jsonPath := filepath.Join(dir, "publish-report.json")
	tmpJSON := jsonPath + ".tmp"
	if err := os.WriteFile(tmpJSON, jb, 0644); err != nil {
		return fmt.Errorf("write temp report json: %w", err)
	}
	if err := os.Rename(tmpJSON, jsonPath); err != nil {
		return fmt.Errorf("atomic rename json: %w", err)
	}
	txtPath := filepath.Join(dir, "publish-report.txt")
	tmpTxt := txtPath + ".tmp"
	if err := os.WriteFile(tmpTxt, []byte(r.Summary()+"\n"), 0644); err != nil {
		return fmt.Errorf("write temp report summary: %w", err)
	}
	if err := os.Rename(tmpTxt, txtPath); err != nil {
		return fmt.Errorf("atomic rename summary: %w", err)
	}
	return nil
}

// serializable returns a copy with the error field converted to a string for
// JSON friendliness.
func (r *Report) serializable() *ReportSerializable {
	durations := r.StageDurations
	if durations == nil {
		durations = map[string]time.Duration{}
	}
	s := &ReportSerializable{
		SchemaVersion:  r.SchemaVersion,
		ID:             r.ID,
		Query:          r.Query,
		Generator:      r.Generator,
		Strategy:       r.Strategy,
		Start:          r.Start,
		End:            r.End,
		ItemsFetched:   r.ItemsFetched,
		FilesRendered:  r.FilesRendered,
		FilesPublished: r.FilesPublished,
		StageDurations: durations,
		Outcome:        string(r.Outcome),
	}
	if r.Err != nil {
		s.Error = r.Err.Error()
	}
	return s
}

// ReportSerializable mirrors Report but with a string error for JSON output.
type ReportSerializable struct {
	SchemaVersion  int                      `json:"schema_version"`
	ID             string                   `json:"id"`
	Query          string                   `json:"query"`
	Generator      string                   `json:"generator"`
	Strategy       string                   `json:"strategy"`
	Start          time.Time                `json:"start"`
	End            time.Time                `json:"end"`
	ItemsFetched   int                      `json:"items_fetched"`
	FilesRendered  int                      `json:"files_rendered"`
	FilesPublished int                      `json:"files_published"`
	StageDurations map[string]time.Duration `json:"stage_durations"`
	Outcome        string                   `json:"outcome"`
	Error          string                   `json:"error,omitempty"`
}
