// Package history records publish runs in a local SQLite database so past
// outcomes stay inspectable after the process exits.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"newsblaster/internal/run"
)

// Entry is one recorded publish run.
type Entry struct {
	ID        string
	Query     string
	Generator string
	Strategy  string
	Outcome   string
	Items     int
	Files     int
	Durations map[string]time.Duration
	Err       string
	Started   time.Time
	Finished  time.Time
}

// Store persists run history. A nil *Store is a valid no-op store, so
// callers can skip the conditional when history is disabled.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory:
	// stores coherent across the database/sql pool.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		query TEXT NOT NULL,
		generator TEXT NOT NULL,
		strategy TEXT NOT NULL,
		outcome TEXT NOT NULL,
		items INTEGER NOT NULL,
		files INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		stage_durations TEXT NOT NULL DEFAULT '',
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores the report of a finished run.
func (s *Store) Record(ctx context.Context, report *run.Report) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	errText := ""
	if report.Err != nil {
		errText = report.Err.Error()
	}

	_, err := sq.Insert("runs").
		Columns("id", "query", "generator", "strategy", "outcome", "items", "files", "error", "stage_durations", "started_at", "finished_at").
		Values(report.ID, report.Query, report.Generator, report.Strategy, string(report.Outcome),
			report.ItemsFetched, report.FilesPublished, errText, marshalDurations(report.StageDurations),
			report.Start.Unix(), report.End.Unix()).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. A non-positive limit
// defaults to 20.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return s.recent(ctx, "", limit)
}

// RecentByOutcome returns up to limit entries with the given outcome,
// newest first.
func (s *Store) RecentByOutcome(ctx context.Context, outcome run.Outcome, limit int) ([]Entry, error) {
	return s.recent(ctx, string(outcome), limit)
}

func (s *Store) recent(ctx context.Context, outcome string, limit int) ([]Entry, error) {
	if s == nil {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	q := sq.Select("id", "query", "generator", "strategy", "outcome", "items", "files", "error", "stage_durations", "started_at", "finished_at").
		From("runs").
		OrderBy("started_at DESC", "id DESC").
		Limit(uint64(limit))
	if outcome != "" {
		q = q.Where(sq.Eq{"outcome": outcome})
	}
	rows, err := q.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var durations string
		var started, finished int64
		if err := rows.Scan(&e.ID, &e.Query, &e.Generator, &e.Strategy, &e.Outcome,
			&e.Items, &e.Files, &e.Err, &durations, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		e.Durations = unmarshalDurations(durations)
		e.Started = time.Unix(started, 0)
		e.Finished = time.Unix(finished, 0)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return entries, nil
}

// Stage durations are stored as a JSON object of stage name to elapsed
// milliseconds, readable straight out of the sqlite3 shell.
func marshalDurations(durations map[string]time.Duration) string {
	if len(durations) == 0 {
		return ""
	}
	ms := make(map[string]int64, len(durations))
	for stage, d := range durations {
		ms[stage] = d.Milliseconds()
	}
	data, _ := json.Marshal(ms)
	return string(data)
}

func unmarshalDurations(data string) map[string]time.Duration {
	if data == "" {
		return nil
	}
	var ms map[string]int64
	if err := json.Unmarshal([]byte(data), &ms); err != nil {
		return nil
	}
	durations := make(map[string]time.Duration, len(ms))
	for stage, v := range ms {
		durations[stage] = time.Duration(v) * time.Millisecond
	}
	return durations
}

// Close releases the database handle. Safe on a nil store.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}
