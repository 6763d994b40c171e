package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyStage      = "stage"
	KeyOutcome    = "outcome"
	KeyDurationMS = "duration_ms"
	KeyQuery      = "query"
	KeyItems      = "items"
	KeyFiles      = "files"
	KeyRepo       = "repository"
	KeyBranch     = "branch"
	KeyStrategy   = "strategy"
	KeyGenerator  = "generator"
	KeyPath       = "path"
	KeyURL        = "url"
	KeyStatus     = "status"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Outcome(o string) slog.Attr      { return slog.String(KeyOutcome, o) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Query(q string) slog.Attr        { return slog.String(KeyQuery, q) }
func Items(n int) slog.Attr           { return slog.Int(KeyItems, n) }
func Files(n int) slog.Attr           { return slog.Int(KeyFiles, n) }
func Repository(r string) slog.Attr   { return slog.String(KeyRepo, r) }
func Branch(b string) slog.Attr       { return slog.String(KeyBranch, b) }
func Strategy(s string) slog.Attr     { return slog.String(KeyStrategy, s) }
func Generator(g string) slog.Attr    { return slog.String(KeyGenerator, g) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
