// Package notify publishes run completion events over NATS so other systems
// can react to deploys without polling the repository.
package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	appcfg "newsblaster/internal/config"
	"newsblaster/internal/logfields"
	"newsblaster/internal/run"
)

// RunEvent is the JSON payload published after every run.
type RunEvent struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	Generator string    `json:"generator"`
	Strategy  string    `json:"strategy"`
	Outcome   string    `json:"outcome"`
	Items     int       `json:"items"`
	Files     int       `json:"files"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventFromReport maps a finished run report onto the wire payload.
func EventFromReport(report *run.Report) RunEvent {
	event := RunEvent{
		ID:        report.ID,
		Query:     report.Query,
		Generator: report.Generator,
		Strategy:  report.Strategy,
		Outcome:   string(report.Outcome),
		Items:     report.ItemsFetched,
		Files:     report.FilesPublished,
		Timestamp: time.Now(),
	}
	if report.Err != nil {
		event.Error = report.Err.Error()
	}
	return event
}

// Notifier publishes run events.
type Notifier interface {
	NotifyRun(report *run.Report) error
	Close()
}

// NoopNotifier discards events (default when NATS is not configured).
type NoopNotifier struct{}

func (NoopNotifier) NotifyRun(*run.Report) error { return nil }
func (NoopNotifier) Close()                      {}

// ForConfig returns a NATS notifier when a URL is configured, otherwise the
// noop implementation.
func ForConfig(cfg appcfg.DaemonConfig, logger *slog.Logger) (Notifier, error) {
	if cfg.NATSURL == "" {
		return NoopNotifier{}, nil
	}
	return NewNATSNotifier(cfg.NATSURL, cfg.NATSSubject, logger)
}

// NATSNotifier publishes run events to a NATS subject.
type NATSNotifier struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// NewNATSNotifier connects to the NATS server at url.
func NewNATSNotifier(url, subject string, logger *slog.Logger) (*NATSNotifier, error) {
	conn, err := nats.Connect(url, nats.Name("newsblaster"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("NATS notifier connected", logfields.URL(url), slog.String("subject", subject))

	return &NATSNotifier{
		conn:    conn,
		subject: subject,
		logger:  logger,
	}, nil
}

// NotifyRun publishes the run event. Fire and forget; delivery is not
// acknowledged.
func (n *NATSNotifier) NotifyRun(report *run.Report) error {
	data, err := json.Marshal(EventFromReport(report))
	if err != nil {
		return fmt.Errorf("failed to marshal run event: %w", err)
	}

	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("failed to publish run event: %w", err)
	}

	n.logger.Debug("Published run event",
		logfields.RunID(report.ID),
		logfields.Outcome(string(report.Outcome)),
		slog.String("subject", n.subject))
	return nil
}

// Close closes the NATS connection.
func (n *NATSNotifier) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}
