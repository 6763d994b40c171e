// Package workspace manages scratch directories for publish runs.
//
// Each run gets a fresh timestamped directory under the base dir which is
// removed again on Cleanup, so a crashed run never poisons the next one.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"newsblaster/internal/logfields"
)

// Manager hands out scratch directories. Create makes a new timestamped
// directory, Cleanup removes it.
type Manager struct {
	baseDir string
	dir     string
}

// NewManager creates a manager rooted at baseDir, or the system temp
// directory when baseDir is empty.
func NewManager(baseDir string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Manager{baseDir: baseDir}
}

// Create makes a new scratch directory, replacing any previous one held by
// this manager.
func (m *Manager) Create() error {
	timestamp := time.Now().Format("20060102-150405")
	dir, err := os.MkdirTemp(m.baseDir, fmt.Sprintf("newsblaster-%s-", timestamp))
	if err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}
	m.dir = dir
	slog.Debug("Created workspace", logfields.Path(dir))
	return nil
}

// Path returns the current scratch directory, empty before Create.
func (m *Manager) Path() string {
	return m.dir
}

// Subdir creates a subdirectory within the workspace and returns its path.
func (m *Manager) Subdir(name string) (string, error) {
	if m.dir == "" {
		return "", fmt.Errorf("workspace not created")
	}
	sub := filepath.Join(m.dir, name)
	if err := os.MkdirAll(sub, 0o750); err != nil {
		return "", fmt.Errorf("failed to create workspace subdirectory: %w", err)
	}
	return sub, nil
}

// Cleanup removes the scratch directory. Calling it again, or before Create,
// is a no-op.
func (m *Manager) Cleanup() error {
	if m.dir == "" {
		return nil
	}
	if err := os.RemoveAll(m.dir); err != nil {
		return fmt.Errorf("failed to cleanup workspace: %w", err)
	}
	slog.Debug("Cleaned up workspace", logfields.Path(m.dir))
	m.dir = ""
	return nil
}
