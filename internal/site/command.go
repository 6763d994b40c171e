package site

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"newsblaster/internal/logfields"
	"newsblaster/internal/run"
)

// ExitError reports a toolchain command that exited non-zero. It carries the
// captured output of both streams so callers can surface what the tool said.
type ExitError struct {
	Command string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *ExitError) Error() string {
	output := e.Stderr
	if output == "" {
		output = e.Stdout
	} else if e.Stdout != "" {
		output = e.Stdout + "\n" + e.Stderr
	}
	if output = strings.TrimSpace(output); output != "" {
		return fmt.Sprintf("command %q failed: %v: %s", e.Command, e.Err, output)
	}
	return fmt.Sprintf("command %q failed: %v", e.Command, e.Err)
}

func (e *ExitError) Unwrap() []error { return []error{run.ErrBuild, e.Err} }

// runCommand executes a toolchain command with both output streams captured.
// Build commands carry no deadline; a hung tool blocks the run.
func runCommand(dir string, logger *slog.Logger, name string, args ...string) (string, error) {
	display := strings.Join(append([]string{name}, args...), " ")
	logger.Debug("running command", slog.String("command", display), logfields.Path(dir))

	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if out := strings.TrimSpace(stdout.String()); out != "" {
		logger.Debug("command stdout", slog.String("command", display), slog.String("output", out))
	}
	if out := strings.TrimSpace(stderr.String()); out != "" {
		logger.Debug("command stderr", slog.String("command", display), slog.String("output", out))
	}
	if err != nil {
		return stdout.String(), &ExitError{Command: display, Stdout: stdout.String(), Stderr: stderr.String(), Err: err}
	}
	return stdout.String(), nil
}

// runInteractive executes a long-running command wired to the terminal, for
// development servers. It stops when ctx ends.
func runInteractive(ctx context.Context, dir string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("command %q failed: %w", strings.Join(append([]string{name}, args...), " "), err)
	}
	return nil
}

// verifyOutput confirms the generator actually produced its output directory.
func verifyOutput(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", run.ErrOutputMissing, dir)
	}
	if err != nil {
		return fmt.Errorf("check output dir %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", run.ErrOutputMissing, dir)
	}
	return nil
}
