// Package version exposes the build-time identity of the binary.
package version

import "fmt"

// Version is the application version. Set via build-time ldflags:
// go build -ldflags "-X newsblaster/internal/version.Version=v1.2.0".
var Version = "dev"

// Build metadata, also set via ldflags.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line shown by the version command.
func String() string {
	if GitCommit == "unknown" {
		return Version
	}
	return fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
