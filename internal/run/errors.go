package run

import "errors"

// Sentinel domain errors used to classify high-level pipeline failures.
// They should always be wrapped with contextual information at the call site.
var (
	// ErrConfig means the configuration is missing or invalid. Nothing ran.
	ErrConfig = errors.New("newsblaster: configuration error")

	// ErrFetch means the feed could not be retrieved or parsed.
	ErrFetch = errors.New("newsblaster: fetch error")

	// ErrBuild means the site generator toolchain failed. Wrapping errors
	// carry the captured tool output.
	ErrBuild = errors.New("newsblaster: build error")

	// ErrOutputMissing means the generator reported success but produced no
	// output directory.
	ErrOutputMissing = errors.New("newsblaster: build output missing")

	// ErrPublish means pushing the built site to the target repository failed.
	ErrPublish = errors.New("newsblaster: publish error")

	// ErrNothingToPublish is the idempotence fast path: the built site is
	// byte-identical to what is already published. It is a short-circuit,
	// not a failure, and callers must treat it as success.
	ErrNothingToPublish = errors.New("newsblaster: nothing to publish")
)
