// Package run defines the shared vocabulary of a publishing run: the
// outcome classification, the run report, and the sentinel errors used to
// classify high-level pipeline failures.
//
// All execution paths (CLI, daemon, tests) report through these types, and
// the sentinels should always be wrapped with contextual information at the
// call site.
package run
