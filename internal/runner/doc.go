// Package runner executes a list of workflows one after another.
//
// A Runner borrows the caller's workflow slice for a single pass. It skips
// workflows that are already COMPLETED or FAILED, checks the context before
// starting each remaining one, and reports every transition to a Reporter as
// an immutable Snapshot. A failing workflow never stops the pass; cancelling
// the context only prevents new workflows from starting, while the one in
// flight sees the same context and may stop its converter. Exactly one
// EventRunCompleted is reported per pass.
//
// Lock guards a working directory against a second process starting its own
// pass against the same intermediates.
package runner
