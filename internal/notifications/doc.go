// Package notifications pushes conversion results to ntfy.
//
// NewService returns a no-op when no topic is configured. NewReporter adapts
// a Service to the runner's snapshot stream so the convert command can fan
// snapshots out to the terminal and to ntfy at once.
package notifications
