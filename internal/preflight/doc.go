// Package preflight provides readiness checks run before a conversion batch
// is handed to the runner.
//
// The convert command calls RunAll for the configured directories and
// converter binaries, then CheckCollisions and CheckDiskSpace once the
// workflows have their paths calculated. The check command reports the same
// results as a table without converting anything.
//
// Checks never mutate workflows. Callers decide whether a failed result
// aborts the run.
package preflight
