// Package workflow models one conversion request as an ordered chain of tasks.
//
// A Workflow owns a fixed Task chain built by the Registry for the requested
// output format: OME-NGFF is [Convert to NGFF, Save output] and OME-TIFF is
// [Convert to NGFF, Convert to TIFF, Save output]. CalculateIO threads the
// input file through the chain, placing every intermediate under the working
// directory and only the last stage's output under the output directory.
// Execute validates the chain, runs the tasks in order, stops at the first
// failure and removes intermediates once every task has completed.
//
// Workflows are not safe for concurrent use. One goroutine (normally the
// runner) drives Execute; other goroutines should consume snapshots instead
// of reading a Workflow while it runs.
package workflow
