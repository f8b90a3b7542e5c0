// Package services defines shared utilities consumed by the workflow tasks and
// the external converter integrations.
//
// Key responsibilities:
//   - Context helpers that stamp workflow IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures carry a kind,
//     an operation and an operator hint all the way to the log line.
//
// Use these helpers when wiring new converter or task logic so error handling
// and observability stay uniform across the pipeline.
package services
