// Package logging assembles structured slog loggers and the attribute helpers
// used across the converter.
//
// It owns the console and JSON handlers, level parsing and output fan-out
// (stdout plus the rolling log file), and exposes context-aware helpers so task
// code automatically tags log lines with workflow IDs, stage names and
// correlation IDs. A no-op logger is provided for tests and wiring code that
// cannot fail.
package logging
