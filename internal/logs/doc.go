// Package logs locates and tails the per-run log files written under the
// configured log directory.
//
// Reading is bounded: Last keeps only the requested number of lines in
// memory and Follow polls forward from a byte offset, restarting from the
// top when the file is truncated. Follow returns when its context ends.
package logs
