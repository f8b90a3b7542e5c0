// Package deps reports whether the external converter binaries are
// installed and resolvable on PATH.
package deps
