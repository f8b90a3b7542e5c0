package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"ngffconverter/internal/fileutil"
	"ngffconverter/internal/logging"
)

// CleanStaleResult contains the outcome of a stale entry cleanup operation.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes working directory entries older than maxAge.
// It returns the list of removed paths and any errors encountered.
func CleanStale(ctx context.Context, workingDir string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}
	if logger == nil {
		logger = logging.NewNop()
	}

	workingDir = strings.TrimSpace(workingDir)
	if workingDir == "" {
		return result
	}

	entries, err := os.ReadDir(workingDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: workingDir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if ctx.Err() != nil {
			return result
		}
		if hidden(entry.Name()) {
			continue
		}

		entryPath := filepath.Join(workingDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: entryPath, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := fileutil.RemoveAll(entryPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: entryPath, Error: err})
			logger.Warn("failed to remove stale intermediate",
				logging.String("path", entryPath),
				logging.Error(err),
				logging.String(logging.FieldEventType, "staging_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "check working_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, entryPath)
		logger.Info("removed stale intermediate",
			logging.String("path", entryPath),
			logging.Duration("age", time.Since(info.ModTime())),
			logging.String(logging.FieldEventType, "staging_cleanup"),
		)
	}

	return result
}

// Entry contains metadata about a working directory entry.
type Entry struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
	Dir     bool
}

// List returns the visible entries of the working directory, oldest first.
func List(workingDir string) ([]Entry, error) {
	workingDir = strings.TrimSpace(workingDir)
	if workingDir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(workingDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []Entry
	for _, entry := range entries {
		if hidden(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		entryPath := filepath.Join(workingDir, entry.Name())
		size, _ := fileutil.Size(entryPath)

		out = append(out, Entry{
			Name:    entry.Name(),
			Path:    entryPath,
			ModTime: info.ModTime(),
			Size:    size,
			Dir:     entry.IsDir(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModTime.Before(out[j].ModTime) })
	return out, nil
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
