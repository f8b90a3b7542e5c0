package logs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"ngffconverter/internal/logging"
)

// ErrNoLogs is returned when the log directory holds no run logs.
var ErrNoLogs = errors.New("no run logs found")

// RunLog describes one run log file.
type RunLog struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// List returns the run logs in dir, newest first.
func List(dir string) ([]RunLog, error) {
	matches, err := filepath.Glob(filepath.Join(dir, logging.LogFilePattern))
	if err != nil {
		return nil, fmt.Errorf("match run logs: %w", err)
	}
	runs := make([]RunLog, 0, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		runs = append(runs, RunLog{Path: path, ModTime: info.ModTime(), Size: info.Size()})
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].ModTime.Equal(runs[j].ModTime) {
			return runs[i].Path > runs[j].Path
		}
		return runs[i].ModTime.After(runs[j].ModTime)
	})
	return runs, nil
}

// Latest returns the most recently written run log in dir.
func Latest(dir string) (string, error) {
	runs, err := List(dir)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoLogs, dir)
	}
	return runs[0].Path, nil
}
