package preflight

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"ngffconverter/internal/config"
	"ngffconverter/internal/deps"
)

// CheckDirectoryAccess verifies a directory exists and is readable, writable
// and traversable.
func CheckDirectoryAccess(name, path string) Result {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{Name: name, Detail: "path not configured"}
	}

	info, err := os.Stat(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s: %v", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s is not a directory", path)}
	}

	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s: insufficient permissions (need rwx)", path)}
	}

	return Result{Name: name, Passed: true, Detail: path}
}

// CheckConverters verifies the converter binaries needed for format resolve
// on PATH. Optional converters that are missing still pass.
func CheckConverters(cfg *config.Config, format string) []Result {
	statuses := deps.CheckBinaries(deps.ConverterRequirements(cfg, format))
	results := make([]Result, 0, len(statuses))
	for _, status := range statuses {
		result := Result{Name: status.Name}
		switch {
		case status.Available:
			result.Passed = true
			result.Detail = status.Path
		case status.Optional:
			result.Passed = true
			result.Detail = status.Detail + " (not needed for " + strings.TrimSpace(format) + ")"
		default:
			result.Detail = status.Detail
		}
		results = append(results, result)
	}
	return results
}
