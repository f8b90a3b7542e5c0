package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"ngffconverter/internal/config"
)

// Requirement defines an external binary the converter relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Path        string
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		path, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Path = path
		results = append(results, status)
	}
	return results
}

// ConverterRequirements lists the converter binaries configured in cfg.
// The TIFF converter is only required when format is OME-TIFF; it is
// reported as optional otherwise.
func ConverterRequirements(cfg *config.Config, format string) []Requirement {
	if cfg == nil {
		return nil
	}
	tiffOptional := !strings.EqualFold(strings.TrimSpace(format), "OME-TIFF")
	return []Requirement{
		{
			Name:        "bioformats2raw",
			Command:     cfg.Converters.Bioformats2Raw,
			Description: "Converts vendor images to OME-NGFF",
		},
		{
			Name:        "raw2ometiff",
			Command:     cfg.Converters.Raw2OmeTiff,
			Description: "Converts OME-NGFF to OME-TIFF",
			Optional:    tiffOptional,
		},
	}
}

// Missing returns the required dependencies that are not available.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}
