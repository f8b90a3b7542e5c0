package preflight

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"ngffconverter/internal/fileutil"
	"ngffconverter/internal/workflow"
)

// Volume aggregates the estimated bytes a batch will write to one
// filesystem.
type Volume struct {
	Device    uint64
	Path      string
	Required  uint64
	Available uint64
}

// Sufficient reports whether the volume has room for the estimate.
func (v Volume) Sufficient() bool {
	return v.Available >= v.Required
}

type volumeInfo struct {
	device    uint64
	available uint64
}

// statVolume resolves the device and free bytes of the filesystem holding
// path. Replaced in tests.
var statVolume = func(path string) (volumeInfo, error) {
	dir := existingAncestor(path)
	var st unix.Stat_t
	if err := unix.Stat(dir, &st); err != nil {
		return volumeInfo{}, fmt.Errorf("stat %s: %w", dir, err)
	}
	var fs unix.Statfs_t
	if err := unix.Statfs(dir, &fs); err != nil {
		return volumeInfo{}, fmt.Errorf("statfs %s: %w", dir, err)
	}
	return volumeInfo{
		device:    uint64(st.Dev),
		available: uint64(fs.Bavail) * uint64(fs.Bsize),
	}, nil
}

// EstimateSpace groups the expected writes of workflows by volume. Each
// stage output is estimated as the input size times factor; intermediates
// count against the working directory volume and the final output against
// the output directory volume. Saving the output onto the volume already
// holding it is a rename and costs nothing. Workflows that are not runnable
// are skipped.
func EstimateSpace(workflows []*workflow.Workflow, factor float64) ([]Volume, error) {
	if factor <= 0 {
		factor = 1
	}

	byDevice := make(map[uint64]*Volume)
	for _, w := range workflows {
		if w == nil || !w.Calculated() || w.Status() != workflow.StatusPending {
			continue
		}
		if !fileutil.Exists(w.Input()) {
			continue
		}
		size, err := fileutil.Size(w.Input())
		if err != nil {
			return nil, fmt.Errorf("size of %s: %w", w.Input(), err)
		}
		estimate := scale(size, factor)
		for _, task := range w.Tasks() {
			out := task.Output()
			if out == "" || out == task.Input() {
				continue
			}
			info, err := statVolume(filepath.Dir(out))
			if err != nil {
				return nil, err
			}
			if task.Kind() == workflow.KindFinalize {
				source, err := statVolume(filepath.Dir(task.Input()))
				if err != nil {
					return nil, err
				}
				if source.device == info.device {
					continue
				}
			}
			vol, ok := byDevice[info.device]
			if !ok {
				vol = &Volume{Device: info.device, Path: existingAncestor(filepath.Dir(out)), Available: info.available}
				byDevice[info.device] = vol
			}
			vol.Required += estimate
		}
	}

	volumes := make([]Volume, 0, len(byDevice))
	for _, vol := range byDevice {
		volumes = append(volumes, *vol)
	}
	sort.Slice(volumes, func(i, j int) bool { return volumes[i].Path < volumes[j].Path })
	return volumes, nil
}

// CheckDiskSpace summarizes EstimateSpace as a Result.
func CheckDiskSpace(workflows []*workflow.Workflow, factor float64) Result {
	const name = "Disk space"
	volumes, err := EstimateSpace(workflows, factor)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if len(volumes) == 0 {
		return Result{Name: name, Passed: true, Detail: "nothing to convert"}
	}

	passed := true
	parts := make([]string, 0, len(volumes))
	for _, vol := range volumes {
		part := fmt.Sprintf("%s needs %s, %s free", vol.Path, humanize.Bytes(vol.Required), humanize.Bytes(vol.Available))
		if !vol.Sufficient() {
			passed = false
			part += fmt.Sprintf(" (short %s)", humanize.Bytes(vol.Required-vol.Available))
		}
		parts = append(parts, part)
	}
	return Result{Name: name, Passed: passed, Detail: strings.Join(parts, "; ")}
}

func scale(size int64, factor float64) uint64 {
	if size <= 0 {
		return 0
	}
	return uint64(math.Ceil(float64(size) * factor))
}

// existingAncestor walks up from path to the nearest directory that exists,
// since outputs are usually not created yet.
func existingAncestor(path string) string {
	path = filepath.Clean(path)
	for {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}
