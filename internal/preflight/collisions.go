package preflight

import (
	"fmt"
	"sort"
	"strings"

	"ngffconverter/internal/workflow"
)

// Collision lists the workflows that would write the same path.
type Collision struct {
	Path   string
	Inputs []string
}

// FindCollisions reports every output path that more than one workflow would
// write. Inputs sharing a base name in a shared working directory collide on
// their intermediates. Workflows without calculated paths are ignored.
func FindCollisions(workflows []*workflow.Workflow) []Collision {
	owners := make(map[string][]string)
	for _, w := range workflows {
		if w == nil || !w.Calculated() {
			continue
		}
		seen := make(map[string]struct{})
		for _, task := range w.Tasks() {
			out := task.Output()
			if out == "" || out == task.Input() {
				continue
			}
			if _, ok := seen[out]; ok {
				continue
			}
			seen[out] = struct{}{}
			owners[out] = append(owners[out], w.Input())
		}
	}

	var collisions []Collision
	for path, inputs := range owners {
		if len(inputs) < 2 {
			continue
		}
		collisions = append(collisions, Collision{Path: path, Inputs: inputs})
	}
	sort.Slice(collisions, func(i, j int) bool { return collisions[i].Path < collisions[j].Path })
	return collisions
}

// CheckCollisions summarizes FindCollisions as a Result.
func CheckCollisions(workflows []*workflow.Workflow) Result {
	const name = "Output collisions"
	collisions := FindCollisions(workflows)
	if len(collisions) == 0 {
		return Result{Name: name, Passed: true, Detail: "none"}
	}
	parts := make([]string, 0, len(collisions))
	for _, c := range collisions {
		parts = append(parts, fmt.Sprintf("%s <- %s", c.Path, strings.Join(c.Inputs, ", ")))
	}
	return Result{Name: name, Detail: strings.Join(parts, "; ")}
}
