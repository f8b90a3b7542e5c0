package workflow

import (
	"fmt"

	"ngffconverter/internal/fileutil"
)

// CalculateIO threads input through the task chain. Every task but the last
// writes into workingDir and the last writes into outputDir; each output is
// the next task's input. Only paths are computed, nothing is written. The
// status becomes WARNING when the final output already exists and overwrite
// is off, PENDING otherwise.
func (w *Workflow) CalculateIO(input, outputDir, workingDir string) {
	w.input = input
	w.outputDir = outputDir
	w.workingDir = workingDir
	w.threadPaths()
	w.calculated = true

	if fileutil.Exists(w.finalOutput) && !w.overwrite {
		w.status = StatusWarning
		w.message = fmt.Sprintf("output already exists: %s", w.finalOutput)
		return
	}
	w.status = StatusPending
	w.message = ""
}

func (w *Workflow) threadPaths() {
	current := w.input
	for i, task := range w.tasks {
		task.SetInput(current)
		dir := w.workingDir
		if w.isFinal(i) {
			dir = w.outputDir
		}
		task.SetOutput(dir)
		current = task.Output()
	}
	w.finalOutput = current
}
