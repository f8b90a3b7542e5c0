package converter

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// event is one JSON progress line emitted by a converter wrapper, for example
// {"event":"start","series_count":2,"chunk_count":128}.
type event struct {
	Event       string `json:"event"`
	Series      int    `json:"series"`
	Chunk       int64  `json:"chunk"`
	SeriesCount int    `json:"series_count"`
	ChunkCount  int64  `json:"chunk_count"`
}

// counterPattern matches the "done/total" counter of a terminal progress bar,
// e.g. "Chunks 42% │██▌   │ 210/500 (0:00:05 / 0:00:07)".
var counterPattern = regexp.MustCompile(`(?:^|\s)(\d+)/(\d+)(?:\s|$)`)

// outputParser turns converter output lines into listener callbacks. It keeps
// the counter state of one invocation.
type outputParser struct {
	listener ProgressListener
	total    int64
	done     int64
}

func newOutputParser(listener ProgressListener) *outputParser {
	if listener == nil {
		listener = NopListener{}
	}
	return &outputParser{listener: listener}
}

// handle reports false when line carries no progress information.
func (p *outputParser) handle(line []byte) bool {
	if dispatchEvent(line, p.listener) {
		return true
	}
	return p.counter(line)
}

func (p *outputParser) counter(line []byte) bool {
	if !bytes.ContainsRune(line, '%') {
		return false
	}
	match := counterPattern.FindSubmatch(line)
	if match == nil {
		return false
	}
	done, errDone := strconv.ParseInt(string(match[1]), 10, 64)
	total, errTotal := strconv.ParseInt(string(match[2]), 10, 64)
	if errDone != nil || errTotal != nil || total <= 0 || done > total {
		return false
	}
	if total != p.total || done < p.done {
		p.total = total
		p.done = 0
		p.listener.Start(1, total)
	}
	for ; p.done < done; p.done++ {
		p.listener.ChunkEnd(p.done)
	}
	return true
}

// dispatchEvent decodes line and forwards it to listener. It reports false
// when the line is not a progress event.
func dispatchEvent(line []byte, listener ProgressListener) bool {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	var payload event
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return false
	}
	if listener == nil {
		listener = NopListener{}
	}
	switch strings.ToLower(strings.TrimSpace(payload.Event)) {
	case "start":
		listener.Start(payload.SeriesCount, payload.ChunkCount)
	case "series_start":
		listener.SeriesStart(payload.Series)
	case "series_end":
		listener.SeriesEnd(payload.Series)
	case "chunk_start":
		listener.ChunkStart(payload.Chunk)
	case "chunk_end":
		listener.ChunkEnd(payload.Chunk)
	default:
		return false
	}
	return true
}

// maxLineBytes bounds a single token so a tool that never ends its lines
// cannot stall the reader.
const maxLineBytes = 64 * 1024

// splitOutputLines is a bufio.SplitFunc ending lines at '\n' or '\r', so
// progress bars that redraw in place yield one token per redraw. Lines longer
// than maxLineBytes are cut into pieces.
func splitOutputLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if len(data) >= maxLineBytes {
		return maxLineBytes, data[:maxLineBytes], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
