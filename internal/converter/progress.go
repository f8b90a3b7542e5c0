package converter

import "sync"

// Tracker is a ProgressListener that reduces converter events to a fraction in
// [0, 1]. Chunk counts are preferred when the tool announces them; otherwise
// completed series over total series is used.
type Tracker struct {
	mu           sync.Mutex
	seriesCount  int
	chunkCount   int64
	seriesDone   int
	chunksDone   int64
	lastReported float64
	onUpdate     func(fraction float64)
}

// NewTracker returns a Tracker that calls onUpdate whenever the fraction
// increases. onUpdate may be nil.
func NewTracker(onUpdate func(fraction float64)) *Tracker {
	return &Tracker{onUpdate: onUpdate, lastReported: -1}
}

// Start records the announced totals.
func (t *Tracker) Start(seriesCount int, chunkCount int64) {
	t.mu.Lock()
	t.seriesCount = max(seriesCount, 0)
	t.chunkCount = max(chunkCount, 0)
	t.seriesDone = 0
	t.chunksDone = 0
	t.mu.Unlock()
	t.publish()
}

// SeriesStart is a no-op; only completed work moves the fraction.
func (t *Tracker) SeriesStart(int) {}

// SeriesEnd counts a completed series.
func (t *Tracker) SeriesEnd(int) {
	t.mu.Lock()
	if t.seriesCount == 0 || t.seriesDone < t.seriesCount {
		t.seriesDone++
	}
	t.mu.Unlock()
	t.publish()
}

// ChunkStart is a no-op; only completed work moves the fraction.
func (t *Tracker) ChunkStart(int64) {}

// ChunkEnd counts a completed chunk.
func (t *Tracker) ChunkEnd(int64) {
	t.mu.Lock()
	if t.chunkCount == 0 || t.chunksDone < t.chunkCount {
		t.chunksDone++
	}
	t.mu.Unlock()
	t.publish()
}

// Fraction returns the current completion estimate.
func (t *Tracker) Fraction() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fractionLocked()
}

func (t *Tracker) fractionLocked() float64 {
	switch {
	case t.chunkCount > 0:
		return min(float64(t.chunksDone)/float64(t.chunkCount), 1)
	case t.seriesCount > 0:
		return min(float64(t.seriesDone)/float64(t.seriesCount), 1)
	default:
		return 0
	}
}

func (t *Tracker) publish() {
	t.mu.Lock()
	fraction := t.fractionLocked()
	if fraction <= t.lastReported {
		t.mu.Unlock()
		return
	}
	t.lastReported = fraction
	callback := t.onUpdate
	t.mu.Unlock()
	if callback != nil {
		callback(fraction)
	}
}

var _ ProgressListener = (*Tracker)(nil)
