package runner

import "sync"

// Reporter receives runner snapshots. Report is called on the runner's
// goroutine and should return quickly.
type Reporter interface {
	Report(Snapshot)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(Snapshot)

// Report calls f.
func (f ReporterFunc) Report(s Snapshot) { f(s) }

// NopReporter discards every snapshot.
type NopReporter struct{}

// Report does nothing.
func (NopReporter) Report(Snapshot) {}

// ChannelReporter delivers snapshots over a channel so a caller on another
// goroutine can consume them. Stage progress snapshots are dropped when the
// buffer is full; every other event blocks until the consumer receives it.
type ChannelReporter struct {
	mu     sync.Mutex
	ch     chan Snapshot
	closed bool
}

// NewChannelReporter returns a ChannelReporter with the given buffer size.
func NewChannelReporter(buffer int) *ChannelReporter {
	if buffer < 0 {
		buffer = 0
	}
	return &ChannelReporter{ch: make(chan Snapshot, buffer)}
}

// Events returns the receive side of the channel.
func (c *ChannelReporter) Events() <-chan Snapshot {
	return c.ch
}

// Report forwards s unless the reporter has been closed.
func (c *ChannelReporter) Report(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if s.Type == EventStageProgress {
		select {
		case c.ch <- s:
		default:
		}
		return
	}
	c.ch <- s
}

// Close closes the channel. Later reports are discarded.
func (c *ChannelReporter) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.ch)
}

// MultiReporter fans snapshots out to several reporters in order.
type MultiReporter []Reporter

// Report forwards s to every non-nil reporter.
func (m MultiReporter) Report(s Snapshot) {
	for _, r := range m {
		if r != nil {
			r.Report(s)
		}
	}
}
