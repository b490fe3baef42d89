// Package stats provides runtime counters for the dispatch pipeline. The
// numbers answer the questions the data team asks when events go missing:
// was the signal filtered, suppressed, queued, or rejected by a sink.
package stats

import (
	"sort"
	"sync"
	"time"
)

// Runtime tracks dispatch counters for one facade instance.
type Runtime struct {
	mu sync.Mutex

	queuedEvents     int64
	queuedProperties int64
	notReadyCalls    int64
	droppedByFilter  int64
	suppressedOnce   int64
	timeToReady      time.Duration
	readyRecorded    bool

	sinks map[string]*SinkCounters
}

// SinkCounters holds per-sink delivery outcomes.
type SinkCounters struct {
	Sink      string
	Delivered int64
	Failed    int64
}

// Snapshot is a copy of all counters at one point in time.
type Snapshot struct {
	// QueuedEvents is the number of events buffered before activation.
	QueuedEvents int64

	// QueuedProperties is the number of distinct properties buffered before
	// activation (latest value per property).
	QueuedProperties int64

	// NotReadyCalls counts track/set calls made before Start and dropped.
	NotReadyCalls int64

	// DroppedByFilter counts events rejected by the caller predicate.
	DroppedByFilter int64

	// SuppressedOnce counts events suppressed by a once-per-lifetime or
	// once-per-session condition.
	SuppressedOnce int64

	// TimeToReady is the elapsed time Start spent waiting on sink startup.
	TimeToReady time.Duration

	// Sinks holds per-sink delivery outcomes sorted by sink name.
	Sinks []SinkCounters
}

// New creates a zeroed Runtime.
func New() *Runtime {
	return &Runtime{sinks: make(map[string]*SinkCounters)}
}

// EventQueued records an event buffered before activation.
func (r *Runtime) EventQueued() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queuedEvents++
}

// PropertyQueued records a property buffered before activation. Overwrites
// of an already-queued property do not count again.
func (r *Runtime) PropertyQueued(fresh bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fresh {
		r.queuedProperties++
	}
}

// NotReady records a track/set call made before Start.
func (r *Runtime) NotReady() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notReadyCalls++
}

// FilteredOut records an event rejected by the caller predicate.
func (r *Runtime) FilteredOut() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.droppedByFilter++
}

// Suppressed records an event suppressed by a log condition.
func (r *Runtime) Suppressed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.suppressedOnce++
}

// Ready records the time Start spent waiting for sinks. Only the first call
// counts; Start is once per process.
func (r *Runtime) Ready(elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.readyRecorded {
		r.timeToReady = elapsed
		r.readyRecorded = true
	}
}

// Delivered records a successful delivery to one sink.
func (r *Runtime) Delivered(sinkName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters(sinkName).Delivered++
}

// Failed records a delivery one sink rejected.
func (r *Runtime) Failed(sinkName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters(sinkName).Failed++
}

// counters returns the per-sink entry, creating it if needed. Caller holds
// the lock.
func (r *Runtime) counters(sinkName string) *SinkCounters {
	c, ok := r.sinks[sinkName]
	if !ok {
		c = &SinkCounters{Sink: sinkName}
		r.sinks[sinkName] = c
	}
	return c
}

// Snapshot returns a copy of all counters.
func (r *Runtime) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		QueuedEvents:     r.queuedEvents,
		QueuedProperties: r.queuedProperties,
		NotReadyCalls:    r.notReadyCalls,
		DroppedByFilter:  r.droppedByFilter,
		SuppressedOnce:   r.suppressedOnce,
		TimeToReady:      r.timeToReady,
	}

	for _, c := range r.sinks {
		snap.Sinks = append(snap.Sinks, *c)
	}
	sort.Slice(snap.Sinks, func(i, j int) bool {
		return snap.Sinks[i].Sink < snap.Sinks[j].Sink
	})

	return snap
}
