// Package dispatch provides the deferred dispatch buffer at the heart of
// the pipeline. Events and properties issued before the sinks finish their
// asynchronous startup are queued; Activate flushes the queue in order and
// switches the buffer to immediate fan-out. One sink's failure never
// affects another sink or the caller.
package dispatch

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/arkilian/pulse/internal/faults"
	"github.com/arkilian/pulse/internal/stats"
	"github.com/arkilian/pulse/pkg/types"
	"github.com/arkilian/pulse/sink"
)

// QueueDurationParam is the synthetic parameter merged into every flushed
// event, recording the seconds it spent queued. Downstream consumers use it
// to separate cold-start signals from live ones.
const QueueDurationParam = "queue_duration"

// queuedEvent is one event held back until activation. FIFO order matters:
// automatically tracked markers must reach sinks before any manual event a
// UI callback fires moments later.
type queuedEvent struct {
	event      types.Event
	params     map[string]types.Value
	enqueuedAt time.Time
}

// queuedProperty is the latest pending value for one property name. A
// property is current state, not an occurrence, so only the final value is
// ever delivered.
type queuedProperty struct {
	property types.Property
	value    *types.Value
}

// Buffer queues events and properties until Activate, then fans out to the
// captured sink set. All methods are safe for concurrent use; Activate
// holds the lock for the whole flush, so it is a full barrier between
// pre-activation and post-activation dispatch.
type Buffer struct {
	mu     sync.Mutex
	ready  bool
	sinks  []sink.Sink
	events []queuedEvent
	props  map[string]queuedProperty
	order  []string

	logger  *log.Logger
	runtime *stats.Runtime
	now     func() time.Time
}

// New creates an inactive Buffer. Logger and runtime must be non-nil.
func New(logger *log.Logger, runtime *stats.Runtime) *Buffer {
	return &Buffer{
		props:   make(map[string]queuedProperty),
		logger:  logger,
		runtime: runtime,
		now:     time.Now,
	}
}

// Publish dispatches the event immediately when the buffer is ready, and
// queues it otherwise. It never blocks the caller beyond in-process
// dispatch cost and never returns an error.
func (b *Buffer) Publish(event types.Event, params map[string]types.Value) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.ready {
		b.events = append(b.events, queuedEvent{
			event:      event,
			params:     copyParams(params),
			enqueuedAt: b.now(),
		})
		b.runtime.EventQueued()
		return
	}

	b.fanOutEvent(event, params)
}

// SetProperty dispatches the property immediately when ready; otherwise it
// stores the value under the property's name, overwriting any earlier
// pending value. Intermediate values set before activation are never sent.
func (b *Buffer) SetProperty(property types.Property, value *types.Value) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.ready {
		_, seen := b.props[property.Name()]
		if !seen {
			b.order = append(b.order, property.Name())
		}
		b.props[property.Name()] = queuedProperty{property: property, value: value}
		b.runtime.PropertyQueued(!seen)
		return
	}

	b.fanOutProperty(property, value)
}

// Activate marks the buffer ready against the given sink set and flushes
// everything queued so far: events strictly in enqueue order, each with a
// queue-duration parameter merged in, then each pending property exactly
// once with its final value. Calling Activate twice is a caller error; the
// second call is logged and ignored.
func (b *Buffer) Activate(sinks []sink.Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ready {
		b.logger.Printf("pulse: %v", faults.Usage(faults.CodeActivateTwice, "buffer already activated"))
		return
	}
	b.ready = true
	b.sinks = append([]sink.Sink(nil), sinks...)

	flushedAt := b.now()
	for _, qe := range b.events {
		params := qe.params
		if params == nil {
			params = make(map[string]types.Value, 1)
		}
		params[QueueDurationParam] = types.Float64(flushedAt.Sub(qe.enqueuedAt).Seconds())
		b.fanOutEvent(qe.event, params)
	}
	b.events = nil

	for _, name := range b.order {
		qp := b.props[name]
		b.fanOutProperty(qp.property, qp.value)
	}
	b.props = make(map[string]queuedProperty)
	b.order = nil
}

// Ready reports whether Activate has run.
func (b *Buffer) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready
}

// Sinks returns the sink set captured at activation, in configured order.
func (b *Buffer) Sinks() []sink.Sink {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]sink.Sink(nil), b.sinks...)
}

// fanOutEvent delivers one event to every sink in order. Caller holds the
// lock.
func (b *Buffer) fanOutEvent(event types.Event, params map[string]types.Value) {
	for _, s := range b.sinks {
		b.trackOne(s, event, params)
	}
}

// fanOutProperty delivers one property to every sink in order. Caller
// holds the lock.
func (b *Buffer) fanOutProperty(property types.Property, value *types.Value) {
	for _, s := range b.sinks {
		b.setOne(s, property, value)
	}
}

// trackOne delivers one event to one sink, containing errors and panics so
// that the remaining sinks still receive the event.
func (b *Buffer) trackOne(s sink.Sink, event types.Event, params map[string]types.Value) {
	defer func() {
		if r := recover(); r != nil {
			b.runtime.Failed(s.Name())
			b.logger.Printf("pulse: %v", faults.Dispatch(faults.CodeSinkPanic, s.Name(), panicError(r)))
		}
	}()

	trimmed := s.TrimEvent(event)
	if err := s.Track(trimmed, params); err != nil {
		b.runtime.Failed(s.Name())
		b.logger.Printf("pulse: %v", faults.Dispatch(faults.CodeTrackFailed, s.Name(), err))
		return
	}
	b.runtime.Delivered(s.Name())
}

// setOne delivers one property to one sink with the same containment as
// trackOne.
func (b *Buffer) setOne(s sink.Sink, property types.Property, value *types.Value) {
	defer func() {
		if r := recover(); r != nil {
			b.runtime.Failed(s.Name())
			b.logger.Printf("pulse: %v", faults.Dispatch(faults.CodeSinkPanic, s.Name(), panicError(r)))
		}
	}()

	trimmed := s.TrimProperty(property)
	if err := s.Set(trimmed, value); err != nil {
		b.runtime.Failed(s.Name())
		b.logger.Printf("pulse: %v", faults.Dispatch(faults.CodeSetFailed, s.Name(), err))
		return
	}
	b.runtime.Delivered(s.Name())
}

func copyParams(params map[string]types.Value) map[string]types.Value {
	if params == nil {
		return nil
	}
	copied := make(map[string]types.Value, len(params))
	for k, v := range params {
		copied[k] = v
	}
	return copied
}

func panicError(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}
