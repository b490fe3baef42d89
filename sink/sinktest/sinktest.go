// Package sinktest provides recording and failing Sink implementations for
// tests of the dispatch pipeline and the facade.
package sinktest

import (
	"context"
	"sync"
	"time"

	"github.com/arkilian/pulse/pkg/types"
	"github.com/arkilian/pulse/sink"
	"github.com/arkilian/pulse/store"
)

// TrackedEvent is one Track call a Recorder observed.
type TrackedEvent struct {
	Name   string
	Params map[string]types.Value
}

// SetProperty is one Set call a Recorder observed.
type SetProperty struct {
	Name  string
	Value *types.Value
}

// Recorder is a Sink that records every call it receives. Its failure knobs
// make it double as the misbehaving sink in isolation tests.
type Recorder struct {
	SinkName string
	Limits   sink.Limits

	// StartErr, when set, makes Start fail.
	StartErr error

	// StartDelay makes Start sleep before returning, for timeout tests.
	// Start honors context cancellation during the delay.
	StartDelay time.Duration

	// TrackErr, when set, makes every Track call fail after recording.
	TrackErr error

	// SetErr, when set, makes every Set call fail after recording.
	SetErr error

	// PanicOnTrack makes Track panic instead of returning.
	PanicOnTrack bool

	mu       sync.Mutex
	started  bool
	install  types.InstallType
	events   []TrackedEvent
	props    []SetProperty
	pseudoID string
	userID   string
	hasUser  bool
}

// New creates a Recorder with the given name and no limits.
func New(name string) *Recorder {
	return &Recorder{SinkName: name}
}

// Name identifies the sink in log lines and stats.
func (r *Recorder) Name() string { return r.SinkName }

// Start records the install type and applies the configured failure knobs.
func (r *Recorder) Start(ctx context.Context, install types.InstallType, st store.Store) error {
	if r.StartDelay > 0 {
		select {
		case <-time.After(r.StartDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if r.StartErr != nil {
		return r.StartErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = true
	r.install = install
	return nil
}

// TrimEvent shortens an event name to the configured limits.
func (r *Recorder) TrimEvent(e types.Event) types.TrimmedEvent {
	return r.Limits.TrimEvent(e)
}

// TrimProperty shortens a property name to the configured limits.
func (r *Recorder) TrimProperty(p types.Property) types.TrimmedProperty {
	return r.Limits.TrimProperty(p)
}

// Track records the event, then applies the configured failure knobs.
func (r *Recorder) Track(e types.TrimmedEvent, params map[string]types.Value) error {
	if r.PanicOnTrack {
		panic("sinktest: track panic requested")
	}
	r.mu.Lock()
	copied := make(map[string]types.Value, len(params))
	for k, v := range params {
		copied[k] = v
	}
	r.events = append(r.events, TrackedEvent{Name: e.Name(), Params: copied})
	r.mu.Unlock()
	return r.TrackErr
}

// Set records the property, then applies the configured failure knobs.
func (r *Recorder) Set(p types.TrimmedProperty, value *types.Value) error {
	r.mu.Lock()
	r.props = append(r.props, SetProperty{Name: p.Name(), Value: value})
	r.mu.Unlock()
	return r.SetErr
}

// Started reports whether Start completed successfully.
func (r *Recorder) Started() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

// Install returns the install type passed to Start.
func (r *Recorder) Install() types.InstallType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.install
}

// Events returns a copy of the recorded Track calls in arrival order.
func (r *Recorder) Events() []TrackedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TrackedEvent(nil), r.events...)
}

// EventNames returns the recorded event names in arrival order.
func (r *Recorder) EventNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.events))
	for i, e := range r.events {
		names[i] = e.Name
	}
	return names
}

// Properties returns a copy of the recorded Set calls in arrival order.
func (r *Recorder) Properties() []SetProperty {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SetProperty(nil), r.props...)
}

// SetPseudoID configures the value PseudoID returns.
func (r *Recorder) SetPseudoID(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pseudoID = id
}

// PseudoID returns the configured pseudonymous identifier.
func (r *Recorder) PseudoID() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pseudoID, nil
}

// SetUserID records the application user ID.
func (r *Recorder) SetUserID(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userID = id
	r.hasUser = true
	return nil
}

// UserID returns the recorded user ID, if one was set.
func (r *Recorder) UserID() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.userID, r.hasUser
}
