// Package console provides a sink that writes every event and property to
// a log writer. It is the development backend and the reference for how
// thin a sink is meant to be.
package console

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/arkilian/pulse/pkg/types"
	"github.com/arkilian/pulse/sink"
	"github.com/arkilian/pulse/store"
)

// Sink logs deliveries through a standard logger. It exposes a persisted
// pseudonymous identifier, generated once per install.
type Sink struct {
	logger *log.Logger
	limits sink.Limits

	mu       sync.Mutex
	pseudoID string
}

// New creates a console sink writing through logger. A nil logger uses the
// standard one.
func New(logger *log.Logger) *Sink {
	if logger == nil {
		logger = log.Default()
	}
	return &Sink{logger: logger}
}

// Name identifies the sink in log lines and stats.
func (s *Sink) Name() string { return "console" }

// Start loads or generates the persisted pseudonymous identifier.
func (s *Sink) Start(_ context.Context, install types.InstallType, st store.Store) error {
	key := store.Key("pseudoID", "console")
	id, ok := st.GetString(key)
	if !ok {
		id = uuid.New().String()
		st.PutString(key, id)
	}

	s.mu.Lock()
	s.pseudoID = id
	s.mu.Unlock()

	s.logger.Printf("console sink started, install=%s", install)
	return nil
}

// TrimEvent shortens an event name to the sink's limits.
func (s *Sink) TrimEvent(e types.Event) types.TrimmedEvent {
	return s.limits.TrimEvent(e)
}

// TrimProperty shortens a property name to the sink's limits.
func (s *Sink) TrimProperty(p types.Property) types.TrimmedProperty {
	return s.limits.TrimProperty(p)
}

// Track logs one event.
func (s *Sink) Track(e types.TrimmedEvent, params map[string]types.Value) error {
	s.logger.Printf("event %s%s", e.Name(), formatParams(params))
	return nil
}

// Set logs one property change.
func (s *Sink) Set(p types.TrimmedProperty, value *types.Value) error {
	if value == nil {
		s.logger.Printf("property %s cleared", p.Name())
		return nil
	}
	s.logger.Printf("property %s=%s", p.Name(), value.String())
	return nil
}

// PseudoID returns the persisted pseudonymous identifier.
func (s *Sink) PseudoID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pseudoID == "" {
		return "", fmt.Errorf("console: sink not started")
	}
	return s.pseudoID, nil
}

// formatParams renders parameters deterministically for readable logs.
func formatParams(params map[string]types.Value) string {
	if len(params) == 0 {
		return ""
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, params[k].String())
	}
	return b.String()
}
