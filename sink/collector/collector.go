// Package collector provides a sink delivering to an in-house collector
// service over gRPC. Messages travel as JSON through a registered codec,
// so no generated stubs are needed on either side of the contract.
// Publishes are queued and sent by a background worker, so Track and Set
// never wait on the network.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"

	"github.com/arkilian/pulse/pkg/types"
	"github.com/arkilian/pulse/sink"
	"github.com/arkilian/pulse/store"
)

// Method names of the collector service contract.
const (
	publishEventMethod    = "/pulse.v1.Collector/PublishEvent"
	publishPropertyMethod = "/pulse.v1.Collector/PublishProperty"
)

// CodecName is the registered gRPC content-subtype carrying JSON bodies.
const CodecName = "json"

// jsonCodec is the wire codec for the collector contract.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                               { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// EventRequest is the PublishEvent message.
type EventRequest struct {
	Name    string                 `json:"name"`
	Params  map[string]types.Value `json:"params,omitempty"`
	UserID  string                 `json:"user_id,omitempty"`
	Install string                 `json:"install"`
	Time    int64                  `json:"time"`
}

// PropertyRequest is the PublishProperty message.
type PropertyRequest struct {
	Name    string  `json:"name"`
	Value   *string `json:"value"`
	UserID  string  `json:"user_id,omitempty"`
	Install string  `json:"install"`
	Time    int64   `json:"time"`
}

// Ack is the response to both publish calls.
type Ack struct {
	OK bool `json:"ok"`
}

// Config holds collector sink configuration.
type Config struct {
	// Target is the collector address. Required.
	Target string

	// APIKey is attached to every call as x-api-key metadata.
	APIKey string

	// CallTimeout bounds each publish call. Defaults to 5 seconds.
	CallTimeout time.Duration

	// QueueSize bounds the pending publish queue. Publishes arriving while
	// the queue is full are dropped and reported. Defaults to 256.
	QueueSize int
}

// pending is one queued publish.
type pending struct {
	method string
	req    interface{}
}

// Sink delivers to the collector service. It holds the application user ID
// in memory with read-write capability.
type Sink struct {
	cfg    Config
	limits sink.Limits

	mu      sync.Mutex
	conn    *grpc.ClientConn
	install types.InstallType
	userID  string
	hasUser bool
	closed  bool
	lastErr error

	queue chan pending
	done  chan struct{}
}

// New creates a collector sink. The connection and the publish worker are
// built during Start.
func New(cfg Config) *Sink {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 5 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	return &Sink{cfg: cfg}
}

// Name identifies the sink in log lines and stats.
func (s *Sink) Name() string { return "collector" }

// Start opens the client connection and launches the publish worker.
func (s *Sink) Start(_ context.Context, install types.InstallType, _ store.Store) error {
	if s.cfg.Target == "" {
		return fmt.Errorf("collector: target is required")
	}

	conn, err := grpc.NewClient(s.cfg.Target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	)
	if err != nil {
		return fmt.Errorf("collector: failed to create client: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.install = install
	s.queue = make(chan pending, s.cfg.QueueSize)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.worker()
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

// Track queues one event publish. A failure observed by the worker is
// reported on a later call or on Close.
func (s *Sink) Track(e types.TrimmedEvent, params map[string]types.Value) error {
	return s.enqueue(publishEventMethod, func(userID, install string) interface{} {
		return &EventRequest{
			Name:    e.Name(),
			Params:  params,
			UserID:  userID,
			Install: install,
			Time:    time.Now().UnixMilli(),
		}
	})
}

// Set queues one property publish.
func (s *Sink) Set(p types.TrimmedProperty, value *types.Value) error {
	return s.enqueue(publishPropertyMethod, func(userID, install string) interface{} {
		req := &PropertyRequest{
			Name:    p.Name(),
			UserID:  userID,
			Install: install,
			Time:    time.Now().UnixMilli(),
		}
		if value != nil {
			str := value.String()
			req.Value = &str
		}
		return req
	})
}

// enqueue stamps and hands one publish to the worker without waiting on the
// network. A full queue drops the publish.
func (s *Sink) enqueue(method string, build func(userID, install string) interface{}) error {
	s.mu.Lock()
	if s.conn == nil {
		s.mu.Unlock()
		return fmt.Errorf("collector: sink not started")
	}
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("collector: sink closed")
	}
	req := build(s.userID, s.install.String())
	queue := s.queue
	s.mu.Unlock()

	select {
	case queue <- pending{method: method, req: req}:
	default:
		return fmt.Errorf("collector: queue full, publish dropped")
	}

	s.mu.Lock()
	err := s.lastErr
	s.lastErr = nil
	s.mu.Unlock()
	return err
}

// worker drains the queue until Close, recording the last failure for the
// next caller to pick up.
func (s *Sink) worker() {
	defer close(s.done)
	for p := range s.queue {
		if err := s.invoke(p.method, p.req); err != nil {
			s.mu.Lock()
			s.lastErr = err
			s.mu.Unlock()
		}
	}
}

func (s *Sink) invoke(method string, req interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.CallTimeout)
	defer cancel()

	if s.cfg.APIKey != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "x-api-key", s.cfg.APIKey)
	}

	var ack Ack
	if err := s.conn.Invoke(ctx, method, req, &ack); err != nil {
		return fmt.Errorf("collector: publish failed: %w", err)
	}
	if !ack.OK {
		return fmt.Errorf("collector: publish rejected")
	}
	return nil
}

// SetUserID records the application user ID attached to every publish.
func (s *Sink) SetUserID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = id
	s.hasUser = true
	return nil
}

// UserID returns the user ID previously set on this sink.
func (s *Sink) UserID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID, s.hasUser
}

// Close drains the pending queue, closes the client connection, and returns
// the last publish failure the worker observed, if any. Closing twice is a
// no-op.
func (s *Sink) Close() error {
	s.mu.Lock()
	if s.conn == nil || s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.queue)
	<-s.done

	s.mu.Lock()
	err := s.lastErr
	s.lastErr = nil
	conn := s.conn
	s.mu.Unlock()

	if closeErr := conn.Close(); err == nil {
		err = closeErr
	}
	return err
}
