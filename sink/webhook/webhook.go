// Package webhook provides a sink that POSTs every delivery as JSON to a
// configured endpoint. Deliveries are queued and posted by a background
// worker, so Track and Set never wait on the network. The sink accepts an
// application user ID (write-only) and attaches it to every payload.
package webhook

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/http2"

	"github.com/arkilian/pulse/pkg/types"
	"github.com/arkilian/pulse/sink"
	"github.com/arkilian/pulse/store"
)

// payload is the POST body for both events and properties.
type payload struct {
	Kind    string                 `json:"kind"`
	Name    string                 `json:"name"`
	Params  map[string]types.Value `json:"params,omitempty"`
	Value   *string                `json:"value,omitempty"`
	UserID  string                 `json:"user_id,omitempty"`
	Install string                 `json:"install"`
	Time    int64                  `json:"time"`
}

// Config holds webhook sink configuration.
type Config struct {
	// URL is the endpoint receiving POSTs. Required.
	URL string

	// APIKey is sent as the X-Api-Key header when set.
	APIKey string

	// ForceHTTP2 dials the endpoint with prior-knowledge HTTP/2 instead of
	// negotiating. Useful for in-house collectors behind h2c proxies.
	ForceHTTP2 bool

	// Timeout bounds each request. Defaults to 10 seconds.
	Timeout time.Duration

	// QueueSize bounds the pending delivery queue. Deliveries arriving
	// while the queue is full are dropped and reported. Defaults to 256.
	QueueSize int
}

// Sink POSTs deliveries to a webhook endpoint from a background worker.
type Sink struct {
	cfg    Config
	limits sink.Limits

	mu      sync.Mutex
	client  *http.Client
	install types.InstallType
	userID  string
	closed  bool
	lastErr error

	queue chan payload
	done  chan struct{}
}

// New creates a webhook sink. The HTTP client and the delivery worker are
// built during Start.
func New(cfg Config) *Sink {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	return &Sink{cfg: cfg}
}

// Name identifies the sink in log lines and stats.
func (s *Sink) Name() string { return "webhook" }

// Start builds the HTTP client and launches the delivery worker.
func (s *Sink) Start(_ context.Context, install types.InstallType, _ store.Store) error {
	if s.cfg.URL == "" {
		return fmt.Errorf("webhook: url is required")
	}

	client := &http.Client{Timeout: s.cfg.Timeout}
	if s.cfg.ForceHTTP2 {
		client.Transport = &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
		}
	}

	s.mu.Lock()
	s.client = client
	s.install = install
	s.queue = make(chan payload, s.cfg.QueueSize)
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

// Track queues one event for delivery. A failure observed by the worker is
// reported on a later call or on Close.
func (s *Sink) Track(e types.TrimmedEvent, params map[string]types.Value) error {
	return s.enqueue(payload{Kind: "event", Name: e.Name(), Params: params})
}

// Set queues one property change for delivery.
func (s *Sink) Set(p types.TrimmedProperty, value *types.Value) error {
	body := payload{Kind: "property", Name: p.Name()}
	if value != nil {
		str := value.String()
		body.Value = &str
	}
	return s.enqueue(body)
}

// SetUserID records the user ID attached to every payload. The webhook
// contract is write-only; the ID cannot be read back.
func (s *Sink) SetUserID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = id
	return nil
}

// Close drains the pending queue, releases idle connections, and returns
// the last delivery failure the worker observed, if any. Closing twice is
// a no-op.
func (s *Sink) Close() error {
	s.mu.Lock()
	if s.client == nil || s.closed {
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
	client := s.client
	s.mu.Unlock()

	client.CloseIdleConnections()
	return err
}

// enqueue stamps the payload and hands it to the worker without waiting on
// the network. A full queue drops the delivery.
func (s *Sink) enqueue(body payload) error {
	s.mu.Lock()
	if s.client == nil {
		s.mu.Unlock()
		return fmt.Errorf("webhook: sink not started")
	}
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("webhook: sink closed")
	}
	body.UserID = s.userID
	body.Install = s.install.String()
	body.Time = time.Now().UnixMilli()
	queue := s.queue
	s.mu.Unlock()

	select {
	case queue <- body:
	default:
		return fmt.Errorf("webhook: queue full, delivery dropped")
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
	for body := range s.queue {
		if err := s.post(body); err != nil {
			s.mu.Lock()
			s.lastErr = err
			s.mu.Unlock()
		}
	}
}

func (s *Sink) post(body payload) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("webhook: failed to serialize payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.cfg.URL, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("webhook: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("X-Api-Key", s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
