// Package s3export provides a sink that batches deliveries into JSON-lines
// objects and uploads each batch to S3. Delivery reliability beyond the
// upload call is the bucket pipeline's concern, not this sink's.
package s3export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/arkilian/pulse/pkg/types"
	"github.com/arkilian/pulse/sink"
	"github.com/arkilian/pulse/store"
)

// objectPutter is the slice of the S3 client the sink uses. Tests inject a
// fake.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// record is one JSON line in an uploaded object.
type record struct {
	Kind   string                 `json:"kind"`
	Name   string                 `json:"name"`
	Params map[string]types.Value `json:"params,omitempty"`
	Value  *string                `json:"value,omitempty"`
	Time   int64                  `json:"time"`
}

// Config holds S3 export configuration.
type Config struct {
	// Bucket is the destination bucket. Required.
	Bucket string

	// Region is the AWS region.
	Region string

	// Endpoint is an optional custom endpoint (MinIO, LocalStack).
	Endpoint string

	// UsePathStyle enables path-style addressing (required for MinIO).
	UsePathStyle bool

	// Prefix is the object key prefix. Defaults to "pulse".
	Prefix string

	// BatchSize triggers an upload once this many records are pending.
	// Defaults to 50.
	BatchSize int

	// UploadTimeout bounds each PutObject call. Defaults to 10 seconds.
	UploadTimeout time.Duration
}

// Sink batches deliveries into JSON-lines objects.
type Sink struct {
	cfg    Config
	limits sink.Limits

	mu      sync.Mutex
	client  objectPutter
	pending [][]byte
}

// New creates an S3 export sink. The client is built during Start.
func New(cfg Config) *Sink {
	return &Sink{cfg: withDefaults(cfg)}
}

// NewWithClient creates a sink over a pre-built client. Tests and callers
// with custom credential handling use it; Start then skips client
// construction.
func NewWithClient(cfg Config, client objectPutter) *Sink {
	return &Sink{cfg: withDefaults(cfg), client: client}
}

func withDefaults(cfg Config) Config {
	if cfg.Prefix == "" {
		cfg.Prefix = "pulse"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 10 * time.Second
	}
	return cfg
}

// Name identifies the sink in log lines and stats.
func (s *Sink) Name() string { return "s3export" }

// Start builds the S3 client unless one was injected.
func (s *Sink) Start(ctx context.Context, _ types.InstallType, _ store.Store) error {
	if s.cfg.Bucket == "" {
		return fmt.Errorf("s3export: bucket is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if s.cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(s.cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("s3export: failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if s.cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(s.cfg.Endpoint)
		})
	}
	if s.cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	s.client = s3.NewFromConfig(awsCfg, s3Opts...)
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

// Track buffers one event line, uploading the batch once full.
func (s *Sink) Track(e types.TrimmedEvent, params map[string]types.Value) error {
	return s.buffer(record{Kind: "event", Name: e.Name(), Params: params})
}

// Set buffers one property line, uploading the batch once full.
func (s *Sink) Set(p types.TrimmedProperty, value *types.Value) error {
	rec := record{Kind: "property", Name: p.Name()}
	if value != nil {
		str := value.String()
		rec.Value = &str
	}
	return s.buffer(rec)
}

// Close uploads any pending records.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *Sink) buffer(rec record) error {
	rec.Time = time.Now().UnixMilli()
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("s3export: failed to serialize record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return fmt.Errorf("s3export: sink not started")
	}

	s.pending = append(s.pending, line)
	if len(s.pending) >= s.cfg.BatchSize {
		return s.flushLocked()
	}
	return nil
}

// flushLocked uploads the pending batch as one JSON-lines object. Caller
// holds the lock. A failed upload drops the batch; the sink never retries.
func (s *Sink) flushLocked() error {
	if len(s.pending) == 0 || s.client == nil {
		return nil
	}

	var body bytes.Buffer
	for _, line := range s.pending {
		body.Write(line)
		body.WriteByte('\n')
	}
	s.pending = nil

	key := fmt.Sprintf("%s/%s/%s.jsonl",
		s.cfg.Prefix, time.Now().UTC().Format("2006-01-02"), uuid.New().String()[:8])

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.UploadTimeout)
	defer cancel()

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("s3export: upload failed: %w", err)
	}
	return nil
}
