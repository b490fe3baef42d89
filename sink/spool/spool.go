// Package spool provides a sink that journals every delivery to local
// disk. Segments are length+CRC framed with snappy-compressed JSON
// payloads, rotated by size, and pruned by a background janitor once they
// exceed the retention period. The spool is the offline backend: a later
// uploader can drain it without the application linking any network SDK.
package spool

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang/snappy"

	"github.com/arkilian/pulse/pkg/types"
	"github.com/arkilian/pulse/sink"
	"github.com/arkilian/pulse/store"
)

// Entry is one journaled delivery.
type Entry struct {
	// Kind is "event" or "property".
	Kind string `json:"kind"`

	// Name is the trimmed event or property name.
	Name string `json:"name"`

	// Params carries event parameters; empty for properties.
	Params map[string]types.Value `json:"params,omitempty"`

	// Value is the property value; nil means cleared.
	Value *string `json:"value,omitempty"`

	// Time is the delivery time in unix milliseconds.
	Time int64 `json:"time"`

	// Install is the install type active when the spool started.
	Install string `json:"install"`
}

// Config holds spool sink configuration.
type Config struct {
	// Dir is the journal directory.
	Dir string

	// MaxSegmentSize rotates the active segment once it exceeds this many
	// bytes. Defaults to 4 MiB.
	MaxSegmentSize int64

	// Retention is how long closed segments are kept. Defaults to 7 days.
	Retention time.Duration

	// PruneInterval is the janitor cadence. Defaults to 1 minute.
	PruneInterval time.Duration
}

// Sink journals deliveries to disk.
type Sink struct {
	cfg    Config
	limits sink.Limits

	mu        sync.Mutex
	segment   *os.File
	segmentID uint64
	offset    int64
	install   types.InstallType

	janitorStop chan struct{}
	janitorDone chan struct{}
}

// New creates a spool sink. Start creates the directory and opens the
// journal.
func New(cfg Config) *Sink {
	if cfg.MaxSegmentSize <= 0 {
		cfg.MaxSegmentSize = 4 * 1024 * 1024
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 7 * 24 * time.Hour
	}
	if cfg.PruneInterval <= 0 {
		cfg.PruneInterval = time.Minute
	}
	return &Sink{cfg: cfg}
}

// Name identifies the sink in log lines and stats.
func (s *Sink) Name() string { return "spool" }

// Start opens the journal directory, resumes the highest existing segment,
// and launches the retention janitor.
func (s *Sink) Start(_ context.Context, install types.InstallType, _ store.Store) error {
	if s.cfg.Dir == "" {
		return fmt.Errorf("spool: directory is required")
	}
	if err := os.MkdirAll(s.cfg.Dir, 0755); err != nil {
		return fmt.Errorf("spool: failed to create directory: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.install = install
	if err := s.findLastSegment(); err != nil {
		return err
	}
	if err := s.openSegment(); err != nil {
		return err
	}

	s.janitorStop = make(chan struct{})
	s.janitorDone = make(chan struct{})
	go s.janitor()

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

// Track journals one event.
func (s *Sink) Track(e types.TrimmedEvent, params map[string]types.Value) error {
	return s.append(Entry{Kind: "event", Name: e.Name(), Params: params})
}

// Set journals one property change.
func (s *Sink) Set(p types.TrimmedProperty, value *types.Value) error {
	entry := Entry{Kind: "property", Name: p.Name()}
	if value != nil {
		str := value.String()
		entry.Value = &str
	}
	return s.append(entry)
}

// Close stops the janitor and closes the active segment.
func (s *Sink) Close() error {
	s.mu.Lock()
	stop, done := s.janitorStop, s.janitorDone
	s.janitorStop = nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.segment == nil {
		return nil
	}
	err := s.segment.Close()
	s.segment = nil
	return err
}

// append serializes one entry and writes a framed record:
// [length:4 LE][crc32:4 LE][snappy(json)].
func (s *Sink) append(entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.segment == nil {
		return fmt.Errorf("spool: sink not started")
	}

	entry.Time = time.Now().UnixMilli()
	entry.Install = s.install.String()

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("spool: failed to serialize entry: %w", err)
	}
	payload := snappy.Encode(nil, raw)

	var header [8]byte
	binary.LittleEndian.PutUint32(header[0:4], uint32(len(payload)))
	binary.LittleEndian.PutUint32(header[4:8], crc32.ChecksumIEEE(payload))

	if _, err := s.segment.Write(header[:]); err != nil {
		return fmt.Errorf("spool: failed to write header: %w", err)
	}
	if _, err := s.segment.Write(payload); err != nil {
		return fmt.Errorf("spool: failed to write payload: %w", err)
	}

	s.offset += int64(len(header) + len(payload))
	if s.offset >= s.cfg.MaxSegmentSize {
		return s.rotateSegment()
	}
	return nil
}

// findLastSegment resumes the highest segment ID on disk. Caller holds the
// lock.
func (s *Sink) findLastSegment() error {
	files, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		return fmt.Errorf("spool: failed to read directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		var id uint64
		if _, err := fmt.Sscanf(file.Name(), "spool_%016x.log", &id); err == nil && id > s.segmentID {
			s.segmentID = id
		}
	}
	return nil
}

// openSegment opens the active segment for appending. Caller holds the
// lock.
func (s *Sink) openSegment() error {
	path := s.segmentPath(s.segmentID)
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("spool: failed to open segment: %w", err)
	}

	offset, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		file.Close()
		return fmt.Errorf("spool: failed to seek segment: %w", err)
	}

	s.segment = file
	s.offset = offset
	return nil
}

// rotateSegment closes the active segment and opens the next one. Caller
// holds the lock.
func (s *Sink) rotateSegment() error {
	if err := s.segment.Close(); err != nil {
		return fmt.Errorf("spool: failed to close segment: %w", err)
	}
	s.segmentID++
	return s.openSegment()
}

func (s *Sink) segmentPath(id uint64) string {
	return filepath.Join(s.cfg.Dir, fmt.Sprintf("spool_%016x.log", id))
}

// janitor prunes closed segments past the retention period on a ticker.
func (s *Sink) janitor() {
	defer close(s.janitorDone)

	ticker := time.NewTicker(s.cfg.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.janitorStop:
			return
		case <-ticker.C:
			s.pruneOnce()
		}
	}
}

// pruneOnce removes every closed segment whose modification time is older
// than the retention period. The active segment is never pruned.
func (s *Sink) pruneOnce() {
	s.mu.Lock()
	activeID := s.segmentID
	s.mu.Unlock()

	files, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		return
	}

	cutoff := time.Now().Add(-s.cfg.Retention)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		var id uint64
		if _, err := fmt.Sscanf(file.Name(), "spool_%016x.log", &id); err != nil || id == activeID {
			continue
		}
		info, err := file.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		os.Remove(filepath.Join(s.cfg.Dir, file.Name()))
	}
}

// ReadAll decodes every journaled entry under dir, in segment and record
// order. Records with a checksum mismatch are skipped, and a truncated
// record at the tail of a segment ends that segment without losing the
// records before it. Drainers and tests use it; the sink itself never
// reads.
func ReadAll(dir string) ([]Entry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("spool: failed to read directory: %w", err)
	}

	var names []string
	for _, file := range files {
		if !file.IsDir() && strings.HasPrefix(file.Name(), "spool_") {
			names = append(names, file.Name())
		}
	}
	sort.Strings(names)

	var entries []Entry
	for _, name := range names {
		segment, err := readSegment(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		entries = append(entries, segment...)
	}
	return entries, nil
}

func readSegment(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("spool: failed to open segment: %w", err)
	}
	defer file.Close()

	var entries []Entry
	for {
		var header [8]byte
		if _, err := io.ReadFull(file, header[:]); err != nil {
			// A torn header is a crash mid-append; everything before it
			// is intact.
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, fmt.Errorf("spool: failed to read header: %w", err)
		}

		length := binary.LittleEndian.Uint32(header[0:4])
		crc := binary.LittleEndian.Uint32(header[4:8])

		payload := make([]byte, length)
		if _, err := io.ReadFull(file, payload); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, fmt.Errorf("spool: failed to read payload: %w", err)
		}
		if crc32.ChecksumIEEE(payload) != crc {
			continue
		}

		raw, err := snappy.Decode(nil, payload)
		if err != nil {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
