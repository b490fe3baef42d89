package pulse

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/arkilian/pulse/internal/dispatch"
	"github.com/arkilian/pulse/internal/faults"
	"github.com/arkilian/pulse/internal/stats"
	"github.com/arkilian/pulse/internal/watchdog"
	"github.com/arkilian/pulse/pkg/types"
	"github.com/arkilian/pulse/sink"
	"github.com/arkilian/pulse/store"
)

// Analytics is the facade handle. Construct one per process with New and
// keep it for the process lifetime; there is no ambient singleton.
type Analytics struct {
	cfg      *Config
	logger   *log.Logger
	store    store.Store
	sinks    []sink.Sink
	buffer   *dispatch.Buffer
	watchdog *watchdog.Manager
	runtime  *stats.Runtime

	mu           sync.Mutex
	startCalled  bool
	started      bool
	session      map[string]struct{}
	install      types.InstallType
	foregroundAt time.Time
}

// New creates a facade over the given store and sink set. The sink order
// is the dispatch order. New returns an error only for invalid
// configuration; everything at runtime is fail-open.
func New(cfg *Config, st store.Store, sinks ...sink.Sink) (*Analytics, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	a := &Analytics{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		sinks:   sinks,
		runtime: stats.New(),
		session: make(map[string]struct{}),
	}
	a.buffer = dispatch.New(logger, a.runtime)
	a.watchdog = watchdog.New(&stuckReporter{a: a})
	return a, nil
}

// Start brings the facade to readiness. Startup bookkeeping runs first
// (analytics version, cold launch counter, version-change detection,
// first-open detection, first foreground) and queues in the buffer, so its
// markers flush ahead of anything the application tracks during startup.
// Then all sinks start concurrently, each bounded by Config.StartTimeout;
// sinks that fail, panic, or time out are excluded for the rest of the
// process. Finally the queue is flushed to the ready set in enqueue order.
// Start blocks until every sink's startup settles. Calling it twice is a
// caller error: logged, ignored.
func (a *Analytics) Start(ctx context.Context) {
	a.mu.Lock()
	if a.startCalled {
		a.mu.Unlock()
		a.logger.Printf("pulse: %v", faults.Usage(faults.CodeStartTwice, "Start already called"))
		return
	}
	a.startCalled = true
	a.started = true
	a.mu.Unlock()

	install := a.resolveInstallType()
	a.mu.Lock()
	a.install = install
	a.mu.Unlock()

	// Bookkeeping runs before the sinks are ready, so these markers enter
	// the queue ahead of anything the application tracks during startup
	// and flush first.
	version := types.String(a.cfg.AnalyticsVersion)
	a.Set(PropertyAnalyticsVersion, &version)
	a.recordColdLaunch()
	a.detectVersionChanges()
	a.detectFirstOpen(install)
	a.OnForeground()

	begin := time.Now()
	ready := a.startSinks(ctx, install)
	a.runtime.Ready(time.Since(begin))
	a.buffer.Activate(ready)
}

// startSinks starts every configured sink concurrently and returns the
// ready set in configured order.
func (a *Analytics) startSinks(ctx context.Context, install types.InstallType) []sink.Sink {
	results := make([]error, len(a.sinks))

	var wg sync.WaitGroup
	for i, s := range a.sinks {
		wg.Add(1)
		go func(i int, s sink.Sink) {
			defer wg.Done()
			results[i] = a.startOne(ctx, s, install)
		}(i, s)
	}
	wg.Wait()

	ready := make([]sink.Sink, 0, len(a.sinks))
	for i, s := range a.sinks {
		if results[i] == nil {
			ready = append(ready, s)
		}
	}
	return ready
}

// startOne runs one sink's Start under the configured timeout, containing
// errors and panics. A non-nil return means the sink is excluded.
func (a *Analytics) startOne(ctx context.Context, s sink.Sink, install types.InstallType) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.StartTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- faults.Startup(faults.CodeSinkStartPanic, s.Name(), fmt.Errorf("panic: %v", r))
			}
		}()
		if err := s.Start(ctx, install, a.store); err != nil {
			done <- faults.Startup(faults.CodeSinkStartFailed, s.Name(), err)
			return
		}
		done <- nil
	}()

	select {
	case err := <-done:
		if err != nil {
			a.logger.Printf("pulse: %v", err)
		}
		return err
	case <-ctx.Done():
		err := faults.Startup(faults.CodeSinkStartTimeout, s.Name(), ctx.Err())
		a.logger.Printf("pulse: %v", err)
		return err
	}
}

// Track dispatches one event through the pipeline: prefixing, then the log
// condition, then the caller-supplied filter, then the buffer. Events
// tracked while Start is still waiting on sink startup are queued and
// flushed once startup settles. Calling Track before Start has begun is a
// caller error: the event is dropped with a log line, never an error or
// panic.
func (a *Analytics) Track(event types.Event, params map[string]types.Value, condition LogCondition) {
	if !a.ready() {
		a.runtime.NotReady()
		a.logger.Printf("pulse: %v", faults.Usage(faults.CodeTrackBeforeStart,
			fmt.Sprintf("event %q dropped", event.Name())))
		return
	}

	effective := event.WithPrefix(a.cfg.prefixFor(event.Internal()))

	if !a.admit(effective, condition) {
		a.runtime.Suppressed()
		return
	}
	if a.cfg.Filter != nil && !a.cfg.Filter(effective, params) {
		a.runtime.FilteredOut()
		return
	}

	a.buffer.Publish(effective, params)
}

// Set persists a user property under its prefixed name and dispatches it
// to the sinks. A nil value removes the property. Log conditions never
// apply to properties: a property is idempotent state, not an occurrence.
func (a *Analytics) Set(property types.Property, value *types.Value) {
	if !a.ready() {
		a.runtime.NotReady()
		a.logger.Printf("pulse: %v", faults.Usage(faults.CodeSetBeforeStart,
			fmt.Sprintf("property %q dropped", property.Name())))
		return
	}

	effective := property.WithPrefix(a.cfg.prefixFor(property.Internal()))
	key := store.Key("userProperty", effective.Name())
	if value == nil {
		a.store.Remove(key)
	} else {
		a.store.PutString(key, value.String())
	}

	a.buffer.SetProperty(effective, value)
}

// Get reads a persisted user property by its prefixed name. It works even
// before Start.
func (a *Analytics) Get(property types.Property) (string, bool) {
	effective := property.WithPrefix(a.cfg.prefixFor(property.Internal()))
	return a.store.GetString(store.Key("userProperty", effective.Name()))
}

// Close resolves the watchdog and closes every closable ready sink in
// reverse configured order. The injected store stays open; its owner
// closes it.
func (a *Analytics) Close() error {
	a.watchdog.Cancel()

	sinks := a.buffer.Sinks()
	for i := len(sinks) - 1; i >= 0; i-- {
		if closer, ok := sinks[i].(sink.Closer); ok {
			if err := closer.Close(); err != nil {
				a.logger.Printf("pulse: failed to close sink %s: %v", sinks[i].Name(), err)
			}
		}
	}
	return nil
}

// SetUserID forwards the application user ID to every ready sink that
// accepts one. Per-sink errors are contained.
func (a *Analytics) SetUserID(id string) {
	for _, s := range a.buffer.Sinks() {
		setter, ok := s.(sink.UserIDSetter)
		if !ok {
			continue
		}
		if err := setter.SetUserID(id); err != nil {
			a.runtime.Failed(s.Name())
			a.logger.Printf("pulse: %v", faults.Dispatch(faults.CodeSetFailed, s.Name(), err))
		}
	}
}

// UserID returns the user ID from the first ready sink that can read one
// back.
func (a *Analytics) UserID() (string, bool) {
	for _, s := range a.buffer.Sinks() {
		if provider, ok := s.(sink.UserIDProvider); ok {
			if id, ok := provider.UserID(); ok {
				return id, true
			}
		}
	}
	return "", false
}

// PseudoIDs returns the pseudonymous identifier of every ready sink that
// exposes one, keyed by sink name.
func (a *Analytics) PseudoIDs() map[string]string {
	ids := make(map[string]string)
	for _, s := range a.buffer.Sinks() {
		provider, ok := s.(sink.PseudoIDProvider)
		if !ok {
			continue
		}
		id, err := provider.PseudoID()
		if err != nil {
			a.logger.Printf("pulse: failed to read pseudo ID from sink %s: %v", s.Name(), err)
			continue
		}
		ids[s.Name()] = id
	}
	return ids
}

// Stats returns a snapshot of the runtime counters.
func (a *Analytics) Stats() stats.Snapshot {
	return a.runtime.Snapshot()
}

// ready reports whether Start has begun. Dispatch before sink startup
// settles goes through the buffer's queue.
func (a *Analytics) ready() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.started
}

// admit applies the log condition. Both the lifetime and the session
// bookkeeping key on the effective (prefixed) name, so a renamed prefix
// resets both kinds of suppression together.
func (a *Analytics) admit(effective types.Event, condition LogCondition) bool {
	switch condition {
	case OncePerLifetime:
		key := store.Key("onlyOnce", effective.Name())
		if a.store.GetBool(key, false) {
			return false
		}
		a.store.PutBool(key, true)
		return true
	case OncePerSession:
		a.mu.Lock()
		defer a.mu.Unlock()
		if _, seen := a.session[effective.Name()]; seen {
			return false
		}
		a.session[effective.Name()] = struct{}{}
		return true
	default:
		return true
	}
}
