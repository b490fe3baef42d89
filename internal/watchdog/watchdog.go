// Package watchdog detects screens the application failed to leave within
// an expected duration, and whether it later self-corrected. One watch is
// active per facade instance; each tracked view-show supersedes the
// previous watch.
package watchdog

import (
	"sync"
	"time"

	"github.com/arkilian/pulse/pkg/types"
)

// CorrectionWindow is the grace period after a stuck report during which a
// subsequent view transition still counts as a correction. Fixed by the
// event taxonomy; changing it would skew stuck/corrected ratios downstream.
const CorrectionWindow = 30 * time.Second

// DurationParam is the parameter key carrying the stuck or corrected
// duration in seconds.
const DurationParam = "duration"

// Reporter receives the synthetic reports a watch produces. The facade's
// error helpers implement it.
type Reporter interface {
	// ReportStuck is called once when the timer fires with the view still
	// showing. params carry the view attribution plus a duration in seconds.
	ReportStuck(params map[string]types.Value)

	// ReportCorrected is called once if the view transitions within the
	// correction window after a stuck report.
	ReportCorrected(params map[string]types.Value)
}

// watch is the per-view-show state machine: armed until the timer fires or
// the watch is superseded; after firing it awaits one correction check.
type watch struct {
	params    map[string]types.Value
	delay     time.Duration
	timer     *time.Timer
	fired     bool
	firedAt   time.Time
	cancelled bool
}

// Manager owns the single active watch for one facade instance.
type Manager struct {
	mu       sync.Mutex
	reporter Reporter
	current  *watch
	now      func() time.Time
}

// New creates a Manager reporting through reporter.
func New(reporter Reporter) *Manager {
	return &Manager{reporter: reporter, now: time.Now}
}

// OnViewShow resolves any previous watch (correction check, then cancel)
// and arms a new one when delay is positive. A zero delay only resolves
// the previous watch.
func (m *Manager) OnViewShow(params map[string]types.Value, delay time.Duration) {
	m.mu.Lock()
	correction := m.resolveLocked()
	if delay > 0 {
		w := &watch{params: copyParams(params), delay: delay}
		w.timer = time.AfterFunc(delay, func() { m.fire(w) })
		m.current = w
	}
	m.mu.Unlock()

	// The reporter feeds back into the facade, so it runs unlocked.
	if correction != nil {
		m.reporter.ReportCorrected(correction)
	}
}

// Cancel resolves the active watch without arming a new one: armed watches
// are disarmed and never report; fired watches get their correction check
// before being discarded.
func (m *Manager) Cancel() {
	m.mu.Lock()
	correction := m.resolveLocked()
	m.mu.Unlock()

	if correction != nil {
		m.reporter.ReportCorrected(correction)
	}
}

// resolveLocked finishes the current watch and returns the parameters of a
// correction report to send, or nil. An armed watch has its timer stopped
// so no stuck report is ever sent. A fired watch corrects only within the
// window; past it the watch ends silently. The window check is a plain
// wall-clock comparison, not another timer. Caller holds the lock.
func (m *Manager) resolveLocked() map[string]types.Value {
	w := m.current
	if w == nil {
		return nil
	}
	m.current = nil

	if !w.fired {
		w.cancelled = true
		w.timer.Stop()
		return nil
	}

	elapsed := m.now().Sub(w.firedAt)
	if elapsed > CorrectionWindow {
		return nil
	}

	params := copyParams(w.params)
	params[DurationParam] = types.Float64((w.delay + elapsed).Seconds())
	return params
}

// fire runs on the timer goroutine when the delay elapses with the watch
// still armed.
func (m *Manager) fire(w *watch) {
	m.mu.Lock()
	if w.cancelled || w.fired {
		m.mu.Unlock()
		return
	}
	w.fired = true
	w.firedAt = m.now()

	params := copyParams(w.params)
	params[DurationParam] = types.Float64(w.delay.Seconds())
	m.mu.Unlock()

	m.reporter.ReportStuck(params)
}

func copyParams(params map[string]types.Value) map[string]types.Value {
	copied := make(map[string]types.Value, len(params)+1)
	for k, v := range params {
		copied[k] = v
	}
	return copied
}
