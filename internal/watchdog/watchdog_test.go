package watchdog

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkilian/pulse/pkg/types"
)

// recordingReporter collects stuck and corrected reports.
type recordingReporter struct {
	mu        sync.Mutex
	stuck     []map[string]types.Value
	corrected []map[string]types.Value
}

func (r *recordingReporter) ReportStuck(params map[string]types.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stuck = append(r.stuck, params)
}

func (r *recordingReporter) ReportCorrected(params map[string]types.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.corrected = append(r.corrected, params)
}

func (r *recordingReporter) counts() (stuck, corrected int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stuck), len(r.corrected)
}

func viewParams(name string) map[string]types.Value {
	return map[string]types.Value{"view_name": types.String(name)}
}

func TestManager_StuckThenCorrected(t *testing.T) {
	rep := &recordingReporter{}
	m := New(rep)

	m.OnViewShow(viewParams("checkout"), 30*time.Millisecond)

	require.Eventually(t, func() bool {
		s, _ := rep.counts()
		return s == 1
	}, time.Second, 5*time.Millisecond)

	// The view transitions shortly after the stuck report, well inside the
	// correction window.
	time.Sleep(20 * time.Millisecond)
	m.OnViewShow(viewParams("home"), 0)

	s, c := rep.counts()
	assert.Equal(t, 1, s)
	require.Equal(t, 1, c)

	rep.mu.Lock()
	defer rep.mu.Unlock()
	assert.Equal(t, "checkout", rep.stuck[0]["view_name"].String())
	assert.InDelta(t, 0.030, rep.stuck[0][DurationParam].Float64Value(), 0.001)

	// Corrected duration is the initial delay plus the time since firing.
	assert.Equal(t, "checkout", rep.corrected[0]["view_name"].String())
	assert.Greater(t, rep.corrected[0][DurationParam].Float64Value(), 0.030)
}

func TestManager_SupersededBeforeFiringNeverReports(t *testing.T) {
	rep := &recordingReporter{}
	m := New(rep)

	m.OnViewShow(viewParams("splash"), 50*time.Millisecond)
	m.OnViewShow(viewParams("home"), 0)

	time.Sleep(100 * time.Millisecond)
	s, c := rep.counts()
	assert.Zero(t, s)
	assert.Zero(t, c)
}

func TestManager_CancelWhileArmed(t *testing.T) {
	rep := &recordingReporter{}
	m := New(rep)

	m.OnViewShow(viewParams("splash"), 50*time.Millisecond)
	m.Cancel()

	time.Sleep(100 * time.Millisecond)
	s, c := rep.counts()
	assert.Zero(t, s)
	assert.Zero(t, c)
}

func TestManager_CorrectionPastWindowIsSilent(t *testing.T) {
	rep := &recordingReporter{}
	m := New(rep)

	m.OnViewShow(viewParams("checkout"), 10*time.Millisecond)

	require.Eventually(t, func() bool {
		s, _ := rep.counts()
		return s == 1
	}, time.Second, 2*time.Millisecond)

	// Advance the manager's wall clock past the correction window, then
	// attempt the correction.
	m.mu.Lock()
	m.now = func() time.Time { return time.Now().Add(CorrectionWindow + 7*time.Second) }
	m.mu.Unlock()

	m.OnViewShow(viewParams("home"), 0)

	s, c := rep.counts()
	assert.Equal(t, 1, s)
	assert.Zero(t, c)
}

func TestManager_OnlyOneActiveWatch(t *testing.T) {
	rep := &recordingReporter{}
	m := New(rep)

	m.OnViewShow(viewParams("a"), 30*time.Millisecond)
	m.OnViewShow(viewParams("b"), 30*time.Millisecond)

	require.Eventually(t, func() bool {
		s, _ := rep.counts()
		return s == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(60 * time.Millisecond)
	s, _ := rep.counts()
	require.Equal(t, 1, s)

	rep.mu.Lock()
	defer rep.mu.Unlock()
	assert.Equal(t, "b", rep.stuck[0]["view_name"].String())
}

func TestManager_ZeroDelayArmsNothing(t *testing.T) {
	rep := &recordingReporter{}
	m := New(rep)

	m.OnViewShow(viewParams("home"), 0)
	time.Sleep(20 * time.Millisecond)

	s, c := rep.counts()
	assert.Zero(t, s)
	assert.Zero(t, c)
}
