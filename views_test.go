package pulse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkilian/pulse/sink/sinktest"
	"github.com/arkilian/pulse/store"
)

func findEvents(rec *sinktest.Recorder, name string) []sinktest.TrackedEvent {
	var found []sinktest.TrackedEvent
	for _, e := range rec.Events() {
		if e.Name == name {
			found = append(found, e)
		}
	}
	return found
}

func TestTrackView_ParamsAndSnapshot(t *testing.T) {
	st := store.NewMemory()
	rec := sinktest.New("rec")
	a := newStarted(t, st, rec)

	a.TrackView(View{Name: "checkout", Kind: "purchase", Funnel: "buy"})

	shows := findEvents(rec, "pulse_view_show")
	require.Len(t, shows, 1)
	assert.Equal(t, "checkout", shows[0].Params[ParamViewName].String())
	assert.Equal(t, "purchase", shows[0].Params[ParamViewKind].String())
	assert.Equal(t, "buy", shows[0].Params[ParamFunnel].String())

	raw, ok := st.GetString(store.Key("view", "last"))
	require.True(t, ok)
	assert.JSONEq(t, `{"name":"checkout","kind":"purchase","funnel":"buy"}`, raw)
}

func TestTrackView_AttributionOnDerivedEvents(t *testing.T) {
	rec := sinktest.New("rec")
	a := newStarted(t, store.NewMemory(), rec)

	a.TrackView(View{Name: "library", Funnel: "reading"})
	a.TrackButtonTap("open_book", nil)
	a.TrackEngagement("scroll", nil)

	taps := findEvents(rec, "pulse_button_tap")
	require.Len(t, taps, 1)
	assert.Equal(t, "open_book", taps[0].Params[ParamButtonName].String())
	assert.Equal(t, "library", taps[0].Params[ParamViewName].String())

	engagements := findEvents(rec, "pulse_engagement")
	require.Len(t, engagements, 1)
	assert.Equal(t, "library", engagements[0].Params[ParamViewName].String())
	assert.Equal(t, "reading", engagements[0].Params[ParamFunnel].String())
}

func TestTrackView_MalformedSnapshotIgnored(t *testing.T) {
	st := store.NewMemory()
	st.PutString(store.Key("view", "last"), "{broken json")

	rec := sinktest.New("rec")
	a := newStarted(t, st, rec)

	a.TrackEngagement("scroll", nil)

	engagements := findEvents(rec, "pulse_engagement")
	require.Len(t, engagements, 1)
	_, ok := engagements[0].Params[ParamViewName]
	assert.False(t, ok)
}

func TestTrackView_StuckThenCorrected(t *testing.T) {
	rec := sinktest.New("rec")
	a := newStarted(t, store.NewMemory(), rec)

	a.TrackView(View{Name: "checkout", StuckAfter: 30 * time.Millisecond})

	require.Eventually(t, func() bool {
		return len(findEvents(rec, "pulse_error_show")) == 1
	}, time.Second, 5*time.Millisecond)

	stuck := findEvents(rec, "pulse_error_show")[0]
	assert.Equal(t, "ui", stuck.Params[ParamDomain].String())
	assert.Equal(t, "checkout", stuck.Params[ParamViewName].String())
	assert.InDelta(t, 0.030, stuck.Params[ParamDuration].Float64Value(), 0.001)

	// The next view-show, inside the correction window, reports recovery.
	time.Sleep(20 * time.Millisecond)
	a.TrackView(View{Name: "confirmation"})

	corrected := findEvents(rec, "pulse_error_corrected")
	require.Len(t, corrected, 1)
	assert.Equal(t, "checkout", corrected[0].Params[ParamViewName].String())
	assert.Greater(t, corrected[0].Params[ParamDuration].Float64Value(), 0.030)
}

func TestTrackView_SupersededBeforeFiring(t *testing.T) {
	rec := sinktest.New("rec")
	a := newStarted(t, store.NewMemory(), rec)

	a.TrackView(View{Name: "splash", StuckAfter: 50 * time.Millisecond})
	time.Sleep(10 * time.Millisecond)
	a.TrackView(View{Name: "home"})

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, findEvents(rec, "pulse_error_show"))
	assert.Empty(t, findEvents(rec, "pulse_error_corrected"))
}

func TestTrackViewWith_OncePerSessionStillDrivesWatchdog(t *testing.T) {
	rec := sinktest.New("rec")
	a := newStarted(t, store.NewMemory(), rec)

	a.TrackViewWith(View{Name: "home"}, OncePerSession)
	a.TrackViewWith(View{Name: "home"}, OncePerSession)

	assert.Len(t, findEvents(rec, "pulse_view_show"), 1)

	// The suppressed second call still refreshed the snapshot.
	raw, ok := a.Get(PropertyLastViewShow)
	require.True(t, ok)
	assert.Contains(t, raw, "home")
}
