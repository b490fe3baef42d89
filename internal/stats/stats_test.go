package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRuntime_Counters(t *testing.T) {
	r := New()

	r.EventQueued()
	r.EventQueued()
	r.PropertyQueued(true)
	r.PropertyQueued(false) // overwrite of an already-queued property
	r.NotReady()
	r.FilteredOut()
	r.Suppressed()
	r.Delivered("console")
	r.Delivered("console")
	r.Failed("webhook")

	snap := r.Snapshot()
	assert.Equal(t, int64(2), snap.QueuedEvents)
	assert.Equal(t, int64(1), snap.QueuedProperties)
	assert.Equal(t, int64(1), snap.NotReadyCalls)
	assert.Equal(t, int64(1), snap.DroppedByFilter)
	assert.Equal(t, int64(1), snap.SuppressedOnce)

	assert.Len(t, snap.Sinks, 2)
	assert.Equal(t, "console", snap.Sinks[0].Sink)
	assert.Equal(t, int64(2), snap.Sinks[0].Delivered)
	assert.Equal(t, "webhook", snap.Sinks[1].Sink)
	assert.Equal(t, int64(1), snap.Sinks[1].Failed)
}

func TestRuntime_ReadyRecordsFirstOnly(t *testing.T) {
	r := New()
	r.Ready(120 * time.Millisecond)
	r.Ready(5 * time.Second)
	assert.Equal(t, 120*time.Millisecond, r.Snapshot().TimeToReady)
}
