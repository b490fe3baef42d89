// Package integration provides end-to-end integration tests for the Pulse
// facade over real backing stores.
package integration

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkilian/pulse"
	"github.com/arkilian/pulse/pkg/types"
	"github.com/arkilian/pulse/sink/sinktest"
	"github.com/arkilian/pulse/store"
)

func testConfig() *pulse.Config {
	cfg := pulse.DefaultConfig()
	cfg.Logger = log.New(io.Discard, "", 0)
	cfg.StartTimeout = time.Second
	cfg.AppVersion = "1.0.0"
	cfg.OSVersion = "17.2"
	return cfg
}

// runLifetime opens the SQLite store at dbPath, runs a full facade session
// against it, and closes everything again. It models one app process
// lifetime against a persistent device store.
func runLifetime(t *testing.T, dbPath string, session func(*pulse.Analytics)) *sinktest.Recorder {
	t.Helper()

	sqlite, err := store.OpenSQLite(dbPath)
	require.NoError(t, err)
	defer sqlite.Close()

	rec := sinktest.New("recorder")
	analytics, err := pulse.New(testConfig(), store.NewCached(sqlite), rec)
	require.NoError(t, err)
	defer analytics.Close()

	analytics.Start(context.Background())
	session(analytics)
	return rec
}

// TestLifecycle_FirstOpenSurvivesRestart verifies that once-per-lifetime
// bookkeeping is persisted in SQLite and not replayed when the app is
// relaunched against the same store file.
func TestLifecycle_FirstOpenSurvivesRestart(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pulse.db")

	first := runLifetime(t, dbPath, func(a *pulse.Analytics) {})
	assert.Contains(t, first.EventNames(), "pulse_first_open")

	second := runLifetime(t, dbPath, func(a *pulse.Analytics) {})
	assert.NotContains(t, second.EventNames(), "pulse_first_open")
}

// TestLifecycle_ColdLaunchCounterAccumulates checks the launch counter across
// three simulated process lifetimes.
func TestLifecycle_ColdLaunchCounterAccumulates(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pulse.db")

	var rec *sinktest.Recorder
	for i := 0; i < 3; i++ {
		rec = runLifetime(t, dbPath, func(a *pulse.Analytics) {})
	}

	var counts []string
	for _, p := range rec.Properties() {
		if p.Name == "pulse_cold_launch_count" && p.Value != nil {
			counts = append(counts, p.Value.String())
		}
	}
	require.NotEmpty(t, counts)
	assert.Equal(t, "3", counts[len(counts)-1])
}

// TestLifecycle_UserPropertiesPersist verifies that Set writes survive a
// restart and are visible through Get before Start.
func TestLifecycle_UserPropertiesPersist(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pulse.db")
	plan := types.NewProperty("plan")

	runLifetime(t, dbPath, func(a *pulse.Analytics) {
		v := types.String("premium")
		a.Set(plan, &v)
	})

	sqlite, err := store.OpenSQLite(dbPath)
	require.NoError(t, err)
	defer sqlite.Close()

	analytics, err := pulse.New(testConfig(), store.NewCached(sqlite))
	require.NoError(t, err)
	defer analytics.Close()

	got, ok := analytics.Get(plan)
	require.True(t, ok)
	assert.Equal(t, "premium", got)
}

// TestLifecycle_VersionChangeDetectedAcrossRestart simulates an app update
// between two lifetimes and expects the update marker exactly once.
func TestLifecycle_VersionChangeDetectedAcrossRestart(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pulse.db")

	open := func(version string) (*pulse.Analytics, *sinktest.Recorder, func()) {
		sqlite, err := store.OpenSQLite(dbPath)
		require.NoError(t, err)

		cfg := testConfig()
		cfg.AppVersion = version

		rec := sinktest.New("recorder")
		analytics, err := pulse.New(cfg, store.NewCached(sqlite), rec)
		require.NoError(t, err)
		analytics.Start(context.Background())

		return analytics, rec, func() {
			analytics.Close()
			sqlite.Close()
		}
	}

	_, rec1, done1 := open("1.0.0")
	assert.NotContains(t, rec1.EventNames(), "pulse_app_version_update")
	done1()

	_, rec2, done2 := open("1.1.0")
	defer done2()

	var update sinktest.TrackedEvent
	found := false
	for _, ev := range rec2.Events() {
		if ev.Name == "pulse_app_version_update" {
			update = ev
			found = true
		}
	}
	require.True(t, found)
	assert.Equal(t, "1.0.0", update.Params["previous_version"].String())
	assert.Equal(t, "1.1.0", update.Params["new_version"].String())
}
