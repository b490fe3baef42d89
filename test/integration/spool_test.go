package integration

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkilian/pulse"
	"github.com/arkilian/pulse/pkg/types"
	"github.com/arkilian/pulse/sink/spool"
	"github.com/arkilian/pulse/store"
)

// TestSpool_FullSessionRoundTrip drives a complete session through the facade
// with a spool sink attached and reads the journal back from disk.
func TestSpool_FullSessionRoundTrip(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "pulse.db")
	spoolDir := filepath.Join(dir, "spool")

	sqlite, err := store.OpenSQLite(dbPath)
	require.NoError(t, err)
	defer sqlite.Close()

	analytics, err := pulse.New(testConfig(), store.NewCached(sqlite),
		spool.New(spool.Config{Dir: spoolDir}))
	require.NoError(t, err)

	analytics.Start(context.Background())
	analytics.TrackView(pulse.View{Name: "home", Kind: "content"})
	analytics.TrackButtonTap("subscribe", map[string]types.Value{
		"placement": types.String("header"),
	})
	plan := types.String("premium")
	analytics.Set(types.NewProperty("plan"), &plan)
	require.NoError(t, analytics.Close())

	entries, err := spool.ReadAll(spoolDir)
	require.NoError(t, err)

	byName := map[string][]spool.Entry{}
	for _, e := range entries {
		byName[e.Name] = append(byName[e.Name], e)
	}

	// Bookkeeping from a fresh install lands before the session events.
	assert.NotEmpty(t, byName["pulse_first_open"])
	require.Len(t, byName["pulse_view_show"], 1)
	assert.Equal(t, "event", byName["pulse_view_show"][0].Kind)
	assert.Equal(t, "home", byName["pulse_view_show"][0].Params["view_name"].String())

	require.Len(t, byName["pulse_button_tap"], 1)
	tap := byName["pulse_button_tap"][0]
	assert.Equal(t, "subscribe", tap.Params["button_name"].String())
	assert.Equal(t, "header", tap.Params["placement"].String())
	// Attribution to the view that was on screen.
	assert.Equal(t, "home", tap.Params["view_name"].String())

	require.Len(t, byName["plan"], 1)
	prop := byName["plan"][0]
	assert.Equal(t, "property", prop.Kind)
	require.NotNil(t, prop.Value)
	assert.Equal(t, "premium", *prop.Value)

	// Every entry carries the install type.
	for _, e := range entries {
		assert.NotEmpty(t, e.Install, "entry %s missing install type", e.Name)
	}
}

// TestSpool_ResumesAcrossRestart confirms a second lifetime appends to the
// same journal instead of clobbering it.
func TestSpool_ResumesAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "pulse.db")
	spoolDir := filepath.Join(dir, "spool")

	lifetime := func(event string) {
		sqlite, err := store.OpenSQLite(dbPath)
		require.NoError(t, err)
		defer sqlite.Close()

		analytics, err := pulse.New(testConfig(), store.NewCached(sqlite),
			spool.New(spool.Config{Dir: spoolDir}))
		require.NoError(t, err)
		analytics.Start(context.Background())
		analytics.Track(types.NewEvent(event), nil, pulse.Always)
		require.NoError(t, analytics.Close())
	}

	lifetime("session_one")
	lifetime("session_two")

	entries, err := spool.ReadAll(spoolDir)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "session_one")
	assert.Contains(t, names, "session_two")
}
