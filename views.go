package pulse

import (
	"encoding/json"
	"time"

	"github.com/arkilian/pulse/internal/faults"
	"github.com/arkilian/pulse/pkg/types"
	"github.com/arkilian/pulse/store"
)

// View describes one tracked screen show.
type View struct {
	// Name identifies the screen.
	Name string

	// Kind classifies the screen (e.g. onboarding, paywall, content).
	Kind string

	// Funnel names the funnel this screen belongs to, when any.
	Funnel string

	// Params carries extra parameters merged into the view-show event.
	Params map[string]types.Value

	// StuckAfter arms the stuck-screen watchdog: if no further view is
	// tracked within this duration, a synthetic error is reported. Zero
	// disables the watchdog for this view.
	StuckAfter time.Duration
}

// lastView is the snapshot persisted on every view-show and read back to
// attribute later events to the most recent screen.
type lastView struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Funnel string `json:"funnel"`
}

// TrackView tracks a screen show, persists the last-view snapshot, and
// drives the stuck-screen watchdog.
func (a *Analytics) TrackView(v View) {
	a.TrackViewWith(v, Always)
}

// TrackViewWith is TrackView with an explicit log condition, for screens
// that should only be counted once per session or lifetime. The watchdog
// and the last-view snapshot are driven even when the condition suppresses
// the event itself.
func (a *Analytics) TrackViewWith(v View, condition LogCondition) {
	params := v.params()

	a.saveLastView(v)
	a.watchdog.OnViewShow(params, v.StuckAfter)
	a.Track(EventViewShow, params, condition)
}

// params builds the view-show parameter map.
func (v View) params() map[string]types.Value {
	params := make(map[string]types.Value, len(v.Params)+3)
	for k, val := range v.Params {
		params[k] = val
	}
	params[ParamViewName] = types.String(v.Name)
	if v.Kind != "" {
		params[ParamViewKind] = types.String(v.Kind)
	}
	if v.Funnel != "" {
		params[ParamFunnel] = types.String(v.Funnel)
	}
	return params
}

// saveLastView persists the snapshot for attribution reads and mirrors it
// into the last-view-show user property.
func (a *Analytics) saveLastView(v View) {
	snapshot, err := json.Marshal(lastView{Name: v.Name, Kind: v.Kind, Funnel: v.Funnel})
	if err != nil {
		return
	}
	a.store.PutString(store.Key("view", "last"), string(snapshot))

	if a.ready() {
		val := types.String(string(snapshot))
		a.Set(PropertyLastViewShow, &val)
	}
}

// lastViewSnapshot reads the persisted snapshot. Malformed state is treated
// as absent.
func (a *Analytics) lastViewSnapshot() (lastView, bool) {
	raw, ok := a.store.GetString(store.Key("view", "last"))
	if !ok {
		return lastView{}, false
	}

	var snapshot lastView
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		a.logger.Printf("pulse: %v", faults.State(faults.CodeMalformedSnapshot, "last-view snapshot unreadable"))
		return lastView{}, false
	}
	return snapshot, true
}

// attributeToLastView merges last-view attribution into params without
// overriding keys the caller already supplied.
func (a *Analytics) attributeToLastView(params map[string]types.Value) map[string]types.Value {
	snapshot, ok := a.lastViewSnapshot()
	if !ok {
		return params
	}

	if params == nil {
		params = make(map[string]types.Value, 2)
	}
	if _, exists := params[ParamViewName]; !exists && snapshot.Name != "" {
		params[ParamViewName] = types.String(snapshot.Name)
	}
	if _, exists := params[ParamFunnel]; !exists && snapshot.Funnel != "" {
		params[ParamFunnel] = types.String(snapshot.Funnel)
	}
	return params
}
