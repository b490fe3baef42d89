package pulse

import (
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/arkilian/pulse/internal/faults"
	"github.com/arkilian/pulse/pkg/types"
	"github.com/arkilian/pulse/store"
)

// resolveInstallType determines how this build was distributed. The
// configuration override wins; otherwise the first computed value is
// persisted and sticky for the install's lifetime.
func (a *Analytics) resolveInstallType() types.InstallType {
	if a.cfg.InstallType != "" {
		if t, ok := types.ParseInstallType(a.cfg.InstallType); ok {
			return t
		}
	}

	key := store.Key("install", "type")
	if raw, ok := a.store.GetString(key); ok {
		if t, ok := types.ParseInstallType(raw); ok {
			return t
		}
	}

	t := detectInstallType()
	a.store.PutString(key, t.String())
	return t
}

// detectInstallType is the build heuristic used when no override or
// persisted value exists. Without platform store receipts to inspect, a
// Go host is treated as side-loaded release.
func detectInstallType() types.InstallType {
	return types.InstallSideload
}

// recordColdLaunch increments the durable cold-launch counter and mirrors
// it into the cold-launch-count user property.
func (a *Analytics) recordColdLaunch() {
	count := a.incrementCounter("coldLaunch")
	v := types.Int64(count)
	a.Set(PropertyColdLaunchCount, &v)
}

// detectVersionChanges compares the configured app and OS versions against
// the persisted ones and emits an update event for each change. First runs
// only persist, so a fresh install never reports an update.
func (a *Analytics) detectVersionChanges() {
	a.detectVersionChange("app", a.cfg.AppVersion, EventAppVersionUpdate)
	a.detectVersionChange("os", a.cfg.OSVersion, EventOSVersionUpdate)
}

func (a *Analytics) detectVersionChange(kind, current string, event types.Event) {
	if current == "" {
		return
	}

	key := store.Key("version", kind)
	previous, ok := a.store.GetString(key)
	if ok && previous != current {
		a.Track(event, map[string]types.Value{
			ParamPreviousVersion: types.String(previous),
			ParamNewVersion:      types.String(current),
		}, Always)
	}
	if previous != current {
		a.store.PutString(key, current)
	}
}

// detectFirstOpen emits the first-open marker and, only on the genuine
// first run, calculates the one-time install properties.
func (a *Analytics) detectFirstOpen(install types.InstallType) {
	recordedKey := store.Key("install", "recorded")
	firstRun := !a.store.GetBool(recordedKey, false)

	a.Track(EventFirstOpen, nil, OncePerLifetime)

	if !firstRun {
		return
	}
	a.store.PutBool(recordedKey, true)

	installType := types.String(install.String())
	a.Set(PropertyInstallType, &installType)

	installOS := types.String(runtime.GOOS)
	a.Set(PropertyInstallOS, &installOS)

	installTime := types.Int64(time.Now().Unix())
	a.Set(PropertyInstallTime, &installTime)

	if a.cfg.AppVersion != "" {
		appVersion := types.String(a.cfg.AppVersion)
		a.Set(PropertyInstallAppVersion, &appVersion)
	}
}

// OnForeground records an application foreground transition: the app-open
// event plus the durable open counter. Start implies the first foreground.
func (a *Analytics) OnForeground() {
	a.mu.Lock()
	a.foregroundAt = time.Now()
	a.mu.Unlock()

	count := a.incrementCounter("open")
	v := types.Int64(count)
	a.Set(PropertyOpenCount, &v)

	a.Track(EventAppOpen, nil, Always)
}

// OnBackground records an application background transition with the
// elapsed foreground session duration.
func (a *Analytics) OnBackground() {
	a.mu.Lock()
	since := a.foregroundAt
	a.mu.Unlock()

	params := map[string]types.Value{}
	if !since.IsZero() {
		params[ParamSessionDuration] = types.Float64(time.Since(since).Seconds())
	}
	a.Track(EventAppClose, params, Always)
}

// incrementCounter bumps a durable numeric counter and returns the new
// value. A malformed persisted counter restarts from zero.
func (a *Analytics) incrementCounter(name string) int64 {
	key := store.Key("counter", name)

	var count int64
	if raw, ok := a.store.GetString(key); ok {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			a.logger.Printf("pulse: %v", faults.State(faults.CodeMalformedCounter,
				fmt.Sprintf("counter %q held %q", name, raw)))
		} else {
			count = parsed
		}
	}

	count++
	a.store.PutString(key, strconv.FormatInt(count, 10))
	return count
}
