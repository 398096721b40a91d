package tracker

import (
	"sort"
	"sync"
	"time"

	"github.com/david082321/runtime-tracker/shared"
	"github.com/samber/lo"
)

// Devices that never report again still keep their last 20 events around;
// the log is process-local and rebuilt empty on restart.
const maxSwitchEvents = 20

const unknownApp = "Unknown"

type deviceState struct {
	events     []shared.SwitchEvent // newest first
	battery    shared.BatteryReading
	hasBattery bool
}

func (st *deviceState) push(event shared.SwitchEvent) {
	st.events = append([]shared.SwitchEvent{event}, st.events...)
	if len(st.events) > maxSwitchEvents {
		st.events = st.events[:maxSwitchEvents]
	}
}

// SwitchLog tracks, per device, the recent app-switch events and the latest
// battery reading. Nothing in here is persisted.
type SwitchLog struct {
	mu      sync.RWMutex
	devices map[string]*deviceState
}

func NewSwitchLog() *SwitchLog {
	return &SwitchLog{devices: make(map[string]*deviceState)}
}

// RecordSwitch appends the event for deviceID and returns the previous head
// event when it described a still-running app, along with the wall-clock
// minutes that elapsed since it. The caller owes those minutes to the
// previous app, not the new one.
func (l *SwitchLog) RecordSwitch(deviceID, appName string, running bool, now time.Time) (prev shared.SwitchEvent, elapsedMinutes float64, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st := l.devices[deviceID]
	if st == nil {
		st = &deviceState{}
		l.devices[deviceID] = st
	}

	if len(st.events) > 0 && st.events[0].Running {
		prev = st.events[0]
		elapsedMinutes = preciseMinutesBetween(prev.Timestamp, now)
		ok = true
	}

	if !running {
		if len(st.events) == 0 {
			return shared.SwitchEvent{}, 0, false
		}
		st.events[0].Running = false
		st.push(shared.SwitchEvent{AppName: shared.IdleAppName, Timestamp: now, Running: false})
		return prev, elapsedMinutes, ok
	}

	st.push(shared.SwitchEvent{AppName: appName, Timestamp: now, Running: true})
	return prev, elapsedMinutes, ok
}

// Latest returns the head event for deviceID, or a not-running placeholder
// for devices that never reported.
func (l *SwitchLog) Latest(deviceID string) shared.SwitchEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	st := l.devices[deviceID]
	if st == nil || len(st.events) == 0 {
		return shared.SwitchEvent{AppName: unknownApp, Running: false}
	}
	return st.events[0]
}

// Recent returns a copy of the device's switch events, newest first.
func (l *SwitchLog) Recent(deviceID string) []shared.SwitchEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	st := l.devices[deviceID]
	if st == nil {
		return []shared.SwitchEvent{}
	}
	events := make([]shared.SwitchEvent, len(st.events))
	copy(events, st.events)
	return events
}

func (l *SwitchLog) RecordBattery(deviceID string, level int, isCharging bool, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st := l.devices[deviceID]
	if st == nil {
		st = &deviceState{}
		l.devices[deviceID] = st
	}
	st.battery = shared.BatteryReading{Level: level, IsCharging: isCharging, Timestamp: now}
	st.hasBattery = true
}

func (l *SwitchLog) LatestBattery(deviceID string) (shared.BatteryReading, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	st := l.devices[deviceID]
	if st == nil || !st.hasBattery {
		return shared.BatteryReading{}, false
	}
	return st.battery, true
}

// Devices lists every device that ever reported, sorted for stable output.
func (l *SwitchLog) Devices() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	devices := lo.Keys(l.devices)
	sort.Strings(devices)
	return devices
}
