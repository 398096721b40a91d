package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/david082321/runtime-tracker/shared"
)

// Tracker is the usage engine: it maintains the in-memory switch log and
// battery state per device, and turns app switches into persisted hourly
// usage minutes that can be queried back in any whole-hour timezone.
type Tracker struct {
	store       Store
	log         *logrus.Logger
	now         func() time.Time
	switchLog   *SwitchLog
	distributor *distributor
	aggregator  *aggregator

	// mu guards deviceLocks. Each device lock serializes the whole
	// read-modify-write of an ingest for that device, so two reports for
	// the same device can never interleave their distribute passes.
	mu          sync.Mutex
	deviceLocks map[string]*sync.Mutex
}

type Option func(*Tracker)

func WithLogger(log *logrus.Logger) Option {
	return func(t *Tracker) {
		t.log = log
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

func NewTracker(store Store, options ...Option) *Tracker {
	t := &Tracker{
		store:       store,
		log:         logrus.StandardLogger(),
		now:         time.Now,
		switchLog:   NewSwitchLog(),
		deviceLocks: make(map[string]*sync.Mutex),
	}
	for _, option := range options {
		option(t)
	}
	t.distributor = &distributor{store: store, log: t.log}
	t.aggregator = &aggregator{store: store}
	return t
}

func (t *Tracker) lockDevice(deviceID string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	lock, ok := t.deviceLocks[deviceID]
	if !ok {
		lock = &sync.Mutex{}
		t.deviceLocks[deviceID] = lock
	}
	return lock
}

// RecordUsage ingests one app switch (or stop) for a device. The elapsed
// time since the previous running event is distributed into hourly buckets;
// the result reports how many minutes landed and how many were discarded
// as too old to backfill.
func (t *Tracker) RecordUsage(ctx context.Context, deviceID, appName string, running bool) (DistributeResult, error) {
	lock := t.lockDevice(deviceID)
	lock.Lock()
	defer lock.Unlock()

	now := t.now()
	prev, elapsedMinutes, ok := t.switchLog.RecordSwitch(deviceID, appName, running, now)
	if !ok || elapsedMinutes <= 0 {
		return DistributeResult{}, nil
	}
	return t.distributor.distribute(ctx, deviceID, prev.AppName, prev.Timestamp, elapsedMinutes)
}

// Now exposes the tracker's clock so callers resolve "today" consistently.
func (t *Tracker) Now() time.Time {
	return t.now()
}

func (t *Tracker) RecordBattery(deviceID string, level int, isCharging bool) {
	t.switchLog.RecordBattery(deviceID, level, isCharging, t.now())
}

// GetDevices reports the latest known state of every device that has sent
// at least one event, sorted by device id.
func (t *Tracker) GetDevices() []shared.DeviceStatus {
	devices := t.switchLog.Devices()
	statuses := make([]shared.DeviceStatus, 0, len(devices))
	for _, deviceID := range devices {
		latest := t.switchLog.Latest(deviceID)
		status := shared.DeviceStatus{
			Device:     deviceID,
			CurrentApp: latest.AppName,
			Running:    latest.Running,
		}
		if latest.Running {
			status.RunningSince = latest.Timestamp
		}
		if battery, ok := t.switchLog.LatestBattery(deviceID); ok {
			status.BatteryLevel = battery.Level
			status.IsCharging = battery.IsCharging
			status.BatteryTimestamp = battery.Timestamp
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// RecentSwitches returns the retained switch history for a device, newest
// first. Unknown devices get an empty list.
func (t *Tracker) RecentSwitches(deviceID string) []shared.SwitchEvent {
	return t.switchLog.Recent(deviceID)
}

func (t *Tracker) GetDailyStats(ctx context.Context, deviceID string, localDate time.Time, timezoneOffset int) (*shared.DailyStats, error) {
	return t.aggregator.dailyStats(ctx, deviceID, localDate, timezoneOffset)
}

func (t *Tracker) GetWeeklyAppStats(ctx context.Context, deviceID, appName string, weekOffset, timezoneOffset int) (*shared.WeeklyStats, error) {
	return t.aggregator.weeklyAppStats(ctx, deviceID, appName, weekOffset, timezoneOffset, t.now())
}

func (t *Tracker) GetMonthlyAppStats(ctx context.Context, deviceID, appName string, monthOffset, timezoneOffset int) (*shared.MonthlyStats, error) {
	return t.aggregator.monthlyAppStats(ctx, deviceID, appName, monthOffset, timezoneOffset, t.now())
}
