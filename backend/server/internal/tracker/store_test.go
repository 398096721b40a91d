package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/david082321/runtime-tracker/shared"
)

// fakeStore is an in-memory Store keyed like the real unique index.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]shared.DayUsage
	upserts int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]shared.DayUsage)}
}

func storeKey(deviceID string, day time.Time, appName string) string {
	return fmt.Sprintf("%s|%s|%s", deviceID, day.Format(shared.DateOnly), appName)
}

func (s *fakeStore) DayUsageFindOne(_ context.Context, deviceID string, day time.Time, appName string) (*shared.DayUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[storeKey(deviceID, day, appName)]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (s *fakeStore) DayUsageForDays(_ context.Context, deviceID string, days []time.Time) ([]*shared.DayUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var results []*shared.DayUsage
	for _, record := range s.records {
		if record.DeviceId != deviceID {
			continue
		}
		for _, day := range days {
			if record.Day.Equal(day) {
				r := record
				results = append(results, &r)
				break
			}
		}
	}
	return results, nil
}

func (s *fakeStore) DayUsageUpsert(_ context.Context, record *shared.DayUsage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[storeKey(record.DeviceId, record.Day, record.AppName)] = *record
	s.upserts++
	return nil
}

func (s *fakeStore) seed(deviceID string, day time.Time, appName string, hours shared.HourlyMinutes) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[storeKey(deviceID, day, appName)] = shared.DayUsage{
		DeviceId: deviceID,
		Day:      day,
		AppName:  appName,
		Hours:    hours,
	}
}

func (s *fakeStore) hours(deviceID string, day time.Time, appName string) shared.HourlyMinutes {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[storeKey(deviceID, day, appName)].Hours
}
