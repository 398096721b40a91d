package shared

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	DateOnly = "2006-01-02"

	// Synthetic app name recorded when a device reports that it stopped
	// running anything.
	IdleAppName = "idle"
)

// HourlyMinutes holds one minute counter per UTC hour-of-day. It is stored as
// a JSON array in a single column.
type HourlyMinutes [24]float64

func (h *HourlyMinutes) Scan(value interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("failed to unmarshal hourly minutes value: %v", value)
	}

	result := HourlyMinutes{}
	err := json.Unmarshal(bytes, &result)
	*h = result
	return err
}

func (h HourlyMinutes) Value() (driver.Value, error) {
	return json.Marshal(h)
}

func (h HourlyMinutes) Total() float64 {
	var total float64
	for _, m := range h {
		total += m
	}
	return total
}

// DayUsage is the persisted usage record for one (device, UTC date, app)
// tuple. Day is always midnight UTC of the calendar date the hours belong to.
type DayUsage struct {
	DeviceId string        `json:"device_id" gorm:"not null; uniqueIndex:dayUsageUniqueIndex"`
	Day      time.Time     `json:"day" gorm:"not null; uniqueIndex:dayUsageUniqueIndex"`
	AppName  string        `json:"app_name" gorm:"not null; uniqueIndex:dayUsageUniqueIndex"`
	Hours    HourlyMinutes `json:"hours" gorm:"type:text"`
}

// SwitchEvent is one entry in a device's in-memory switch log. Running=false
// marks an idle sentinel rather than a usage interval.
type SwitchEvent struct {
	AppName   string    `json:"appName"`
	Timestamp time.Time `json:"timestamp"`
	Running   bool      `json:"running"`
}

type BatteryReading struct {
	Level      int       `json:"level"`
	IsCharging bool      `json:"isCharging"`
	Timestamp  time.Time `json:"timestamp"`
}

// UsageReport is the body devices POST on every app switch, stop, or
// heartbeat. The field names are the wire format the reporter agents send.
type UsageReport struct {
	Secret       string `json:"secret"`
	Device       string `json:"device"`
	AppName      string `json:"app_name"`
	Running      bool   `json:"running"`
	BatteryLevel int    `json:"batteryLevel"`
	IsCharging   bool   `json:"isCharging"`
}

// ReportResponse surfaces whether the distributor hit its backlog cutoff and
// had to discard part of the reported interval.
type ReportResponse struct {
	Success          bool    `json:"success"`
	Truncated        bool    `json:"truncated,omitempty"`
	DiscardedMinutes float64 `json:"discardedMinutes,omitempty"`
}

type DeviceStatus struct {
	Device           string    `json:"device"`
	CurrentApp       string    `json:"currentApp"`
	Running          bool      `json:"running"`
	RunningSince     time.Time `json:"runningSince"`
	BatteryLevel     int       `json:"batteryLevel"`
	IsCharging       bool      `json:"isCharging"`
	BatteryTimestamp time.Time `json:"batteryTimestamp"`
}

// DailyStats is one local calendar day reconstructed from UTC hour buckets.
// Apps appear in the maps only when they contributed at least one in-range
// bucket, so an app with zero usage is absent rather than zero.
type DailyStats struct {
	TotalUsage     float64              `json:"totalUsage"`
	AppStats       map[string]float64   `json:"appStats"`
	HourlyStats    []float64            `json:"hourlyStats"`
	AppHourlyStats map[string][]float64 `json:"appHourlyStats"`
	TimezoneOffset int                  `json:"timezoneOffset"`
}

// DateRange bounds are local calendar dates formatted as YYYY-MM-DD, both
// inclusive.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type WeeklyStats struct {
	WeekOffset     int                           `json:"weekOffset"`
	WeekRange      DateRange                     `json:"weekRange"`
	TimezoneOffset int                           `json:"timezoneOffset"`
	DailyTotals    map[string]float64            `json:"dailyTotals"`
	AppDailyStats  map[string]map[string]float64 `json:"appDailyStats"`
}

type MonthlyStats struct {
	MonthOffset    int                           `json:"monthOffset"`
	MonthRange     DateRange                     `json:"monthRange"`
	TimezoneOffset int                           `json:"timezoneOffset"`
	DailyTotals    map[string]float64            `json:"dailyTotals"`
	AppDailyStats  map[string]map[string]float64 `json:"appDailyStats"`
}
