package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/david082321/runtime-tracker/shared"
)

func (s *Server) apiReportHandler(w http.ResponseWriter, r *http.Request) {
	var report shared.UsageReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		panic(badRequest{fmt.Sprintf("failed to decode report: %v", err)})
	}
	if s.reportSecret != "" && report.Secret != s.reportSecret {
		http.Error(w, "invalid secret", http.StatusUnauthorized)
		return
	}
	if report.Device == "" {
		panic(badRequest{"report is missing required field device"})
	}
	if report.AppName == "" && report.Running {
		panic(badRequest{"report is missing required field app_name"})
	}

	if report.BatteryLevel >= 1 && report.BatteryLevel <= 100 {
		s.tracker.RecordBattery(report.Device, report.BatteryLevel, report.IsCharging)
	}

	result, err := s.tracker.RecordUsage(r.Context(), report.Device, report.AppName, report.Running)
	checkTrackerError(err)
	if s.statsd != nil {
		s.statsd.Incr("runtime_tracker.report", []string{"device:" + report.Device}, 1.0)
	}

	resp := shared.ReportResponse{
		Success:          true,
		Truncated:        result.Truncated,
		DiscardedMinutes: result.DiscardedMinutes,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		panic(err)
	}
}

func (s *Server) apiDevicesHandler(w http.ResponseWriter, r *http.Request) {
	if err := json.NewEncoder(w).Encode(s.tracker.GetDevices()); err != nil {
		panic(err)
	}
}

func (s *Server) apiRecentHandler(w http.ResponseWriter, r *http.Request) {
	deviceID := getRequiredQueryParam(r, "device")
	if err := json.NewEncoder(w).Encode(s.tracker.RecentSwitches(deviceID)); err != nil {
		panic(err)
	}
}

func (s *Server) apiDailyStatsHandler(w http.ResponseWriter, r *http.Request) {
	deviceID := getRequiredQueryParam(r, "device")
	timezoneOffset := getTimezoneOffsetParam(r)
	date := getDateParam(r, timezoneOffset, s.tracker.Now())

	stats, err := s.tracker.GetDailyStats(r.Context(), deviceID, date, timezoneOffset)
	checkTrackerError(err)
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		panic(err)
	}
}

func (s *Server) apiWeeklyStatsHandler(w http.ResponseWriter, r *http.Request) {
	deviceID := getRequiredQueryParam(r, "device")
	appName := r.URL.Query().Get("app")
	timezoneOffset := getTimezoneOffsetParam(r)
	weekOffset := getOffsetParam(r, "offset")

	stats, err := s.tracker.GetWeeklyAppStats(r.Context(), deviceID, appName, weekOffset, timezoneOffset)
	checkTrackerError(err)
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		panic(err)
	}
}

func (s *Server) apiMonthlyStatsHandler(w http.ResponseWriter, r *http.Request) {
	deviceID := getRequiredQueryParam(r, "device")
	appName := r.URL.Query().Get("app")
	timezoneOffset := getTimezoneOffsetParam(r)
	monthOffset := getOffsetParam(r, "offset")

	stats, err := s.tracker.GetMonthlyAppStats(r.Context(), deviceID, appName, monthOffset, timezoneOffset)
	checkTrackerError(err)
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		panic(err)
	}
}

func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if s.isProductionEnvironment {
		if err := s.db.Ping(); err != nil {
			panic(fmt.Errorf("failed to ping DB: %w", err))
		}
	}
	w.Write([]byte("OK"))
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	numRecords, err := s.db.CountDayUsageRecords(r.Context())
	checkGormError(err)
	numDevices, err := s.db.DistinctRecordedDevices(r.Context())
	checkGormError(err)
	fmt.Fprintf(w, "num_day_usage_records: %d\nnum_devices: %d\n", numRecords, numDevices)
}

func (s *Server) wipeDbEntriesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Host == "api.runtime-tracker.io" {
		panic("refusing to wipe the DB for prod")
	}
	if !s.isTestEnvironment {
		panic("refusing to wipe the DB non-test environment")
	}
	checkGormError(s.db.Unsafe_DeleteAllDayUsage(r.Context()))
	w.Write([]byte("OK"))
}
