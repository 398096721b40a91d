package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/david082321/runtime-tracker/backend/server/internal/database"
	"github.com/david082321/runtime-tracker/backend/server/internal/tracker"
	"github.com/david082321/runtime-tracker/shared"
)

var DB *database.DB

const testDBDSN = "file::memory:?_journal_mode=WAL&cache=shared"

func TestMain(m *testing.M) {
	// setup test database
	db, err := database.OpenSQLite(testDBDSN, &gorm.Config{})
	if err != nil {
		panic(fmt.Errorf("failed to connect to the DB: %w", err))
	}
	underlyingDb, err := db.DB.DB()
	if err != nil {
		panic(fmt.Errorf("failed to access underlying DB: %w", err))
	}
	underlyingDb.SetMaxOpenConns(1)
	db.Exec("PRAGMA journal_mode = WAL")
	if err := db.AddDatabaseTables(); err != nil {
		panic(fmt.Errorf("failed to add database tables: %w", err))
	}
	if err := db.CreateIndices(); err != nil {
		panic(fmt.Errorf("failed to create indices: %w", err))
	}

	DB = db

	os.Exit(m.Run())
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func newTestServer(t *testing.T, clock *testClock, options ...Option) *Server {
	t.Helper()
	require.NoError(t, DB.Unsafe_DeleteAllDayUsage(context.Background()))
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	usageTracker := tracker.NewTracker(DB, tracker.WithClock(clock.Now), tracker.WithLogger(log))
	options = append([]Option{IsTestEnvironment(true), WithLogger(log)}, options...)
	return NewServer(DB, usageTracker, options...)
}

func postReport(t *testing.T, s *Server, report shared.UsageReport) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(report)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/report", bytes.NewReader(body))
	s.apiReportHandler(w, req)
	return w
}

func TestReportThenDailyStats(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
	s := newTestServer(t, clock)

	w := postReport(t, s, shared.UsageReport{Device: "laptop", AppName: "vscode", Running: true})
	require.Equal(t, http.StatusOK, w.Code)
	var resp shared.ReportResponse
	require.NoError(t, json.NewDecoder(w.Result().Body).Decode(&resp))
	require.True(t, resp.Success)
	require.False(t, resp.Truncated)

	clock.now = clock.now.Add(45 * time.Minute)
	w = postReport(t, s, shared.UsageReport{Device: "laptop", AppName: "vscode", Running: false})
	require.Equal(t, http.StatusOK, w.Code)

	statsReq := httptest.NewRequest(http.MethodGet, "/api/v1/daily?device=laptop&date=2024-01-01", nil)
	statsW := httptest.NewRecorder()
	s.apiDailyStatsHandler(statsW, statsReq)
	require.Equal(t, http.StatusOK, statsW.Code)

	var stats shared.DailyStats
	require.NoError(t, json.NewDecoder(statsW.Result().Body).Decode(&stats))
	require.Equal(t, 45.0, stats.TotalUsage)
	require.Equal(t, 45.0, stats.AppStats["vscode"])
	require.Equal(t, 45.0, stats.HourlyStats[10])
}

func TestReportRequiresSecret(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
	s := newTestServer(t, clock, WithReportSecret("hunter2"))

	w := postReport(t, s, shared.UsageReport{Device: "laptop", AppName: "vscode", Running: true})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = postReport(t, s, shared.UsageReport{Secret: "hunter2", Device: "laptop", AppName: "vscode", Running: true})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestReportValidation(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
	s := newTestServer(t, clock)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	guarded := withPanicGuard(log)(http.HandlerFunc(s.apiReportHandler))

	body, err := json.Marshal(shared.UsageReport{AppName: "vscode", Running: true})
	require.NoError(t, err)
	w := httptest.NewRecorder()
	guarded.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/report", bytes.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, w.Code)

	body, err = json.Marshal(shared.UsageReport{Device: "laptop", Running: true})
	require.NoError(t, err)
	w = httptest.NewRecorder()
	guarded.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/report", bytes.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDevicesAndRecentEndpoints(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
	s := newTestServer(t, clock)

	postReport(t, s, shared.UsageReport{Device: "laptop", AppName: "vscode", Running: true, BatteryLevel: 88, IsCharging: true})
	clock.now = clock.now.Add(5 * time.Minute)
	postReport(t, s, shared.UsageReport{Device: "laptop", AppName: "firefox", Running: true})

	w := httptest.NewRecorder()
	s.apiDevicesHandler(w, httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var devices []shared.DeviceStatus
	require.NoError(t, json.NewDecoder(w.Result().Body).Decode(&devices))
	require.Len(t, devices, 1)
	require.Equal(t, "laptop", devices[0].Device)
	require.Equal(t, "firefox", devices[0].CurrentApp)
	require.True(t, devices[0].Running)
	require.Equal(t, 88, devices[0].BatteryLevel)
	require.True(t, devices[0].IsCharging)

	w = httptest.NewRecorder()
	s.apiRecentHandler(w, httptest.NewRequest(http.MethodGet, "/api/v1/recent?device=laptop", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var events []shared.SwitchEvent
	require.NoError(t, json.NewDecoder(w.Result().Body).Decode(&events))
	require.Len(t, events, 2)
	require.Equal(t, "firefox", events[0].AppName)
	require.Equal(t, "vscode", events[1].AppName)
}

func TestWeeklyStatsEndpoint(t *testing.T) {
	// 2024-01-10 is a Wednesday
	clock := &testClock{now: time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)}
	s := newTestServer(t, clock)

	postReport(t, s, shared.UsageReport{Device: "laptop", AppName: "vscode", Running: true})
	clock.now = clock.now.Add(20 * time.Minute)
	postReport(t, s, shared.UsageReport{Device: "laptop", AppName: "vscode", Running: false})

	w := httptest.NewRecorder()
	s.apiWeeklyStatsHandler(w, httptest.NewRequest(http.MethodGet, "/api/v1/weekly?device=laptop", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var stats shared.WeeklyStats
	require.NoError(t, json.NewDecoder(w.Result().Body).Decode(&stats))
	require.Equal(t, shared.DateRange{Start: "2024-01-08", End: "2024-01-10"}, stats.WeekRange)
	require.Equal(t, map[string]float64{"2024-01-10": 20}, stats.DailyTotals)
}

func TestMonthlyStatsEndpoint(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 2, 15, 12, 0, 0, 0, time.UTC)}
	s := newTestServer(t, clock)

	postReport(t, s, shared.UsageReport{Device: "laptop", AppName: "vscode", Running: true})
	clock.now = clock.now.Add(90 * time.Minute)
	postReport(t, s, shared.UsageReport{Device: "laptop", AppName: "vscode", Running: false})

	w := httptest.NewRecorder()
	s.apiMonthlyStatsHandler(w, httptest.NewRequest(http.MethodGet, "/api/v1/monthly?device=laptop&app=vscode", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var stats shared.MonthlyStats
	require.NoError(t, json.NewDecoder(w.Result().Body).Decode(&stats))
	require.Equal(t, shared.DateRange{Start: "2024-02-01", End: "2024-02-15"}, stats.MonthRange)
	require.Equal(t, map[string]float64{"2024-02-15": 90}, stats.DailyTotals)
	require.Equal(t, map[string]float64{"2024-02-15": 90}, stats.AppDailyStats["vscode"])
}

func TestInvalidTimezoneOffsetIsRejected(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
	s := newTestServer(t, clock)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	guarded := withPanicGuard(log)(http.HandlerFunc(s.apiDailyStatsHandler))

	for _, tz := range []string{"13", "-13", "abc"} {
		w := httptest.NewRecorder()
		guarded.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/daily?device=laptop&tz="+tz, nil))
		require.Equal(t, http.StatusBadRequest, w.Code, "tz=%s", tz)
	}
}

func TestHealthcheck(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
	s := newTestServer(t, clock)

	w := httptest.NewRecorder()
	s.healthCheckHandler(w, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "OK", w.Body.String())
}

func TestStatsHandlerCountsRecordsAndDevices(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
	s := newTestServer(t, clock)

	for _, device := range []string{"laptop", "phone"} {
		postReport(t, s, shared.UsageReport{Device: device, AppName: "vscode", Running: true})
	}
	clock.now = clock.now.Add(10 * time.Minute)
	for _, device := range []string{"laptop", "phone"} {
		postReport(t, s, shared.UsageReport{Device: device, AppName: "vscode", Running: false})
	}

	w := httptest.NewRecorder()
	s.statsHandler(w, httptest.NewRequest(http.MethodGet, "/internal/api/v1/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "num_day_usage_records: 2")
	require.Contains(t, w.Body.String(), "num_devices: 2")
}

func TestWipeDbEntries(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
	s := newTestServer(t, clock)

	postReport(t, s, shared.UsageReport{Device: "laptop", AppName: "vscode", Running: true})
	clock.now = clock.now.Add(10 * time.Minute)
	postReport(t, s, shared.UsageReport{Device: "laptop", AppName: "vscode", Running: false})

	numRecords, err := DB.CountDayUsageRecords(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), numRecords)

	w := httptest.NewRecorder()
	s.wipeDbEntriesHandler(w, httptest.NewRequest(http.MethodGet, "/api/v1/wipe-db-entries", nil))
	require.Equal(t, http.StatusOK, w.Code)

	numRecords, err = DB.CountDayUsageRecords(context.Background())
	require.NoError(t, err)
	require.Zero(t, numRecords)
}
