package server

import (
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/david082321/runtime-tracker/shared"
)

func getRemoteAddr(r *http.Request) string {
	addr, ok := r.Header["X-Real-Ip"]
	if !ok || len(addr) == 0 {
		return r.RemoteAddr
	}
	return addr[0]
}

func getRequiredQueryParam(r *http.Request, queryParam string) string {
	val := r.URL.Query().Get(queryParam)
	if val == "" {
		panic(badRequest{fmt.Sprintf("request to %s is missing required query param=%#v", r.URL, queryParam)})
	}
	return val
}

// badRequest panics are translated to a 400 instead of the panic guard's 500.
type badRequest struct {
	message string
}

// getTimezoneOffsetParam parses the tz query param as a whole-hour UTC
// offset. Missing means UTC.
func getTimezoneOffsetParam(r *http.Request) int {
	val := r.URL.Query().Get("tz")
	if val == "" {
		return 0
	}
	offset, err := strconv.Atoi(val)
	if err != nil || offset < -12 || offset > 12 {
		panic(badRequest{fmt.Sprintf("invalid timezone offset %#v, expected a whole number of hours in [-12, 12]", val)})
	}
	return offset
}

// getOffsetParam parses a signed period offset (0 = current period).
func getOffsetParam(r *http.Request, queryParam string) int {
	val := r.URL.Query().Get(queryParam)
	if val == "" {
		return 0
	}
	offset, err := strconv.Atoi(val)
	if err != nil {
		panic(badRequest{fmt.Sprintf("invalid %s=%#v, expected a whole number", queryParam, val)})
	}
	return offset
}

// getDateParam parses the date query param, falling back to today in the
// requested timezone when absent.
func getDateParam(r *http.Request, timezoneOffset int, now time.Time) time.Time {
	val := r.URL.Query().Get("date")
	if val == "" {
		local := now.UTC().Add(time.Duration(timezoneOffset) * time.Hour)
		return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	}
	date, err := time.Parse(shared.DateOnly, val)
	if err != nil {
		panic(badRequest{fmt.Sprintf("invalid date %#v, expected YYYY-MM-DD", val)})
	}
	return date
}

func checkGormError(err error) {
	if err == nil {
		return
	}

	_, filename, line, _ := runtime.Caller(1)
	panic(fmt.Sprintf("DB error at %s:%d: %v", filename, line, err))
}

func checkTrackerError(err error) {
	if err == nil {
		return
	}

	_, filename, line, _ := runtime.Caller(1)
	panic(fmt.Sprintf("tracker error at %s:%d: %v", filename, line, err))
}
