package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/david082321/runtime-tracker/shared"
)

// aggregator reconstructs local-calendar views from UTC day records. Local
// dates and instants are modeled as UTC times shifted by the caller's whole
// hour offset; only the aggregator boundary ever thinks in local time.
type aggregator struct {
	store Store
}

// dailyStats rebuilds one local calendar day. A single local day can draw
// from up to two UTC day records, and a record's bucket only contributes
// when its shifted instant still lands on the requested local date.
func (a *aggregator) dailyStats(ctx context.Context, deviceID string, localDate time.Time, timezoneOffset int) (*shared.DailyStats, error) {
	localDay := utcDay(localDate)
	utcStart := localDay.Add(-time.Duration(timezoneOffset) * time.Hour)

	queryDays := []time.Time{utcDay(utcStart)}
	if second := utcDay(utcStart.Add(24 * time.Hour)); !second.Equal(queryDays[0]) {
		queryDays = append(queryDays, second)
	}

	records, err := a.store.DayUsageForDays(ctx, deviceID, queryDays)
	if err != nil {
		return nil, fmt.Errorf("store.DayUsageForDays: %w", err)
	}

	result := &shared.DailyStats{
		AppStats:       make(map[string]float64),
		HourlyStats:    make([]float64, 24),
		AppHourlyStats: make(map[string][]float64),
		TimezoneOffset: timezoneOffset,
	}

	for _, record := range records {
		for utcHour, minutes := range record.Hours {
			if minutes == 0 {
				continue
			}

			local := record.Day.Add(time.Duration(utcHour)*time.Hour + time.Duration(timezoneOffset)*time.Hour)
			if !utcDay(local).Equal(localDay) {
				continue
			}
			localHour := local.Hour()

			// Apps enter the result lazily so zero-usage apps stay absent.
			if _, ok := result.AppStats[record.AppName]; !ok {
				result.AppStats[record.AppName] = 0
				result.AppHourlyStats[record.AppName] = make([]float64, 24)
			}

			result.HourlyStats[localHour] = round2(result.HourlyStats[localHour] + minutes)
			result.AppHourlyStats[record.AppName][localHour] = round2(result.AppHourlyStats[record.AppName][localHour] + minutes)
			result.AppStats[record.AppName] = round2(result.AppStats[record.AppName] + minutes)
			result.TotalUsage = round2(result.TotalUsage + minutes)
		}
	}

	return result, nil
}

// weeklyAppStats covers the Monday-to-Sunday week weekOffset weeks away from
// today in the caller's timezone. For the current week the end is capped at
// today, so days that have not happened yet are absent rather than zero.
func (a *aggregator) weeklyAppStats(ctx context.Context, deviceID, appName string, weekOffset, timezoneOffset int, now time.Time) (*shared.WeeklyStats, error) {
	today := localToday(now, timezoneOffset)

	start := today.AddDate(0, 0, -daysSinceMonday(today)+7*weekOffset)
	end := start.AddDate(0, 0, 6)
	if weekOffset == 0 && end.After(today) {
		end = today
	}

	dailyTotals, appDailyStats, err := a.rangeTotals(ctx, deviceID, appName, start, end, timezoneOffset)
	if err != nil {
		return nil, err
	}

	return &shared.WeeklyStats{
		WeekOffset:     weekOffset,
		WeekRange:      shared.DateRange{Start: start.Format(shared.DateOnly), End: end.Format(shared.DateOnly)},
		TimezoneOffset: timezoneOffset,
		DailyTotals:    dailyTotals,
		AppDailyStats:  appDailyStats,
	}, nil
}

// monthlyAppStats is weeklyAppStats for a whole calendar month.
func (a *aggregator) monthlyAppStats(ctx context.Context, deviceID, appName string, monthOffset, timezoneOffset int, now time.Time) (*shared.MonthlyStats, error) {
	today := localToday(now, timezoneOffset)

	start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, monthOffset, 0)
	end := start.AddDate(0, 1, -1)
	if monthOffset == 0 && end.After(today) {
		end = today
	}

	dailyTotals, appDailyStats, err := a.rangeTotals(ctx, deviceID, appName, start, end, timezoneOffset)
	if err != nil {
		return nil, err
	}

	return &shared.MonthlyStats{
		MonthOffset:    monthOffset,
		MonthRange:     shared.DateRange{Start: start.Format(shared.DateOnly), End: end.Format(shared.DateOnly)},
		TimezoneOffset: timezoneOffset,
		DailyTotals:    dailyTotals,
		AppDailyStats:  appDailyStats,
	}, nil
}

// rangeTotals folds every UTC day record that could touch the local range
// [localStart, localEnd] into per-local-date totals. dailyTotals always
// covers all apps; appDailyStats is restricted when appName is non-empty.
func (a *aggregator) rangeTotals(ctx context.Context, deviceID, appName string, localStart, localEnd time.Time, timezoneOffset int) (map[string]float64, map[string]map[string]float64, error) {
	offset := time.Duration(timezoneOffset) * time.Hour
	utcFrom := localStart.Add(-offset)
	utcTo := localEnd.AddDate(0, 0, 1).Add(-offset)

	var queryDays []time.Time
	for day := utcDay(utcFrom); day.Before(utcTo); day = day.AddDate(0, 0, 1) {
		queryDays = append(queryDays, day)
	}

	records, err := a.store.DayUsageForDays(ctx, deviceID, queryDays)
	if err != nil {
		return nil, nil, fmt.Errorf("store.DayUsageForDays: %w", err)
	}

	dailyTotals := make(map[string]float64)
	appDailyStats := make(map[string]map[string]float64)

	for _, record := range records {
		for utcHour, minutes := range record.Hours {
			if minutes == 0 {
				continue
			}

			localDate := utcDay(record.Day.Add(time.Duration(utcHour)*time.Hour + offset))
			if localDate.Before(localStart) || localDate.After(localEnd) {
				continue
			}
			key := localDate.Format(shared.DateOnly)

			dailyTotals[key] = round2(dailyTotals[key] + minutes)

			if appName != "" && record.AppName != appName {
				continue
			}
			perDay := appDailyStats[record.AppName]
			if perDay == nil {
				perDay = make(map[string]float64)
				appDailyStats[record.AppName] = perDay
			}
			perDay[key] = round2(perDay[key] + minutes)
		}
	}

	return dailyTotals, appDailyStats, nil
}

// localToday is the calendar date it currently is in the caller's timezone.
func localToday(now time.Time, timezoneOffset int) time.Time {
	return utcDay(now.UTC().Add(time.Duration(timezoneOffset) * time.Hour))
}

func daysSinceMonday(day time.Time) int {
	return (int(day.Weekday()) + 6) % 7
}
