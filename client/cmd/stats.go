package cmd

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/david082321/runtime-tracker/client/lib"
	"github.com/david082321/runtime-tracker/client/tctx"
	"github.com/david082321/runtime-tracker/shared"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var (
	tzFlag     int
	dateFlag   string
	offsetFlag int
	appFlag    string
)

var devicesCmd = &cobra.Command{
	Use:     "devices",
	Short:   "List every device the server has seen and what it is running",
	GroupID: GROUP_ID_STATS,
	Run: func(cmd *cobra.Command, args []string) {
		config, err := tctx.GetConfig()
		lib.CheckFatalError(err)
		respBody, err := lib.ApiGet(config, "/api/v1/devices")
		lib.CheckFatalError(err)
		var devices []shared.DeviceStatus
		lib.CheckFatalError(json.Unmarshal(respBody, &devices))
		for _, device := range devices {
			state := "idle"
			if device.Running {
				state = fmt.Sprintf("running %s since %s", device.CurrentApp, device.RunningSince.Format("15:04:05"))
			}
			line := fmt.Sprintf("%s: %s", device.Device, state)
			if device.BatteryLevel > 0 {
				charging := ""
				if device.IsCharging {
					charging = ", charging"
				}
				line += fmt.Sprintf(" (battery %d%%%s)", device.BatteryLevel, charging)
			}
			fmt.Println(line)
		}
	},
}

var dailyCmd = &cobra.Command{
	Use:     "daily",
	Short:   "Show per-hour usage for one day on this device",
	GroupID: GROUP_ID_STATS,
	Run: func(cmd *cobra.Command, args []string) {
		config, err := tctx.GetConfig()
		lib.CheckFatalError(err)
		params := url.Values{}
		params.Set("device", config.ReportedDeviceId())
		params.Set("tz", strconv.Itoa(tzFlag))
		if dateFlag != "" {
			params.Set("date", dateFlag)
		}
		respBody, err := lib.ApiGet(config, "/api/v1/daily?"+params.Encode())
		lib.CheckFatalError(err)
		var stats shared.DailyStats
		lib.CheckFatalError(json.Unmarshal(respBody, &stats))

		fmt.Printf("Total: %.2f minutes\n", stats.TotalUsage)
		apps := lo.Keys(stats.AppStats)
		sort.Slice(apps, func(i, j int) bool { return stats.AppStats[apps[i]] > stats.AppStats[apps[j]] })
		for _, app := range apps {
			fmt.Printf("  %s: %.2f minutes\n", app, stats.AppStats[app])
		}
	},
}

var weeklyCmd = &cobra.Command{
	Use:     "weekly",
	Short:   "Show per-day usage for one week on this device",
	GroupID: GROUP_ID_STATS,
	Run: func(cmd *cobra.Command, args []string) {
		stats := fetchRangeStats("/api/v1/weekly")
		fmt.Printf("Week %s to %s:\n", stats.Range.Start, stats.Range.End)
		printRangeStats(stats)
	},
}

var monthlyCmd = &cobra.Command{
	Use:     "monthly",
	Short:   "Show per-day usage for one month on this device",
	GroupID: GROUP_ID_STATS,
	Run: func(cmd *cobra.Command, args []string) {
		stats := fetchRangeStats("/api/v1/monthly")
		fmt.Printf("Month %s to %s:\n", stats.Range.Start, stats.Range.End)
		printRangeStats(stats)
	},
}

// rangeStats is the shape weekly and monthly responses share.
type rangeStats struct {
	Range         shared.DateRange
	DailyTotals   map[string]float64
	AppDailyStats map[string]map[string]float64
}

func fetchRangeStats(path string) rangeStats {
	config, err := tctx.GetConfig()
	lib.CheckFatalError(err)
	params := url.Values{}
	params.Set("device", config.ReportedDeviceId())
	params.Set("tz", strconv.Itoa(tzFlag))
	params.Set("offset", strconv.Itoa(offsetFlag))
	if appFlag != "" {
		params.Set("app", appFlag)
	}
	respBody, err := lib.ApiGet(config, path+"?"+params.Encode())
	lib.CheckFatalError(err)

	if path == "/api/v1/weekly" {
		var stats shared.WeeklyStats
		lib.CheckFatalError(json.Unmarshal(respBody, &stats))
		return rangeStats{Range: stats.WeekRange, DailyTotals: stats.DailyTotals, AppDailyStats: stats.AppDailyStats}
	}
	var stats shared.MonthlyStats
	lib.CheckFatalError(json.Unmarshal(respBody, &stats))
	return rangeStats{Range: stats.MonthRange, DailyTotals: stats.DailyTotals, AppDailyStats: stats.AppDailyStats}
}

func printRangeStats(stats rangeStats) {
	days := lo.Keys(stats.DailyTotals)
	sort.Strings(days)
	for _, day := range days {
		fmt.Printf("  %s: %.2f minutes\n", day, stats.DailyTotals[day])
	}
	apps := lo.Keys(stats.AppDailyStats)
	sort.Strings(apps)
	for _, app := range apps {
		total := 0.0
		for _, minutes := range stats.AppDailyStats[app] {
			total += minutes
		}
		fmt.Printf("  %s: %.2f minutes total\n", app, total)
	}
}

func init() {
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(dailyCmd)
	rootCmd.AddCommand(weeklyCmd)
	rootCmd.AddCommand(monthlyCmd)

	for _, c := range []*cobra.Command{dailyCmd, weeklyCmd, monthlyCmd} {
		c.Flags().IntVar(&tzFlag, "tz", 0, "Whole hour UTC offset to aggregate in")
	}
	dailyCmd.Flags().StringVar(&dateFlag, "date", "", "Day to show in YYYY-MM-DD, defaults to today")
	for _, c := range []*cobra.Command{weeklyCmd, monthlyCmd} {
		c.Flags().IntVar(&offsetFlag, "offset", 0, "How many periods back to look (0 = current)")
		c.Flags().StringVar(&appFlag, "app", "", "Restrict per-app stats to this app")
	}
}
