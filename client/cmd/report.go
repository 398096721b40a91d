package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/david082321/runtime-tracker/client/lib"
	"github.com/david082321/runtime-tracker/client/tctx"
	"github.com/david082321/runtime-tracker/shared"

	"github.com/spf13/cobra"
)

var (
	batteryLevel int
	isCharging   bool
)

var reportCmd = &cobra.Command{
	Use:     "report app_name",
	Short:   "Report the app currently in the foreground on this device",
	GroupID: GROUP_ID_REPORTING,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		lib.CheckFatalError(sendReport(args[0], true))
	},
}

var stopCmd = &cobra.Command{
	Use:     "stop",
	Short:   "Report that this device went idle",
	GroupID: GROUP_ID_REPORTING,
	Run: func(cmd *cobra.Command, args []string) {
		lib.CheckFatalError(sendReport("", false))
	},
}

func sendReport(appName string, running bool) error {
	config, err := tctx.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to load config, try running `runtime-tracker init`: %w", err)
	}
	report := shared.UsageReport{
		Secret:       config.Secret,
		Device:       config.ReportedDeviceId(),
		AppName:      appName,
		Running:      running,
		BatteryLevel: batteryLevel,
		IsCharging:   isCharging,
	}
	reqBody, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize the report: %w", err)
	}
	respBody, err := lib.ApiPost(config, "/api/v1/report", "application/json", reqBody)
	if err != nil {
		if lib.IsOfflineError(err) {
			tctx.GetLogger().Warnf("Failed to report usage because the device is offline")
			return nil
		}
		return err
	}
	var resp shared.ReportResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return fmt.Errorf("failed to parse the report response: %w", err)
	}
	if resp.Truncated {
		fmt.Printf("Warning: the server discarded %.2f minutes as too old to backfill\n", resp.DiscardedMinutes)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(stopCmd)
	for _, c := range []*cobra.Command{reportCmd, stopCmd} {
		c.Flags().IntVar(&batteryLevel, "battery", 0, "Current battery percentage in [1, 100], 0 to omit")
		c.Flags().BoolVar(&isCharging, "charging", false, "Whether the device is currently charging")
	}
}
