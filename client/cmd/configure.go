package cmd

import (
	"fmt"

	"github.com/david082321/runtime-tracker/client/lib"
	"github.com/david082321/runtime-tracker/client/tctx"

	"github.com/spf13/cobra"
)

var (
	serverUrlFlag  *string
	secretFlag     *string
	deviceNameFlag *string
)

var initCmd = &cobra.Command{
	Use:     "init",
	Short:   "Initialize runtime-tracker on this device, minting a device ID on first run",
	GroupID: GROUP_ID_CONFIG,
	Run: func(cmd *cobra.Command, args []string) {
		config, err := tctx.InitConfig(*serverUrlFlag, *secretFlag, *deviceNameFlag)
		lib.CheckFatalError(err)
		fmt.Printf("Device ID: %s\n", config.DeviceId)
	},
}

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "View the device ID and server this device reports to",
	GroupID: GROUP_ID_CONFIG,
	Run: func(cmd *cobra.Command, args []string) {
		config, err := tctx.GetConfig()
		lib.CheckFatalError(err)
		fmt.Printf("runtime-tracker: v0.%s\n", lib.Version)
		fmt.Printf("Device ID: %s\n", config.DeviceId)
		if config.DeviceName != "" {
			fmt.Printf("Device Name: %s\n", config.DeviceName)
		}
		fmt.Printf("Server: %s\n", lib.GetServerHostname(config))
		fmt.Printf("Commit Hash: %s\n", lib.GitCommit)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	serverUrlFlag = initCmd.Flags().String("server-url", "", "Base URL of the runtime-tracker server")
	secretFlag = initCmd.Flags().String("secret", "", "Shared secret attached to every report")
	deviceNameFlag = initCmd.Flags().String("device-name", "", "Human readable name to report instead of the device ID")
}
