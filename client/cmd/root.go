package cmd

import (
	"os"

	"github.com/david082321/runtime-tracker/client/lib"

	"github.com/spf13/cobra"
)

var GROUP_ID_REPORTING string = "group_id:reporting"
var GROUP_ID_STATS string = "group_id:stats"
var GROUP_ID_CONFIG string = "group_id:config"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "runtime-tracker",
	Short: "runtime-tracker: Track per-device app usage over time",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(&cobra.Group{ID: GROUP_ID_REPORTING, Title: "Usage Reporting"})
	rootCmd.AddGroup(&cobra.Group{ID: GROUP_ID_STATS, Title: "Usage Statistics"})
	rootCmd.AddGroup(&cobra.Group{ID: GROUP_ID_CONFIG, Title: "Configuration"})
	rootCmd.Version = "v0." + lib.Version
}
