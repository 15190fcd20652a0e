package main

import (
	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd is the base command when wlm-server is invoked without a
// subcommand; it prints usage since "serve" is where the real work happens.
var rootCmd = &cobra.Command{
	Use:   "wlm-server",
	Short: "Workload manager for batched model inference",
	Long: `wlm-server dispatches inference jobs to pools of long-running workers,
one pool per model, batching concurrent requests and scaling worker counts
between each model's configured bounds.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "directory containing config.yaml (default ./config or .)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

var (
	version   = "0.1.0"
	buildTime = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("wlm-server %s (built %s)\n", version, buildTime)
	},
}
