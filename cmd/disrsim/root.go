package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "disrsim",
	Short: "Segment-based routing mesh simulator",
	Long: `disrsim simulates a 2D mesh of packet switches on which every node runs the
DiSR protocol, and reports how much of the mesh the constructed segments cover,
optionally in the presence of defective links and nodes.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it.
// It only needs to happen once, from main.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "configuration file (.yaml, .yml or .json)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log protocol decisions")
	rootCmd.PersistentFlags().String("log-file", "", "also write logs as JSON to this file")
	addConfigFlags(rootCmd)
}
