package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "swabber",
		Short: "Swabber - contact network and STI spread simulator",
		Long: `swabber simulates how a sexually transmitted infection moves through a
population whose partnerships form and dissolve over time.

A compatibility matrix decides who can pair, a network engine creates and
expires partnerships every tick, and an infection automaton moves agents
between SUSCEPTIBLE, INFECTED and RESISTANT.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.swabber/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: error, warn, info, debug, trace (overrides config)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newSweepCmd(),
		newGraphCmd(),
		newServeCmd(),
		newMCPServerCmd(),
		newPopulationCmd(),
		newRunsCmd(),
		newConfigCmd(),
	)
	return rootCmd
}
