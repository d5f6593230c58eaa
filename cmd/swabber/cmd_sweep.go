package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Swabber-io/syscomp/internal/ingest"
	"github.com/Swabber-io/syscomp/internal/simulation"
	"github.com/Swabber-io/syscomp/internal/store"
	"github.com/Swabber-io/syscomp/internal/sweep"
)

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run an ensemble of seeds and summarize the spread of outcomes",
		Long: `Run the same population and parameters under many seeds in parallel.

Seeds are consecutive, starting at --seed (or the configured seed). Each run
gets its own model and random source, so results do not depend on --parallel.

Examples:
  swabber sweep --runs 50 --ticks 300
  swabber sweep --runs 20 --parallel 4 --persist --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyModelFlags(cmd, cfg)
			applyPopulationFlags(cmd, cfg)
			if stop, _ := cmd.Flags().GetBool("stop-when-clear"); stop {
				cfg.StopWhenClear = true
			}
			persist, _ := cmd.Flags().GetBool("persist")
			cfg.Output.Persist = persist
			if cfg, err = validated(cfg); err != nil {
				return err
			}
			runs, _ := cmd.Flags().GetInt("runs")
			parallel, _ := cmd.Flags().GetInt("parallel")
			logger := newLogger(cmd, cfg)

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			var st *store.SQLiteStore
			var reader ingest.PopulationReader
			if needsStore(cfg) {
				if st, err = openStore(cfg); err != nil {
					return err
				}
				defer st.Close()
				reader = st
			}
			records, err := loadPopulation(ctx, cfg, reader)
			if err != nil {
				return err
			}

			opts := sweep.Options{
				Seeds:         sweep.Seeds(cfg.Seed, runs),
				Ticks:         cfg.Ticks,
				Parallel:      parallel,
				StopWhenClear: cfg.StopWhenClear,
				Logger:        logger,
			}
			if persist {
				snapshot, err := cfg.YAML()
				if err != nil {
					return fmt.Errorf("encode config: %w", err)
				}
				opts.Record = func(ctx context.Context, runID string, seed int64) (sweep.RunRecorder, error) {
					return st.BeginRun(ctx, store.Run{ID: runID, Seed: seed, Agents: len(records), Config: string(snapshot)})
				}
			}

			summary, err := sweep.Run(ctx, cfg.Config, records, opts)
			if err != nil {
				return fmt.Errorf("sweep: %w", err)
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return printJSON(cmd, summary)
			}
			printSweepSummary(cmd, summary, len(records), cfg.Config)
			return nil
		},
	}

	addModelFlags(cmd)
	addPopulationFlags(cmd)
	cmd.Flags().Int("runs", 10, "Number of seeds to run")
	cmd.Flags().Int("parallel", 0, "Maximum concurrent runs (default GOMAXPROCS)")
	cmd.Flags().Bool("persist", false, "Store every run in the database")
	cmd.Flags().Bool("stop-when-clear", false, "Stop each run as soon as no agent is infected")

	return cmd
}

func printSweepSummary(cmd *cobra.Command, s sweep.Summary, agents int, cfg simulation.Config) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%d runs over %d agents (edge ttl %d, spread %.2f)\n\n", len(s.Runs), agents, cfg.Network.EdgeTTL, cfg.Virus.SpreadChance)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEED\tTICKS\tPEAK\tPEAK TICK\tINFECTED\tRESISTANT\tSUSCEPTIBLE")
	for _, r := range s.Runs {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
			r.Seed, r.Ticks, r.PeakInfected, r.PeakTick, r.Final.Infected, r.Final.Resistant, r.Final.Susceptible)
	}
	tw.Flush()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Peak infected:   mean %.1f  sd %.1f  range %.0f-%.0f\n", s.PeakInfected.Mean, s.PeakInfected.StdDev, s.PeakInfected.Min, s.PeakInfected.Max)
	fmt.Fprintf(w, "Peak tick:       mean %.1f  sd %.1f\n", s.PeakTick.Mean, s.PeakTick.StdDev)
	fmt.Fprintf(w, "Final infected:  mean %.1f  sd %.1f\n", s.FinalInfected.Mean, s.FinalInfected.StdDev)
	fmt.Fprintf(w, "Cleared:         %d of %d runs\n", s.Cleared, len(s.Runs))
}
