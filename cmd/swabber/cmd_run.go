package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Swabber-io/syscomp/internal/config"
	"github.com/Swabber-io/syscomp/internal/export"
	"github.com/Swabber-io/syscomp/internal/ingest"
	"github.com/Swabber-io/syscomp/internal/logging"
	"github.com/Swabber-io/syscomp/internal/metrics"
	"github.com/Swabber-io/syscomp/internal/publish"
	"github.com/Swabber-io/syscomp/internal/simulation"
	"github.com/Swabber-io/syscomp/internal/store"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one simulation",
		Long: `Run one simulation from the configured population and parameters.

Every tick is stored in the database unless --no-persist is given, and can be
published to NATS and exported as CSV, JSONL or Arrow when the run ends.

Examples:
  swabber run --ticks 500 --seed 42
  swabber run --population agents.csv --size 200 --export csv,arrow
  swabber run --nats nats://localhost:4222 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyModelFlags(cmd, cfg)
			applyPopulationFlags(cmd, cfg)
			if noPersist, _ := cmd.Flags().GetBool("no-persist"); noPersist {
				cfg.Output.Persist = false
			}
			if cmd.Flags().Changed("export") {
				cfg.Output.Formats, _ = cmd.Flags().GetStringSlice("export")
			}
			if cmd.Flags().Changed("nats") {
				cfg.Output.NATS.URL, _ = cmd.Flags().GetString("nats")
			}
			if stop, _ := cmd.Flags().GetBool("stop-when-clear"); stop {
				cfg.StopWhenClear = true
			}
			if cfg, err = validated(cfg); err != nil {
				return err
			}
			outDir, _ := cmd.Flags().GetString("out")

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			out, err := executeRun(ctx, cfg, newLogger(cmd, cfg), outDir)
			if err != nil {
				return err
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return printJSON(cmd, out)
			}
			printRunOutput(cmd, out)
			return nil
		},
	}

	addModelFlags(cmd)
	addPopulationFlags(cmd)
	cmd.Flags().Bool("no-persist", false, "Don't store the run in the database")
	cmd.Flags().StringSlice("export", nil, "Export the metrics history: csv, jsonl, arrow")
	cmd.Flags().String("out", "", "Directory for exports (default <data dir>/exports)")
	cmd.Flags().String("nats", "", "NATS server URL to publish frames to")
	cmd.Flags().Bool("stop-when-clear", false, "Stop as soon as no agent is infected")

	return cmd
}

// runOutput is what `run` reports.
type runOutput struct {
	RunID        string         `json:"run_id"`
	Seed         int64          `json:"seed"`
	Agents       int            `json:"agents"`
	Ticks        int            `json:"ticks"`
	StoppedEarly bool           `json:"stopped_early"`
	Final        metrics.Counts `json:"final"`
	Ratio        string         `json:"resistant_susceptible"`
	Edges        int            `json:"edges"`
	PeakInfected int            `json:"peak_infected"`
	PeakTick     int            `json:"peak_tick"`
	Database     string         `json:"database,omitempty"`
	Published    int            `json:"published,omitempty"`
	Exports      []string       `json:"exports,omitempty"`
}

// executeRun runs one simulation with every configured sink attached.
func executeRun(ctx context.Context, cfg *config.SimConfig, logger *slog.Logger, outDir string) (runOutput, error) {
	var st *store.SQLiteStore
	var reader ingest.PopulationReader
	if needsStore(cfg) {
		var err error
		if st, err = openStore(cfg); err != nil {
			return runOutput{}, err
		}
		defer st.Close()
		reader = st
	}

	records, err := loadPopulation(ctx, cfg, reader)
	if err != nil {
		return runOutput{}, err
	}
	m, err := simulation.New(cfg.Config, records)
	if err != nil {
		return runOutput{}, fmt.Errorf("build model: %w", err)
	}

	runID := uuid.NewString()
	events := logging.NewEventLogger(eventsDir(cfg), cfg.Logging.Level, runID)
	defer events.Close()

	out := runOutput{RunID: runID, Seed: cfg.Seed, Agents: len(records)}
	var sinks []simulation.Sink

	var rec *store.Recorder
	if cfg.Output.Persist {
		snapshot, err := cfg.YAML()
		if err != nil {
			return runOutput{}, fmt.Errorf("encode config: %w", err)
		}
		rec, err = st.BeginRun(ctx, store.Run{ID: runID, Seed: cfg.Seed, Agents: len(records), Config: string(snapshot)})
		if err != nil {
			return runOutput{}, err
		}
		sinks = append(sinks, rec)
		out.Database = st.Path()
	}

	var natsSink *publish.NATSSink
	if cfg.Output.NATS.URL != "" {
		nc, err := publish.Connect(cfg.Output.NATS.URL)
		if err != nil {
			return runOutput{}, fmt.Errorf("connect to NATS at %s: %w", cfg.Output.NATS.RedactedURL(), err)
		}
		defer nc.Close()
		natsSink = publish.NewNATSSink(nc, cfg.Output.NATS.Subject)
		sinks = append(sinks, natsSink)
		logger.Info("publishing frames", "nats", cfg.Output.NATS.String())
	}

	res, runErr := simulation.NewRunner(m, simulation.RunnerOptions{
		RunID:         runID,
		Logger:        logger,
		Events:        events,
		Sinks:         sinks,
		StopWhenClear: cfg.StopWhenClear,
	}).Run(ctx, cfg.Ticks)

	if rec != nil {
		if err := rec.Finish(context.WithoutCancel(ctx), res, runErr); err != nil {
			logger.Error("failed to record run status", "run_id", runID, "error", err)
		}
	}
	if runErr != nil {
		return runOutput{}, fmt.Errorf("run %s failed at tick %d: %w", runID, res.Ticks, runErr)
	}
	if natsSink != nil {
		if err := natsSink.PublishResult(res); err != nil {
			return runOutput{}, err
		}
		out.Published = natsSink.Published
	}

	if len(cfg.Output.Formats) > 0 {
		if outDir == "" {
			outDir = exportsDir(cfg)
		}
		for _, format := range cfg.Output.Formats {
			path, err := export.WriteFile(outDir, "run-"+runID[:8], format, res.History)
			if err != nil {
				return runOutput{}, err
			}
			out.Exports = append(out.Exports, path)
		}
	}

	out.Ticks = res.Ticks
	out.StoppedEarly = res.StoppedEarly
	out.Final = res.Final.Counts
	out.Ratio = res.Final.ResistantSusceptible.String()
	out.Edges = res.Final.Edges
	out.PeakInfected = res.Peak.Counts.Infected
	out.PeakTick = res.Peak.Tick
	return out, nil
}

func printRunOutput(cmd *cobra.Command, out runOutput) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run %s finished after %d ticks (seed %d, %d agents)", out.RunID[:8], out.Ticks, out.Seed, out.Agents)
	if out.StoppedEarly {
		fmt.Fprint(w, ", stopped early: no infected agents remain")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Infected remaining:           %d\n", out.Final.Infected)
	fmt.Fprintf(w, "  Susceptible:                  %d\n", out.Final.Susceptible)
	fmt.Fprintf(w, "  Resistant:                    %d\n", out.Final.Resistant)
	fmt.Fprintf(w, "  Resistant/Susceptible ratio:  %s\n", out.Ratio)
	fmt.Fprintf(w, "  Active partnerships:          %d\n", out.Edges)
	fmt.Fprintf(w, "  Peak:                         %d infected at tick %d\n", out.PeakInfected, out.PeakTick)
	if out.Database != "" {
		fmt.Fprintf(w, "Stored in %s\n", out.Database)
	}
	if out.Published > 0 {
		fmt.Fprintf(w, "Published %d frames to NATS\n", out.Published)
	}
	for _, p := range out.Exports {
		fmt.Fprintf(w, "Exported %s\n", p)
	}
}
