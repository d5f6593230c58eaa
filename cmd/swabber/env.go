package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Swabber-io/syscomp/internal/config"
	"github.com/Swabber-io/syscomp/internal/constants"
	"github.com/Swabber-io/syscomp/internal/ingest"
	"github.com/Swabber-io/syscomp/internal/logging"
	"github.com/Swabber-io/syscomp/internal/models"
	"github.com/Swabber-io/syscomp/internal/store"
)

// loadConfig loads --config (or the default locations), applies the global
// --log-level flag and validates the result.
func loadConfig(cmd *cobra.Command) (*config.SimConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadWithOverride(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	return cfg, nil
}

// validated runs Validate after command-line overrides have been applied.
func validated(cfg *config.SimConfig) (*config.SimConfig, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger writes human-readable logs to stderr so stdout stays clean for
// --json output.
func newLogger(cmd *cobra.Command, cfg *config.SimConfig) *slog.Logger {
	return logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
}

// eventsDir is where events.jsonl and the MCP audit log go.
func eventsDir(cfg *config.SimConfig) string {
	if cfg.Logging.EventsDir != "" {
		return cfg.Logging.EventsDir
	}
	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return ""
	}
	return filepath.Join(filepath.Dir(dbPath), "events")
}

// exportsDir is where run exports and sim_export files go.
func exportsDir(cfg *config.SimConfig) string {
	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return ""
	}
	return filepath.Join(filepath.Dir(dbPath), "exports")
}

// openStore opens the configured database, creating its directory.
func openStore(cfg *config.SimConfig) (*store.SQLiteStore, error) {
	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return nil, err
	}
	if err := store.EnsureDir(filepath.Dir(dbPath)); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// populationRand returns the rng used to sample or generate the population.
// It is seeded from the run seed so a config fully determines a run.
func populationRand(cfg *config.SimConfig) *rand.Rand {
	return rand.New(rand.NewSource(cfg.Seed))
}

// loadPopulation loads the configured population. st may be nil unless the
// source is the store.
func loadPopulation(ctx context.Context, cfg *config.SimConfig, st ingest.PopulationReader) ([]models.AgentRecord, error) {
	records, err := ingest.Load(ctx, cfg.Population, st, populationRand(cfg))
	if err != nil {
		return nil, fmt.Errorf("load population: %w", err)
	}
	return records, nil
}

// needsStore reports whether a command must open the database.
func needsStore(cfg *config.SimConfig) bool {
	return cfg.Output.Persist || cfg.Population.Source == constants.SourceStore
}

// applyPopulationFlags applies --size and --population.
func applyPopulationFlags(cmd *cobra.Command, cfg *config.SimConfig) {
	if cmd.Flags().Changed("size") {
		cfg.Population.Size, _ = cmd.Flags().GetInt("size")
	}
	if cmd.Flags().Changed("population") {
		v, _ := cmd.Flags().GetString("population")
		if src := constants.Source(v); src.Valid() {
			cfg.Population.Source = src
		} else {
			cfg.Population.Source = constants.SourceCSV
			cfg.Population.CSVPath = v
		}
	}
}

// applyModelFlags applies --seed, --ticks and --edge-ttl.
func applyModelFlags(cmd *cobra.Command, cfg *config.SimConfig) {
	if cmd.Flags().Changed("seed") {
		cfg.Seed, _ = cmd.Flags().GetInt64("seed")
	}
	if cmd.Flags().Changed("ticks") {
		cfg.Ticks, _ = cmd.Flags().GetInt("ticks")
	}
	if cmd.Flags().Changed("edge-ttl") {
		cfg.Network.EdgeTTL, _ = cmd.Flags().GetInt("edge-ttl")
	}
}

func addPopulationFlags(cmd *cobra.Command) {
	cmd.Flags().Int("size", 0, "Population size (0 keeps every CSV/store row)")
	cmd.Flags().String("population", "", "Population source: synthetic, store, or a CSV file path")
}

func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().Int64("seed", 0, "Random seed (overrides config)")
	cmd.Flags().Int("ticks", 0, "Number of ticks to simulate (overrides config)")
	cmd.Flags().Int("edge-ttl", 0, "Ticks a partnership lasts (overrides config)")
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	notifySignals(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}
