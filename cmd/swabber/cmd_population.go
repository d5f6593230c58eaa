package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Swabber-io/syscomp/internal/ingest"
)

func newPopulationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "population",
		Short: "Generate, import and inspect populations",
		Long: `Manage the agents a run starts from.

A population can be generated synthetically, read from a CSV file, or
imported into the database once and reused with --population store.

Examples:
  swabber population generate --size 500 --out people.csv
  swabber population import people.csv
  swabber population count`,
	}

	cmd.AddCommand(
		newPopulationGenerateCmd(),
		newPopulationImportCmd(),
		newPopulationCountCmd(),
	)
	return cmd
}

func newPopulationGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic population as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				cfg.Seed, _ = cmd.Flags().GetInt64("seed")
			}
			if cmd.Flags().Changed("size") {
				cfg.Population.Size, _ = cmd.Flags().GetInt("size")
			}
			if err := cfg.Population.Generator.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			records, err := ingest.Generate(cfg.Population.Size, cfg.Population.Generator, populationRand(cfg))
			if err != nil {
				return err
			}

			if doImport, _ := cmd.Flags().GetBool("import"); doImport {
				st, err := openStore(cfg)
				if err != nil {
					return err
				}
				defer st.Close()
				if err := st.SaveAgents(cmd.Context(), records); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Imported %d agents into %s\n", len(records), st.Path())
			}

			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				return ingest.WriteCSV(cmd.OutOrStdout(), records)
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}
			if err := ingest.WriteCSV(f, records); err != nil {
				f.Close()
				return fmt.Errorf("writing %s: %w", out, err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d agents to %s\n", len(records), out)
			return nil
		},
	}
	cmd.Flags().Int("size", 0, "Number of agents (overrides config)")
	cmd.Flags().Int64("seed", 0, "Random seed (overrides config)")
	cmd.Flags().StringP("out", "o", "", "Write CSV to this file instead of stdout")
	cmd.Flags().Bool("import", false, "Also import the agents into the database")
	return cmd
}

func newPopulationImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import a CSV population into the database",
		Long: `Replace the stored population with the agents in a CSV file.

Rows that fail to parse abort the import; nothing is written in that case.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			records, err := ingest.LoadCSVFile(args[0], 0, nil)
			if err != nil {
				return err
			}

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.SaveAgents(cmd.Context(), records); err != nil {
				return err
			}

			if jsonOut {
				return printJSON(cmd, map[string]any{"imported": len(records), "db": st.Path()})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d agents into %s\n", len(records), st.Path())
			return nil
		},
	}
}

func newPopulationCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Show how many agents are stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			n, err := st.CountAgents(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(cmd, map[string]any{"agents": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d agents\n", n)
			return nil
		},
	}
}
