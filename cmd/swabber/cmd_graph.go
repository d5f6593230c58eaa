package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Swabber-io/syscomp/internal/config"
	"github.com/Swabber-io/syscomp/internal/ingest"
	"github.com/Swabber-io/syscomp/internal/network"
	"github.com/Swabber-io/syscomp/internal/simulation"
	"github.com/Swabber-io/syscomp/internal/visualization"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Simulate and render the contact network",
		Long: `Simulate --ticks ticks and output the resulting contact network in DOT
(Graphviz), JSON, or self-contained HTML format.

Nodes are colored by state; partnerships touching a resistant agent are drawn
heavy. In HTML and JSON, node size follows PageRank centrality.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyModelFlags(cmd, cfg)
			applyPopulationFlags(cmd, cfg)
			cfg.Output.Persist = false
			if cfg, err = validated(cfg); err != nil {
				return err
			}
			formatFlag, _ := cmd.Flags().GetString("format")
			format, err := visualization.ParseFormat(formatFlag)
			if err != nil {
				return err
			}
			output, _ := cmd.Flags().GetString("output")
			noOpen, _ := cmd.Flags().GetBool("no-open")

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			m, err := simulateModel(ctx, cfg)
			if err != nil {
				return err
			}
			f := m.Frame()
			g := m.Engine().Graph()
			stats := network.ComputeStats(g)
			enrichment := &visualization.EnrichmentData{
				PageRank: network.PageRank(g, network.DefaultPageRankConfig()),
				Stats:    &stats,
			}

			switch format {
			case visualization.FormatDOT:
				fmt.Fprint(cmd.OutOrStdout(), visualization.RenderDOT(f))

			case visualization.FormatJSON:
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(visualization.RenderJSON(f, enrichment)); err != nil {
					return fmt.Errorf("encode JSON: %w", err)
				}

			case visualization.FormatHTML:
				return writeStaticHTML(cmd, f, enrichment, output, noOpen)
			}
			return nil
		},
	}

	addModelFlags(cmd)
	addPopulationFlags(cmd)
	cmd.Flags().String("format", "dot", "Output format: dot, json, or html")
	cmd.Flags().StringP("output", "o", "", "Output file path (html format only)")
	cmd.Flags().Bool("no-open", false, "Don't open browser after generating HTML")

	return cmd
}

// simulateModel builds a model from cfg and steps it cfg.Ticks times.
func simulateModel(ctx context.Context, cfg *config.SimConfig) (*simulation.Model, error) {
	var reader ingest.PopulationReader
	if needsStore(cfg) {
		st, err := openStore(cfg)
		if err != nil {
			return nil, err
		}
		defer st.Close()
		reader = st
	}
	records, err := loadPopulation(ctx, cfg, reader)
	if err != nil {
		return nil, err
	}
	m, err := simulation.New(cfg.Config, records)
	if err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}
	if _, err := simulation.NewRunner(m, simulation.RunnerOptions{StopWhenClear: cfg.StopWhenClear}).Run(ctx, cfg.Ticks); err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	return m, nil
}

// writeStaticHTML renders the frame to a self-contained HTML file.
func writeStaticHTML(cmd *cobra.Command, f simulation.Frame, enrichment *visualization.EnrichmentData, output string, noOpen bool) error {
	htmlBytes, err := visualization.RenderHTML(f, enrichment, false)
	if err != nil {
		return fmt.Errorf("render HTML: %w", err)
	}

	outPath := output
	if outPath == "" {
		outPath = filepath.Join(os.TempDir(), "swabber-graph.html")
	}

	if err := os.WriteFile(outPath, htmlBytes, 0644); err != nil {
		return fmt.Errorf("write HTML file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Graph written to %s\n", outPath)

	if !noOpen {
		if err := visualization.OpenBrowser(outPath); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, outPath)
		}
	}
	return nil
}
