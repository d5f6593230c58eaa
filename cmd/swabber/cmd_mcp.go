package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Swabber-io/syscomp/internal/ingest"
	"github.com/Swabber-io/syscomp/internal/mcp"
	"github.com/Swabber-io/syscomp/internal/simulation"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Run as an MCP server over stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout over a live
simulation session.

Tools: sim_step, sim_metrics, sim_graph, sim_reset, sim_agent, sim_stats,
sim_export. Exports are confined to the exports directory next to the database.
Resource: swabber://metrics/latest.

Logs go to stderr. Every tool call is appended to mcp-audit.jsonl in the
events directory.`,
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
			logger := newLogger(cmd, cfg)

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			var reader ingest.PopulationReader
			if needsStore(cfg) {
				st, err := openStore(cfg)
				if err != nil {
					return err
				}
				defer st.Close()
				reader = st
			}
			records, err := loadPopulation(ctx, cfg, reader)
			if err != nil {
				return err
			}
			session, err := simulation.NewSession(cfg.Config, records)
			if err != nil {
				return fmt.Errorf("build model: %w", err)
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:      "swabber",
				Version:   version,
				Session:   session,
				AuditDir:  eventsDir(cfg),
				ExportDir: exportsDir(cfg),
				Logger:    logger,
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			logger.Info("mcp server starting", "agents", len(records), "run_id", session.RunID())
			return server.Run(ctx)
		},
	}

	addModelFlags(cmd)
	addPopulationFlags(cmd)
	return cmd
}
