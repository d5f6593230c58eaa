package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Swabber-io/syscomp/internal/ingest"
	"github.com/Swabber-io/syscomp/internal/simulation"
	"github.com/Swabber-io/syscomp/internal/visualization"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a live simulation in the browser",
		Long: `Start a local HTTP server over a live simulation session.

The page shows the contact network and the current metrics, with controls to
step and reset. The same session is available as JSON:

  GET  /api/frame[?format=dot]   current network
  GET  /api/metrics              per-tick history
  GET  /api/agent/{id}           one agent and its partners
  POST /api/step?n=10            advance n ticks
  POST /api/reset[?seed=7]       start over`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyModelFlags(cmd, cfg)
			applyPopulationFlags(cmd, cfg)
			if cmd.Flags().Changed("addr") {
				cfg.Serve.Addr, _ = cmd.Flags().GetString("addr")
			}
			cfg.Output.Persist = false
			if cfg, err = validated(cfg); err != nil {
				return err
			}
			open, _ := cmd.Flags().GetBool("open")
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

			srv := visualization.NewServer(session, cfg.Serve.CacheTTL, logger)
			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe(ctx, cfg.Serve.Addr) }()

			// Wait for server to start
			deadline := time.Now().Add(3 * time.Second)
			for time.Now().Before(deadline) && srv.Addr() == "" {
				select {
				case err := <-errCh:
					return fmt.Errorf("server error: %w", err)
				case <-time.After(10 * time.Millisecond):
				}
			}

			addr := srv.Addr()
			if addr == "" {
				return fmt.Errorf("server failed to start")
			}

			url := "http://" + addr
			fmt.Fprintf(cmd.OutOrStdout(), "Simulation server running at %s (%d agents, run %s)\n", url, len(records), session.RunID()[:8])
			fmt.Fprintf(cmd.OutOrStdout(), "Press Ctrl-C to stop.\n")

			if open {
				if err := visualization.OpenBrowser(url); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, url)
				}
			}

			// Block until server exits
			if err := <-errCh; err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}

	addModelFlags(cmd)
	addPopulationFlags(cmd)
	cmd.Flags().String("addr", "", "Listen address (default from config, 127.0.0.1:8521)")
	cmd.Flags().Bool("open", false, "Open the page in the default browser")

	return cmd
}
