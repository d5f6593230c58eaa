package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Swabber-io/syscomp/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and check swabber configuration",
		Long: `View the effective configuration.

Configuration is read from ~/.swabber/config.yaml (or --config) and then
SWABBER_* environment variables.

Examples:
  swabber config show                 # Effective settings as YAML
  swabber config validate             # Check the file without running
  swabber config path                 # Where the file is read from`,
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigValidateCmd(),
		newConfigPathCmd(),
	)
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			// Redact NATS credentials before serialization to prevent leakage
			redacted := *cfg
			redacted.Output.NATS.URL = cfg.Output.NATS.RedactedURL()

			if jsonOut {
				return printJSON(cmd, redacted)
			}
			data, err := redacted.YAML()
			if err != nil {
				return fmt.Errorf("rendering config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration for errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if _, err := validated(cfg); err != nil {
				return err
			}
			if jsonOut {
				return printJSON(cmd, map[string]any{"valid": true})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid.")
			return nil
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration and database paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			path, _ := cmd.Flags().GetString("config")
			if path == "" {
				var err error
				if path, err = config.DefaultPath(); err != nil {
					return err
				}
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			dbPath, err := cfg.DatabasePath()
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(cmd, map[string]string{"config": path, "db": dbPath, "events": eventsDir(cfg)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config: %s\n", path)
			fmt.Fprintf(cmd.OutOrStdout(), "db:     %s\n", dbPath)
			fmt.Fprintf(cmd.OutOrStdout(), "events: %s\n", eventsDir(cfg))
			return nil
		},
	}
}
