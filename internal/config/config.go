// Package config provides unified configuration loading for swabber.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Swabber-io/syscomp/internal/constants"
	"github.com/Swabber-io/syscomp/internal/ingest"
	"github.com/Swabber-io/syscomp/internal/logging"
	"github.com/Swabber-io/syscomp/internal/models"
	"github.com/Swabber-io/syscomp/internal/simulation"
)

// SimConfig contains all swabber configuration settings.
type SimConfig struct {
	// Population selects where agents come from and how many to keep.
	Population ingest.Options `json:"population" yaml:"population"`

	// Config holds the model parameters. Its keys sit at the top level of
	// the file (seed, outbreak_size, virus, network, ...).
	simulation.Config `yaml:",inline"`

	// Ticks is the number of steps `swabber run` performs.
	Ticks int `json:"ticks" yaml:"ticks"`

	// StopWhenClear ends a run early once nobody is infected.
	StopWhenClear bool `json:"stop_when_clear" yaml:"stop_when_clear"`

	// Logging contains settings for operational and event logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Output contains settings for persistence and publishing.
	Output OutputConfig `json:"output" yaml:"output"`

	// Serve configures the visualization server.
	Serve ServeConfig `json:"serve" yaml:"serve"`
}

// LoggingConfig configures swabber's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "warn", "error",
	// "debug", or "trace". "debug" enables the per-tick event log;
	// "trace" additionally records every infection transition.
	Level string `json:"level" yaml:"level"`

	// EventsDir is where events.jsonl is written. Supports ${VAR} syntax.
	EventsDir string `json:"events_dir,omitempty" yaml:"events_dir,omitempty"`
}

// OutputConfig configures where run results go.
type OutputConfig struct {
	// DataDir holds the database. Defaults to ~/.swabber. Supports ${VAR}.
	DataDir string `json:"data_dir,omitempty" yaml:"data_dir,omitempty"`

	// Database overrides the database path. Supports ${VAR} syntax.
	Database string `json:"db,omitempty" yaml:"db,omitempty"`

	// Persist records runs, metrics and the final edge map in the database.
	Persist bool `json:"persist" yaml:"persist"`

	// Formats lists export formats written after a run.
	Formats []string `json:"formats,omitempty" yaml:"formats,omitempty"`

	// NATS configures the per-tick frame publisher.
	NATS NATSConfig `json:"nats" yaml:"nats"`
}

// NATSConfig configures frame publishing. An empty URL disables it.
type NATSConfig struct {
	URL     string `json:"url,omitempty" yaml:"url,omitempty"`
	Subject string `json:"subject" yaml:"subject"`
}

// String implements fmt.Stringer so credentials in the URL never reach logs.
func (c NATSConfig) String() string {
	return fmt.Sprintf("NATSConfig{URL:%s, Subject:%s}", c.RedactedURL(), c.Subject)
}

// RedactedURL returns the URL with any user info masked.
func (c NATSConfig) RedactedURL() string {
	at := strings.LastIndex(c.URL, "@")
	if at < 0 {
		return c.URL
	}
	scheme := ""
	if i := strings.Index(c.URL, "://"); i >= 0 && i < at {
		scheme = c.URL[:i+3]
	}
	return scheme + "***" + c.URL[at:]
}

// ServeConfig configures the visualization server.
type ServeConfig struct {
	Addr string `json:"addr" yaml:"addr"`

	// CacheTTL bounds how long a rendered frame is reused.
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
}

// Default returns a SimConfig with sensible defaults.
func Default() *SimConfig {
	return &SimConfig{
		Population: ingest.DefaultOptions(),
		Config:     simulation.DefaultConfig(),
		Ticks:      constants.DefaultTicks,
		Logging: LoggingConfig{
			Level: "info",
		},
		Output: OutputConfig{
			Persist: true,
			NATS: NATSConfig{
				Subject: constants.DefaultNATSSubject,
			},
		},
		Serve: ServeConfig{
			Addr:     constants.DefaultServeAddr,
			CacheTTL: 2 * time.Second,
		},
	}
}

// DefaultPath returns ~/.swabber/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, constants.DataDirName, constants.ConfigFileName), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.swabber/config.yaml -> environment variables
func Load() (*SimConfig, error) {
	config := Default()

	if configPath, err := DefaultPath(); err == nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadWithOverride loads path when non-empty, else the default locations,
// and applies environment overrides either way.
func LoadWithOverride(path string) (*SimConfig, error) {
	if path == "" {
		return Load()
	}
	config, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*SimConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Population.CSVPath = expandEnvVars(config.Population.CSVPath)
	config.Logging.EventsDir = expandEnvVars(config.Logging.EventsDir)
	config.Output.DataDir = expandEnvVars(config.Output.DataDir)
	config.Output.Database = expandEnvVars(config.Output.Database)
	config.Output.NATS.URL = expandEnvVars(config.Output.NATS.URL)

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *SimConfig) Validate() error {
	if err := c.Population.Validate(); err != nil {
		return err
	}
	if err := c.Config.Validate(); err != nil {
		return err
	}
	if c.Ticks < 0 {
		return &models.ValidationError{Field: "ticks", Value: c.Ticks, Reason: "must be non-negative"}
	}
	if c.Logging.Level != "" {
		if !logging.ValidLevel(c.Logging.Level) {
			return &models.ValidationError{Field: "logging.level", Value: c.Logging.Level, Reason: "valid: error, warn, info, debug, trace"}
		}
	}
	for _, f := range c.Output.Formats {
		if !validFormat(f) {
			return &models.ValidationError{Field: "output.formats", Value: f, Reason: "valid: " + strings.Join(constants.ExportFormats, ", ")}
		}
	}
	if c.Output.NATS.URL != "" && c.Output.NATS.Subject == "" {
		return &models.ValidationError{Field: "output.nats.subject", Value: "", Reason: "required when a NATS url is set"}
	}
	if c.Serve.CacheTTL < 0 {
		return &models.ValidationError{Field: "serve.cache_ttl", Value: c.Serve.CacheTTL, Reason: "must be non-negative"}
	}
	return nil
}

func validFormat(f string) bool {
	for _, known := range constants.ExportFormats {
		if f == known {
			return true
		}
	}
	return false
}

// DatabasePath resolves the SQLite file: Output.Database when set, else
// swabber.db under DataDir, else under ~/.swabber.
func (c *SimConfig) DatabasePath() (string, error) {
	if c.Output.Database != "" {
		return c.Output.Database, nil
	}
	dir := c.Output.DataDir
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		dir = filepath.Join(homeDir, constants.DataDirName)
	}
	return filepath.Join(dir, constants.DatabaseFileName), nil
}

// YAML renders the configuration as it would be written to a file.
func (c *SimConfig) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// applyEnvOverrides applies environment variable overrides to the config.
// Malformed numbers are reported rather than ignored.
func applyEnvOverrides(config *SimConfig) error {
	if v := os.Getenv("SWABBER_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return &models.ValidationError{Field: "SWABBER_SEED", Value: v, Reason: "must be an integer"}
		}
		config.Seed = n
	}

	if v := os.Getenv("SWABBER_TICKS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &models.ValidationError{Field: "SWABBER_TICKS", Value: v, Reason: "must be an integer"}
		}
		config.Ticks = n
	}

	if v := os.Getenv("SWABBER_EDGE_TTL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &models.ValidationError{Field: "SWABBER_EDGE_TTL", Value: v, Reason: "must be an integer"}
		}
		config.Network.EdgeTTL = n
	}

	if v := os.Getenv("SWABBER_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("SWABBER_NATS_URL"); v != "" {
		config.Output.NATS.URL = v
	}

	if v := os.Getenv("SWABBER_DB"); v != "" {
		config.Output.Database = v
	}

	// A CSV path switches the source; anything else names the source.
	if v := os.Getenv("SWABBER_POPULATION"); v != "" {
		if src := constants.Source(v); src.Valid() {
			config.Population.Source = src
		} else {
			config.Population.Source = constants.SourceCSV
			config.Population.CSVPath = v
		}
	}

	return nil
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
