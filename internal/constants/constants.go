// Package constants provides named constants used throughout the swabber codebase.
// This centralizes defaults and magic numbers for better maintainability.
package constants

// Population defaults
const (
	// DefaultPopulationSize is the number of agents when none is configured.
	DefaultPopulationSize = 100

	// DefaultOutbreakSize is the number of agents infected at tick 0.
	DefaultOutbreakSize = 1

	// DefaultSeed seeds the run rng when no seed is configured.
	DefaultSeed = 1
)

// Run defaults
const (
	// DefaultTicks is the number of steps a run performs.
	DefaultTicks = 200

	// ShortMemoryTTL is the edge lifetime, in ticks, of the short-memory setting.
	ShortMemoryTTL = 30

	// LongMemoryTTL is the edge lifetime, in ticks, of the long-memory setting.
	LongMemoryTTL = 2000
)

// Storage and transport defaults
const (
	// DataDirName is the directory under $HOME holding config and the database.
	DataDirName = ".swabber"

	// ConfigFileName is the config file inside DataDirName.
	ConfigFileName = "config.yaml"

	// DatabaseFileName is the SQLite database inside the data directory.
	DatabaseFileName = "swabber.db"

	// DefaultNATSSubject prefixes every published frame subject.
	DefaultNATSSubject = "swabber"

	// DefaultServeAddr is the address of the visualization server.
	DefaultServeAddr = "127.0.0.1:8521"
)

// Export formats
const (
	FormatCSV   = "csv"
	FormatJSONL = "jsonl"
	FormatArrow = "arrow"
)

// ExportFormats lists every supported export format.
var ExportFormats = []string{FormatCSV, FormatJSONL, FormatArrow}
