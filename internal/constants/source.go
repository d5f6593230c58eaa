package constants

// Source identifies where a run's population comes from.
type Source string

const (
	// SourceSynthetic generates agents from the run rng.
	SourceSynthetic Source = "synthetic"

	// SourceCSV reads agents from a CSV export.
	SourceCSV Source = "csv"

	// SourceStore reads agents previously imported into the database.
	SourceStore Source = "store"
)

// Valid returns true if the source is a recognized value.
func (s Source) Valid() bool {
	switch s {
	case SourceSynthetic, SourceCSV, SourceStore:
		return true
	}
	return false
}

// String returns the string representation of the source.
func (s Source) String() string {
	return string(s)
}
