package ingest

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/Swabber-io/syscomp/internal/constants"
	"github.com/Swabber-io/syscomp/internal/models"
)

// Options selects and sizes a population source.
type Options struct {
	Source    constants.Source `json:"source" yaml:"source"`
	Size      int              `json:"size" yaml:"size"`
	CSVPath   string           `json:"csv_path,omitempty" yaml:"csv_path,omitempty"`
	Generator GenerateOptions  `json:"generator" yaml:"generator"`
}

// DefaultOptions returns a synthetic population of the default size.
func DefaultOptions() Options {
	return Options{
		Source:    constants.SourceSynthetic,
		Size:      constants.DefaultPopulationSize,
		Generator: DefaultGenerateOptions(),
	}
}

// Validate checks the options without touching any source.
func (o Options) Validate() error {
	if !o.Source.Valid() {
		return &models.ValidationError{Field: "population.source", Value: o.Source, Reason: "must be synthetic, csv or store"}
	}
	if o.Size < 0 {
		return &models.ValidationError{Field: "population.size", Value: o.Size, Reason: "must be non-negative"}
	}
	if o.Source == constants.SourceCSV && o.CSVPath == "" {
		return &models.ValidationError{Field: "population.csv_path", Value: "", Reason: "required for the csv source"}
	}
	if o.Source == constants.SourceSynthetic {
		return o.Generator.Validate()
	}
	return nil
}

// Load reads the population o describes. store is only consulted for the
// store source and may be nil otherwise.
func Load(ctx context.Context, o Options, store PopulationReader, rng *rand.Rand) ([]models.AgentRecord, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	switch o.Source {
	case constants.SourceCSV:
		return LoadCSVFile(o.CSVPath, o.Size, rng)
	case constants.SourceStore:
		if store == nil {
			return nil, fmt.Errorf("population source %q needs a store", o.Source)
		}
		return FromStore(ctx, store, o.Size, rng)
	default:
		return Generate(o.Size, o.Generator, rng)
	}
}
