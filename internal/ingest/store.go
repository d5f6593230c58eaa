package ingest

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/Swabber-io/syscomp/internal/models"
)

// PopulationReader lists a stored population.
type PopulationReader interface {
	ListAgents(ctx context.Context) ([]models.AgentRecord, error)
}

// PopulationWriter replaces a stored population.
type PopulationWriter interface {
	SaveAgents(ctx context.Context, records []models.AgentRecord) error
}

// FromStore loads the stored population and samples n records from it the
// same way ReadCSV does.
func FromStore(ctx context.Context, r PopulationReader, n int, rng *rand.Rand) ([]models.AgentRecord, error) {
	records, err := r.ListAgents(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing stored agents: %w", err)
	}
	if len(records) == 0 {
		return nil, &models.ValidationError{Field: "population", Value: 0, Reason: "store holds no agents; run 'swabber population import' first"}
	}
	return Sample(records, n, rng), nil
}
