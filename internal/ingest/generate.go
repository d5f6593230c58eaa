package ingest

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/Swabber-io/syscomp/internal/models"
)

// GenerateOptions shapes a synthetic population.
type GenerateOptions struct {
	// Locations are drawn uniformly. Empty means a single "default" location.
	Locations []string `json:"locations,omitempty" yaml:"locations,omitempty"`

	// MinAge and MaxAge bound the uniformly drawn age, inclusive.
	MinAge int `json:"min_age" yaml:"min_age"`
	MaxAge int `json:"max_age" yaml:"max_age"`

	// InfectedFraction is the chance each agent starts positive.
	InfectedFraction float64 `json:"infected_fraction" yaml:"infected_fraction"`

	// ConcurrentFraction is the chance an agent pairs concurrently.
	ConcurrentFraction float64 `json:"concurrent_fraction" yaml:"concurrent_fraction"`

	// OffSystemFraction is the chance an agent has pairing on the system
	// turned off.
	OffSystemFraction float64 `json:"off_system_fraction" yaml:"off_system_fraction"`

	// Orientations maps each orientation to a relative weight. Nil uses
	// DefaultOrientationWeights.
	Orientations map[models.SexualOrientation]float64 `json:"orientations,omitempty" yaml:"orientations,omitempty"`

	// Now anchors generated test dates. Zero means time.Now.
	Now time.Time `json:"-" yaml:"-"`
}

// DefaultOrientationWeights roughly follows survey proportions.
var DefaultOrientationWeights = map[models.SexualOrientation]float64{
	models.OrientationStraight: 0.85,
	models.OrientationGay:      0.05,
	models.OrientationLesbian:  0.04,
	models.OrientationBisexual: 0.06,
}

// DefaultGenerateOptions returns a plausible adult population.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Locations:          []string{"north", "south", "east", "west"},
		MinAge:             18,
		MaxAge:             65,
		InfectedFraction:   0,
		ConcurrentFraction: 0.2,
		OffSystemFraction:  0.1,
	}
}

// Validate checks the options before generation.
func (o GenerateOptions) Validate() error {
	if o.MinAge < 0 || o.MaxAge < o.MinAge {
		return &models.ValidationError{Field: "generator.age", Value: fmt.Sprintf("%d-%d", o.MinAge, o.MaxAge), Reason: "need 0 <= min_age <= max_age"}
	}
	if err := models.CheckProbability("generator.infected_fraction", o.InfectedFraction); err != nil {
		return err
	}
	if err := models.CheckProbability("generator.concurrent_fraction", o.ConcurrentFraction); err != nil {
		return err
	}
	if err := models.CheckProbability("generator.off_system_fraction", o.OffSystemFraction); err != nil {
		return err
	}
	for name, w := range o.Orientations {
		if w < 0 {
			return &models.ValidationError{Field: "generator.orientations", Value: name, Reason: "weight must be non-negative"}
		}
	}
	return nil
}

// orientationOrder fixes iteration order so generation is reproducible.
var orientationOrder = []models.SexualOrientation{
	models.OrientationStraight,
	models.OrientationGay,
	models.OrientationLesbian,
	models.OrientationBisexual,
}

var partnerCounts = []models.PartnerCount{
	models.PartnerCountLow,
	models.PartnerCountMedium,
	models.PartnerCountHigh,
	models.PartnerCountExtreme,
}

// Generate draws n synthetic agent records from rng.
func Generate(n int, opts GenerateOptions, rng *rand.Rand) ([]models.AgentRecord, error) {
	if n < 0 {
		return nil, &models.ValidationError{Field: "population.size", Value: n, Reason: "must be non-negative"}
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	locations := opts.Locations
	if len(locations) == 0 {
		locations = []string{"default"}
	}
	weights := opts.Orientations
	if weights == nil {
		weights = DefaultOrientationWeights
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC().Truncate(24 * time.Hour)

	records := make([]models.AgentRecord, n)
	for i := range records {
		gender := models.GenderMale
		if rng.Intn(2) == 1 {
			gender = models.GenderFemale
		}

		rec := models.AgentRecord{
			Attributes: models.Attributes{
				ExternalID:       fmt.Sprintf("syn-%05d", i),
				AgeGroup:         models.AgeGroupFor(opts.MinAge + rng.Intn(opts.MaxAge-opts.MinAge+1)),
				Gender:           gender,
				SexualPreference: pickOrientation(weights, gender, rng),
				PairingType:      models.PairingSequential,
				PartnerCount:     partnerCounts[rng.Intn(len(partnerCounts))],
				Location:         locations[rng.Intn(len(locations))],
				PairOnSystem:     rng.Float64() >= opts.OffSystemFraction,
				LastTestDate:     now.AddDate(0, 0, -rng.Intn(365)),
			},
			Status: models.StateSusceptible,
		}
		if rng.Float64() < opts.ConcurrentFraction {
			rec.PairingType = models.PairingConcurrent
		}
		if rng.Float64() < opts.InfectedFraction {
			rec.Status = models.StateInfected
		}
		records[i] = rec
	}
	return records, nil
}

// pickOrientation draws a weighted orientation. Gay is only drawn for men and
// lesbian only for women; the other gender's share falls back to straight.
func pickOrientation(weights map[models.SexualOrientation]float64, g models.Gender, rng *rand.Rand) models.SexualOrientation {
	var total float64
	for _, o := range orientationOrder {
		total += weights[o]
	}
	if total <= 0 {
		return models.OrientationStraight
	}
	x := rng.Float64() * total
	picked := models.OrientationStraight
	for _, o := range orientationOrder {
		x -= weights[o]
		if x < 0 {
			picked = o
			break
		}
	}
	switch {
	case picked == models.OrientationGay && g == models.GenderFemale:
		return models.OrientationStraight
	case picked == models.OrientationLesbian && g == models.GenderMale:
		return models.OrientationStraight
	}
	return picked
}
