package compat

import (
	"math/rand"

	"github.com/Swabber-io/syscomp/internal/models"
)

// Rules controls how baseline probabilities are assigned from attributes.
type Rules struct {
	// Baseline, when positive, is the fixed probability for every compatible
	// pair. When zero, a uniform draw in [BaselineMin, BaselineMax) is used.
	Baseline float64 `json:"baseline" yaml:"baseline"`

	// BaselineMin and BaselineMax bound the random baseline. Default: [0.001, 0.01).
	BaselineMin float64 `json:"baseline_min" yaml:"baseline_min"`
	BaselineMax float64 `json:"baseline_max" yaml:"baseline_max"`

	// LocationFactor multiplies the baseline of pairs in different locations.
	// 1 disables the effect, 0 makes different locations incompatible.
	LocationFactor float64 `json:"location_factor" yaml:"location_factor"`

	// RequirePairOnSystem zeroes pairs where either agent has the pairing
	// flag off.
	RequirePairOnSystem bool `json:"require_pair_on_system" yaml:"require_pair_on_system"`
}

// DefaultRules returns the default compatibility rules.
func DefaultRules() Rules {
	return Rules{
		BaselineMin:    0.001,
		BaselineMax:    0.01,
		LocationFactor: 0.5,
	}
}

// Validate checks that every probability-like field is in range.
func (r Rules) Validate() error {
	if err := models.CheckProbability("baseline", r.Baseline); err != nil {
		return err
	}
	if err := models.CheckProbability("baseline_min", r.BaselineMin); err != nil {
		return err
	}
	if err := models.CheckProbability("baseline_max", r.BaselineMax); err != nil {
		return err
	}
	if r.Baseline == 0 && r.BaselineMax < r.BaselineMin {
		return &models.ValidationError{Field: "baseline_max", Value: r.BaselineMax, Reason: "must not be below baseline_min"}
	}
	return models.CheckProbability("location_factor", r.LocationFactor)
}

// Compatible reports whether two agents may ever form an edge: each side's
// orientation must accept the other's gender, pairing types must match, and
// with RequirePairOnSystem both must pair on the system.
func (r Rules) Compatible(a, b models.Attributes) bool {
	if !models.Accepts(a.SexualPreference, a.Gender, b.Gender) {
		return false
	}
	if !models.Accepts(b.SexualPreference, b.Gender, a.Gender) {
		return false
	}
	if a.PairingType != b.PairingType {
		return false
	}
	if r.RequirePairOnSystem && (!a.PairOnSystem || !b.PairOnSystem) {
		return false
	}
	return true
}

func (r Rules) baseline(rng *rand.Rand) float64 {
	if r.Baseline > 0 {
		return r.Baseline
	}
	return r.BaselineMin + rng.Float64()*(r.BaselineMax-r.BaselineMin)
}

// New builds the matrix for a population. Exactly one rng draw is consumed
// per unordered pair when the baseline is random, whether or not the pair is
// compatible, so the draw sequence depends only on N.
func New(attrs []models.Attributes, rules Rules, rng *rand.Rand) (*Matrix, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	m, err := NewZero(len(attrs))
	if err != nil {
		return nil, err
	}
	for i := 0; i < m.n; i++ {
		for j := i + 1; j < m.n; j++ {
			p := rules.baseline(rng)
			if !rules.Compatible(attrs[i], attrs[j]) {
				continue
			}
			if attrs[i].Location != attrs[j].Location {
				p *= rules.LocationFactor
			}
			m.set(i, j, p)
		}
	}
	return m, nil
}
