package simulation

import "github.com/Swabber-io/syscomp/internal/models"

// Uniform returns n identical agent specs.
func Uniform(n int, spec AgentSpec) []AgentSpec {
	specs := make([]AgentSpec, n)
	for i := range specs {
		specs[i] = spec
	}
	return specs
}

// Couples returns n straight male/female pairs in one location, so every
// cross-gender pair is compatible and every same-gender pair is not.
func Couples(n int, location string) []AgentSpec {
	specs := make([]AgentSpec, 0, 2*n)
	for i := 0; i < n; i++ {
		specs = append(specs,
			AgentSpec{Gender: models.GenderMale, Orientation: models.OrientationStraight, Location: location},
			AgentSpec{Gender: models.GenderFemale, Orientation: models.OrientationStraight, Location: location},
		)
	}
	return specs
}

// WithInfected marks the given indices of specs as initially infected.
func WithInfected(specs []AgentSpec, ids ...int) []AgentSpec {
	out := append([]AgentSpec(nil), specs...)
	for _, id := range ids {
		out[id].Status = models.StateInfected
	}
	return out
}

// FixedBaseline returns cfg with every compatible pair at probability p,
// no location penalty and no normalization, which makes edge formation
// easy to reason about in tests.
func FixedBaseline(cfg Config, p float64) Config {
	cfg.Rules.Baseline = p
	cfg.Rules.LocationFactor = 1
	cfg.NormalizeOnSetup = false
	return cfg
}
