package agents

import "github.com/Swabber-io/syscomp/internal/models"

// Virus is the only pathogen kind with behavior.
type Virus struct {
	params Params
}

// NewVirus returns a virus with the given parameters. Use NewPathogen when the
// parameters come from user input.
func NewVirus(params Params) *Virus { return &Virus{params: params} }

func (v *Virus) Kind() Kind      { return KindVirus }
func (v *Virus) Params() Params  { return v.params }
func (v *Virus) Clone() Pathogen { return &Virus{params: v.params} }

// String implements fmt.Stringer.
func (v *Virus) String() string { return "VIRUS" }

// TryToInfectNeighbors draws once per susceptible neighbor, in ascending ID
// order. A successful draw marks the neighbor INFECTED and hands it a clone.
func (v *Virus) TryToInfectNeighbors(host int, env Env) ([]int, error) {
	var infected []int
	for _, id := range env.Neighbors.Neighbors(host) {
		n := env.Population.Agent(id)
		if n == nil || n.State != models.StateSusceptible {
			continue
		}
		if env.Rng.Float64() < v.params.SpreadChance {
			n.Infect(v.Clone())
			infected = append(infected, id)
		}
	}
	return infected, nil
}

// TryGainResistance moves a recovered host to RESISTANT with the gain chance.
func (v *Virus) TryGainResistance(state models.State, env Env) (models.State, error) {
	if env.Rng.Float64() < v.params.GainResistanceChance {
		return models.StateResistant, nil
	}
	return state, nil
}

// TryRemoveInfection clears the infection with the recovery chance and then
// tries for resistance. On failure the host stays INFECTED.
func (v *Virus) TryRemoveInfection(_ models.State, env Env) (models.State, error) {
	if env.Rng.Float64() < v.params.RecoveryChance {
		return v.TryGainResistance(models.StateSusceptible, env)
	}
	return models.StateInfected, nil
}

// TryCheckSituation always draws, and only an INFECTED host that passes the
// check frequency attempts removal.
func (v *Virus) TryCheckSituation(state models.State, env Env) (models.State, error) {
	if env.Rng.Float64() < v.params.CheckFrequency && state == models.StateInfected {
		return v.TryRemoveInfection(state, env)
	}
	return state, nil
}

// Step spreads to neighbors while INFECTED and then checks the host.
func (v *Virus) Step(host int, state models.State, env Env) (models.State, []int, error) {
	var infected []int
	if state == models.StateInfected {
		var err error
		if infected, err = v.TryToInfectNeighbors(host, env); err != nil {
			return state, infected, err
		}
	}
	next, err := v.TryCheckSituation(state, env)
	return next, infected, err
}
