// Package agents implements the per-agent infection automaton.
//
// An agent moves SUSCEPTIBLE -> INFECTED -> (RESISTANT | SUSCEPTIBLE). Only
// INFECTED agents spread, and a pathogen is dropped as soon as its host leaves
// INFECTED. All randomness comes from the rng carried in Env.
package agents

import (
	"fmt"
	"math/rand"

	"github.com/Swabber-io/syscomp/internal/models"
)

// Neighborhood answers which agents are currently linked to id.
type Neighborhood interface {
	Neighbors(id int) []int
}

// Population is the full agent list indexed by ID.
type Population []*Agent

// Agent returns the agent with the given ID, or nil when out of range.
func (p Population) Agent(id int) *Agent {
	if id < 0 || id >= len(p) {
		return nil
	}
	return p[id]
}

// Counts tallies agents per state.
func (p Population) Counts() map[models.State]int {
	counts := make(map[models.State]int, len(models.AllStates))
	for _, a := range p {
		counts[a.State]++
	}
	return counts
}

// Env is everything a step needs beyond the agent itself.
type Env struct {
	Rng        *rand.Rand
	Neighbors  Neighborhood
	Population Population
}

// Agent is one member of the simulated population.
type Agent struct {
	ID         int               `json:"id"`
	Attributes models.Attributes `json:"attributes"`
	State      models.State      `json:"state"`
	Infections []Pathogen        `json:"-"`
}

// New creates an agent with no infections.
func New(id int, attrs models.Attributes, state models.State) *Agent {
	return &Agent{ID: id, Attributes: attrs, State: state}
}

// Infect marks the agent INFECTED and gives it p.
func (a *Agent) Infect(p Pathogen) {
	a.State = models.StateInfected
	a.Infections = append(a.Infections, p)
}

// HasInfection reports whether the agent holds at least one pathogen.
func (a *Agent) HasInfection() bool { return len(a.Infections) > 0 }

// InfectionKinds lists the kinds of the pathogens held, in order.
func (a *Agent) InfectionKinds() []Kind {
	kinds := make([]Kind, len(a.Infections))
	for i, p := range a.Infections {
		kinds[i] = p.Kind()
	}
	return kinds
}

// Transition records what one agent step changed.
type Transition struct {
	Agent    int          `json:"agent"`
	From     models.State `json:"from"`
	To       models.State `json:"to"`
	Infected []int        `json:"infected,omitempty"`
}

// Changed reports whether the step changed the agent's state or infected anyone.
func (t Transition) Changed() bool { return t.From != t.To || len(t.Infected) > 0 }

// Step runs every held pathogen in turn. The pathogen list is copied first so
// removals during the loop do not skip entries.
func (a *Agent) Step(env Env) (Transition, error) {
	tr := Transition{Agent: a.ID, From: a.State}
	held := make([]Pathogen, len(a.Infections))
	copy(held, a.Infections)

	for _, p := range held {
		next, infected, err := p.Step(a.ID, a.State, env)
		tr.Infected = append(tr.Infected, infected...)
		if err != nil {
			tr.To = a.State
			return tr, fmt.Errorf("agent %d: %w", a.ID, err)
		}
		a.State = next
		if next == models.StateSusceptible || next == models.StateResistant {
			a.remove(p)
		}
	}
	tr.To = a.State
	return tr, nil
}

func (a *Agent) remove(p Pathogen) {
	for i, q := range a.Infections {
		if q == p {
			a.Infections = append(a.Infections[:i], a.Infections[i+1:]...)
			return
		}
	}
}
