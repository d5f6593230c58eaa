// Package metrics aggregates per-tick population counts.
package metrics

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/Swabber-io/syscomp/internal/agents"
	"github.com/Swabber-io/syscomp/internal/models"
)

// Ratio is a count ratio that may be +Inf. It encodes to JSON as a number,
// or as the string "+Inf" when infinite.
type Ratio float64

// NewRatio returns num/den, or +Inf when den is zero.
func NewRatio(num, den int) Ratio {
	if den == 0 {
		return Ratio(math.Inf(1))
	}
	return Ratio(float64(num) / float64(den))
}

// IsInf reports whether the ratio is infinite.
func (r Ratio) IsInf() bool { return math.IsInf(float64(r), 1) }

// String renders the ratio with two decimals, or "∞".
func (r Ratio) String() string {
	if r.IsInf() {
		return "∞"
	}
	return strconv.FormatFloat(float64(r), 'f', 2, 64)
}

// MarshalJSON implements json.Marshaler.
func (r Ratio) MarshalJSON() ([]byte, error) {
	if r.IsInf() {
		return []byte(`"+Inf"`), nil
	}
	return json.Marshal(float64(r))
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Ratio) UnmarshalJSON(b []byte) error {
	if string(b) == `"+Inf"` {
		*r = Ratio(math.Inf(1))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*r = Ratio(f)
	return nil
}

// Counts is the number of agents in each state.
type Counts struct {
	Susceptible int `json:"susceptible"`
	Infected    int `json:"infected"`
	Resistant   int `json:"resistant"`
	Exposed     int `json:"exposed"`
	Off         int `json:"off"`
}

// Total returns the population size.
func (c Counts) Total() int {
	return c.Susceptible + c.Infected + c.Resistant + c.Exposed + c.Off
}

// Of returns the count for a single state.
func (c Counts) Of(s models.State) int {
	switch s {
	case models.StateSusceptible:
		return c.Susceptible
	case models.StateInfected:
		return c.Infected
	case models.StateResistant:
		return c.Resistant
	case models.StateExposed:
		return c.Exposed
	case models.StateOff:
		return c.Off
	}
	return 0
}

// Count tallies the population by state.
func Count(pop agents.Population) Counts {
	var c Counts
	for _, a := range pop {
		switch a.State {
		case models.StateSusceptible:
			c.Susceptible++
		case models.StateInfected:
			c.Infected++
		case models.StateResistant:
			c.Resistant++
		case models.StateExposed:
			c.Exposed++
		case models.StateOff:
			c.Off++
		}
	}
	return c
}

// ResistantSusceptibleRatio is resistant/susceptible, +Inf when no agent is
// susceptible.
func ResistantSusceptibleRatio(c Counts) Ratio {
	return NewRatio(c.Resistant, c.Susceptible)
}

// InfectedSusceptibleRatio is infected/susceptible, +Inf when no agent is
// susceptible.
func InfectedSusceptibleRatio(c Counts) Ratio {
	return NewRatio(c.Infected, c.Susceptible)
}

// Snapshot is the metrics row of one tick.
type Snapshot struct {
	Tick                 int    `json:"tick"`
	Counts               Counts `json:"counts"`
	Edges                int    `json:"edges"`
	EdgesAdded           int    `json:"edges_added"`
	EdgesRemoved         int    `json:"edges_removed"`
	ResistantSusceptible Ratio  `json:"resistant_susceptible"`
	InfectedSusceptible  Ratio  `json:"infected_susceptible"`
}

// Aggregator records one Snapshot per tick.
type Aggregator struct {
	history []Snapshot
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Collect tallies pop, appends the snapshot to the history and returns it.
func (a *Aggregator) Collect(tick int, pop agents.Population, edges, added, removed int) Snapshot {
	c := Count(pop)
	s := Snapshot{
		Tick:                 tick,
		Counts:               c,
		Edges:                edges,
		EdgesAdded:           added,
		EdgesRemoved:         removed,
		ResistantSusceptible: ResistantSusceptibleRatio(c),
		InfectedSusceptible:  InfectedSusceptibleRatio(c),
	}
	a.history = append(a.history, s)
	return s
}

// History returns a copy of every snapshot collected so far.
func (a *Aggregator) History() []Snapshot {
	out := make([]Snapshot, len(a.history))
	copy(out, a.history)
	return out
}

// Latest returns the most recent snapshot.
func (a *Aggregator) Latest() (Snapshot, bool) {
	if len(a.history) == 0 {
		return Snapshot{}, false
	}
	return a.history[len(a.history)-1], true
}

// Reset drops the history.
func (a *Aggregator) Reset() { a.history = nil }

// Peak returns the first snapshot with the highest infected count.
func Peak(history []Snapshot) (Snapshot, bool) {
	if len(history) == 0 {
		return Snapshot{}, false
	}
	best := history[0]
	for _, s := range history[1:] {
		if s.Counts.Infected > best.Counts.Infected {
			best = s
		}
	}
	return best, true
}
