package simulation

import (
	"testing"

	"github.com/Swabber-io/syscomp/internal/models"
)

// AssertNoError fails the test immediately when the scenario failed.
func AssertNoError(t *testing.T, result ScenarioResult) {
	t.Helper()
	if result.Err != nil {
		t.Fatalf("AssertNoError: scenario failed: %v", result.Err)
	}
}

// AssertPopulationConstant asserts that every frame has the same number of
// agents as the first.
func AssertPopulationConstant(t *testing.T, result ScenarioResult) {
	t.Helper()
	if len(result.Frames) == 0 {
		return
	}
	n := len(result.Frames[0].Nodes)
	for _, f := range result.Frames {
		if len(f.Nodes) != n {
			t.Errorf("AssertPopulationConstant: tick %d: %d agents, want %d", f.Tick, len(f.Nodes), n)
		}
		if total := f.Metrics.Counts.Total(); total != n {
			t.Errorf("AssertPopulationConstant: tick %d: counts total %d, want %d", f.Tick, total, n)
		}
	}
}

// AssertEdgesWithinTTL asserts that no frame contains an edge whose age has
// reached ttl.
func AssertEdgesWithinTTL(t *testing.T, result ScenarioResult, ttl int) {
	t.Helper()
	for _, f := range result.Frames {
		for _, e := range f.Edges {
			if f.Tick-e.CreatedAt >= ttl {
				t.Errorf("AssertEdgesWithinTTL: tick %d: edge %v created at %d outlived ttl %d", f.Tick, e.Pair, e.CreatedAt, ttl)
			}
		}
	}
}

// AssertNoForbiddenTransitions asserts that no single agent step moved an
// agent from SUSCEPTIBLE to RESISTANT, and that RESISTANT agents never become
// INFECTED again.
func AssertNoForbiddenTransitions(t *testing.T, result ScenarioResult) {
	t.Helper()
	for i, f := range result.Frames {
		for _, tr := range f.Transitions {
			if tr.From == models.StateSusceptible && tr.To == models.StateResistant {
				t.Errorf("AssertNoForbiddenTransitions: tick %d: agent %d went S->R in one step", f.Tick, tr.Agent)
			}
		}
		if i == 0 {
			continue
		}
		prev := result.Frames[i-1]
		for id := range f.Nodes {
			if prev.Nodes[id].State == models.StateResistant && f.Nodes[id].State == models.StateInfected {
				t.Errorf("AssertNoForbiddenTransitions: tick %d: agent %d went R->I", f.Tick, id)
			}
		}
	}
}

// AssertPathogenOnlyWhenInfected asserts that only INFECTED agents hold
// pathogens, in every frame.
func AssertPathogenOnlyWhenInfected(t *testing.T, result ScenarioResult) {
	t.Helper()
	for _, f := range result.Frames {
		for _, n := range f.Nodes {
			if n.State != models.StateInfected && len(n.Infections) > 0 {
				t.Errorf("AssertPathogenOnlyWhenInfected: tick %d: agent %d is %v with %d pathogens", f.Tick, n.ID, n.State, len(n.Infections))
			}
		}
	}
}

// AssertMatrixValid asserts that the model's matrix currently satisfies its
// invariants.
func AssertMatrixValid(t *testing.T, m *Model) {
	t.Helper()
	if err := m.Engine().Matrix().Validate(); err != nil {
		t.Errorf("AssertMatrixValid: tick %d: %v", m.Tick(), err)
	}
}

// AssertActiveEdgesZeroed asserts that every active edge has a zero matrix
// entry.
func AssertActiveEdgesZeroed(t *testing.T, m *Model) {
	t.Helper()
	mat := m.Engine().Matrix()
	for _, e := range m.Engine().Edges() {
		if p := mat.At(e.A, e.B); p != 0 {
			t.Errorf("AssertActiveEdgesZeroed: tick %d: edge %v has probability %v", m.Tick(), e.Pair, p)
		}
	}
}
