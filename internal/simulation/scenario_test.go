package simulation_test

import (
	"testing"

	"github.com/Swabber-io/syscomp/internal/agents"
	"github.com/Swabber-io/syscomp/internal/compat"
	"github.com/Swabber-io/syscomp/internal/models"
	"github.com/Swabber-io/syscomp/internal/simulation"
)

// TestScenario_LongRunInvariants runs a mixed population through enough ticks
// for many edges to form and expire, checking every run-wide invariant.
func TestScenario_LongRunInvariants(t *testing.T) {
	cfg := simulation.DefaultConfig()
	cfg.Seed = 20240601
	cfg.OutbreakSize = 4
	cfg.Network.EdgeTTL = 6
	cfg.Network.ReseedOnRemoval = true
	cfg.Rules = compat.Rules{BaselineMin: 0.02, BaselineMax: 0.08, LocationFactor: 0.5}
	cfg.NormalizeOnSetup = false

	specs := append(simulation.Couples(10, "north"), simulation.Couples(10, "south")...)
	specs = append(specs, simulation.Uniform(6, simulation.AgentSpec{
		Gender:      models.GenderFemale,
		Orientation: models.OrientationLesbian,
		Location:    "north",
	})...)

	var checked int
	result := simulation.RunScenario(simulation.Scenario{
		Name:   "long-run-invariants",
		Agents: specs,
		Config: cfg,
		Ticks:  80,
		BeforeTick: func(tick int, m *simulation.Model) {
			simulation.AssertMatrixValid(t, m)
			simulation.AssertActiveEdgesZeroed(t, m)
			checked++
		},
	})

	simulation.AssertNoError(t, result)
	simulation.AssertPopulationConstant(t, result)
	simulation.AssertEdgesWithinTTL(t, result, cfg.Network.EdgeTTL)
	simulation.AssertNoForbiddenTransitions(t, result)
	simulation.AssertPathogenOnlyWhenInfected(t, result)

	if len(result.Frames) != 81 {
		t.Errorf("frames = %d, want 81", len(result.Frames))
	}
	if checked != 80 {
		t.Errorf("BeforeTick called %d times, want 80", checked)
	}

	var formed int
	for _, f := range result.Frames {
		formed += len(f.Added)
	}
	if formed == 0 {
		t.Error("no edges formed over the whole run")
	}
}

// TestScenario_EdgeLifecycle reproduces the four-agent case where only the
// pair (0,1) can ever link.
func TestScenario_EdgeLifecycle(t *testing.T) {
	cfg := simulation.FixedBaseline(simulation.DefaultConfig(), 1)
	cfg.Network.EdgeTTL = 5
	cfg.OutbreakSize = 0

	// Agents 2 and 3 are straight men on another pairing type, so neither
	// can link with anyone.
	specs := simulation.Couples(1, "x")
	specs = append(specs,
		simulation.AgentSpec{Gender: models.GenderMale, Orientation: models.OrientationStraight, Pairing: models.PairingConcurrent},
		simulation.AgentSpec{Gender: models.GenderMale, Orientation: models.OrientationStraight, Pairing: models.PairingConcurrent},
	)

	result := simulation.RunScenario(simulation.Scenario{Agents: specs, Config: cfg, Ticks: 6})
	simulation.AssertNoError(t, result)

	f1 := result.Frames[1]
	if len(f1.Edges) != 1 || f1.Edges[0].A != 0 || f1.Edges[0].B != 1 {
		t.Fatalf("tick 1 edges = %+v, want only (0,1)", f1.Edges)
	}
	for tick := 2; tick <= 5; tick++ {
		if len(result.Frames[tick].Edges) != 1 {
			t.Fatalf("tick %d: edge (0,1) missing", tick)
		}
	}
	f6 := result.Frames[6]
	if len(f6.Edges) != 0 || len(f6.Removed) != 1 {
		t.Errorf("tick 6: edges=%v removed=%v, want the edge evicted", f6.Edges, f6.Removed)
	}
	if p := result.Model.Engine().Matrix().At(0, 1); p != 0 {
		t.Errorf("m[0][1] = %v after eviction, want 0 without reseeding", p)
	}
}

// TestScenario_RecoveryDrainsOutbreak checks that with certain recovery and
// no spread every infected agent leaves INFECTED on its first step.
func TestScenario_RecoveryDrainsOutbreak(t *testing.T) {
	cfg := simulation.DefaultConfig()
	cfg.OutbreakSize = 5
	cfg.Virus = agents.Params{CheckFrequency: 1, RecoveryChance: 1, GainResistanceChance: 1}

	result := simulation.RunScenario(simulation.Scenario{
		Agents: simulation.Couples(5, "x"),
		Config: cfg,
		Ticks:  1,
	})
	simulation.AssertNoError(t, result)

	c := result.Frames[1].Metrics.Counts
	if c.Infected != 0 || c.Resistant != 5 || c.Susceptible != 5 {
		t.Errorf("counts after one tick = %+v", c)
	}
	simulation.AssertPathogenOnlyWhenInfected(t, result)
}
