// Package simulation drives the contact-network infection model.
//
// A Model couples the network evolution engine with the per-agent infection
// automaton under one seeded rng. Each tick it updates the network first,
// then steps every agent that holds a pathogen in scheduler order, then
// records metrics. A Runner wraps a Model for whole runs: it emits a Frame
// per tick to every configured Sink (SQLite, NATS, in-memory) and traces
// edge churn and transitions to the event log.
//
// Usage:
//
//	m, err := simulation.New(cfg, records)
//	if err != nil {
//	    return err
//	}
//	r := simulation.NewRunner(m, simulation.RunnerOptions{Logger: logger})
//	result, err := r.Run(ctx, 200)
//
// Scenario and the Assert helpers give tests a declarative way to build a
// population and check run-wide properties.
package simulation
