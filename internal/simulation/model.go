package simulation

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/Swabber-io/syscomp/internal/agents"
	"github.com/Swabber-io/syscomp/internal/compat"
	"github.com/Swabber-io/syscomp/internal/constants"
	"github.com/Swabber-io/syscomp/internal/metrics"
	"github.com/Swabber-io/syscomp/internal/models"
	"github.com/Swabber-io/syscomp/internal/network"
	"github.com/Swabber-io/syscomp/internal/schedule"
)

// ErrStopped is returned by Step once the model has stopped.
var ErrStopped = errors.New("simulation stopped")

// Config holds every model-level parameter.
type Config struct {
	Seed         int64          `json:"seed" yaml:"seed"`
	OutbreakSize int            `json:"outbreak_size" yaml:"outbreak_size"`
	Pathogen     agents.Kind    `json:"pathogen" yaml:"pathogen"`
	Virus        agents.Params  `json:"virus" yaml:"virus"`
	Rules        compat.Rules   `json:"compatibility" yaml:"compatibility"`
	Network      network.Config `json:"network" yaml:"network"`
	Scheduler    string         `json:"scheduler" yaml:"scheduler"`

	// NormalizeOnSetup runs Matrix.Recalculate once after construction.
	NormalizeOnSetup bool `json:"normalize_on_setup" yaml:"normalize_on_setup"`
}

// DefaultConfig returns the stock model configuration.
func DefaultConfig() Config {
	return Config{
		Seed:             constants.DefaultSeed,
		OutbreakSize:     constants.DefaultOutbreakSize,
		Pathogen:         agents.KindVirus,
		Virus:            agents.DefaultParams(),
		Rules:            compat.DefaultRules(),
		Network:          network.DefaultConfig(),
		Scheduler:        schedule.Random,
		NormalizeOnSetup: true,
	}
}

// Validate checks every parameter. Nothing is clamped except the outbreak
// size, which New limits to the population size.
func (c Config) Validate() error {
	if c.OutbreakSize < 0 {
		return &models.ValidationError{Field: "outbreak_size", Value: c.OutbreakSize, Reason: "must not be negative"}
	}
	if err := c.Virus.Validate(); err != nil {
		return err
	}
	if err := c.Rules.Validate(); err != nil {
		return err
	}
	if err := c.Network.Validate(); err != nil {
		return err
	}
	if _, err := agents.ParseKind(string(c.Pathogen)); err != nil {
		return &models.ValidationError{Field: "pathogen", Value: c.Pathogen, Reason: "unknown pathogen kind"}
	}
	if _, err := schedule.New(c.Scheduler, nil); err != nil {
		return err
	}
	return nil
}

// Model is one simulation instance. It is not safe for concurrent use.
type Model struct {
	config     Config
	rng        *rand.Rand
	population agents.Population
	engine     *network.Engine
	scheduler  schedule.Scheduler
	metrics    *metrics.Aggregator
	prototype  agents.Pathogen

	tick        int
	running     bool
	last        network.UpdateResult
	transitions []agents.Transition
}

// New builds a model from a population. Agents whose record status is
// INFECTED start with a pathogen; further random susceptible agents are
// infected until the outbreak size (clamped to N) is reached.
func New(cfg Config, records []models.AgentRecord) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	prototype, err := agents.NewPathogen(cfg.Pathogen, cfg.Virus)
	if err != nil {
		return nil, fmt.Errorf("pathogen: %w", err)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	attrs := make([]models.Attributes, len(records))
	for i, r := range records {
		attrs[i] = r.Attributes
	}
	matrix, err := compat.New(attrs, cfg.Rules, rng)
	if err != nil {
		return nil, fmt.Errorf("compatibility matrix: %w", err)
	}
	if cfg.NormalizeOnSetup {
		matrix.Recalculate()
	}
	engine, err := network.NewEngine(matrix, cfg.Network, rng)
	if err != nil {
		return nil, err
	}
	scheduler, err := schedule.New(cfg.Scheduler, rng)
	if err != nil {
		return nil, err
	}

	m := &Model{
		config:    cfg,
		rng:       rng,
		engine:    engine,
		scheduler: scheduler,
		metrics:   metrics.NewAggregator(),
		prototype: prototype,
		running:   true,
	}
	m.population = m.populate(records)
	m.seedOutbreak()
	m.metrics.Collect(0, m.population, 0, 0, 0)
	return m, nil
}

func (m *Model) populate(records []models.AgentRecord) agents.Population {
	pop := make(agents.Population, len(records))
	for i, r := range records {
		state := r.Status
		if state == "" {
			state = models.StateSusceptible
		}
		a := agents.New(i, r.Attributes, state)
		if state == models.StateInfected {
			a.Infect(m.prototype.Clone())
		}
		pop[i] = a
	}
	return pop
}

func (m *Model) seedOutbreak() {
	target := m.config.OutbreakSize
	if target > len(m.population) {
		target = len(m.population)
	}
	need := target - metrics.Count(m.population).Infected
	if need <= 0 {
		return
	}
	var candidates []*agents.Agent
	for _, a := range m.population {
		if a.State == models.StateSusceptible {
			candidates = append(candidates, a)
		}
	}
	for _, idx := range m.rng.Perm(len(candidates)) {
		if need == 0 {
			break
		}
		candidates[idx].Infect(m.prototype.Clone())
		need--
	}
}

// Step advances the model by one tick. Any error is fatal: the model stops
// and the error is returned.
func (m *Model) Step() error {
	if !m.running {
		return ErrStopped
	}
	m.tick++
	m.last = m.engine.Update()
	m.transitions = m.transitions[:0]

	env := agents.Env{Rng: m.rng, Neighbors: m.engine, Population: m.population}
	for _, id := range m.scheduler.Order(len(m.population)) {
		a := m.population[id]
		if !a.HasInfection() {
			continue
		}
		tr, err := a.Step(env)
		if err != nil {
			m.running = false
			return fmt.Errorf("tick %d: %w", m.tick, err)
		}
		if tr.Changed() {
			m.transitions = append(m.transitions, tr)
		}
	}

	m.metrics.Collect(m.tick, m.population, m.engine.Graph().Size(), len(m.last.Added), len(m.last.Removed))
	return nil
}

// Run steps the model n times or until it stops.
func (m *Model) Run(n int) error {
	for i := 0; i < n && m.running; i++ {
		if err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Running reports whether the model accepts further steps.
func (m *Model) Running() bool { return m.running }

// Stop halts the model. Further Step calls return ErrStopped.
func (m *Model) Stop() { m.running = false }

// Tick returns the number of completed steps.
func (m *Model) Tick() int { return m.tick }

// Config returns the configuration the model was built with.
func (m *Model) Config() Config { return m.config }

// Population returns the live agents. Callers must not mutate them.
func (m *Model) Population() agents.Population { return m.population }

// Engine returns the network engine.
func (m *Model) Engine() *network.Engine { return m.engine }

// Metrics returns the metrics aggregator.
func (m *Model) Metrics() *metrics.Aggregator { return m.metrics }

// LastUpdate returns the network change of the most recent tick.
func (m *Model) LastUpdate() network.UpdateResult { return m.last }

// Transitions returns the agent transitions of the most recent tick.
func (m *Model) Transitions() []agents.Transition {
	out := make([]agents.Transition, len(m.transitions))
	copy(out, m.transitions)
	return out
}
