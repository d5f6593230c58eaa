package agents

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Swabber-io/syscomp/internal/models"
)

// ErrNotSupported is returned by pathogen kinds that have no behavior yet.
var ErrNotSupported = errors.New("pathogen kind not supported")

// Kind identifies a pathogen variant.
type Kind string

const (
	KindVirus    Kind = "virus"
	KindBacteria Kind = "bacteria"
	KindParasite Kind = "parasite"
)

// ParseKind parses a pathogen kind name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindVirus, KindBacteria, KindParasite:
		return k, nil
	}
	return "", &models.ParseError{Field: "kind", Value: s}
}

// Params are the per-tick probabilities of an infection.
type Params struct {
	SpreadChance         float64 `json:"spread_chance" yaml:"spread_chance"`
	CheckFrequency       float64 `json:"check_frequency" yaml:"check_frequency"`
	RecoveryChance       float64 `json:"recovery_chance" yaml:"recovery_chance"`
	GainResistanceChance float64 `json:"gain_resistance_chance" yaml:"gain_resistance_chance"`
}

// DefaultParams returns the stock virus parameters.
func DefaultParams() Params {
	return Params{
		SpreadChance:         0.4,
		CheckFrequency:       0.4,
		RecoveryChance:       0.3,
		GainResistanceChance: 0.5,
	}
}

// Validate checks that every probability lies in [0, 1].
func (p Params) Validate() error {
	checks := []struct {
		field string
		v     float64
	}{
		{"spread_chance", p.SpreadChance},
		{"check_frequency", p.CheckFrequency},
		{"recovery_chance", p.RecoveryChance},
		{"gain_resistance_chance", p.GainResistanceChance},
	}
	for _, c := range checks {
		if err := models.CheckProbability(c.field, c.v); err != nil {
			return err
		}
	}
	return nil
}

// Pathogen is one infection instance owned by a single agent. Each method
// takes the host's current state and returns the state it should move to.
type Pathogen interface {
	Kind() Kind
	Params() Params

	// Clone returns an independent instance with identical parameters.
	Clone() Pathogen

	// TryToInfectNeighbors infects susceptible neighbors of host and returns
	// their IDs in visiting order.
	TryToInfectNeighbors(host int, env Env) ([]int, error)
	TryCheckSituation(state models.State, env Env) (models.State, error)
	TryRemoveInfection(state models.State, env Env) (models.State, error)
	TryGainResistance(state models.State, env Env) (models.State, error)

	// Step runs one full tick of the pathogen for host.
	Step(host int, state models.State, env Env) (models.State, []int, error)
}

// NewPathogen builds a pathogen of the given kind. Kinds without behavior
// fail with ErrNotSupported so they are rejected before a run starts.
func NewPathogen(kind Kind, params Params) (Pathogen, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	switch kind {
	case KindVirus:
		return &Virus{params: params}, nil
	case KindBacteria, KindParasite:
		return nil, fmt.Errorf("%s: %w", kind, ErrNotSupported)
	}
	return nil, &models.ValidationError{Field: "kind", Value: kind, Reason: "unknown pathogen kind"}
}

// Bacteria is a placeholder variant. Every operation fails with ErrNotSupported.
type Bacteria struct{ params Params }

func (b *Bacteria) Kind() Kind      { return KindBacteria }
func (b *Bacteria) Params() Params  { return b.params }
func (b *Bacteria) Clone() Pathogen { return &Bacteria{params: b.params} }

func (b *Bacteria) TryToInfectNeighbors(int, Env) ([]int, error) {
	return nil, unsupported(KindBacteria)
}

func (b *Bacteria) TryCheckSituation(s models.State, _ Env) (models.State, error) {
	return s, unsupported(KindBacteria)
}

func (b *Bacteria) TryRemoveInfection(s models.State, _ Env) (models.State, error) {
	return s, unsupported(KindBacteria)
}

func (b *Bacteria) TryGainResistance(s models.State, _ Env) (models.State, error) {
	return s, unsupported(KindBacteria)
}

func (b *Bacteria) Step(_ int, s models.State, _ Env) (models.State, []int, error) {
	return s, nil, unsupported(KindBacteria)
}

// Parasite is a placeholder variant. Every operation fails with ErrNotSupported.
type Parasite struct{ params Params }

func (p *Parasite) Kind() Kind      { return KindParasite }
func (p *Parasite) Params() Params  { return p.params }
func (p *Parasite) Clone() Pathogen { return &Parasite{params: p.params} }

func (p *Parasite) TryToInfectNeighbors(int, Env) ([]int, error) {
	return nil, unsupported(KindParasite)
}

func (p *Parasite) TryCheckSituation(s models.State, _ Env) (models.State, error) {
	return s, unsupported(KindParasite)
}

func (p *Parasite) TryRemoveInfection(s models.State, _ Env) (models.State, error) {
	return s, unsupported(KindParasite)
}

func (p *Parasite) TryGainResistance(s models.State, _ Env) (models.State, error) {
	return s, unsupported(KindParasite)
}

func (p *Parasite) Step(_ int, s models.State, _ Env) (models.State, []int, error) {
	return s, nil, unsupported(KindParasite)
}

func unsupported(k Kind) error {
	return fmt.Errorf("%s: %w", k, ErrNotSupported)
}
