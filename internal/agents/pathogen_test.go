package agents

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/Swabber-io/syscomp/internal/models"
)

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr string
	}{
		{"defaults", DefaultParams(), ""},
		{"all zero", Params{}, ""},
		{"all one", Params{1, 1, 1, 1}, ""},
		{"spread high", Params{SpreadChance: 1.01}, "spread_chance"},
		{"check negative", Params{CheckFrequency: -0.1}, "check_frequency"},
		{"recovery NaN", Params{RecoveryChance: math.NaN()}, "recovery_chance"},
		{"gain high", Params{GainResistanceChance: 2}, "gain_resistance_chance"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve *models.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("got %v, want *ValidationError", err)
			}
			if ve.Field != tt.wantErr {
				t.Errorf("Field = %q, want %q", ve.Field, tt.wantErr)
			}
		})
	}
}

func TestNewPathogen(t *testing.T) {
	p, err := NewPathogen(KindVirus, DefaultParams())
	if err != nil {
		t.Fatalf("virus: %v", err)
	}
	if p.Kind() != KindVirus {
		t.Errorf("Kind = %v", p.Kind())
	}
	for _, k := range []Kind{KindBacteria, KindParasite} {
		if _, err := NewPathogen(k, DefaultParams()); !errors.Is(err, ErrNotSupported) {
			t.Errorf("%s: got %v, want ErrNotSupported", k, err)
		}
	}
	if _, err := NewPathogen("prion", DefaultParams()); err == nil {
		t.Error("unknown kind accepted")
	}
	if _, err := NewPathogen(KindVirus, Params{SpreadChance: 3}); err == nil {
		t.Error("invalid params accepted")
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Virus ")
	if err != nil || k != KindVirus {
		t.Errorf("ParseKind = %v, %v", k, err)
	}
	var pe *models.ParseError
	if _, err := ParseKind("fungus"); !errors.As(err, &pe) {
		t.Errorf("got %v, want *ParseError", err)
	}
}

func TestPlaceholderVariants_ReportNotSupported(t *testing.T) {
	e := Env{Rng: rand.New(rand.NewSource(1)), Neighbors: adjacency{}, Population: nil}
	for _, p := range []Pathogen{&Bacteria{}, &Parasite{}} {
		if _, err := p.TryToInfectNeighbors(0, e); !errors.Is(err, ErrNotSupported) {
			t.Errorf("%s TryToInfectNeighbors: %v", p.Kind(), err)
		}
		if _, err := p.TryCheckSituation(models.StateInfected, e); !errors.Is(err, ErrNotSupported) {
			t.Errorf("%s TryCheckSituation: %v", p.Kind(), err)
		}
		if _, err := p.TryRemoveInfection(models.StateInfected, e); !errors.Is(err, ErrNotSupported) {
			t.Errorf("%s TryRemoveInfection: %v", p.Kind(), err)
		}
		if _, err := p.TryGainResistance(models.StateSusceptible, e); !errors.Is(err, ErrNotSupported) {
			t.Errorf("%s TryGainResistance: %v", p.Kind(), err)
		}
		if _, _, err := p.Step(0, models.StateInfected, e); !errors.Is(err, ErrNotSupported) {
			t.Errorf("%s Step: %v", p.Kind(), err)
		}
		if p.Clone().Kind() != p.Kind() {
			t.Errorf("%s Clone changed kind", p.Kind())
		}
	}
}

func TestVirus_CheckAlwaysDraws(t *testing.T) {
	// A non-infected host still consumes the check draw.
	v := NewVirus(Params{CheckFrequency: 1, RecoveryChance: 1})
	rng := rand.New(rand.NewSource(8))
	e := Env{Rng: rng}
	state, err := v.TryCheckSituation(models.StateSusceptible, e)
	if err != nil || state != models.StateSusceptible {
		t.Fatalf("TryCheckSituation = %v, %v", state, err)
	}
	ref := rand.New(rand.NewSource(8))
	ref.Float64()
	if rng.Float64() != ref.Float64() {
		t.Error("expected exactly one draw")
	}
}
