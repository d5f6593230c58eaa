package ingest

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Swabber-io/syscomp/internal/models"
)

func TestGenerate_Deterministic(t *testing.T) {
	opts := DefaultGenerateOptions()
	opts.Now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	a, err := Generate(50, opts, rand.New(rand.NewSource(9)))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, _ := Generate(50, opts, rand.New(rand.NewSource(9)))
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same seed differs (-a +b):\n%s", diff)
	}
}

func TestGenerate_RespectsOptions(t *testing.T) {
	opts := GenerateOptions{
		Locations:          []string{"only"},
		MinAge:             20,
		MaxAge:             30,
		InfectedFraction:   1,
		ConcurrentFraction: 0,
		OffSystemFraction:  0,
		Orientations:       map[models.SexualOrientation]float64{models.OrientationGay: 1},
	}
	recs, err := Generate(40, opts, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, r := range recs {
		if r.Location != "only" || r.AgeGroup != models.AgeGroupAdult {
			t.Errorf("record %s = %+v", r.ExternalID, r.Attributes)
		}
		if r.Status != models.StateInfected || r.PairingType != models.PairingSequential || !r.PairOnSystem {
			t.Errorf("record %s = %+v", r.ExternalID, r)
		}
		switch {
		case r.Gender == models.GenderMale && r.SexualPreference != models.OrientationGay:
			t.Errorf("man %s drew %v", r.ExternalID, r.SexualPreference)
		case r.Gender == models.GenderFemale && r.SexualPreference != models.OrientationStraight:
			t.Errorf("woman %s drew %v, want straight fallback", r.ExternalID, r.SexualPreference)
		}
	}
}

func TestGenerate_Invalid(t *testing.T) {
	tests := []struct {
		name string
		n    int
		opts GenerateOptions
	}{
		{"negative size", -1, DefaultGenerateOptions()},
		{"inverted ages", 1, GenerateOptions{MinAge: 40, MaxAge: 20}},
		{"bad fraction", 1, GenerateOptions{MaxAge: 20, InfectedFraction: 2}},
		{"negative weight", 1, GenerateOptions{MaxAge: 20, Orientations: map[models.SexualOrientation]float64{models.OrientationGay: -1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ve *models.ValidationError
			if _, err := Generate(tt.n, tt.opts, rand.New(rand.NewSource(1))); !errors.As(err, &ve) {
				t.Errorf("error = %v, want *ValidationError", err)
			}
		})
	}
}

type memReader struct {
	recs []models.AgentRecord
	err  error
}

func (m memReader) ListAgents(context.Context) ([]models.AgentRecord, error) {
	return append([]models.AgentRecord(nil), m.recs...), m.err
}

func TestFromStore(t *testing.T) {
	recs, _ := Generate(10, DefaultGenerateOptions(), rand.New(rand.NewSource(3)))

	got, err := FromStore(context.Background(), memReader{recs: recs}, 4, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatalf("FromStore: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("records = %d, want 4", len(got))
	}

	var ve *models.ValidationError
	if _, err := FromStore(context.Background(), memReader{}, 4, nil); !errors.As(err, &ve) {
		t.Errorf("empty store error = %v, want *ValidationError", err)
	}

	boom := errors.New("locked")
	if _, err := FromStore(context.Background(), memReader{err: boom}, 4, nil); !errors.Is(err, boom) {
		t.Errorf("error = %v, want wrapped reader error", err)
	}
}

func TestLoad_Sources(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(1))

	syn := DefaultOptions()
	syn.Size = 12
	recs, err := Load(ctx, syn, nil, rng)
	if err != nil || len(recs) != 12 {
		t.Fatalf("synthetic Load = %d records, %v", len(recs), err)
	}

	stored := Options{Source: "store", Size: 5}
	if _, err := Load(ctx, stored, nil, rng); err == nil {
		t.Error("store source without a store should fail")
	}
	recs, err = Load(ctx, stored, memReader{recs: recs}, rng)
	if err != nil || len(recs) != 5 {
		t.Errorf("store Load = %d records, %v", len(recs), err)
	}

	var ve *models.ValidationError
	if _, err := Load(ctx, Options{Source: "csv"}, nil, rng); !errors.As(err, &ve) {
		t.Errorf("csv without path error = %v, want *ValidationError", err)
	}
	if _, err := Load(ctx, Options{Source: "ldap"}, nil, rng); !errors.As(err, &ve) {
		t.Errorf("unknown source error = %v, want *ValidationError", err)
	}
}
