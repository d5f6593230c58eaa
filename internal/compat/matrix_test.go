package compat

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/Swabber-io/syscomp/internal/models"
)

// assertInvariants fails the test when m violates any matrix invariant.
func assertInvariants(t *testing.T, m *Matrix) {
	t.Helper()
	if err := m.Validate(); err != nil {
		t.Fatalf("matrix invariant violated: %v", err)
	}
	for i := 0; i < m.Size(); i++ {
		for j := 0; j < m.Size(); j++ {
			if math.IsNaN(m.At(i, j)) {
				t.Fatalf("NaN at [%d][%d]", i, j)
			}
		}
	}
}

func TestNewZero_RejectsEmpty(t *testing.T) {
	for _, n := range []int{0, -1} {
		_, err := NewZero(n)
		var ve *models.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("NewZero(%d) = %v, want *ValidationError", n, err)
		}
	}
}

func TestFromValues(t *testing.T) {
	tests := []struct {
		name    string
		rows    [][]float64
		wantErr bool
	}{
		{"single agent", [][]float64{{0}}, false},
		{"symmetric", [][]float64{{0, 0.2}, {0.2, 0}}, false},
		{"asymmetric", [][]float64{{0, 0.2}, {0.3, 0}}, true},
		{"out of range", [][]float64{{0, 1.5}, {1.5, 0}}, true},
		{"negative", [][]float64{{0, -0.1}, {-0.1, 0}}, true},
		{"nonzero diagonal", [][]float64{{0.1, 0}, {0, 0}}, true},
		{"ragged", [][]float64{{0, 0.1}, {0.1}}, true},
		{"empty", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := FromValues(tt.rows)
			if tt.wantErr {
				var ve *models.ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("expected *ValidationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertInvariants(t, m)
		})
	}
}

func TestSet_KeepsSymmetry(t *testing.T) {
	m, _ := NewZero(3)
	if err := m.Set(0, 2, 0.4); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if m.At(2, 0) != 0.4 {
		t.Errorf("mirror entry = %v, want 0.4", m.At(2, 0))
	}
	if err := m.Set(1, 1, 0.3); err == nil {
		t.Error("setting the diagonal should fail")
	}
	if err := m.Set(0, 1, 2); err == nil {
		t.Error("setting an out-of-range value should fail")
	}
	m.Zero(2, 0)
	if m.At(0, 2) != 0 {
		t.Errorf("Zero did not clear mirror entry")
	}
}

func TestRecalculate(t *testing.T) {
	m, err := FromValues([][]float64{
		{0, 0.2, 0.2},
		{0.2, 0, 0.4},
		{0.2, 0.4, 0},
	})
	if err != nil {
		t.Fatalf("FromValues: %v", err)
	}
	m.Recalculate()
	assertInvariants(t, m)

	// Step 0: denom = 0.4 + 0.4 = 0.8 -> m01 = m02 = 0.25.
	// Step 1: row 1 = {0.25, 0, 0.4}, denom = 1.3 -> m01 = 0.25/1.3, m12 = 0.4/1.3.
	// Step 2: row 2 = {0.25, 0.4/1.3, 0}, denom = 2*(0.25+0.4/1.3).
	d2 := 2 * (0.25 + 0.4/1.3)
	want := [][]float64{
		{0, 0.25 / 1.3, 0.25 / d2},
		{0.25 / 1.3, 0, (0.4 / 1.3) / d2},
		{0.25 / d2, (0.4 / 1.3) / d2, 0},
	}
	for i := range want {
		for j := range want[i] {
			if math.Abs(m.At(i, j)-want[i][j]) > 1e-12 {
				t.Errorf("m[%d][%d] = %v, want %v", i, j, m.At(i, j), want[i][j])
			}
		}
	}
}

func TestRecalculate_ZeroSumRowStaysZero(t *testing.T) {
	m, err := FromValues([][]float64{
		{0, 0, 0},
		{0, 0, 0.3},
		{0, 0.3, 0},
	})
	if err != nil {
		t.Fatalf("FromValues: %v", err)
	}
	m.Recalculate()
	assertInvariants(t, m)
	for j := 0; j < 3; j++ {
		if m.At(0, j) != 0 || m.At(j, 0) != 0 {
			t.Errorf("zero-sum row 0 changed at column %d: %v", j, m.At(0, j))
		}
	}
	if m.At(1, 2) != 0.5 {
		t.Errorf("m[1][2] = %v, want 0.5", m.At(1, 2))
	}
}

func TestRecalculate_AllZeroIsNoop(t *testing.T) {
	m, _ := NewZero(4)
	m.Recalculate()
	assertInvariants(t, m)
	if m.Mass() != 0 {
		t.Errorf("Mass = %v, want 0", m.Mass())
	}
}

func TestRecalculate_RepeatedStaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	m, _ := NewZero(12)
	for i := 0; i < 12; i++ {
		for j := i + 1; j < 12; j++ {
			if err := m.Set(i, j, rng.Float64()); err != nil {
				t.Fatal(err)
			}
		}
	}
	for k := 0; k < 20; k++ {
		m.Recalculate()
		assertInvariants(t, m)
	}
	if m.MaxEntry() > 0.5 {
		t.Errorf("MaxEntry = %v, want <= 0.5", m.MaxEntry())
	}
}

func TestValuesAndClone_AreCopies(t *testing.T) {
	m, _ := FromValues([][]float64{{0, 0.1}, {0.1, 0}})
	rows := m.Values()
	rows[0][1] = 0.9
	if m.At(0, 1) != 0.1 {
		t.Error("Values leaked internal storage")
	}
	c := m.Clone()
	c.Zero(0, 1)
	if m.At(0, 1) != 0.1 {
		t.Error("Clone shares storage with the original")
	}
}
