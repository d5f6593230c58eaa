package schedule

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRandomActivation_IsPermutation(t *testing.T) {
	s := NewRandomActivation(rand.New(rand.NewSource(4)))
	for _, n := range []int{0, 1, 7, 50} {
		order := s.Order(n)
		sorted := make([]int, len(order))
		copy(sorted, order)
		sort.Ints(sorted)
		if diff := cmp.Diff(Sequential(n), sorted); diff != "" {
			t.Errorf("n=%d: not a permutation (-want +got):\n%s", n, diff)
		}
	}
}

func TestRandomActivation_DeterministicPerSeed(t *testing.T) {
	a := NewRandomActivation(rand.New(rand.NewSource(9)))
	b := NewRandomActivation(rand.New(rand.NewSource(9)))
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(a.Order(20), b.Order(20)); diff != "" {
			t.Fatalf("round %d diverged:\n%s", i, diff)
		}
	}
}

func TestNew(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"", false},
		{"random", false},
		{"Sequential", false},
		{"round-robin", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.name, rng)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if err == nil && len(s.Order(3)) != 3 {
				t.Errorf("Order(3) returned wrong length")
			}
		})
	}
	if diff := cmp.Diff([]int{0, 1, 2}, SequentialActivation{}.Order(3)); diff != "" {
		t.Errorf("sequential order mismatch:\n%s", diff)
	}
}
