// Package schedule decides the order agents are activated in each tick.
package schedule

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/Swabber-io/syscomp/internal/models"
)

// Scheduler returns an activation order over agent IDs 0..n-1.
type Scheduler interface {
	Order(n int) []int
}

// RandomActivation visits every agent once per tick in a fresh random order.
type RandomActivation struct {
	rng *rand.Rand
}

// NewRandomActivation creates a shuffling scheduler over rng.
func NewRandomActivation(rng *rand.Rand) *RandomActivation {
	return &RandomActivation{rng: rng}
}

// Order returns a permutation of 0..n-1.
func (r *RandomActivation) Order(n int) []int {
	order := Sequential(n)
	r.rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	return order
}

// SequentialActivation visits agents in ascending ID order.
type SequentialActivation struct{}

// Order returns 0..n-1.
func (SequentialActivation) Order(n int) []int { return Sequential(n) }

// Sequential returns the identity order 0..n-1.
func Sequential(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

// Names of the supported schedulers, as used in configuration.
const (
	Random  = "random"
	InOrder = "sequential"
)

// New builds a scheduler by name.
func New(name string, rng *rand.Rand) (Scheduler, error) {
	switch strings.ToLower(name) {
	case "", Random:
		return NewRandomActivation(rng), nil
	case InOrder:
		return SequentialActivation{}, nil
	}
	return nil, &models.ValidationError{Field: "scheduler", Value: name, Reason: fmt.Sprintf("must be %q or %q", Random, InOrder)}
}
