package network

import (
	"math/rand"
	"sort"

	"github.com/Swabber-io/syscomp/internal/compat"
	"github.com/Swabber-io/syscomp/internal/constants"
	"github.com/Swabber-io/syscomp/internal/models"
)

// Config holds the tunable parameters of network evolution.
type Config struct {
	// EdgeTTL is the number of ticks an edge stays active. Must be positive.
	// Observed settings: 30 (short memory) and 2000 (long memory).
	EdgeTTL int `json:"edge_ttl" yaml:"edge_ttl"`

	// ReseedOnRemoval restores a pair's probability to its pre-formation value
	// when its edge is evicted. When false the pair stays at zero.
	ReseedOnRemoval bool `json:"reseed_on_removal" yaml:"reseed_on_removal"`

	// NormalizeEveryTick runs Matrix.Recalculate at the end of every update.
	NormalizeEveryTick bool `json:"normalize_every_tick" yaml:"normalize_every_tick"`
}

// DefaultConfig returns the short-memory configuration.
func DefaultConfig() Config {
	return Config{EdgeTTL: constants.ShortMemoryTTL}
}

// Validate rejects a non-positive TTL.
func (c Config) Validate() error {
	if c.EdgeTTL <= 0 {
		return &models.ValidationError{Field: "edge_ttl", Value: c.EdgeTTL, Reason: "must be a positive number of ticks"}
	}
	return nil
}

// UpdateResult describes the topology change of one tick.
type UpdateResult struct {
	Tick    int    `json:"tick"`
	Added   []Edge `json:"added"`
	Removed []Edge `json:"removed"`
}

// Engine evolves the contact graph. It exclusively owns the matrix, the graph
// and the edge creation-time map; callers get read-only views.
type Engine struct {
	config  Config
	matrix  *compat.Matrix
	graph   *Graph
	created map[Pair]int
	saved   map[Pair]float64
	tick    int
	rng     *rand.Rand
}

// NewEngine creates an engine over matrix with an empty graph. The engine
// takes ownership of matrix.
func NewEngine(matrix *compat.Matrix, config Config, rng *rand.Rand) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		config:  config,
		matrix:  matrix,
		graph:   NewGraph(matrix.Size()),
		created: make(map[Pair]int),
		saved:   make(map[Pair]float64),
		rng:     rng,
	}, nil
}

// Update advances the network by one tick:
//  1. sample every unconnected pair i<j once against its probability
//  2. add all sampled edges and stamp them with the current tick
//  3. zero the matrix entry of every new edge
//  4. evict edges whose age reached the TTL
//  5. optionally renormalize the matrix
func (e *Engine) Update() UpdateResult {
	e.tick++
	n := e.graph.Order()

	var marked []Pair
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if e.graph.HasEdge(i, j) {
				continue
			}
			if e.rng.Float64() < e.matrix.At(i, j) {
				marked = append(marked, Pair{A: i, B: j})
			}
		}
	}

	res := UpdateResult{Tick: e.tick}
	for _, p := range marked {
		e.graph.addEdge(p.A, p.B)
		e.created[p] = e.tick
		if e.config.ReseedOnRemoval {
			e.saved[p] = e.matrix.At(p.A, p.B)
		}
		e.matrix.Zero(p.A, p.B)
		res.Added = append(res.Added, Edge{Pair: p, CreatedAt: e.tick})
	}

	res.Removed = e.evict()

	if e.config.NormalizeEveryTick {
		e.matrix.Recalculate()
	}
	return res
}

func (e *Engine) evict() []Edge {
	var removed []Edge
	for p, born := range e.created {
		if e.tick-born < e.config.EdgeTTL {
			continue
		}
		e.graph.removeEdge(p.A, p.B)
		delete(e.created, p)
		if e.config.ReseedOnRemoval {
			e.matrix.Restore(p.A, p.B, e.saved[p])
			delete(e.saved, p)
		}
		removed = append(removed, Edge{Pair: p, CreatedAt: born})
	}
	sort.Slice(removed, func(x, y int) bool {
		if removed[x].A != removed[y].A {
			return removed[x].A < removed[y].A
		}
		return removed[x].B < removed[y].B
	})
	return removed
}

// Tick returns the number of updates performed.
func (e *Engine) Tick() int { return e.tick }

// Graph returns the live contact graph. Callers must not mutate it.
func (e *Engine) Graph() *Graph { return e.graph }

// Matrix returns the live compatibility matrix. Callers must not mutate it.
func (e *Engine) Matrix() *compat.Matrix { return e.matrix }

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.config }

// Neighbors returns the agents currently connected to id.
func (e *Engine) Neighbors(id int) []int { return e.graph.Neighbors(id) }

// CreatedAt returns the formation tick of the active edge (i, j).
func (e *Engine) CreatedAt(i, j int) (int, bool) {
	t, ok := e.created[NewPair(i, j)]
	return t, ok
}

// Edges returns all active edges with their creation ticks, sorted by pair.
func (e *Engine) Edges() []Edge {
	pairs := e.graph.Pairs()
	edges := make([]Edge, len(pairs))
	for i, p := range pairs {
		edges[i] = Edge{Pair: p, CreatedAt: e.created[p]}
	}
	return edges
}
