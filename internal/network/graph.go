// Package network owns the time-varying contact graph and the engine that
// evolves it each tick from the compatibility matrix.
package network

import (
	"fmt"
	"sort"
)

// Pair is an unordered agent pair stored with A < B.
type Pair struct {
	A int `json:"a"`
	B int `json:"b"`
}

// NewPair returns the canonical pair for i and j.
func NewPair(i, j int) Pair {
	if i > j {
		i, j = j, i
	}
	return Pair{A: i, B: j}
}

// String renders the pair as "a-b".
func (p Pair) String() string { return fmt.Sprintf("%d-%d", p.A, p.B) }

// Edge is an active contact with the tick it was formed at.
type Edge struct {
	Pair
	CreatedAt int `json:"created_at"`
}

// Graph is an undirected simple graph over agents 0..N-1.
// It is not safe for concurrent use.
type Graph struct {
	adj []map[int]struct{}
	m   int
}

// NewGraph creates a graph with n isolated nodes.
func NewGraph(n int) *Graph {
	adj := make([]map[int]struct{}, n)
	for i := range adj {
		adj[i] = make(map[int]struct{})
	}
	return &Graph{adj: adj}
}

// Order returns the number of nodes.
func (g *Graph) Order() int { return len(g.adj) }

// Size returns the number of edges.
func (g *Graph) Size() int { return g.m }

// HasEdge reports whether i and j are connected.
func (g *Graph) HasEdge(i, j int) bool {
	_, ok := g.adj[i][j]
	return ok
}

func (g *Graph) addEdge(i, j int) bool {
	if i == j || g.HasEdge(i, j) {
		return false
	}
	g.adj[i][j] = struct{}{}
	g.adj[j][i] = struct{}{}
	g.m++
	return true
}

func (g *Graph) removeEdge(i, j int) bool {
	if !g.HasEdge(i, j) {
		return false
	}
	delete(g.adj[i], j)
	delete(g.adj[j], i)
	g.m--
	return true
}

// Neighbors returns the agents connected to id, in ascending order.
func (g *Graph) Neighbors(id int) []int {
	out := make([]int, 0, len(g.adj[id]))
	for n := range g.adj[id] {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Degree returns the number of neighbors of id.
func (g *Graph) Degree(id int) int { return len(g.adj[id]) }

// Pairs returns every edge as a canonical pair, sorted.
func (g *Graph) Pairs() []Pair {
	pairs := make([]Pair, 0, g.m)
	for i, nbrs := range g.adj {
		for j := range nbrs {
			if i < j {
				pairs = append(pairs, Pair{A: i, B: j})
			}
		}
	}
	sortPairs(pairs)
	return pairs
}

func sortPairs(pairs []Pair) {
	sort.Slice(pairs, func(x, y int) bool {
		if pairs[x].A != pairs[y].A {
			return pairs[x].A < pairs[y].A
		}
		return pairs[x].B < pairs[y].B
	})
}
