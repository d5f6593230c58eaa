package network

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func buildGraph(n int, edges ...[2]int) *Graph {
	g := NewGraph(n)
	for _, e := range edges {
		g.addEdge(e[0], e[1])
	}
	return g
}

func TestGraph_NeighborsSorted(t *testing.T) {
	g := buildGraph(5, [2]int{2, 4}, [2]int{2, 0}, [2]int{2, 3})
	if diff := cmp.Diff([]int{0, 3, 4}, g.Neighbors(2)); diff != "" {
		t.Errorf("Neighbors mismatch (-want +got):\n%s", diff)
	}
	if g.addEdge(4, 2) {
		t.Error("duplicate edge was added")
	}
	if g.addEdge(1, 1) {
		t.Error("self-loop was added")
	}
	if g.Size() != 3 {
		t.Errorf("Size = %d, want 3", g.Size())
	}
	want := []Pair{{0, 2}, {2, 3}, {2, 4}}
	if diff := cmp.Diff(want, g.Pairs()); diff != "" {
		t.Errorf("Pairs mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeStats_Triangle(t *testing.T) {
	g := buildGraph(4, [2]int{0, 1}, [2]int{1, 2}, [2]int{0, 2})
	s := ComputeStats(g)

	if s.Edges != 3 || s.Isolated != 1 || s.MaxDegree != 2 {
		t.Errorf("unexpected stats: %+v", s)
	}
	if diff := cmp.Diff(map[int]int{0: 1, 2: 3}, s.DegreeHistogram); diff != "" {
		t.Errorf("histogram mismatch (-want +got):\n%s", diff)
	}
	if math.Abs(s.Clustering-0.75) > 1e-12 {
		t.Errorf("Clustering = %v, want 0.75", s.Clustering)
	}
	if s.AveragePathLength != 1 {
		t.Errorf("AveragePathLength = %v, want 1", s.AveragePathLength)
	}
}

func TestAveragePathLength_Path(t *testing.T) {
	// 0-1-2: distances 1,2,1 from each end and 1,1 from the middle.
	g := buildGraph(3, [2]int{0, 1}, [2]int{1, 2})
	want := (1.0 + 2 + 1 + 1 + 2 + 1) / 6
	if got := AveragePathLength(g); math.Abs(got-want) > 1e-12 {
		t.Errorf("AveragePathLength = %v, want %v", got, want)
	}
	if got := AveragePathLength(NewGraph(3)); got != 0 {
		t.Errorf("empty graph AveragePathLength = %v, want 0", got)
	}
}

func TestPageRank_StarCenterRanksHighest(t *testing.T) {
	g := buildGraph(5, [2]int{0, 1}, [2]int{0, 2}, [2]int{0, 3}, [2]int{0, 4})
	scores := PageRank(g, DefaultPageRankConfig())
	if scores[0] != 1 {
		t.Errorf("center score = %v, want 1", scores[0])
	}
	for i := 1; i < 5; i++ {
		if scores[i] >= scores[0] {
			t.Errorf("leaf %d score %v >= center", i, scores[i])
		}
		if math.Abs(scores[i]-scores[1]) > 1e-9 {
			t.Errorf("leaf scores differ: %v vs %v", scores[i], scores[1])
		}
	}
	if PageRank(NewGraph(0), DefaultPageRankConfig()) != nil {
		t.Error("empty graph should yield nil")
	}
}
