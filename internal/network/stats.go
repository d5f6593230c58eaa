package network

import "math"

// Stats summarizes the contact graph at one tick.
type Stats struct {
	Nodes             int         `json:"nodes"`
	Edges             int         `json:"edges"`
	Isolated          int         `json:"isolated"`
	MaxDegree         int         `json:"max_degree"`
	MeanDegree        float64     `json:"mean_degree"`
	DegreeHistogram   map[int]int `json:"degree_histogram"`
	Clustering        float64     `json:"clustering"`
	AveragePathLength float64     `json:"average_path_length"`
}

// ComputeStats computes degree, clustering and path-length statistics.
func ComputeStats(g *Graph) Stats {
	hist := DegreeDistribution(g)
	s := Stats{
		Nodes:             g.Order(),
		Edges:             g.Size(),
		Isolated:          hist[0],
		DegreeHistogram:   hist,
		Clustering:        AverageClustering(g),
		AveragePathLength: AveragePathLength(g),
	}
	for d := range hist {
		if d > s.MaxDegree {
			s.MaxDegree = d
		}
	}
	if s.Nodes > 0 {
		s.MeanDegree = 2 * float64(s.Edges) / float64(s.Nodes)
	}
	return s
}

// DegreeDistribution maps degree to the number of nodes with that degree.
func DegreeDistribution(g *Graph) map[int]int {
	hist := make(map[int]int)
	for i := 0; i < g.Order(); i++ {
		hist[g.Degree(i)]++
	}
	return hist
}

// LocalClustering is the fraction of id's neighbor pairs that are connected.
// Nodes with fewer than two neighbors have coefficient 0.
func LocalClustering(g *Graph, id int) float64 {
	nbrs := g.Neighbors(id)
	k := len(nbrs)
	if k < 2 {
		return 0
	}
	links := 0
	for x := 0; x < k; x++ {
		for y := x + 1; y < k; y++ {
			if g.HasEdge(nbrs[x], nbrs[y]) {
				links++
			}
		}
	}
	return 2 * float64(links) / float64(k*(k-1))
}

// AverageClustering is the mean local clustering over all nodes.
func AverageClustering(g *Graph) float64 {
	n := g.Order()
	if n == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += LocalClustering(g, i)
	}
	return sum / float64(n)
}

// AveragePathLength is the mean shortest-path length over all ordered pairs
// of distinct nodes that are connected. A graph with no edges yields 0.
func AveragePathLength(g *Graph) float64 {
	n := g.Order()
	total, pairs := 0, 0
	dist := make([]int, n)
	queue := make([]int, 0, n)
	for src := 0; src < n; src++ {
		if g.Degree(src) == 0 {
			continue
		}
		for i := range dist {
			dist[i] = -1
		}
		dist[src] = 0
		queue = append(queue[:0], src)
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			for v := range g.adj[u] {
				if dist[v] >= 0 {
					continue
				}
				dist[v] = dist[u] + 1
				total += dist[v]
				pairs++
				queue = append(queue, v)
			}
		}
	}
	if pairs == 0 {
		return 0
	}
	return float64(total) / float64(pairs)
}

// PageRankConfig holds configuration for PageRank computation.
type PageRankConfig struct {
	// DampingFactor (d) is the probability of following an edge vs. teleporting.
	// Standard value: 0.85.
	DampingFactor float64

	// MaxIterations is the maximum number of power iteration steps. Default: 100.
	MaxIterations int

	// Tolerance is the convergence threshold. Default: 1e-6.
	Tolerance float64
}

// DefaultPageRankConfig returns the default PageRank configuration.
func DefaultPageRankConfig() PageRankConfig {
	return PageRankConfig{
		DampingFactor: 0.85,
		MaxIterations: 100,
		Tolerance:     1e-6,
	}
}

// PageRank scores every agent by its centrality in the contact graph,
// normalized so the most central agent scores 1.
//
// Algorithm: power iteration
//  1. Initialize all nodes with score = 1/N
//  2. For each iteration:
//     PR(v) = (1-d)/N + d * sum(PR(u)/degree(u)) for all neighbors u of v
//  3. Converge when max change < Tolerance
//  4. Normalize to [0, 1] range
func PageRank(g *Graph, config PageRankConfig) []float64 {
	n := g.Order()
	if n == 0 {
		return nil
	}
	d := config.DampingFactor
	nf := float64(n)
	scores := make([]float64, n)
	for i := range scores {
		scores[i] = 1.0 / nf
	}

	next := make([]float64, n)
	for iter := 0; iter < config.MaxIterations; iter++ {
		maxDelta := 0.0
		for v := 0; v < n; v++ {
			sum := 0.0
			for u := range g.adj[v] {
				sum += scores[u] / float64(g.Degree(u))
			}
			next[v] = (1.0-d)/nf + d*sum
			if delta := math.Abs(next[v] - scores[v]); delta > maxDelta {
				maxDelta = delta
			}
		}
		scores, next = next, scores
		if maxDelta < config.Tolerance {
			break
		}
	}

	maxScore := 0.0
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	if maxScore > 0 {
		for i := range scores {
			scores[i] /= maxScore
		}
	}
	return scores
}
