// Package mcp provides an MCP (Model Context Protocol) server that lets a
// client drive and inspect a live simulation session.
package mcp

// Output types are flat so the inferred JSON schemas match what the SDK
// validates; infinite ratios travel as text ("∞").

// SimStepInput defines the input for sim_step tool.
type SimStepInput struct {
	N int `json:"n,omitempty" jsonschema:"Number of ticks to advance (default 1, max 1000)"`
}

// MetricsRow is one tick of aggregate metrics.
type MetricsRow struct {
	Tick                 int    `json:"tick"`
	Susceptible          int    `json:"susceptible"`
	Infected             int    `json:"infected"`
	Resistant            int    `json:"resistant"`
	Exposed              int    `json:"exposed"`
	Off                  int    `json:"off"`
	Edges                int    `json:"edges"`
	EdgesAdded           int    `json:"edges_added"`
	EdgesRemoved         int    `json:"edges_removed"`
	ResistantSusceptible string `json:"resistant_susceptible" jsonschema:"Resistant/susceptible ratio as text, ∞ when no agent is susceptible"`
	InfectedSusceptible  string `json:"infected_susceptible"`
}

// SimStepOutput defines the output for sim_step tool.
type SimStepOutput struct {
	RunID   string     `json:"run_id"`
	Tick    int        `json:"tick"`
	Running bool       `json:"running"`
	Metrics MetricsRow `json:"metrics"`
	Message string     `json:"message"`
}

// SimMetricsInput defines the input for sim_metrics tool.
type SimMetricsInput struct {
	Last int `json:"last,omitempty" jsonschema:"Only return the last N ticks (default: all)"`
}

// SimMetricsOutput defines the output for sim_metrics tool.
type SimMetricsOutput struct {
	RunID   string       `json:"run_id"`
	Tick    int          `json:"tick"`
	History []MetricsRow `json:"history"`
	Peak    MetricsRow   `json:"peak" jsonschema:"Tick with the most infected agents"`
}

// SimGraphInput defines the input for sim_graph tool.
type SimGraphInput struct {
	Format string `json:"format,omitempty" jsonschema:"Output format: dot, json or html (default: json)"`
}

// SimGraphOutput defines the output for sim_graph tool.
type SimGraphOutput struct {
	Format    string `json:"format"`
	Tick      int    `json:"tick"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
	Content   string `json:"content" jsonschema:"Rendered graph"`
}

// SimResetInput defines the input for sim_reset tool.
type SimResetInput struct {
	Seed *int64 `json:"seed,omitempty" jsonschema:"New random seed (default: keep the current seed)"`
}

// SimResetOutput defines the output for sim_reset tool.
type SimResetOutput struct {
	RunID   string     `json:"run_id"`
	Seed    int64      `json:"seed"`
	Metrics MetricsRow `json:"metrics"`
}

// SimAgentInput defines the input for sim_agent tool.
type SimAgentInput struct {
	ID int `json:"id" jsonschema:"Agent id, 0 to population size - 1"`
}

// SimAgentOutput defines the output for sim_agent tool.
type SimAgentOutput struct {
	ID           int      `json:"id"`
	ExternalID   string   `json:"external_id,omitempty"`
	State        string   `json:"state"`
	Infections   []string `json:"infections,omitempty"`
	AgeGroup     string   `json:"age_group"`
	Gender       string   `json:"gender"`
	Orientation  string   `json:"orientation"`
	PairingType  string   `json:"pairing_type"`
	PartnerCount string   `json:"partner_count,omitempty"`
	Location     string   `json:"location"`
	PairOnSystem bool     `json:"pair_on_system"`
	Neighbors    []int    `json:"neighbors"`
	Degree       int      `json:"degree"`
	PageRank     float64  `json:"pagerank"`
}

// SimStatsInput defines the input for sim_stats tool.
type SimStatsInput struct {
	Top int `json:"top,omitempty" jsonschema:"Number of most central agents to list (default 5)"`
}

// DegreeCount is one bar of the degree histogram.
type DegreeCount struct {
	Degree int `json:"degree"`
	Agents int `json:"agents"`
}

// CentralAgent is an agent ranked by PageRank.
type CentralAgent struct {
	ID       int     `json:"id"`
	State    string  `json:"state"`
	PageRank float64 `json:"pagerank"`
}

// SimStatsOutput defines the output for sim_stats tool.
type SimStatsOutput struct {
	Tick              int            `json:"tick"`
	Nodes             int            `json:"nodes"`
	Edges             int            `json:"edges"`
	Isolated          int            `json:"isolated"`
	MaxDegree         int            `json:"max_degree"`
	MeanDegree        float64        `json:"mean_degree"`
	Clustering        float64        `json:"clustering"`
	AveragePathLength float64        `json:"average_path_length"`
	Degrees           []DegreeCount  `json:"degrees"`
	Central           []CentralAgent `json:"central"`
}

// SimExportInput defines the input for sim_export tool.
type SimExportInput struct {
	Format string `json:"format,omitempty" jsonschema:"Export format: csv, jsonl or arrow (default: csv)"`
	Name   string `json:"name,omitempty" jsonschema:"File name inside the exports directory (default: session-<run>-t<tick>)"`
}

// SimExportOutput defines the output for sim_export tool.
type SimExportOutput struct {
	RunID  string `json:"run_id"`
	Format string `json:"format"`
	Path   string `json:"path"`
	Rows   int    `json:"rows" jsonschema:"Number of ticks written"`
}
