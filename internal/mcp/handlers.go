package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Swabber-io/syscomp/internal/export"
	"github.com/Swabber-io/syscomp/internal/metrics"
	"github.com/Swabber-io/syscomp/internal/pathutil"
	"github.com/Swabber-io/syscomp/internal/ratelimit"
	"github.com/Swabber-io/syscomp/internal/simulation"
	"github.com/Swabber-io/syscomp/internal/visualization"
)

// MetricsResourceURI serves the latest tick as markdown.
const MetricsResourceURI = "swabber://metrics/latest"

const (
	maxStepsPerCall = 1000
	defaultTop      = 5
)

// registerTools registers all simulation tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "sim_step",
		Description: "Advance the simulation by n ticks and return the latest metrics",
	}, s.handleSimStep)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "sim_metrics",
		Description: "Return the per-tick metrics history of the current run and its infection peak",
	}, s.handleSimMetrics)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "sim_graph",
		Description: "Render the current contact network in DOT (Graphviz), JSON, or HTML format",
	}, s.handleSimGraph)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "sim_reset",
		Description: "Discard the current run and start a new one over the same population, optionally with a new seed",
	}, s.handleSimReset)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "sim_agent",
		Description: "Inspect one agent: state, attributes, infections and current partners",
	}, s.handleSimAgent)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "sim_stats",
		Description: "Graph statistics of the current contact network: degrees, clustering, path length and the most central agents",
	}, s.handleSimStats)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "sim_export",
		Description: "Write the metrics history of the current run to a CSV, JSONL or Arrow file in the exports directory",
	}, s.handleSimExport)
}

// registerResources registers MCP resources.
func (s *Server) registerResources() {
	s.server.AddResource(&sdk.Resource{
		URI:         MetricsResourceURI,
		Name:        "swabber-metrics-latest",
		Description: "Agent counts, ratios and edge churn at the current tick.",
		MIMEType:    "text/markdown",
	}, s.handleMetricsResource)
}

func toRow(s metrics.Snapshot) MetricsRow {
	return MetricsRow{
		Tick:                 s.Tick,
		Susceptible:          s.Counts.Susceptible,
		Infected:             s.Counts.Infected,
		Resistant:            s.Counts.Resistant,
		Exposed:              s.Counts.Exposed,
		Off:                  s.Counts.Off,
		Edges:                s.Edges,
		EdgesAdded:           s.EdgesAdded,
		EdgesRemoved:         s.EdgesRemoved,
		ResistantSusceptible: s.ResistantSusceptible.String(),
		InfectedSusceptible:  s.InfectedSusceptible.String(),
	}
}

// handleSimStep implements the sim_step tool.
func (s *Server) handleSimStep(ctx context.Context, req *sdk.CallToolRequest, args SimStepInput) (_ *sdk.CallToolResult, _ SimStepOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("sim_step", start, retErr, sanitizeToolParams(map[string]any{"n": args.N}))
	}()

	n := args.N
	if n == 0 {
		n = 1
	}
	if n < 0 || n > maxStepsPerCall {
		return nil, SimStepOutput{}, fmt.Errorf("n must be in [1, %d], got %d", maxStepsPerCall, args.N)
	}
	if err := s.budget.Check(ratelimit.ActionStep, n); err != nil {
		return nil, SimStepOutput{}, err
	}

	f, err := s.session.Step(n)
	if err != nil {
		if errors.Is(err, simulation.ErrStopped) {
			return nil, SimStepOutput{}, fmt.Errorf("run %s is stopped at tick %d, use sim_reset to start over", f.RunID, f.Tick)
		}
		s.logger.Error("mcp step failed", "tick", f.Tick, "error", err)
		return nil, SimStepOutput{}, fmt.Errorf("step failed at tick %d: %w", f.Tick, err)
	}

	c := f.Metrics.Counts
	return nil, SimStepOutput{
		RunID:   f.RunID,
		Tick:    f.Tick,
		Running: s.session.Running(),
		Metrics: toRow(f.Metrics),
		Message: fmt.Sprintf("Advanced %d tick(s) to tick %d: %d infected, %d susceptible, %d resistant, %d active edges",
			n, f.Tick, c.Infected, c.Susceptible, c.Resistant, f.Metrics.Edges),
	}, nil
}

// handleSimMetrics implements the sim_metrics tool.
func (s *Server) handleSimMetrics(ctx context.Context, req *sdk.CallToolRequest, args SimMetricsInput) (_ *sdk.CallToolResult, _ SimMetricsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("sim_metrics", start, retErr, sanitizeToolParams(map[string]any{"last": args.Last}))
	}()

	if args.Last < 0 {
		return nil, SimMetricsOutput{}, fmt.Errorf("last must not be negative, got %d", args.Last)
	}
	if err := s.budget.Check(ratelimit.ActionQuery, 1); err != nil {
		return nil, SimMetricsOutput{}, err
	}

	history := s.session.History()
	peak, _ := metrics.Peak(history)
	if args.Last > 0 && args.Last < len(history) {
		history = history[len(history)-args.Last:]
	}

	out := SimMetricsOutput{
		RunID:   s.session.RunID(),
		History: make([]MetricsRow, len(history)),
		Peak:    toRow(peak),
	}
	for i, snap := range history {
		out.History[i] = toRow(snap)
	}
	if len(history) > 0 {
		out.Tick = history[len(history)-1].Tick
	}
	return nil, out, nil
}

// handleSimGraph implements the sim_graph tool.
func (s *Server) handleSimGraph(ctx context.Context, req *sdk.CallToolRequest, args SimGraphInput) (_ *sdk.CallToolResult, _ SimGraphOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("sim_graph", start, retErr, sanitizeToolParams(map[string]any{"format": args.Format}))
	}()

	format := visualization.FormatJSON
	if args.Format != "" {
		var err error
		if format, err = visualization.ParseFormat(args.Format); err != nil {
			return nil, SimGraphOutput{}, err
		}
	}
	if err := s.budget.Check(ratelimit.ActionRender, 1); err != nil {
		return nil, SimGraphOutput{}, err
	}

	f, stats, pr := s.session.View()
	enrichment := &visualization.EnrichmentData{PageRank: pr, Stats: &stats}

	var content string
	switch format {
	case visualization.FormatDOT:
		content = visualization.RenderDOT(f)
	case visualization.FormatHTML:
		html, err := visualization.RenderHTML(f, enrichment, false)
		if err != nil {
			return nil, SimGraphOutput{}, fmt.Errorf("render html: %w", err)
		}
		content = string(html)
	default:
		data, err := json.MarshalIndent(visualization.RenderJSON(f, enrichment), "", "  ")
		if err != nil {
			return nil, SimGraphOutput{}, fmt.Errorf("render json: %w", err)
		}
		content = string(data)
	}

	return nil, SimGraphOutput{
		Format:    string(format),
		Tick:      f.Tick,
		NodeCount: len(f.Nodes),
		EdgeCount: len(f.Edges),
		Content:   content,
	}, nil
}

// handleSimReset implements the sim_reset tool.
func (s *Server) handleSimReset(ctx context.Context, req *sdk.CallToolRequest, args SimResetInput) (_ *sdk.CallToolResult, _ SimResetOutput, retErr error) {
	start := time.Now()
	defer func() {
		params := map[string]any{}
		if args.Seed != nil {
			params["seed"] = *args.Seed
		}
		s.auditTool("sim_reset", start, retErr, sanitizeToolParams(params))
	}()

	if err := s.budget.Check(ratelimit.ActionReset, 1); err != nil {
		return nil, SimResetOutput{}, err
	}
	if err := s.session.Reset(args.Seed); err != nil {
		return nil, SimResetOutput{}, fmt.Errorf("reset: %w", err)
	}
	s.logger.Info("mcp session reset", "run_id", s.session.RunID(), "seed", s.session.Config().Seed)

	return nil, SimResetOutput{
		RunID:   s.session.RunID(),
		Seed:    s.session.Config().Seed,
		Metrics: toRow(s.session.Latest()),
	}, nil
}

// handleSimAgent implements the sim_agent tool.
func (s *Server) handleSimAgent(ctx context.Context, req *sdk.CallToolRequest, args SimAgentInput) (_ *sdk.CallToolResult, _ SimAgentOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("sim_agent", start, retErr, sanitizeToolParams(map[string]any{"id": args.ID}))
	}()

	if err := s.budget.Check(ratelimit.ActionQuery, 1); err != nil {
		return nil, SimAgentOutput{}, err
	}
	v, err := s.session.Agent(args.ID)
	if err != nil {
		return nil, SimAgentOutput{}, err
	}

	a := v.Attributes
	out := SimAgentOutput{
		ID:           v.ID,
		ExternalID:   a.ExternalID,
		State:        v.State.Name(),
		AgeGroup:     string(a.AgeGroup),
		Gender:       string(a.Gender),
		Orientation:  string(a.SexualPreference),
		PairingType:  string(a.PairingType),
		PartnerCount: string(a.PartnerCount),
		Location:     a.Location,
		PairOnSystem: a.PairOnSystem,
		Neighbors:    v.Neighbors,
		Degree:       v.Degree,
	}
	if out.Neighbors == nil {
		out.Neighbors = []int{}
	}
	for _, k := range v.Infections {
		out.Infections = append(out.Infections, string(k))
	}
	if pr := s.session.PageRank(); v.ID < len(pr) {
		out.PageRank = pr[v.ID]
	}
	return nil, out, nil
}

// handleSimStats implements the sim_stats tool.
func (s *Server) handleSimStats(ctx context.Context, req *sdk.CallToolRequest, args SimStatsInput) (_ *sdk.CallToolResult, _ SimStatsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("sim_stats", start, retErr, sanitizeToolParams(map[string]any{"top": args.Top}))
	}()

	top := args.Top
	if top <= 0 {
		top = defaultTop
	}
	if err := s.budget.Check(ratelimit.ActionRender, 1); err != nil {
		return nil, SimStatsOutput{}, err
	}

	f, stats, pr := s.session.View()
	out := SimStatsOutput{
		Tick:              f.Tick,
		Nodes:             stats.Nodes,
		Edges:             stats.Edges,
		Isolated:          stats.Isolated,
		MaxDegree:         stats.MaxDegree,
		MeanDegree:        stats.MeanDegree,
		Clustering:        stats.Clustering,
		AveragePathLength: stats.AveragePathLength,
		Degrees:           make([]DegreeCount, 0, len(stats.DegreeHistogram)),
	}
	for d, n := range stats.DegreeHistogram {
		out.Degrees = append(out.Degrees, DegreeCount{Degree: d, Agents: n})
	}
	sort.Slice(out.Degrees, func(i, j int) bool { return out.Degrees[i].Degree < out.Degrees[j].Degree })

	ids := make([]int, len(pr))
	for i := range ids {
		ids[i] = i
	}
	sort.SliceStable(ids, func(i, j int) bool { return pr[ids[i]] > pr[ids[j]] })
	if top > len(ids) {
		top = len(ids)
	}
	out.Central = make([]CentralAgent, top)
	for i, id := range ids[:top] {
		out.Central[i] = CentralAgent{ID: id, State: f.Nodes[id].State.Name(), PageRank: pr[id]}
	}
	return nil, out, nil
}

// handleSimExport implements the sim_export tool.
func (s *Server) handleSimExport(ctx context.Context, req *sdk.CallToolRequest, args SimExportInput) (_ *sdk.CallToolResult, _ SimExportOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("sim_export", start, retErr, sanitizeToolParams(map[string]any{"format": args.Format, "name": args.Name}))
	}()

	if s.exportDir == "" {
		return nil, SimExportOutput{}, errors.New("exports are disabled: no export directory configured")
	}
	format := args.Format
	if format == "" {
		format = "csv"
	}
	if !export.Supported(format) {
		return nil, SimExportOutput{}, fmt.Errorf("unsupported format %q (valid: csv, jsonl, arrow)", format)
	}
	if err := s.budget.Check(ratelimit.ActionRender, 1); err != nil {
		return nil, SimExportOutput{}, err
	}

	history := s.session.History()
	runID := s.session.RunID()
	name := args.Name
	if name == "" {
		name = fmt.Sprintf("session-%s-t%d", runID[:8], s.session.Tick())
	}
	ext := export.Extension(format)
	if filepath.Ext(name) != ext {
		name += ext
	}
	path, err := pathutil.Within(s.exportDir, name)
	if err != nil {
		return nil, SimExportOutput{}, err
	}

	written, err := export.WriteFile(filepath.Dir(path), strings.TrimSuffix(filepath.Base(path), ext), format, history)
	if err != nil {
		s.logger.Error("mcp export failed", "path", pathutil.RedactPath(path), "error", err)
		return nil, SimExportOutput{}, fmt.Errorf("export: %w", err)
	}
	s.logger.Info("mcp session exported", "run_id", runID, "format", format, "rows", len(history))

	return nil, SimExportOutput{
		RunID:  runID,
		Format: format,
		Path:   written,
		Rows:   len(history),
	}, nil
}

// handleMetricsResource renders the latest tick as a markdown table.
func (s *Server) handleMetricsResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	snap := s.session.Latest()
	c := snap.Counts

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Simulation run %s, tick %d\n\n", s.session.RunID(), snap.Tick)
	sb.WriteString("| metric | value |\n|---|---|\n")
	fmt.Fprintf(&sb, "| susceptible | %d |\n", c.Susceptible)
	fmt.Fprintf(&sb, "| infected remaining | %d |\n", c.Infected)
	fmt.Fprintf(&sb, "| resistant | %d |\n", c.Resistant)
	fmt.Fprintf(&sb, "| resistant/susceptible | %s |\n", snap.ResistantSusceptible)
	fmt.Fprintf(&sb, "| infected/susceptible | %s |\n", snap.InfectedSusceptible)
	fmt.Fprintf(&sb, "| active edges | %d (+%d, -%d) |\n", snap.Edges, snap.EdgesAdded, snap.EdgesRemoved)
	if !s.session.Running() {
		sb.WriteString("\nThe run is stopped. Use `sim_reset` to start a new one.\n")
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      MetricsResourceURI,
				MIMEType: "text/markdown",
				Text:     sb.String(),
			},
		},
	}, nil
}
