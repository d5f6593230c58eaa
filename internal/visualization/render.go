// Package visualization renders contact-network frames as DOT, JSON or a
// self-contained HTML page, and serves them live.
package visualization

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"math"
	"strings"

	"github.com/Swabber-io/syscomp/internal/metrics"
	"github.com/Swabber-io/syscomp/internal/models"
	"github.com/Swabber-io/syscomp/internal/network"
	"github.com/Swabber-io/syscomp/internal/simulation"
)

// Format specifies the output format for graph rendering.
type Format string

const (
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// ParseFormat accepts dot, json or html.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatDOT, FormatJSON, FormatHTML:
		return f, nil
	}
	return "", &models.ValidationError{Field: "format", Value: s, Reason: "valid: dot, json, html"}
}

// EnrichmentData provides optional data to augment a rendered frame.
type EnrichmentData struct {
	// PageRank holds one centrality score in [0, 1] per agent.
	PageRank []float64

	// Stats are the graph statistics of the frame's network.
	Stats *network.Stats
}

// Node is one agent in a rendered graph.
type Node struct {
	ID       int     `json:"id"`
	State    string  `json:"state"`
	Color    string  `json:"color"`
	Tooltip  string  `json:"tooltip"`
	Location string  `json:"location,omitempty"`
	PageRank float64 `json:"pagerank,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Radius   float64 `json:"radius"`
}

// Link is one active edge in a rendered graph.
type Link struct {
	Source    int    `json:"source"`
	Target    int    `json:"target"`
	CreatedAt int    `json:"created_at"`
	Color     string `json:"color"`
	Width     int    `json:"width"`
}

// Graph is the JSON form of a frame.
type Graph struct {
	RunID     string           `json:"run_id,omitempty"`
	Tick      int              `json:"tick"`
	Nodes     []Node           `json:"nodes"`
	Edges     []Link           `json:"edges"`
	NodeCount int              `json:"node_count"`
	EdgeCount int              `json:"edge_count"`
	Metrics   metrics.Snapshot `json:"metrics"`
	Stats     *network.Stats   `json:"stats,omitempty"`

	// RatioText is the resistant:susceptible ratio as displayed.
	RatioText string `json:"ratio_text"`
}

// canvasSize is the side of the square the layout fills.
const canvasSize = 800.0

// Layout places n nodes evenly on a circle inside the canvas.
func Layout(n int) [][2]float64 {
	pos := make([][2]float64, n)
	if n == 0 {
		return pos
	}
	c := canvasSize / 2
	r := c * 0.9
	for i := range pos {
		theta := 2 * math.Pi * float64(i) / float64(n)
		pos[i] = [2]float64{c + r*math.Cos(theta), c + r*math.Sin(theta)}
	}
	return pos
}

// RenderJSON builds the JSON graph of a frame.
func RenderJSON(f simulation.Frame, enrichment *EnrichmentData) Graph {
	pos := Layout(len(f.Nodes))
	states := make(map[int]models.State, len(f.Nodes))

	g := Graph{
		RunID:     f.RunID,
		Tick:      f.Tick,
		Nodes:     make([]Node, 0, len(f.Nodes)),
		Edges:     make([]Link, 0, len(f.Edges)),
		NodeCount: len(f.Nodes),
		EdgeCount: len(f.Edges),
		Metrics:   f.Metrics,
		RatioText: f.Metrics.ResistantSusceptible.String(),
	}
	for i, n := range f.Nodes {
		states[n.ID] = n.State
		node := Node{
			ID:       n.ID,
			State:    n.State.Name(),
			Color:    NodeColor(n.State),
			Tooltip:  Tooltip(n),
			Location: n.Attributes.Location,
			X:        pos[i][0],
			Y:        pos[i][1],
			Radius:   4,
		}
		if enrichment != nil && n.ID < len(enrichment.PageRank) {
			node.PageRank = enrichment.PageRank[n.ID]
			node.Radius = 4 + 8*node.PageRank
		}
		g.Nodes = append(g.Nodes, node)
	}
	for _, e := range f.Edges {
		color, width := EdgeStyle(states[e.A], states[e.B])
		g.Edges = append(g.Edges, Link{
			Source:    e.A,
			Target:    e.B,
			CreatedAt: e.CreatedAt,
			Color:     color,
			Width:     width,
		})
	}
	if enrichment != nil {
		g.Stats = enrichment.Stats
	}
	return g
}

// RenderDOT produces an undirected Graphviz DOT representation of a frame.
func RenderDOT(f simulation.Frame) string {
	states := make(map[int]models.State, len(f.Nodes))

	var b strings.Builder
	b.WriteString("graph swabber {\n")
	b.WriteString("  layout=circo;\n")
	b.WriteString("  node [shape=circle, style=filled, fontname=\"Helvetica\", label=\"\"];\n")
	fmt.Fprintf(&b, "  label=%q;\n\n", fmt.Sprintf("tick %d", f.Tick))

	for _, n := range f.Nodes {
		states[n.ID] = n.State
		fmt.Fprintf(&b, "  %d [fillcolor=%q, tooltip=%q];\n", n.ID, NodeColor(n.State), Tooltip(n))
	}
	b.WriteString("\n")

	for _, e := range f.Edges {
		color, width := EdgeStyle(states[e.A], states[e.B])
		fmt.Fprintf(&b, "  %d -- %d [color=%q, penwidth=%d];\n", e.A, e.B, color, width)
	}

	b.WriteString("}\n")
	return b.String()
}

// htmlTemplateData holds data passed to the HTML template.
// GraphJSON is pre-sanitized JSON (via json.HTMLEscape) safe for inline <script>.
type htmlTemplateData struct {
	Graph     Graph
	Size      float64
	Live      bool
	GraphJSON template.JS
}

var templateFuncs = template.FuncMap{
	"node": func(g Graph, id int) Node {
		if id >= 0 && id < len(g.Nodes) {
			return g.Nodes[id]
		}
		return Node{}
	},
}

// RenderHTML produces a self-contained HTML page with an SVG drawing of the
// network and the frame's metrics. When live is true the page also carries
// step and reset controls for Server.
func RenderHTML(f simulation.Frame, enrichment *EnrichmentData, live bool) ([]byte, error) {
	g := RenderJSON(f, enrichment)

	graphJSON, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("marshal graph data: %w", err)
	}

	tmplBytes, err := templates.ReadFile("templates/graph.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("read HTML template: %w", err)
	}
	tmpl, err := template.New("graph").Funcs(templateFuncs).Parse(string(tmplBytes))
	if err != nil {
		return nil, fmt.Errorf("parse HTML template: %w", err)
	}

	// json.HTMLEscape converts <, >, & to unicode escapes, so attribute text
	// cannot break out of the inline <script>.
	var escaped bytes.Buffer
	json.HTMLEscape(&escaped, graphJSON)

	var buf bytes.Buffer
	data := htmlTemplateData{
		Graph:     g,
		Size:      canvasSize,
		Live:      live,
		GraphJSON: template.JS(escaped.String()), // #nosec G203
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute HTML template: %w", err)
	}
	return buf.Bytes(), nil
}
