package simulation

import (
	"context"
	"sync"

	"github.com/Swabber-io/syscomp/internal/agents"
	"github.com/Swabber-io/syscomp/internal/metrics"
	"github.com/Swabber-io/syscomp/internal/models"
	"github.com/Swabber-io/syscomp/internal/network"
)

// NodeState is the per-agent part of a Frame.
type NodeState struct {
	ID         int               `json:"id"`
	State      models.State      `json:"state"`
	Infections []agents.Kind     `json:"infections,omitempty"`
	Attributes models.Attributes `json:"attributes"`
}

// Frame is everything observable about one tick.
type Frame struct {
	RunID       string              `json:"run_id,omitempty"`
	Tick        int                 `json:"tick"`
	Metrics     metrics.Snapshot    `json:"metrics"`
	Nodes       []NodeState         `json:"nodes"`
	Edges       []network.Edge      `json:"edges"`
	Added       []network.Edge      `json:"added,omitempty"`
	Removed     []network.Edge      `json:"removed,omitempty"`
	Transitions []agents.Transition `json:"transitions,omitempty"`
}

// Frame captures the model's current tick.
func (m *Model) Frame() Frame {
	snap, _ := m.metrics.Latest()
	nodes := make([]NodeState, len(m.population))
	for i, a := range m.population {
		nodes[i] = NodeState{
			ID:         a.ID,
			State:      a.State,
			Infections: a.InfectionKinds(),
			Attributes: a.Attributes,
		}
	}
	return Frame{
		Tick:        m.tick,
		Metrics:     snap,
		Nodes:       nodes,
		Edges:       m.engine.Edges(),
		Added:       m.last.Added,
		Removed:     m.last.Removed,
		Transitions: m.Transitions(),
	}
}

// Sink receives one Frame per tick.
type Sink interface {
	WriteFrame(ctx context.Context, f Frame) error
}

// MemorySink keeps every frame in memory. It is safe for concurrent use.
type MemorySink struct {
	mu     sync.Mutex
	frames []Frame
}

// WriteFrame implements Sink.
func (s *MemorySink) WriteFrame(_ context.Context, f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, f)
	return nil
}

// Frames returns a copy of the frames received so far.
func (s *MemorySink) Frames() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Frame, len(s.frames))
	copy(out, s.frames)
	return out
}
