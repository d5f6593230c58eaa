package simulation

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/Swabber-io/syscomp/internal/metrics"
	"github.com/Swabber-io/syscomp/internal/models"
	"github.com/Swabber-io/syscomp/internal/network"
)

// Session is a long-lived model shared by interactive front ends. It is safe
// for concurrent use. Reset rebuilds the model over the same population.
type Session struct {
	mu      sync.Mutex
	cfg     Config
	records []models.AgentRecord
	model   *Model
	runID   string
}

// NewSession builds the first model.
func NewSession(cfg Config, records []models.AgentRecord) (*Session, error) {
	s := &Session{records: records}
	if err := s.rebuild(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// rebuild replaces the model with one built from cfg. On error the session
// is left as it was. Caller holds s.mu.
func (s *Session) rebuild(cfg Config) error {
	m, err := New(cfg, s.records)
	if err != nil {
		return err
	}
	s.cfg = cfg
	s.model = m
	s.runID = uuid.NewString()
	return nil
}

// Step advances up to n ticks (at least one) and returns the resulting
// frame. A failed step leaves the model stopped.
func (s *Session) Step(n int) (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n < 1 {
		n = 1
	}
	for i := 0; i < n; i++ {
		if err := s.model.Step(); err != nil {
			return s.frame(), err
		}
	}
	return s.frame(), nil
}

// Reset discards the current model and builds a new one. A nil seed keeps
// the current seed. A failed reset keeps the current model and seed.
func (s *Session) Reset(seed *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.cfg
	if seed != nil {
		cfg.Seed = *seed
	}
	return s.rebuild(cfg)
}

// Frame returns the current tick.
func (s *Session) Frame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame()
}

func (s *Session) frame() Frame {
	f := s.model.Frame()
	f.RunID = s.runID
	return f
}

// History returns every snapshot since the last reset.
func (s *Session) History() []metrics.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.Metrics().History()
}

// Latest returns the most recent snapshot.
func (s *Session) Latest() metrics.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, _ := s.model.Metrics().Latest()
	return snap
}

// Stats returns graph statistics of the current contact network.
func (s *Session) Stats() network.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return network.ComputeStats(s.model.Engine().Graph())
}

// PageRank scores every agent's centrality in the current network.
func (s *Session) PageRank() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return network.PageRank(s.model.Engine().Graph(), network.DefaultPageRankConfig())
}

// AgentView is one agent with its current partners.
type AgentView struct {
	NodeState
	Neighbors []int `json:"neighbors"`
	Degree    int   `json:"degree"`
}

// Agent returns the agent with the given id.
func (s *Session) Agent(id int) (AgentView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.model.Population().Agent(id)
	if a == nil {
		return AgentView{}, &models.ValidationError{Field: "agent", Value: id, Reason: fmt.Sprintf("must be in [0, %d)", len(s.model.Population()))}
	}
	neighbors := s.model.Engine().Neighbors(id)
	return AgentView{
		NodeState: NodeState{
			ID:         a.ID,
			State:      a.State,
			Infections: a.InfectionKinds(),
			Attributes: a.Attributes,
		},
		Neighbors: neighbors,
		Degree:    len(neighbors),
	}, nil
}

// RunID identifies the current model; it changes on every Reset.
func (s *Session) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// Tick returns the current tick.
func (s *Session) Tick() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.Tick()
}

// Running reports whether the current model can still step.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.Running()
}

// Config returns the configuration the current model was built with.
func (s *Session) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// View returns the current frame with its graph statistics and PageRank
// scores, all taken at the same tick.
func (s *Session) View() (Frame, network.Stats, []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.model.Engine().Graph()
	return s.frame(), network.ComputeStats(g), network.PageRank(g, network.DefaultPageRankConfig())
}
