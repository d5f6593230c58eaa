package simulation

import (
	"errors"
	"sync"
	"testing"

	"github.com/Swabber-io/syscomp/internal/models"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	cfg := FixedBaseline(DefaultConfig(), 1)
	cfg.OutbreakSize = 1
	s, err := NewSession(cfg, records(Couples(4, "x")))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func TestSession_StepAdvances(t *testing.T) {
	s := newTestSession(t)
	f, err := s.Step(3)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if f.Tick != 3 || s.Tick() != 3 {
		t.Errorf("tick = %d/%d, want 3", f.Tick, s.Tick())
	}
	if f.RunID != s.RunID() {
		t.Errorf("frame run id %q != session %q", f.RunID, s.RunID())
	}
	if got := len(s.History()); got != 4 {
		t.Errorf("history = %d, want 4", got)
	}
	if s.Latest().Tick != 3 {
		t.Errorf("latest tick = %d", s.Latest().Tick)
	}

	// Non-positive counts still take one step.
	if f, _ := s.Step(0); f.Tick != 4 {
		t.Errorf("Step(0) tick = %d, want 4", f.Tick)
	}
}

func TestSession_ResetChangesRunID(t *testing.T) {
	s := newTestSession(t)
	_, _ = s.Step(5)
	before := s.RunID()

	seed := int64(99)
	if err := s.Reset(&seed); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if s.RunID() == before {
		t.Error("run id unchanged after reset")
	}
	if s.Tick() != 0 || len(s.History()) != 1 {
		t.Errorf("tick=%d history=%d after reset", s.Tick(), len(s.History()))
	}
	if s.Config().Seed != 99 {
		t.Errorf("seed = %d, want 99", s.Config().Seed)
	}

	if err := s.Reset(nil); err != nil {
		t.Fatalf("Reset(nil): %v", err)
	}
	if s.Config().Seed != 99 {
		t.Errorf("Reset(nil) changed seed to %d", s.Config().Seed)
	}
}

func TestSession_FailedResetKeepsState(t *testing.T) {
	s := newTestSession(t)
	_, _ = s.Step(2)
	before := s.RunID()
	oldSeed := s.Config().Seed

	s.cfg.Pathogen = "no-such-pathogen"
	seed := oldSeed + 1
	var ve *models.ValidationError
	if err := s.Reset(&seed); !errors.As(err, &ve) {
		t.Fatalf("Reset error = %v, want *ValidationError", err)
	}
	if got := s.Config().Seed; got != oldSeed {
		t.Errorf("seed = %d after failed reset, want %d", got, oldSeed)
	}
	if s.RunID() != before || s.Tick() != 2 {
		t.Errorf("failed reset replaced the model: run %q tick %d", s.RunID(), s.Tick())
	}
}

func TestSession_Agent(t *testing.T) {
	s := newTestSession(t)
	_, _ = s.Step(1)

	v, err := s.Agent(0)
	if err != nil {
		t.Fatalf("Agent(0): %v", err)
	}
	if v.ID != 0 || v.Degree != len(v.Neighbors) {
		t.Errorf("view = %+v", v)
	}
	for _, n := range v.Neighbors {
		if n%2 != 1 {
			t.Errorf("agent 0 linked to %d, want only women", n)
		}
	}

	var ve *models.ValidationError
	for _, id := range []int{-1, 8} {
		if _, err := s.Agent(id); !errors.As(err, &ve) {
			t.Errorf("Agent(%d) error = %v, want *ValidationError", id, err)
		}
	}
}

func TestSession_ViewIsConsistent(t *testing.T) {
	s := newTestSession(t)
	_, _ = s.Step(2)
	f, stats, pr := s.View()
	if len(pr) != len(f.Nodes) {
		t.Errorf("pagerank len = %d, want %d", len(pr), len(f.Nodes))
	}
	if stats.Edges != len(f.Edges) {
		t.Errorf("stats edges = %d, frame edges = %d", stats.Edges, len(f.Edges))
	}
}

func TestSession_ConcurrentUse(t *testing.T) {
	s := newTestSession(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Step(1)
			_ = s.Frame()
			_ = s.Stats()
		}()
	}
	wg.Wait()
	if s.Tick() != 8 {
		t.Errorf("tick = %d, want 8", s.Tick())
	}
}
