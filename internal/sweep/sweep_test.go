package sweep

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/goleak"

	"github.com/Swabber-io/syscomp/internal/metrics"
	"github.com/Swabber-io/syscomp/internal/models"
	"github.com/Swabber-io/syscomp/internal/simulation"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig() simulation.Config {
	cfg := simulation.DefaultConfig()
	cfg.OutbreakSize = 3
	cfg.Rules.BaselineMin, cfg.Rules.BaselineMax = 0.05, 0.2
	return cfg
}

func testRecords() []models.AgentRecord {
	return simulation.Scenario{Agents: simulation.Couples(10, "x")}.Records()
}

func TestSeeds(t *testing.T) {
	if diff := cmp.Diff([]int64{7, 8, 9}, Seeds(7, 3)); diff != "" {
		t.Errorf("Seeds mismatch (-want +got):\n%s", diff)
	}
	if len(Seeds(1, 0)) != 0 {
		t.Error("Seeds(1, 0) not empty")
	}
}

func TestRun_DeterministicAcrossParallelism(t *testing.T) {
	ctx := context.Background()
	opts := Options{Seeds: Seeds(100, 6), Ticks: 30}

	opts.Parallel = 1
	serial, err := Run(ctx, testConfig(), testRecords(), opts)
	if err != nil {
		t.Fatalf("serial Run: %v", err)
	}
	opts.Parallel = 4
	parallel, err := Run(ctx, testConfig(), testRecords(), opts)
	if err != nil {
		t.Fatalf("parallel Run: %v", err)
	}

	ignoreIDs := cmpopts.IgnoreFields(RunSummary{}, "RunID")
	if diff := cmp.Diff(serial, parallel, ignoreIDs); diff != "" {
		t.Errorf("ensembles diverged (-serial +parallel):\n%s", diff)
	}
	for i, r := range serial.Runs {
		if r.Seed != int64(100+i) {
			t.Errorf("run %d has seed %d, want runs ordered by seed", i, r.Seed)
		}
		if r.Final.Total() != 20 {
			t.Errorf("seed %d: final population %d, want 20", r.Seed, r.Final.Total())
		}
		if r.PeakInfected < 3 {
			t.Errorf("seed %d: peak %d below the outbreak size", r.Seed, r.PeakInfected)
		}
	}
}

func TestRun_StopWhenClear(t *testing.T) {
	cfg := testConfig()
	cfg.Virus.SpreadChance = 0
	cfg.Virus.CheckFrequency, cfg.Virus.RecoveryChance = 1, 1

	s, err := Run(context.Background(), cfg, testRecords(), Options{Seeds: Seeds(1, 3), Ticks: 50, StopWhenClear: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.Cleared != 3 {
		t.Errorf("cleared = %d, want 3", s.Cleared)
	}
	for _, r := range s.Runs {
		if !r.StoppedEarly || r.Ticks != 1 {
			t.Errorf("seed %d: stopped=%v ticks=%d", r.Seed, r.StoppedEarly, r.Ticks)
		}
	}
}

func TestRun_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"no seeds", Options{Ticks: 5}},
		{"negative ticks", Options{Seeds: Seeds(1, 2), Ticks: -1}},
		{"negative parallel", Options{Seeds: Seeds(1, 2), Parallel: -2}},
		{"duplicate seeds", Options{Seeds: []int64{4, 5, 4}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ve *models.ValidationError
			if _, err := Run(context.Background(), testConfig(), testRecords(), tt.opts); !errors.As(err, &ve) {
				t.Errorf("Run error = %v, want *ValidationError", err)
			}
		})
	}
}

func TestRun_ModelErrorFailsEnsemble(t *testing.T) {
	cfg := testConfig()
	cfg.Network.EdgeTTL = 0
	var ve *models.ValidationError
	if _, err := Run(context.Background(), cfg, testRecords(), Options{Seeds: Seeds(1, 4), Ticks: 5}); !errors.As(err, &ve) {
		t.Fatalf("Run error = %v, want wrapped *ValidationError", err)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, testConfig(), testRecords(), Options{Seeds: Seeds(1, 4), Ticks: 5}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
}

type fakeRecorder struct {
	mu       *sync.Mutex
	frames   map[string]int
	finished map[string]error
	runID    string
}

func (r *fakeRecorder) WriteFrame(_ context.Context, f simulation.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f.RunID != r.runID {
		return errors.New("frame from another run")
	}
	r.frames[r.runID]++
	return nil
}

func (r *fakeRecorder) Finish(_ context.Context, _ simulation.Result, runErr error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished[r.runID] = runErr
	return nil
}

func TestRun_RecordsEveryRun(t *testing.T) {
	var mu sync.Mutex
	frames := map[string]int{}
	finished := map[string]error{}
	record := func(_ context.Context, runID string, _ int64) (RunRecorder, error) {
		return &fakeRecorder{mu: &mu, frames: frames, finished: finished, runID: runID}, nil
	}

	s, err := Run(context.Background(), testConfig(), testRecords(), Options{Seeds: Seeds(1, 5), Ticks: 10, Parallel: 2, Record: record})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(finished) != 5 {
		t.Fatalf("finished = %d runs, want 5", len(finished))
	}
	for _, r := range s.Runs {
		if got := frames[r.RunID]; got != 11 {
			t.Errorf("run %s: %d frames, want 11", r.RunID, got)
		}
		if err := finished[r.RunID]; err != nil {
			t.Errorf("run %s finished with %v", r.RunID, err)
		}
	}
}

func TestRun_RecorderOpenError(t *testing.T) {
	record := func(context.Context, string, int64) (RunRecorder, error) {
		return nil, errors.New("database is locked")
	}
	_, err := Run(context.Background(), testConfig(), testRecords(), Options{Seeds: Seeds(1, 2), Ticks: 3, Record: record})
	if err == nil {
		t.Fatal("expected recorder error")
	}
}

func TestSummarize(t *testing.T) {
	runs := []RunSummary{
		{Seed: 1, PeakInfected: 2, PeakTick: 1, Final: metrics.Counts{Infected: 0, Resistant: 4}},
		{Seed: 2, PeakInfected: 6, PeakTick: 5, Final: metrics.Counts{Infected: 2, Resistant: 2}},
	}
	s := Summarize(runs)
	want := Spread{Min: 2, Max: 6, Mean: 4, StdDev: 2}
	if diff := cmp.Diff(want, s.PeakInfected); diff != "" {
		t.Errorf("peak spread mismatch (-want +got):\n%s", diff)
	}
	if s.Cleared != 1 {
		t.Errorf("cleared = %d, want 1", s.Cleared)
	}
	if s.FinalResistant.Mean != 3 || s.PeakTick.Max != 5 {
		t.Errorf("summary = %+v", s)
	}

	if empty := Summarize(nil); empty.Cleared != 0 || empty.PeakInfected != (Spread{}) {
		t.Errorf("empty summary = %+v", empty)
	}
}
