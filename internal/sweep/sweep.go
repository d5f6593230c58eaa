// Package sweep runs ensembles of independent seeded simulations in
// parallel and summarizes how the outbreak varied across them.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Swabber-io/syscomp/internal/logging"
	"github.com/Swabber-io/syscomp/internal/metrics"
	"github.com/Swabber-io/syscomp/internal/models"
	"github.com/Swabber-io/syscomp/internal/simulation"
)

// RunRecorder persists one member of an ensemble. *store.Recorder
// satisfies it.
type RunRecorder interface {
	simulation.Sink
	Finish(ctx context.Context, res simulation.Result, runErr error) error
}

// RecordFunc opens a recorder for a run before it starts.
type RecordFunc func(ctx context.Context, runID string, seed int64) (RunRecorder, error)

// Options configures an ensemble.
type Options struct {
	// Seeds lists one seed per run. See Seeds.
	Seeds []int64

	// Ticks is the maximum length of every run.
	Ticks int

	// Parallel bounds concurrent runs. Zero means GOMAXPROCS.
	Parallel int

	StopWhenClear bool

	// Record, when set, persists every run.
	Record RecordFunc

	Logger *slog.Logger
}

// Seeds returns n consecutive seeds starting at base.
func Seeds(base int64, n int) []int64 {
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = base + int64(i)
	}
	return seeds
}

// RunSummary is the outcome of one member of an ensemble.
type RunSummary struct {
	RunID        string         `json:"run_id"`
	Seed         int64          `json:"seed"`
	Ticks        int            `json:"ticks"`
	StoppedEarly bool           `json:"stopped_early"`
	PeakInfected int            `json:"peak_infected"`
	PeakTick     int            `json:"peak_tick"`
	Final        metrics.Counts `json:"final"`
	FinalEdges   int            `json:"final_edges"`
}

// Spread describes one quantity across an ensemble.
type Spread struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

// Summary aggregates an ensemble. Runs are ordered by seed.
type Summary struct {
	Runs           []RunSummary `json:"runs"`
	PeakInfected   Spread       `json:"peak_infected"`
	PeakTick       Spread       `json:"peak_tick"`
	FinalInfected  Spread       `json:"final_infected"`
	FinalResistant Spread       `json:"final_resistant"`

	// Cleared counts runs that ended with no infected agent.
	Cleared int `json:"cleared"`
}

func (o Options) validate() error {
	if len(o.Seeds) == 0 {
		return &models.ValidationError{Field: "seeds", Value: 0, Reason: "at least one run is required"}
	}
	if o.Ticks < 0 {
		return &models.ValidationError{Field: "ticks", Value: o.Ticks, Reason: "must not be negative"}
	}
	if o.Parallel < 0 {
		return &models.ValidationError{Field: "parallel", Value: o.Parallel, Reason: "must not be negative"}
	}
	seen := make(map[int64]bool, len(o.Seeds))
	for _, s := range o.Seeds {
		if seen[s] {
			return &models.ValidationError{Field: "seeds", Value: s, Reason: "duplicate seed"}
		}
		seen[s] = true
	}
	return nil
}

// Run executes one model per seed over the same population. Every model owns
// its rng, so runs share nothing but the read-only records. The first failing
// run cancels the rest and its error is returned.
func Run(ctx context.Context, cfg simulation.Config, records []models.AgentRecord, opts Options) (Summary, error) {
	if err := opts.validate(); err != nil {
		return Summary{}, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	parallel := opts.Parallel
	if parallel == 0 {
		parallel = runtime.GOMAXPROCS(0)
	}

	runs := make([]RunSummary, len(opts.Seeds))
	var mu sync.Mutex
	done := 0

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(parallel)
	for i, seed := range opts.Seeds {
		eg.Go(func() error {
			rs, err := runOne(egCtx, cfg, records, seed, opts, logger)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			runs[i] = rs

			mu.Lock()
			done++
			logger.Debug("sweep run finished", "seed", seed, "done", done, "total", len(opts.Seeds))
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Summary{}, err
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Seed < runs[j].Seed })
	s := Summarize(runs)
	logger.Info("sweep finished",
		"runs", len(runs),
		"mean_peak_infected", s.PeakInfected.Mean,
		"cleared", s.Cleared)
	return s, nil
}

func runOne(ctx context.Context, cfg simulation.Config, records []models.AgentRecord, seed int64, opts Options, logger *slog.Logger) (RunSummary, error) {
	cfg.Seed = seed
	m, err := simulation.New(cfg, records)
	if err != nil {
		return RunSummary{}, err
	}

	runID := uuid.NewString()
	ro := simulation.RunnerOptions{
		RunID:         runID,
		Logger:        logger.With("seed", seed),
		StopWhenClear: opts.StopWhenClear,
	}

	var rec RunRecorder
	if opts.Record != nil {
		if rec, err = opts.Record(ctx, runID, seed); err != nil {
			return RunSummary{}, fmt.Errorf("open recorder: %w", err)
		}
		ro.Sinks = []simulation.Sink{rec}
	}

	res, runErr := simulation.NewRunner(m, ro).Run(ctx, opts.Ticks)
	if rec != nil {
		// A cancelled context must not stop the failure from being recorded.
		if err := rec.Finish(context.WithoutCancel(ctx), res, runErr); err != nil && runErr == nil {
			runErr = fmt.Errorf("finish recorder: %w", err)
		}
	}
	if runErr != nil {
		return RunSummary{}, runErr
	}

	return RunSummary{
		RunID:        res.RunID,
		Seed:         seed,
		Ticks:        res.Ticks,
		StoppedEarly: res.StoppedEarly,
		PeakInfected: res.Peak.Counts.Infected,
		PeakTick:     res.Peak.Tick,
		Final:        res.Final.Counts,
		FinalEdges:   res.Final.Edges,
	}, nil
}

// Summarize aggregates per-run outcomes.
func Summarize(runs []RunSummary) Summary {
	s := Summary{Runs: runs}
	if len(runs) == 0 {
		return s
	}
	peak := make([]float64, len(runs))
	peakTick := make([]float64, len(runs))
	inf := make([]float64, len(runs))
	res := make([]float64, len(runs))
	for i, r := range runs {
		peak[i] = float64(r.PeakInfected)
		peakTick[i] = float64(r.PeakTick)
		inf[i] = float64(r.Final.Infected)
		res[i] = float64(r.Final.Resistant)
		if r.Final.Infected == 0 {
			s.Cleared++
		}
	}
	s.PeakInfected = spread(peak)
	s.PeakTick = spread(peakTick)
	s.FinalInfected = spread(inf)
	s.FinalResistant = spread(res)
	return s
}

// spread uses the population standard deviation. xs must not be empty.
func spread(xs []float64) Spread {
	s := Spread{Min: xs[0], Max: xs[0]}
	var sum float64
	for _, x := range xs {
		sum += x
		s.Min = math.Min(s.Min, x)
		s.Max = math.Max(s.Max, x)
	}
	s.Mean = sum / float64(len(xs))
	var ss float64
	for _, x := range xs {
		ss += (x - s.Mean) * (x - s.Mean)
	}
	s.StdDev = math.Sqrt(ss / float64(len(xs)))
	return s
}
