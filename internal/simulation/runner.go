package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Swabber-io/syscomp/internal/logging"
	"github.com/Swabber-io/syscomp/internal/metrics"
)

// RunnerOptions configures a Runner. The zero value is usable.
type RunnerOptions struct {
	// RunID identifies the run in frames, events and sinks. A random UUID is
	// generated when empty.
	RunID string

	Logger *slog.Logger
	Events *logging.EventLogger
	Sinks  []Sink

	// StopWhenClear ends the run early once no agent is infected.
	StopWhenClear bool
}

// Result summarizes a completed run.
type Result struct {
	RunID        string             `json:"run_id"`
	Seed         int64              `json:"seed"`
	Ticks        int                `json:"ticks"`
	Started      time.Time          `json:"started"`
	Finished     time.Time          `json:"finished"`
	History      []metrics.Snapshot `json:"history"`
	Peak         metrics.Snapshot   `json:"peak"`
	Final        metrics.Snapshot   `json:"final"`
	StoppedEarly bool               `json:"stopped_early"`
}

// Runner orchestrates a full run of a Model: it steps the model, fans each
// tick's Frame out to the sinks and traces what changed.
type Runner struct {
	model  *Model
	opts   RunnerOptions
	logger *slog.Logger
}

// NewRunner wraps m.
func NewRunner(m *Model, opts RunnerOptions) *Runner {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Runner{model: m, opts: opts, logger: logger.With("run_id", opts.RunID)}
}

// RunID returns the identifier of this run.
func (r *Runner) RunID() string { return r.opts.RunID }

// Model returns the wrapped model.
func (r *Runner) Model() *Model { return r.model }

// Run executes up to ticks steps. The initial state is emitted as tick 0.
// A step or sink error aborts the run and is returned with the partial result.
func (r *Runner) Run(ctx context.Context, ticks int) (Result, error) {
	res := Result{RunID: r.opts.RunID, Seed: r.model.Config().Seed, Started: time.Now().UTC()}

	r.logger.Info("run started",
		"agents", len(r.model.Population()),
		"ticks", ticks,
		"seed", res.Seed,
		"edge_ttl", r.model.Config().Network.EdgeTTL)

	if err := r.emit(ctx); err != nil {
		return r.finish(res), err
	}

	for i := 0; i < ticks && r.model.Running(); i++ {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("run cancelled", "tick", r.model.Tick())
			return r.finish(res), err
		}
		if err := r.model.Step(); err != nil {
			r.logger.Error("step failed", "tick", r.model.Tick(), "error", err)
			return r.finish(res), err
		}
		r.trace()
		if err := r.emit(ctx); err != nil {
			return r.finish(res), err
		}
		if r.opts.StopWhenClear {
			if snap, _ := r.model.Metrics().Latest(); snap.Counts.Infected == 0 {
				r.logger.Info("no infected agents remain", "tick", r.model.Tick())
				r.model.Stop()
				res.StoppedEarly = true
			}
		}
	}

	res = r.finish(res)
	r.logger.Info("run finished",
		"ticks", res.Ticks,
		"infected", res.Final.Counts.Infected,
		"resistant", res.Final.Counts.Resistant,
		"peak_infected", res.Peak.Counts.Infected,
		"peak_tick", res.Peak.Tick)
	return res, nil
}

func (r *Runner) finish(res Result) Result {
	res.Ticks = r.model.Tick()
	res.History = r.model.Metrics().History()
	res.Peak, _ = metrics.Peak(res.History)
	res.Final, _ = r.model.Metrics().Latest()
	res.Finished = time.Now().UTC()
	return res
}

func (r *Runner) emit(ctx context.Context) error {
	if len(r.opts.Sinks) == 0 {
		return nil
	}
	f := r.model.Frame()
	f.RunID = r.opts.RunID
	for _, s := range r.opts.Sinks {
		if err := s.WriteFrame(ctx, f); err != nil {
			return fmt.Errorf("writing frame %d: %w", f.Tick, err)
		}
	}
	return nil
}

func (r *Runner) trace() {
	m := r.model
	upd := m.LastUpdate()
	snap, _ := m.Metrics().Latest()

	r.logger.Debug("tick",
		"tick", m.Tick(),
		"edges", snap.Edges,
		"added", len(upd.Added),
		"removed", len(upd.Removed),
		"infected", snap.Counts.Infected,
		"susceptible", snap.Counts.Susceptible,
		"resistant", snap.Counts.Resistant)

	r.opts.Events.Log("tick", map[string]any{
		"tick":          m.Tick(),
		"edges":         snap.Edges,
		"edges_added":   len(upd.Added),
		"edges_removed": len(upd.Removed),
		"counts":        snap.Counts,
		"r_s_ratio":     snap.ResistantSusceptible,
	})
	if !r.opts.Events.Tracing() {
		return
	}
	for _, tr := range m.Transitions() {
		r.opts.Events.Trace("transition", map[string]any{
			"tick":     m.Tick(),
			"agent":    tr.Agent,
			"from":     tr.From,
			"to":       tr.To,
			"infected": tr.Infected,
		})
	}
}
