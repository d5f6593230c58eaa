// Package store persists populations and simulation runs in SQLite.
package store

import (
	"errors"
	"time"

	"github.com/Swabber-io/syscomp/internal/metrics"
	"github.com/Swabber-io/syscomp/internal/network"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("not found")

// Run is the stored header of one simulation run.
type Run struct {
	ID       string    `json:"id"`
	Seed     int64     `json:"seed"`
	Agents   int       `json:"agents"`
	Config   string    `json:"config,omitempty"` // YAML
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished,omitempty"`
	Ticks    int       `json:"ticks"`
	Status   RunStatus `json:"status"`
}

// RunStatus is the lifecycle state of a stored run.
type RunStatus string

const (
	RunRunning  RunStatus = "running"
	RunFinished RunStatus = "finished"
	RunFailed   RunStatus = "failed"
)

// RunDetail is a run with its per-tick metrics and final edge map.
type RunDetail struct {
	Run
	History []metrics.Snapshot `json:"history"`
	Edges   []network.Edge     `json:"edges"`
}
