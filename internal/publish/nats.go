// Package publish streams simulation frames to NATS.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Swabber-io/syscomp/internal/simulation"
)

// Publisher is the subset of *nats.Conn the sink needs.
type Publisher interface {
	Publish(subject string, data []byte) error
	Flush() error
}

// Connect dials a NATS server with swabber's client options.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("swabber"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	return nc, nil
}

// Subject returns <prefix>.<runID>.<kind>. Tokens are sanitized so a run ID
// can never inject wildcards or extra levels.
func Subject(prefix, runID, kind string) string {
	return prefix + "." + token(runID) + "." + kind
}

func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}

// NATSSink publishes every frame as JSON on <prefix>.<run-id>.frame.
// It implements simulation.Sink.
type NATSSink struct {
	pub    Publisher
	prefix string

	// Published counts frames sent.
	Published int
}

// NewNATSSink returns a sink publishing through pub.
func NewNATSSink(pub Publisher, prefix string) *NATSSink {
	return &NATSSink{pub: pub, prefix: prefix}
}

// WriteFrame implements simulation.Sink.
func (s *NATSSink) WriteFrame(ctx context.Context, f simulation.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding frame %d: %w", f.Tick, err)
	}
	if err := s.pub.Publish(Subject(s.prefix, f.RunID, "frame"), data); err != nil {
		return fmt.Errorf("publishing frame %d: %w", f.Tick, err)
	}
	s.Published++
	return nil
}

// PublishResult sends the run summary on <prefix>.<run-id>.result and
// flushes the connection.
func (s *NATSSink) PublishResult(res simulation.Result) error {
	summary := struct {
		RunID        string `json:"run_id"`
		Seed         int64  `json:"seed"`
		Ticks        int    `json:"ticks"`
		PeakInfected int    `json:"peak_infected"`
		PeakTick     int    `json:"peak_tick"`
		StoppedEarly bool   `json:"stopped_early"`
		Final        any    `json:"final"`
	}{
		RunID:        res.RunID,
		Seed:         res.Seed,
		Ticks:        res.Ticks,
		PeakInfected: res.Peak.Counts.Infected,
		PeakTick:     res.Peak.Tick,
		StoppedEarly: res.StoppedEarly,
		Final:        res.Final,
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	if err := s.pub.Publish(Subject(s.prefix, res.RunID, "result"), data); err != nil {
		return fmt.Errorf("publishing result: %w", err)
	}
	return s.pub.Flush()
}

// Flush waits for the server to acknowledge everything published.
func (s *NATSSink) Flush() error {
	return s.pub.Flush()
}
