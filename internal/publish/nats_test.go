package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Swabber-io/syscomp/internal/simulation"
)

type message struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	msgs    []message
	flushes int
	err     error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, message{subject, append([]byte(nil), data...)})
	return nil
}

func (f *fakePublisher) Flush() error {
	f.flushes++
	return nil
}

func TestSubject(t *testing.T) {
	tests := []struct {
		runID string
		want  string
	}{
		{"abc-123", "swabber.abc-123.frame"},
		{"a.b", "swabber.a_b.frame"},
		{"x*>y", "swabber.x__y.frame"},
		{"", "swabber._.frame"},
	}
	for _, tt := range tests {
		if got := Subject("swabber", tt.runID, "frame"); got != tt.want {
			t.Errorf("Subject(%q) = %q, want %q", tt.runID, got, tt.want)
		}
	}
}

func TestNATSSink_PublishesEveryFrame(t *testing.T) {
	m, err := simulation.New(simulation.DefaultConfig(), simulation.Scenario{Agents: simulation.Couples(3, "x")}.Records())
	if err != nil {
		t.Fatal(err)
	}
	pub := &fakePublisher{}
	sink := NewNATSSink(pub, "sim")

	res, err := simulation.NewRunner(m, simulation.RunnerOptions{
		RunID: "r1",
		Sinks: []simulation.Sink{sink},
	}).Run(context.Background(), 5)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := sink.PublishResult(res); err != nil {
		t.Fatalf("PublishResult: %v", err)
	}

	if len(pub.msgs) != 7 || sink.Published != 6 {
		t.Fatalf("messages = %d published = %d, want 6 frames + 1 result", len(pub.msgs), sink.Published)
	}
	for i, msg := range pub.msgs[:6] {
		if msg.subject != "sim.r1.frame" {
			t.Errorf("frame %d subject = %q", i, msg.subject)
		}
		var f simulation.Frame
		if err := json.Unmarshal(msg.data, &f); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if f.Tick != i || len(f.Nodes) != 6 {
			t.Errorf("frame %d decoded as tick %d with %d nodes", i, f.Tick, len(f.Nodes))
		}
	}
	last := pub.msgs[6]
	if last.subject != "sim.r1.result" {
		t.Errorf("result subject = %q", last.subject)
	}
	var summary map[string]any
	if err := json.Unmarshal(last.data, &summary); err != nil || summary["ticks"] != float64(5) {
		t.Errorf("result = %s (%v)", last.data, err)
	}
	if pub.flushes != 1 {
		t.Errorf("flushes = %d, want 1", pub.flushes)
	}
}

func TestNATSSink_Errors(t *testing.T) {
	boom := errors.New("no responders")
	sink := NewNATSSink(&fakePublisher{err: boom}, "sim")
	if err := sink.WriteFrame(context.Background(), simulation.Frame{RunID: "r"}); !errors.Is(err, boom) {
		t.Errorf("WriteFrame error = %v, want wrapped publish error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewNATSSink(&fakePublisher{}, "sim").WriteFrame(ctx, simulation.Frame{}); !errors.Is(err, context.Canceled) {
		t.Errorf("WriteFrame error = %v, want context.Canceled", err)
	}
}
