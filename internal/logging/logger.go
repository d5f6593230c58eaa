// Package logging provides leveled logging and event tracing for swabber.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - An EventLogger for structured JSONL simulation traces (events.jsonl)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace is a custom slog level below Debug. At this level every agent
// transition is traced, not just per-tick summaries.
const LevelTrace = slog.LevelDebug - 4

// EventsFile is the name of the JSONL trace written by EventLogger.
const EventsFile = "events.jsonl"

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "error", "warn", "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// ValidLevel reports whether ParseLevel recognizes s rather than falling
// back to info.
func ValidLevel(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error", "warn", "warning", "info", "debug", "trace":
		return true
	}
	return false
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything. Handy as a default.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// EventLogger writes simulation events to a JSONL file.
// It is safe for concurrent use. A nil EventLogger is safe to use;
// all methods are no-ops on nil receiver.
type EventLogger struct {
	mu    sync.Mutex
	w     io.Writer
	file  *os.File
	trace bool
	runID string
}

// NewEventLogger creates an event logger writing to dir/events.jsonl.
// At "info" level and above it returns nil and no file is created.
// At "debug" per-tick summaries are written; "trace" adds agent transitions.
// Returns nil if the file cannot be opened.
func NewEventLogger(dir, level, runID string) *EventLogger {
	lvl := ParseLevel(level)
	if lvl > slog.LevelDebug {
		return nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, EventsFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}
	return &EventLogger{w: f, file: f, trace: lvl <= LevelTrace, runID: runID}
}

// NewEventWriter returns an event logger over an arbitrary writer.
func NewEventWriter(w io.Writer, trace bool, runID string) *EventLogger {
	return &EventLogger{w: w, trace: trace, runID: runID}
}

// Tracing reports whether per-agent events are recorded.
func (el *EventLogger) Tracing() bool {
	return el != nil && el.trace
}

// Log writes an event as a single JSONL line. "time" and "run_id" fields
// are added automatically. The caller's map is not mutated.
func (el *EventLogger) Log(kind string, event map[string]any) {
	if el == nil || el.w == nil {
		return
	}

	entry := make(map[string]any, len(event)+3)
	for k, v := range event {
		entry[k] = v
	}
	entry["event"] = kind
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)
	if el.runID != "" {
		entry["run_id"] = el.runID
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	el.mu.Lock()
	defer el.mu.Unlock()
	if el.w != nil {
		_, _ = el.w.Write(data)
	}
}

// Trace writes an event only when tracing is enabled.
func (el *EventLogger) Trace(kind string, event map[string]any) {
	if !el.Tracing() {
		return
	}
	el.Log(kind, event)
}

// Close closes the underlying file. Safe to call on nil receiver.
func (el *EventLogger) Close() {
	if el == nil {
		return
	}

	el.mu.Lock()
	defer el.mu.Unlock()

	if el.file != nil {
		el.file.Close()
		el.file = nil
	}
	el.w = nil
}
