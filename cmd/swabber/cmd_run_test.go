package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Swabber-io/syscomp/internal/export"
	"github.com/Swabber-io/syscomp/internal/store"
)

func decodeRun(t *testing.T, out string) runOutput {
	t.Helper()
	var got runOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("run --json is not JSON: %v\n%s", err, out)
	}
	return got
}

func TestRunCmd_PersistsAndLists(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	run := decodeRun(t, mustExecute(t, "run", "--ticks", "5", "--size", "20", "--seed", "3", "--json"))
	if run.Agents != 20 {
		t.Errorf("Agents = %d, want 20", run.Agents)
	}
	if run.Ticks != 5 {
		t.Errorf("Ticks = %d, want 5", run.Ticks)
	}
	if run.Database == "" {
		t.Fatal("run was not persisted")
	}
	if total := run.Final.Total(); total != 20 {
		t.Errorf("final counts total %d, want 20", total)
	}

	var runs []store.Run
	if err := json.Unmarshal([]byte(mustExecute(t, "runs", "list", "--json")), &runs); err != nil {
		t.Fatalf("runs list --json: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != run.RunID {
		t.Fatalf("runs list = %+v, want one run %s", runs, run.RunID)
	}
	if runs[0].Status != store.RunFinished {
		t.Errorf("status = %q, want %q", runs[0].Status, store.RunFinished)
	}

	var detail store.RunDetail
	if err := json.Unmarshal([]byte(mustExecute(t, "runs", "show", run.RunID[:8], "--json")), &detail); err != nil {
		t.Fatalf("runs show --json: %v", err)
	}
	if len(detail.History) == 0 {
		t.Error("stored run has no history")
	}
	if got := detail.History[len(detail.History)-1].Counts; got != run.Final {
		t.Errorf("stored final counts = %+v, want %+v", got, run.Final)
	}

	csv := mustExecute(t, "runs", "export", run.RunID[:8])
	if !strings.HasPrefix(csv, "tick,susceptible,infected,resistant") {
		t.Errorf("export header = %q", strings.SplitN(csv, "\n", 2)[0])
	}

	stream := mustExecute(t, "runs", "export", run.RunID[:8], "--format", "arrow")
	exported, err := export.ReadArrowStream(strings.NewReader(stream))
	if err != nil {
		t.Fatalf("arrow export to stdout is not a readable stream: %v", err)
	}
	if len(exported) != len(detail.History) {
		t.Errorf("arrow export rows = %d, want %d", len(exported), len(detail.History))
	}

	mustExecute(t, "runs", "delete", run.RunID[:8])
	if _, err := execute(t, "runs", "show", run.RunID); err == nil || !strings.Contains(err.Error(), "no run matches") {
		t.Errorf("show after delete error = %v, want no run matches", err)
	}
}

func TestRunCmd_Deterministic(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	args := []string{"run", "--no-persist", "--ticks", "30", "--size", "40", "--seed", "11", "--json"}
	a := decodeRun(t, mustExecute(t, args...))
	b := decodeRun(t, mustExecute(t, args...))

	if a.RunID == b.RunID {
		t.Error("two runs share a run id")
	}
	if a.Final != b.Final || a.Edges != b.Edges || a.PeakTick != b.PeakTick {
		t.Errorf("same seed diverged: %+v vs %+v", a, b)
	}
	if a.Database != "" {
		t.Errorf("--no-persist still stored the run in %s", a.Database)
	}
}

func TestRunCmd_Export(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	outDir := filepath.Join(tmpDir, "exports")

	run := decodeRun(t, mustExecute(t, "run", "--no-persist", "--ticks", "3", "--size", "10",
		"--export", "csv,jsonl,arrow", "--out", outDir, "--json"))
	if len(run.Exports) != 3 {
		t.Fatalf("Exports = %v, want 3 files", run.Exports)
	}
	for _, p := range run.Exports {
		if filepath.Dir(p) != outDir {
			t.Errorf("export %s not under %s", p, outDir)
		}
		if info, err := os.Stat(p); err != nil || info.Size() == 0 {
			t.Errorf("export %s missing or empty: %v", p, err)
		}
	}
}

func TestRunCmd_InvalidFlags(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	tests := []struct {
		name string
		args []string
	}{
		{"negative ticks", []string{"run", "--no-persist", "--ticks", "-1"}},
		{"unknown export", []string{"run", "--no-persist", "--export", "xml"}},
		{"missing csv", []string{"run", "--no-persist", "--population", filepath.Join(tmpDir, "nope.csv")}},
		{"store without import", []string{"run", "--no-persist", "--population", "store", "--ticks", "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, tt.args...); err == nil {
				t.Errorf("swabber %s succeeded", strings.Join(tt.args, " "))
			}
		})
	}
}

func TestRunsList_Empty(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	if out := mustExecute(t, "runs", "list"); !strings.Contains(out, "No runs recorded") {
		t.Errorf("runs list = %q", out)
	}
	if out := strings.TrimSpace(mustExecute(t, "runs", "list", "--json")); out != "[]" {
		t.Errorf("runs list --json = %q, want []", out)
	}
}
