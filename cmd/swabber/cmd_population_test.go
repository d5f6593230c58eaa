package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPopulation_GenerateImportRun(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	csvPath := filepath.Join(tmpDir, "people.csv")

	mustExecute(t, "population", "generate", "--size", "30", "--seed", "5", "--out", csvPath)
	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("generate did not write %s: %v", csvPath, err)
	}
	if lines := strings.Count(strings.TrimSpace(string(data)), "\n"); lines != 30 {
		t.Errorf("generated %d data rows, want 30", lines)
	}

	var imported map[string]any
	if err := json.Unmarshal([]byte(mustExecute(t, "population", "import", csvPath, "--json")), &imported); err != nil {
		t.Fatalf("import --json: %v", err)
	}
	if imported["imported"] != float64(30) {
		t.Errorf("imported = %v, want 30", imported["imported"])
	}

	var count map[string]int
	if err := json.Unmarshal([]byte(mustExecute(t, "population", "count", "--json")), &count); err != nil {
		t.Fatalf("count --json: %v", err)
	}
	if count["agents"] != 30 {
		t.Errorf("count = %d, want 30", count["agents"])
	}

	run := decodeRun(t, mustExecute(t, "run", "--no-persist", "--population", "store", "--size", "10", "--ticks", "2", "--json"))
	if run.Agents != 10 {
		t.Errorf("run from store used %d agents, want 10", run.Agents)
	}

	run = decodeRun(t, mustExecute(t, "run", "--no-persist", "--population", csvPath, "--ticks", "2", "--json"))
	if run.Agents != 30 {
		t.Errorf("run from csv used %d agents, want 30", run.Agents)
	}
}

func TestPopulationGenerate_Deterministic(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	a := mustExecute(t, "population", "generate", "--size", "25", "--seed", "9")
	b := mustExecute(t, "population", "generate", "--size", "25", "--seed", "9")
	if a != b {
		t.Error("same seed generated different populations")
	}
	if c := mustExecute(t, "population", "generate", "--size", "25", "--seed", "10"); c == a {
		t.Error("different seeds generated identical populations")
	}
}

func TestPopulationImport_BadFile(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	bad := filepath.Join(tmpDir, "bad.csv")
	if err := os.WriteFile(bad, []byte("not,a,population\n1,2,3\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "population", "import", bad); err == nil {
		t.Error("import accepted a malformed CSV")
	}
	if _, err := execute(t, "population", "import", filepath.Join(tmpDir, "missing.csv")); err == nil {
		t.Error("import accepted a missing file")
	}
}
