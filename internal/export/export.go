// Package export writes a run's metrics history as CSV, JSONL or Arrow IPC.
package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Swabber-io/syscomp/internal/constants"
	"github.com/Swabber-io/syscomp/internal/metrics"
	"github.com/Swabber-io/syscomp/internal/models"
)

// Columns is the column order shared by the CSV and Arrow writers.
var Columns = []string{
	"tick", "susceptible", "infected", "resistant", "exposed", "off",
	"edges", "edges_added", "edges_removed",
	"resistant_susceptible", "infected_susceptible",
}

// WriteCSV writes one row per snapshot. Infinite ratios are written as +Inf.
func WriteCSV(w io.Writer, history []metrics.Snapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, s := range history {
		row := []string{
			strconv.Itoa(s.Tick),
			strconv.Itoa(s.Counts.Susceptible),
			strconv.Itoa(s.Counts.Infected),
			strconv.Itoa(s.Counts.Resistant),
			strconv.Itoa(s.Counts.Exposed),
			strconv.Itoa(s.Counts.Off),
			strconv.Itoa(s.Edges),
			strconv.Itoa(s.EdgesAdded),
			strconv.Itoa(s.EdgesRemoved),
			strconv.FormatFloat(float64(s.ResistantSusceptible), 'g', -1, 64),
			strconv.FormatFloat(float64(s.InfectedSusceptible), 'g', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSONL writes one JSON object per line.
func WriteJSONL(w io.Writer, history []metrics.Snapshot) error {
	enc := json.NewEncoder(w)
	for _, s := range history {
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("encoding tick %d: %w", s.Tick, err)
		}
	}
	return nil
}

// ReadJSONL reads a history written by WriteJSONL. Blank lines are skipped.
func ReadJSONL(r io.Reader) ([]metrics.Snapshot, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var out []metrics.Snapshot
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var s metrics.Snapshot
		if err := json.Unmarshal(line, &s); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		out = append(out, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}
	return out, nil
}

// Write dispatches on format. Arrow is written in the IPC stream format
// because w may not be seekable; WriteFile writes the IPC file format.
func Write(w io.Writer, format string, history []metrics.Snapshot) error {
	switch format {
	case constants.FormatCSV:
		return WriteCSV(w, history)
	case constants.FormatJSONL:
		return WriteJSONL(w, history)
	case constants.FormatArrow:
		return WriteArrowStream(w, history)
	}
	return &models.ValidationError{Field: "format", Value: format, Reason: "unknown export format"}
}

// Supported reports whether format is one of constants.ExportFormats.
func Supported(format string) bool {
	for _, f := range constants.ExportFormats {
		if f == format {
			return true
		}
	}
	return false
}

// Extension returns the file extension for a format.
func Extension(format string) string {
	if format == constants.FormatArrow {
		return ".arrow"
	}
	return "." + format
}

// WriteFile writes history to dir/<name><ext> and returns the path.
func WriteFile(dir, name, format string, history []metrics.Snapshot) (string, error) {
	if !Supported(format) {
		return "", &models.ValidationError{Field: "format", Value: format, Reason: "unknown export format"}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}
	path := filepath.Join(dir, name+Extension(format))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	if format == constants.FormatArrow {
		err = WriteArrow(f, history)
	} else {
		err = Write(f, format, history)
	}
	if err != nil {
		f.Close()
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}
