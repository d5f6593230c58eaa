// Package ingest loads agent populations from CSV exports, the local store or
// a synthetic generator.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"

	"github.com/Swabber-io/syscomp/internal/models"
)

// Column names of a population export.
const (
	ColAgentID           = "agent_id"
	ColAge               = "age"
	ColGender            = "gender"
	ColSexualOrientation = "sexual_orientation"
	ColLastTestDate      = "last_STI_test_date"
	ColStatus            = "STI_status"
	ColPartneringType    = "partnering_type"
	ColPartnerCount      = "partner_count"
	ColLocation          = "loc"
	ColPairOnSystem      = "pair_on_system"
)

// Header is the column order WriteCSV emits.
var Header = []string{
	ColAgentID, ColAge, ColGender, ColSexualOrientation, ColLastTestDate,
	ColStatus, ColPartneringType, ColPartnerCount, ColLocation, ColPairOnSystem,
}

var requiredColumns = []string{
	ColAgentID, ColAge, ColGender, ColSexualOrientation, ColStatus,
	ColPartneringType, ColLocation, ColPairOnSystem,
}

// ErrEmptyInput is returned when a CSV has no header row.
var ErrEmptyInput = errors.New("ingest: empty input")

// ReadCSV parses every row of r, shuffles the result with rng and returns the
// first n records. n <= 0 returns the whole population. Any malformed row
// fails the whole read with a *models.ParseError.
func ReadCSV(r io.Reader, n int, rng *rand.Rand) ([]models.AgentRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, &models.ValidationError{Field: "header", Value: col, Reason: "missing column"}
		}
	}

	field := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var records []models.AgentRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading line %d: %w", line, err)
		}
		raw := models.RawRecord{
			AgentID:           field(row, ColAgentID),
			Age:               field(row, ColAge),
			Gender:            field(row, ColGender),
			SexualOrientation: field(row, ColSexualOrientation),
			LastTestDate:      field(row, ColLastTestDate),
			Status:            field(row, ColStatus),
			PartneringType:    field(row, ColPartneringType),
			PartnerCount:      field(row, ColPartnerCount),
			Location:          field(row, ColLocation),
			PairOnSystem:      field(row, ColPairOnSystem),
		}
		rec, err := raw.Parse(line)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return Sample(records, n, rng), nil
}

// LoadCSVFile opens path and reads it with ReadCSV.
func LoadCSVFile(path string, n int, rng *rand.Rand) ([]models.AgentRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening population file: %w", err)
	}
	defer f.Close()

	records, err := ReadCSV(f, n, rng)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// Sample shuffles records in place with rng and returns the first n. n <= 0
// or n larger than the population returns all of them.
func Sample(records []models.AgentRecord, n int, rng *rand.Rand) []models.AgentRecord {
	if rng != nil {
		rng.Shuffle(len(records), func(i, j int) {
			records[i], records[j] = records[j], records[i]
		})
	}
	if n <= 0 || n > len(records) {
		return records
	}
	return records[:n]
}

// WriteCSV writes records in the export format ReadCSV accepts. Age is
// written as the bucket name since exact ages are not retained.
func WriteCSV(w io.Writer, records []models.AgentRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for i, rec := range records {
		id := rec.ExternalID
		if id == "" {
			id = fmt.Sprintf("%d", i)
		}
		var tested string
		if !rec.LastTestDate.IsZero() {
			tested = rec.LastTestDate.Format(models.TestDateLayout)
		}
		pair := "FALSE"
		if rec.PairOnSystem {
			pair = "TRUE"
		}
		row := []string{
			id,
			string(rec.AgeGroup),
			string(rec.Gender),
			string(rec.SexualPreference),
			tested,
			string(rec.Status),
			string(rec.PairingType),
			string(rec.PartnerCount),
			rec.Location,
			pair,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
