package models

import "github.com/Swabber-io/syscomp/internal/sanitize"

// AgentRecord is one fully-typed population row from an ingestion source.
type AgentRecord struct {
	Attributes
	Status State `json:"status" yaml:"status"`
}

// RawRecord is an untyped population row keyed by the original column names.
type RawRecord struct {
	AgentID           string
	Age               string
	Gender            string
	SexualOrientation string
	LastTestDate      string
	Status            string
	PartneringType    string
	PartnerCount      string
	Location          string
	PairOnSystem      string
}

// Parse converts a raw row into an AgentRecord. The first malformed field is
// reported as a *ParseError carrying the given line number.
func (r RawRecord) Parse(line int) (AgentRecord, error) {
	var rec AgentRecord
	var err error

	withLine := func(err error) error {
		if pe, ok := err.(*ParseError); ok {
			pe.Line = line
			return pe
		}
		return err
	}

	rec.ExternalID = sanitize.Label(r.AgentID)
	rec.Location = sanitize.Field(r.Location)
	if rec.AgeGroup, err = ParseAgeGroup(r.Age); err != nil {
		return AgentRecord{}, withLine(err)
	}
	if rec.Gender, err = ParseGender(r.Gender); err != nil {
		return AgentRecord{}, withLine(err)
	}
	if rec.SexualPreference, err = ParseSexualOrientation(r.SexualOrientation); err != nil {
		return AgentRecord{}, withLine(err)
	}
	if rec.LastTestDate, err = ParseTestDate(r.LastTestDate); err != nil {
		return AgentRecord{}, withLine(err)
	}
	if rec.Status, err = ParseState(r.Status); err != nil {
		return AgentRecord{}, withLine(err)
	}
	if rec.PairingType, err = ParsePairingType(r.PartneringType); err != nil {
		return AgentRecord{}, withLine(err)
	}
	if r.PartnerCount != "" {
		if rec.PartnerCount, err = ParsePartnerCount(r.PartnerCount); err != nil {
			return AgentRecord{}, withLine(err)
		}
	}
	if rec.PairOnSystem, err = ParsePairOnSystem(r.PairOnSystem); err != nil {
		return AgentRecord{}, withLine(err)
	}
	return rec, nil
}
