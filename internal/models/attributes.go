// Package models defines the population data model: infection states,
// demographic attributes, ingestion records and the typed errors shared by
// every layer.
package models

import (
	"strconv"
	"strings"
	"time"
)

// AgeGroup buckets an agent's age.
type AgeGroup string

const (
	AgeGroupYoung  AgeGroup = "young"
	AgeGroupAdult  AgeGroup = "adult"
	AgeGroupSenior AgeGroup = "senior"
)

// AgeGroupFor maps a numeric age to its bucket: under 18 is young, under 50
// is adult, everything else is senior.
func AgeGroupFor(age int) AgeGroup {
	switch {
	case age < 18:
		return AgeGroupYoung
	case age < 50:
		return AgeGroupAdult
	default:
		return AgeGroupSenior
	}
}

// ParseAgeGroup accepts either a numeric age or a bucket name.
func ParseAgeGroup(v string) (AgeGroup, error) {
	v = strings.TrimSpace(v)
	if age, err := strconv.Atoi(v); err == nil {
		if age < 0 {
			return "", &ParseError{Field: "age", Value: v}
		}
		return AgeGroupFor(age), nil
	}
	switch g := AgeGroup(strings.ToLower(v)); g {
	case AgeGroupYoung, AgeGroupAdult, AgeGroupSenior:
		return g, nil
	}
	return "", &ParseError{Field: "age", Value: v}
}

// Gender is the recorded gender used by orientation predicates.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

// ParseGender accepts "M"/"F" (any case).
func ParseGender(v string) (Gender, error) {
	switch g := Gender(strings.ToUpper(strings.TrimSpace(v))); g {
	case GenderMale, GenderFemale:
		return g, nil
	}
	return "", &ParseError{Field: "gender", Value: v}
}

// SexualOrientation is the partner preference category.
type SexualOrientation string

const (
	OrientationStraight SexualOrientation = "straight"
	OrientationGay      SexualOrientation = "gay"
	OrientationBisexual SexualOrientation = "bisexual"
	OrientationLesbian  SexualOrientation = "lesbian"
)

// ParseSexualOrientation accepts the lower-case category names.
func ParseSexualOrientation(v string) (SexualOrientation, error) {
	switch o := SexualOrientation(strings.ToLower(strings.TrimSpace(v))); o {
	case OrientationStraight, OrientationGay, OrientationBisexual, OrientationLesbian:
		return o, nil
	}
	return "", &ParseError{Field: "sexual_orientation", Value: v}
}

// PairingType says whether an agent keeps partners one at a time.
type PairingType string

const (
	PairingSequential PairingType = "sequential"
	PairingConcurrent PairingType = "concurrent"
)

// ParsePairingType accepts "sequential" or "concurrent".
func ParsePairingType(v string) (PairingType, error) {
	switch p := PairingType(strings.ToLower(strings.TrimSpace(v))); p {
	case PairingSequential, PairingConcurrent:
		return p, nil
	}
	return "", &ParseError{Field: "partnering_type", Value: v}
}

// PartnerCount is a self-reported partner count bucket.
type PartnerCount string

const (
	PartnerCountLow     PartnerCount = "1 to 3"
	PartnerCountMedium  PartnerCount = "4 to 6"
	PartnerCountHigh    PartnerCount = "7 to 10"
	PartnerCountExtreme PartnerCount = "11+"
)

// ParsePartnerCount accepts the bucket labels exactly as exported.
func ParsePartnerCount(v string) (PartnerCount, error) {
	switch p := PartnerCount(strings.TrimSpace(v)); p {
	case PartnerCountLow, PartnerCountMedium, PartnerCountHigh, PartnerCountExtreme:
		return p, nil
	}
	return "", &ParseError{Field: "partner_count", Value: v}
}

// ParsePairOnSystem parses the "TRUE"/"FALSE" pairing flag.
func ParsePairOnSystem(v string) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "TRUE":
		return true, nil
	case "FALSE":
		return false, nil
	}
	return false, &ParseError{Field: "pair_on_system", Value: v}
}

// TestDateLayout is the layout of last_STI_test_date in CSV exports.
const TestDateLayout = "01/02/2006"

// ParseTestDate parses an MM/DD/YYYY date. An empty value means "never tested".
func ParseTestDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(TestDateLayout, v)
	if err != nil {
		return time.Time{}, &ParseError{Field: "last_STI_test_date", Value: v, Err: err}
	}
	return t, nil
}

// Attributes are the demographic attributes of an agent. They only feed
// compatibility predicates and reports.
type Attributes struct {
	ExternalID       string            `json:"external_id,omitempty" yaml:"external_id,omitempty"`
	AgeGroup         AgeGroup          `json:"age_group" yaml:"age_group"`
	Gender           Gender            `json:"gender" yaml:"gender"`
	SexualPreference SexualOrientation `json:"sexual_preference" yaml:"sexual_preference"`
	PairingType      PairingType       `json:"pairing_type" yaml:"pairing_type"`
	PartnerCount     PartnerCount      `json:"partner_count,omitempty" yaml:"partner_count,omitempty"`
	Location         string            `json:"location" yaml:"location"`
	PairOnSystem     bool              `json:"pair_on_system" yaml:"pair_on_system"`
	LastTestDate     time.Time         `json:"last_test_date,omitempty" yaml:"last_test_date,omitempty"`
}

// Accepts reports whether an agent with orientation o and gender g would
// accept a partner of gender other.
func Accepts(o SexualOrientation, g, other Gender) bool {
	switch o {
	case OrientationBisexual:
		return true
	case OrientationStraight:
		return g != other
	case OrientationGay, OrientationLesbian:
		return g == other
	}
	return false
}
