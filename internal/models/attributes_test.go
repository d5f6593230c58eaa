package models

import (
	"errors"
	"testing"
	"time"
)

func TestAgeGroupFor(t *testing.T) {
	tests := []struct {
		age  int
		want AgeGroup
	}{
		{0, AgeGroupYoung},
		{17, AgeGroupYoung},
		{18, AgeGroupAdult},
		{49, AgeGroupAdult},
		{50, AgeGroupSenior},
		{90, AgeGroupSenior},
	}
	for _, tt := range tests {
		if got := AgeGroupFor(tt.age); got != tt.want {
			t.Errorf("AgeGroupFor(%d) = %s, want %s", tt.age, got, tt.want)
		}
	}
}

func TestParseAgeGroup(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    AgeGroup
		wantErr bool
	}{
		{"numeric", "34", AgeGroupAdult, false},
		{"numeric with spaces", " 12 ", AgeGroupYoung, false},
		{"bucket name", "Senior", AgeGroupSenior, false},
		{"negative", "-3", "", true},
		{"garbage", "old", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAgeGroup(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAgeGroup(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseAgeGroup(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseCategoricals(t *testing.T) {
	if g, err := ParseGender("f"); err != nil || g != GenderFemale {
		t.Errorf("ParseGender(f) = %q, %v", g, err)
	}
	if _, err := ParseGender("X"); err == nil {
		t.Error("ParseGender(X) should fail")
	}
	if o, err := ParseSexualOrientation("Bisexual"); err != nil || o != OrientationBisexual {
		t.Errorf("ParseSexualOrientation(Bisexual) = %q, %v", o, err)
	}
	if p, err := ParsePairingType("concurrent"); err != nil || p != PairingConcurrent {
		t.Errorf("ParsePairingType(concurrent) = %q, %v", p, err)
	}
	if p, err := ParsePartnerCount("11+"); err != nil || p != PartnerCountExtreme {
		t.Errorf("ParsePartnerCount(11+) = %q, %v", p, err)
	}
	if _, err := ParsePartnerCount("lots"); err == nil {
		t.Error("ParsePartnerCount(lots) should fail")
	}
	if v, err := ParsePairOnSystem("true"); err != nil || !v {
		t.Errorf("ParsePairOnSystem(true) = %v, %v", v, err)
	}
	if _, err := ParsePairOnSystem("yes"); err == nil {
		t.Error("ParsePairOnSystem(yes) should fail")
	}
}

func TestParseState(t *testing.T) {
	tests := map[string]State{
		"negative":    StateSusceptible,
		"SUSCEPTIBLE": StateSusceptible,
		"positive":    StateInfected,
		"Infected":    StateInfected,
		"resistant":   StateResistant,
		"exposed":     StateExposed,
		"off":         StateOff,
	}
	for in, want := range tests {
		got, err := ParseState(in)
		if err != nil {
			t.Errorf("ParseState(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseState(%q) = %s, want %s", in, got, want)
		}
	}

	_, err := ParseState("unknown")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.Field != "status" {
		t.Errorf("Field = %q, want status", pe.Field)
	}
}

func TestParseTestDate(t *testing.T) {
	got, err := ParseTestDate("03/15/2023")
	if err != nil {
		t.Fatalf("ParseTestDate: %v", err)
	}
	want := time.Date(2023, time.March, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseTestDate = %v, want %v", got, want)
	}

	if zero, err := ParseTestDate(""); err != nil || !zero.IsZero() {
		t.Errorf("empty date should be zero time, got %v, %v", zero, err)
	}

	if _, err := ParseTestDate("2023-03-15"); err == nil {
		t.Error("ISO date should be rejected")
	}
}

func TestAccepts(t *testing.T) {
	tests := []struct {
		name  string
		o     SexualOrientation
		g     Gender
		other Gender
		want  bool
	}{
		{"straight opposite", OrientationStraight, GenderMale, GenderFemale, true},
		{"straight same", OrientationStraight, GenderMale, GenderMale, false},
		{"gay same", OrientationGay, GenderMale, GenderMale, true},
		{"gay opposite", OrientationGay, GenderMale, GenderFemale, false},
		{"lesbian same", OrientationLesbian, GenderFemale, GenderFemale, true},
		{"bisexual any", OrientationBisexual, GenderFemale, GenderMale, true},
		{"unknown", SexualOrientation("other"), GenderFemale, GenderMale, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Accepts(tt.o, tt.g, tt.other); got != tt.want {
				t.Errorf("Accepts(%s, %s, %s) = %v, want %v", tt.o, tt.g, tt.other, got, tt.want)
			}
		})
	}
}

func TestRawRecord_Parse(t *testing.T) {
	raw := RawRecord{
		AgentID:           "a-17",
		Age:               "27",
		Gender:            "M",
		SexualOrientation: "gay",
		LastTestDate:      "01/31/2024",
		Status:            "positive",
		PartneringType:    "concurrent",
		PartnerCount:      "4 to 6",
		Location:          "north",
		PairOnSystem:      "TRUE",
	}
	rec, err := raw.Parse(2)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rec.ExternalID != "a-17" || rec.AgeGroup != AgeGroupAdult || rec.Status != StateInfected {
		t.Errorf("unexpected record: %+v", rec)
	}
	if !rec.PairOnSystem || rec.PartnerCount != PartnerCountMedium {
		t.Errorf("unexpected flags: %+v", rec)
	}

	raw.PartneringType = "open"
	_, err = raw.Parse(9)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if pe.Line != 9 || pe.Field != "partnering_type" {
		t.Errorf("ParseError = %+v, want line 9 field partnering_type", pe)
	}
}

func TestCheckProbability(t *testing.T) {
	for _, p := range []float64{0, 0.5, 1} {
		if err := CheckProbability("p", p); err != nil {
			t.Errorf("CheckProbability(%v) = %v", p, err)
		}
	}
	for _, p := range []float64{-0.01, 1.01} {
		err := CheckProbability("spread_chance", p)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("CheckProbability(%v) = %v, want *ValidationError", p, err)
		}
	}
}
