package simulation

import (
	"fmt"

	"github.com/Swabber-io/syscomp/internal/models"
)

// Scenario defines a complete simulation experiment.
type Scenario struct {
	Name   string
	Agents []AgentSpec
	Config Config
	Ticks  int

	// Seed overrides Config.Seed when non-zero.
	Seed int64

	// BeforeTick, when non-nil, is called before each tick with the model
	// about to step. Use it to stop a run or inspect state mid-run.
	BeforeTick func(tick int, m *Model)
}

// AgentSpec is a flat builder for population records in tests and
// synthetic scenarios. Empty fields take defaults via ToRecord.
type AgentSpec struct {
	Gender      models.Gender
	Orientation models.SexualOrientation
	Pairing     models.PairingType
	Location    string
	Status      models.State
	NoPairing   bool
}

// ToRecord converts the spec into an AgentRecord.
func (s AgentSpec) ToRecord(id int) models.AgentRecord {
	gender := s.Gender
	if gender == "" {
		gender = models.GenderFemale
	}
	orientation := s.Orientation
	if orientation == "" {
		orientation = models.OrientationBisexual
	}
	pairing := s.Pairing
	if pairing == "" {
		pairing = models.PairingSequential
	}
	status := s.Status
	if status == "" {
		status = models.StateSusceptible
	}
	return models.AgentRecord{
		Attributes: models.Attributes{
			ExternalID:       fmt.Sprintf("agent-%d", id),
			AgeGroup:         models.AgeGroupAdult,
			Gender:           gender,
			SexualPreference: orientation,
			PairingType:      pairing,
			Location:         s.Location,
			PairOnSystem:     !s.NoPairing,
		},
		Status: status,
	}
}

// Records converts every AgentSpec in the scenario.
func (s Scenario) Records() []models.AgentRecord {
	records := make([]models.AgentRecord, len(s.Agents))
	for i, a := range s.Agents {
		records[i] = a.ToRecord(i)
	}
	return records
}

// ScenarioResult is a scenario run with a frame for every tick, including
// tick 0.
type ScenarioResult struct {
	Model  *Model
	Frames []Frame
	Err    error
}

// RunScenario builds the model for s and steps it, capturing a Frame per
// tick. Construction and step errors are returned in the result.
func RunScenario(s Scenario) ScenarioResult {
	cfg := s.Config
	if s.Seed != 0 {
		cfg.Seed = s.Seed
	}
	m, err := New(cfg, s.Records())
	if err != nil {
		return ScenarioResult{Err: err}
	}
	res := ScenarioResult{Model: m, Frames: []Frame{m.Frame()}}
	for i := 0; i < s.Ticks && m.Running(); i++ {
		if s.BeforeTick != nil {
			s.BeforeTick(m.Tick()+1, m)
			if !m.Running() {
				break
			}
		}
		if err := m.Step(); err != nil {
			res.Err = err
			return res
		}
		res.Frames = append(res.Frames, m.Frame())
	}
	return res
}
