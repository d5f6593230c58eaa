package models

import "strings"

// State is an agent's infection state.
type State string

const (
	StateSusceptible State = "negative"
	StateInfected    State = "positive"
	StateResistant   State = "resistant"

	// StateExposed and StateOff are accepted from ingestion and counted, but
	// the automaton never produces them.
	StateExposed State = "exposed"
	StateOff     State = "off"
)

// AllStates lists every state in reporting order.
var AllStates = []State{StateSusceptible, StateInfected, StateResistant, StateExposed, StateOff}

// Valid returns true if the state is a recognized value.
func (s State) Valid() bool {
	switch s {
	case StateSusceptible, StateInfected, StateResistant, StateExposed, StateOff:
		return true
	}
	return false
}

// Name returns the upper-case label used in reports ("SUSCEPTIBLE", ...).
func (s State) Name() string {
	switch s {
	case StateSusceptible:
		return "SUSCEPTIBLE"
	case StateInfected:
		return "INFECTED"
	case StateResistant:
		return "RESISTANT"
	case StateExposed:
		return "EXPOSED"
	case StateOff:
		return "OFF"
	}
	return strings.ToUpper(string(s))
}

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// ParseState accepts both the ingestion values ("negative", "positive", ...)
// and the report labels ("SUSCEPTIBLE", "INFECTED", ...), case-insensitively.
func ParseState(v string) (State, error) {
	norm := strings.ToLower(strings.TrimSpace(v))
	switch norm {
	case "negative", "susceptible":
		return StateSusceptible, nil
	case "positive", "infected":
		return StateInfected, nil
	case "resistant":
		return StateResistant, nil
	case "exposed":
		return StateExposed, nil
	case "off":
		return StateOff, nil
	}
	return "", &ParseError{Field: "status", Value: v}
}
