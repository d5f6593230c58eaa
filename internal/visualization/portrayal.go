package visualization

import (
	"fmt"
	"strings"

	"github.com/Swabber-io/syscomp/internal/models"
	"github.com/Swabber-io/syscomp/internal/simulation"
)

// Node colors by state.
const (
	ColorInfected    = "#B94848"
	ColorSusceptible = "#0ABFB3"
	ColorOther       = "#808080"
)

// Edge styles. An edge touching a RESISTANT agent is drawn heavy.
const (
	EdgeColorResistant = "black"
	EdgeColorDefault   = "#e8e8e8"
	EdgeWidthResistant = 2
	EdgeWidthDefault   = 1
)

// NodeColor returns the fill color for an agent state.
func NodeColor(s models.State) string {
	switch s {
	case models.StateInfected:
		return ColorInfected
	case models.StateSusceptible:
		return ColorSusceptible
	}
	return ColorOther
}

// EdgeStyle returns the color and width of an edge between agents in states
// a and b.
func EdgeStyle(a, b models.State) (string, int) {
	if a == models.StateResistant || b == models.StateResistant {
		return EdgeColorResistant, EdgeWidthResistant
	}
	return EdgeColorDefault, EdgeWidthDefault
}

// Tooltip describes an agent in one short paragraph.
func Tooltip(n simulation.NodeState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "id: %d\nstate: %s", n.ID, n.State.Name())
	a := n.Attributes
	if a.ExternalID != "" {
		fmt.Fprintf(&b, "\nagent: %s", a.ExternalID)
	}
	fmt.Fprintf(&b, "\nage: %s\ngender: %s\norientation: %s\npairing: %s",
		a.AgeGroup, a.Gender, a.SexualPreference, a.PairingType)
	if a.Location != "" {
		fmt.Fprintf(&b, "\nlocation: %s", a.Location)
	}
	if len(n.Infections) > 0 {
		kinds := make([]string, len(n.Infections))
		for i, k := range n.Infections {
			kinds[i] = string(k)
		}
		fmt.Fprintf(&b, "\ninfections: %s", strings.Join(kinds, ", "))
	}
	return b.String()
}
