package reader

// Phase represents where the controller is in its playback cycle.
type Phase int

const (
	// PhaseIdle indicates nothing is selected, or the end of the document
	// was reached.
	PhaseIdle Phase = iota
	// PhaseSelected indicates a paragraph is selected but not playing.
	PhaseSelected
	// PhaseLoading indicates audio for the current paragraph is being
	// synthesized on demand.
	PhaseLoading
	// PhasePlaying indicates audio is being output.
	PhasePlaying
	// PhaseStopped indicates playback was stopped by the user.
	PhaseStopped
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSelected:
		return "selected"
	case PhaseLoading:
		return "loading"
	case PhasePlaying:
		return "playing"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// phaseMachine validates phase transitions.
type phaseMachine struct {
	current     Phase
	transitions map[Phase][]Phase
}

func newPhaseMachine() *phaseMachine {
	return &phaseMachine{
		current: PhaseIdle,
		transitions: map[Phase][]Phase{
			PhaseIdle:     {PhaseIdle, PhaseSelected, PhaseLoading, PhasePlaying},
			PhaseSelected: {PhaseIdle, PhaseSelected, PhaseLoading, PhasePlaying},
			PhaseLoading:  {PhaseIdle, PhaseSelected, PhaseLoading, PhasePlaying, PhaseStopped},
			PhasePlaying:  {PhaseIdle, PhaseSelected, PhaseLoading, PhasePlaying, PhaseStopped},
			PhaseStopped:  {PhaseIdle, PhaseSelected, PhaseLoading, PhasePlaying},
		},
	}
}

// transition moves to the given phase if allowed and reports whether it
// did.
func (m *phaseMachine) transition(to Phase) bool {
	for _, p := range m.transitions[m.current] {
		if p == to {
			m.current = to
			return true
		}
	}
	return false
}
