package reader

// NoParagraph is the Current value when nothing is selected.
const NoParagraph = -1

// State is a snapshot of the controller.
type State struct {
	Current int   // selected paragraph, NoParagraph if none
	Playing bool  // audio is scheduled for Current
	Loading bool  // audio for Current is being synthesized on demand
	Phase   Phase // playback phase
	Total   int   // number of paragraphs
	Err     error // last playback failure, cleared by the next command

	// Version increases with every change, so observers can drop
	// snapshots delivered out of order.
	Version uint64
}

// HasCurrent reports whether a paragraph is selected.
func (s State) HasCurrent() bool {
	return s.Current != NoParagraph
}

// AtEnd reports whether playback ran past the last paragraph.
func (s State) AtEnd() bool {
	return s.Phase == PhaseIdle && s.HasCurrent()
}
