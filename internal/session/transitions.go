package session

// validTransitions contains the permitted conversation transitions. Returning
// to idle is always allowed so cancel and submit can recover any state.
var validTransitions = map[State][]State{
	StateIdle: {
		StateAwaitingDetails,
	},
	StateAwaitingDetails: {
		StateIdle,
	},
}

// IsTransitionAllowed reports whether moving from one state to another is valid.
func IsTransitionAllowed(from, to State) bool {
	if to == StateIdle {
		return true
	}

	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}

	return false
}
