package coherence

// transitionKind tells how an automaton reacts to an event.
type transitionKind int

const (
	// transitionUndefined is the zero value. Hitting it means the table has a
	// hole, which is a bug.
	transitionUndefined transitionKind = iota
	// transitionIllegal marks a combination the protocol never produces.
	transitionIllegal
	// transitionStall defers the event until the automaton leaves its
	// transient state.
	transitionStall
	// transitionRetry hands the event back to its requester, which tries
	// again on a later cycle.
	transitionRetry
	// transitionFire runs the actions and moves to the next state.
	transitionFire
)

func (k transitionKind) String() string {
	switch k {
	case transitionIllegal:
		return "illegal"
	case transitionStall:
		return "stall"
	case transitionRetry:
		return "retry"
	case transitionFire:
		return "fire"
	default:
		return "undefined"
	}
}
