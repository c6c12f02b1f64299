package booking

// State is the current step of a booking session. The tagged states make
// illegal combinations (submitting with no chosen slot) unrepresentable.
type State string

const (
	StateSelectingService    State = "selecting_service"
	StateSelectingDateTime   State = "selecting_datetime"
	StateEnteringContactInfo State = "entering_contact_info"
	StateSubmitting          State = "submitting"
	StateConfirmed           State = "confirmed"
	StateFailed              State = "failed"
)

// FSM manages state transitions for a booking session. Forward edges
// follow the service -> time -> contact -> submit flow; each non-terminal
// state can also step back to its immediate predecessor, and a failed
// submission can recover to time selection.
type FSM struct {
	transitions map[State][]State
}

func NewFSM() *FSM {
	return &FSM{
		transitions: map[State][]State{
			StateSelectingService:    {StateSelectingDateTime},
			// The self-edge covers re-choosing a service while already
			// browsing times.
			StateSelectingDateTime:   {StateEnteringContactInfo, StateSelectingService, StateSelectingDateTime},
			StateEnteringContactInfo: {StateSubmitting, StateSelectingDateTime},
			StateSubmitting:          {StateConfirmed, StateFailed},
			StateFailed:              {StateSelectingDateTime},
			StateConfirmed:           {},
		},
	}
}

// CanTransition checks if transition is allowed.
func (f *FSM) CanTransition(from, to State) bool {
	allowed, ok := f.transitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// predecessor returns the state a backward transition lands in.
func predecessor(s State) (State, bool) {
	switch s {
	case StateSelectingDateTime:
		return StateSelectingService, true
	case StateEnteringContactInfo:
		return StateSelectingDateTime, true
	default:
		return "", false
	}
}

// Terminal reports whether the session is finished. Failed is terminal
// for the attempt but user-recoverable via Recover.
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateFailed
}
