package dispatch

import "fmt"

// State is the lifecycle position of one dispatch.
type State int

const (
	StatePending State = iota
	StateDue
	StateDispatching
	StateLogged
	StateLoggedFailed
	StateDroppedUnknownCommand
)

var stateNames = map[State]string{
	StatePending:               "pending",
	StateDue:                   "due",
	StateDispatching:           "dispatching",
	StateLogged:                "logged",
	StateLoggedFailed:          "logged_failed",
	StateDroppedUnknownCommand: "dropped_unknown_command",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition is allowed.
func (s State) Terminal() bool {
	return s == StateLogged || s == StateLoggedFailed || s == StateDroppedUnknownCommand
}

var transitions = map[State][]State{
	StatePending:     {StateDue},
	StateDue:         {StateDispatching, StateDroppedUnknownCommand},
	StateDispatching: {StateLogged, StateLoggedFailed},
}

// CanTransition reports whether s may move to next.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
