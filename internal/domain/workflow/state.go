package workflow

// State is a step in a task's evaluation lifecycle
type State string

const (
	StatePending   State = "PENDING"
	StateSubmitted State = "SUBMITTED"
	StateEvaluated State = "EVALUATED"
)

// Trigger causes a transition between states
type Trigger string

const (
	TriggerSubmit          Trigger = "SUBMIT"
	TriggerEvaluate        Trigger = "EVALUATE"
	TriggerCloseIncomplete Trigger = "CLOSE_INCOMPLETE"
	TriggerReevaluate      Trigger = "REEVALUATE"
)

func (s State) String() string   { return string(s) }
func (t Trigger) String() string { return string(t) }

// IsValid reports whether s is a known lifecycle state
func (s State) IsValid() bool {
	switch s {
	case StatePending, StateSubmitted, StateEvaluated:
		return true
	}
	return false
}
