package workflow

import (
	"context"
	"fmt"
	"sort"
)

// GuardFunc decides whether a transition may proceed
type GuardFunc func(ctx context.Context) bool

type transition struct {
	to    State
	guard GuardFunc
}

// Definition is an immutable set of permitted transitions built with Permit/PermitIf
type Definition struct {
	transitions map[State]map[Trigger][]transition
}

// NewDefinition returns an empty definition
func NewDefinition() *Definition {
	return &Definition{transitions: make(map[State]map[Trigger][]transition)}
}

// Permit allows trigger to move from one state to another unconditionally
func (d *Definition) Permit(from State, trigger Trigger, to State) *Definition {
	return d.PermitIf(from, trigger, to, nil)
}

// PermitIf allows the transition when guard passes. Transitions for the same
// trigger are tried in registration order.
func (d *Definition) PermitIf(from State, trigger Trigger, to State, guard GuardFunc) *Definition {
	if !from.IsValid() || !to.IsValid() {
		panic(fmt.Sprintf("invalid transition %s -%s-> %s", from, trigger, to))
	}
	if d.transitions[from] == nil {
		d.transitions[from] = make(map[Trigger][]transition)
	}
	d.transitions[from][trigger] = append(d.transitions[from][trigger], transition{to: to, guard: guard})
	return d
}

// Machine tracks the current state of one task against a definition
type Machine struct {
	def     *Definition
	current State
}

// NewMachine starts a machine in the given state
func (d *Definition) NewMachine(initial State) *Machine {
	return &Machine{def: d, current: initial}
}

func (m *Machine) State() State {
	return m.current
}

// CanFire reports whether any transition exists for trigger; guards are not evaluated
func (m *Machine) CanFire(trigger Trigger) bool {
	return len(m.def.transitions[m.current][trigger]) > 0
}

// Fire moves to the first transition whose guard passes
func (m *Machine) Fire(ctx context.Context, trigger Trigger) error {
	candidates := m.def.transitions[m.current][trigger]
	if len(candidates) == 0 {
		return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, trigger, m.current)
	}

	for _, t := range candidates {
		if t.guard == nil || t.guard(ctx) {
			m.current = t.to
			return nil
		}
	}
	return fmt.Errorf("%w: %s from %s", ErrGuardFailed, trigger, m.current)
}

// PermittedTriggers returns the triggers configured for the current state, sorted
func (m *Machine) PermittedTriggers() []Trigger {
	triggers := make([]Trigger, 0, len(m.def.transitions[m.current]))
	for trigger := range m.def.transitions[m.current] {
		triggers = append(triggers, trigger)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })
	return triggers
}
