package workflow

import (
	"context"

	"github.com/opticorai/taskeval/internal/domain/entity"
)

// StateOf derives the lifecycle state from persisted task fields
func StateOf(task *entity.Task) State {
	switch {
	case task.IsEvaluated():
		return StateEvaluated
	case task.EmployeeSubmittedAt != nil:
		return StateSubmitted
	default:
		return StatePending
	}
}

// TaskLifecycle returns the evaluation lifecycle for one task.
// Manager closure is only permitted while the task is incomplete.
func TaskLifecycle(task *entity.Task) *Machine {
	incomplete := func(context.Context) bool { return !task.IsComplete() }

	def := NewDefinition().
		Permit(StatePending, TriggerSubmit, StateSubmitted).
		Permit(StateSubmitted, TriggerSubmit, StateSubmitted).
		Permit(StatePending, TriggerEvaluate, StateEvaluated).
		Permit(StateSubmitted, TriggerEvaluate, StateEvaluated).
		PermitIf(StatePending, TriggerCloseIncomplete, StateEvaluated, incomplete).
		PermitIf(StateSubmitted, TriggerCloseIncomplete, StateEvaluated, incomplete).
		Permit(StateEvaluated, TriggerReevaluate, StateEvaluated)

	return def.NewMachine(StateOf(task))
}
