// Package evaluation computes task scores from quality, priority and timing.
//
// The formula is an ordered pipeline of terms. Each term is gated by its own
// settings flag and either sets a factor of the base score or adds to the
// time adjustment:
//
//	final = clamp(quality × multiplier + adjustment, 0, 100)
package evaluation

import (
	"time"

	"github.com/opticorai/taskeval/internal/domain/entity"
)

// Input is the task state read by the formula
type Input struct {
	QualityPercentage    *float64
	PriorityMultiplier   *float64
	TargetDate           *time.Time
	CompletionDate       *time.Time
	PercentageCompletion float64
}

// Result holds the derived evaluation fields the caller persists
type Result struct {
	QualityScore                 float64    `json:"quality_score"`
	PriorityMultiplier           float64    `json:"priority_multiplier"`
	TimeBonusPenalty             float64    `json:"time_bonus_penalty"`
	FinalScore                   float64    `json:"final_score"`
	ManagerClosurePenaltyApplied bool       `json:"manager_closure_penalty_applied"`
	AppliedTerms                 []TermKind `json:"applied_terms"`
}

// Engine evaluates inputs against a fixed term pipeline
type Engine struct {
	terms []Term
}

// NewEngine creates an engine with the standard pipeline:
// quality, priority, timing, manager closure
func NewEngine() *Engine {
	return &Engine{terms: StandardTerms()}
}

// newEngineWithTerms creates an engine with a custom pipeline
func newEngineWithTerms(terms ...Term) *Engine {
	return &Engine{terms: append([]Term(nil), terms...)}
}

// Terms returns the kinds in pipeline order
func (e *Engine) Terms() []TermKind {
	kinds := make([]TermKind, 0, len(e.terms))
	for _, t := range e.terms {
		kinds = append(kinds, t.Kind)
	}
	return kinds
}

// Compute returns nil when the input has no quality rating.
// It never mutates its arguments.
func (e *Engine) Compute(in Input, settings entity.EvaluationSettings, managerClosure bool) *Result {
	if in.QualityPercentage == nil {
		return nil
	}

	st := &state{
		input:          in,
		settings:       settings,
		managerClosure: managerClosure,
		result: Result{
			PriorityMultiplier: 1.0,
			AppliedTerms:       []TermKind{},
		},
	}

	for _, t := range e.terms {
		if !t.Enabled(settings) {
			continue
		}
		if t.Apply(st) {
			st.result.AppliedTerms = append(st.result.AppliedTerms, t.Kind)
		}
	}

	base := st.result.QualityScore * st.result.PriorityMultiplier
	st.result.FinalScore = clamp(base+st.result.TimeBonusPenalty, 0, 100)

	return &st.result
}

// Compute evaluates with the standard pipeline
func Compute(in Input, settings entity.EvaluationSettings, managerClosure bool) *Result {
	return defaultEngine.Compute(in, settings, managerClosure)
}

var defaultEngine = NewEngine()

// InputFromTask builds formula input from a task and its looked-up tiers.
// The completion instant is moved into loc so that its civil day matches the
// business calendar used for target dates.
func InputFromTask(task *entity.Task, quality *entity.QualityType, priority *entity.PriorityType, loc *time.Location) Input {
	in := Input{
		TargetDate:           task.TargetDate,
		PercentageCompletion: task.PercentageCompletion,
	}
	if quality != nil {
		pct := quality.Percentage
		in.QualityPercentage = &pct
	}
	if priority != nil {
		m := priority.Multiplier
		in.PriorityMultiplier = &m
	}
	if task.CompletionDate != nil {
		c := *task.CompletionDate
		if loc != nil {
			c = c.In(loc)
		}
		in.CompletionDate = &c
	}
	return in
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
