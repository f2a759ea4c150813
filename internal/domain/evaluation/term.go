package evaluation

import (
	"math"

	"github.com/opticorai/taskeval/internal/domain/entity"
)

// TermKind identifies a formula term
type TermKind string

const (
	TermQuality        TermKind = "quality"
	TermPriority       TermKind = "priority"
	TermTiming         TermKind = "timing"
	TermManagerClosure TermKind = "manager_closure"
)

// Term is one independently toggled component of the formula.
// Apply reports whether the term changed the result.
type Term struct {
	Kind    TermKind
	Enabled func(s entity.EvaluationSettings) bool
	Apply   func(st *state) bool
}

// state is the running computation passed through the pipeline
type state struct {
	input          Input
	settings       entity.EvaluationSettings
	managerClosure bool
	result         Result
}

// StandardTerms returns the four terms in evaluation order
func StandardTerms() []Term {
	return []Term{QualityTerm(), PriorityTerm(), TimingTerm(), ManagerClosureTerm()}
}

// QualityTerm sets the quality score from the rating percentage
func QualityTerm() Term {
	return Term{
		Kind:    TermQuality,
		Enabled: func(s entity.EvaluationSettings) bool { return s.UseQualityScore },
		Apply: func(st *state) bool {
			st.result.QualityScore = *st.input.QualityPercentage
			return true
		},
	}
}

// PriorityTerm sets the multiplier when the task has a priority
func PriorityTerm() Term {
	return Term{
		Kind:    TermPriority,
		Enabled: func(s entity.EvaluationSettings) bool { return s.UsePriorityMultiplier },
		Apply: func(st *state) bool {
			if st.input.PriorityMultiplier == nil {
				return false
			}
			st.result.PriorityMultiplier = *st.input.PriorityMultiplier
			return true
		},
	}
}

// TimingTerm adds a capped bonus for early completion or a capped penalty for late completion.
// Days are compared at civil-date granularity.
func TimingTerm() Term {
	return Term{
		Kind:    TermTiming,
		Enabled: func(s entity.EvaluationSettings) bool { return s.UseTimeBonusPenalty },
		Apply: func(st *state) bool {
			in := st.input
			if in.CompletionDate == nil || in.TargetDate == nil {
				return false
			}

			days := DaysBetween(*in.CompletionDate, *in.TargetDate)
			switch {
			case days > 0:
				bonus := math.Min(float64(days)*st.settings.EarlyCompletionBonusPerDay, st.settings.MaxEarlyCompletionBonus)
				st.result.TimeBonusPenalty += bonus
			case days < 0:
				penalty := math.Min(float64(-days)*st.settings.LateCompletionPenaltyPerDay, st.settings.MaxLateCompletionPenalty)
				st.result.TimeBonusPenalty -= penalty
			default:
				return false
			}
			return true
		},
	}
}

// ManagerClosureTerm subtracts the closure penalty when a manager force-closes incomplete work.
// It stacks with any late penalty.
func ManagerClosureTerm() Term {
	return Term{
		Kind:    TermManagerClosure,
		Enabled: func(s entity.EvaluationSettings) bool { return s.UseManagerClosurePenalty },
		Apply: func(st *state) bool {
			if !st.managerClosure || st.input.PercentageCompletion >= entity.FullCompletion {
				return false
			}
			st.result.TimeBonusPenalty -= st.settings.ManagerClosurePenalty
			st.result.ManagerClosurePenaltyApplied = true
			return true
		},
	}
}
