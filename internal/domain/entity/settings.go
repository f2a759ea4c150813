package entity

import (
	"fmt"
	"time"
)

// EvaluationSettings holds the admin-tunable parameters of the scoring formula.
// Each Use* flag gates one term of the formula independently.
type EvaluationSettings struct {
	FormulaName                 string    `json:"formula_name"`
	UseQualityScore             bool      `json:"use_quality_score"`
	UsePriorityMultiplier       bool      `json:"use_priority_multiplier"`
	UseTimeBonusPenalty         bool      `json:"use_time_bonus_penalty"`
	UseManagerClosurePenalty    bool      `json:"use_manager_closure_penalty"`
	EarlyCompletionBonusPerDay  float64   `json:"early_completion_bonus_per_day"`
	MaxEarlyCompletionBonus     float64   `json:"max_early_completion_bonus"`
	LateCompletionPenaltyPerDay float64   `json:"late_completion_penalty_per_day"`
	MaxLateCompletionPenalty    float64   `json:"max_late_completion_penalty"`
	ManagerClosurePenalty       float64   `json:"manager_closure_penalty"`
	UpdatedAt                   time.Time `json:"updated_at"`
}

// DefaultEvaluationSettings returns the settings used when none have been stored yet
func DefaultEvaluationSettings() EvaluationSettings {
	return EvaluationSettings{
		FormulaName:                 "Standard Evaluation Formula",
		UseQualityScore:             true,
		UsePriorityMultiplier:       true,
		UseTimeBonusPenalty:         true,
		UseManagerClosurePenalty:    true,
		EarlyCompletionBonusPerDay:  1.0,
		MaxEarlyCompletionBonus:     5.0,
		LateCompletionPenaltyPerDay: 2.0,
		MaxLateCompletionPenalty:    20.0,
		ManagerClosurePenalty:       20.0,
	}
}

// Validate checks that rates and caps are non-negative
func (s EvaluationSettings) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"early_completion_bonus_per_day", s.EarlyCompletionBonusPerDay},
		{"max_early_completion_bonus", s.MaxEarlyCompletionBonus},
		{"late_completion_penalty_per_day", s.LateCompletionPenaltyPerDay},
		{"max_late_completion_penalty", s.MaxLateCompletionPenalty},
		{"manager_closure_penalty", s.ManagerClosurePenalty},
	}
	for _, f := range fields {
		if f.value < 0 {
			return fmt.Errorf("%w: %s must be non-negative, got %.2f", ErrInvalidSettings, f.name, f.value)
		}
	}
	return nil
}
