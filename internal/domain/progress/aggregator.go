// Package progress rolls evaluated task scores up into KPI-weighted employee progress.
//
// Weighting is per task: every contributing task pulls its KPI's full weight into
// the denominator, so a KPI with ten tasks counts ten times as much as one with a
// single task at the same weight.
package progress

import (
	"strconv"
	"time"

	"github.com/opticorai/taskeval/internal/domain/entity"
)

// ScoredTask is an evaluated task reference fed to the aggregator
type ScoredTask struct {
	TaskID         int64
	IssueAction    string
	KPIID          *int64
	FinalScore     *float64
	CompletionDate *time.Time
}

// Result is the computed progress for one employee and period
type Result struct {
	TotalProgressScore float64                        `json:"total_progress_score"`
	TotalWeighted      float64                        `json:"total_weighted"`
	TotalWeight        float64                        `json:"total_weight"`
	Breakdown          map[string]entity.KPIBreakdown `json:"breakdown"`
}

// ComputeWeightedProgress returns nil when no KPIs are supplied. Tasks without a
// final score or whose KPI is not in kpis are ignored entirely.
func ComputeWeightedProgress(tasks []ScoredTask, kpis []entity.KPI) *Result {
	if len(kpis) == 0 {
		return nil
	}

	byKPI := make(map[int64][]ScoredTask, len(kpis))
	for _, t := range tasks {
		if t.FinalScore == nil || t.KPIID == nil {
			continue
		}
		byKPI[*t.KPIID] = append(byKPI[*t.KPIID], t)
	}

	result := &Result{Breakdown: make(map[string]entity.KPIBreakdown, len(kpis))}

	for _, kpi := range kpis {
		matched := byKPI[kpi.ID]
		entry := entity.KPIBreakdown{
			KPIID:  kpi.ID,
			Weight: kpi.Weight,
			Tasks:  make([]entity.TaskScore, 0, len(matched)),
		}

		if len(matched) > 0 {
			var sum float64
			for _, t := range matched {
				sum += *t.FinalScore
				entry.Tasks = append(entry.Tasks, entity.TaskScore{
					TaskID:         t.TaskID,
					IssueAction:    t.IssueAction,
					FinalScore:     *t.FinalScore,
					CompletionDate: t.CompletionDate,
				})
			}

			weighted := sum * kpi.Weight
			result.TotalWeighted += weighted
			result.TotalWeight += kpi.Weight * float64(len(matched))

			entry.TaskCount = len(matched)
			entry.AverageScore = Round2(sum / float64(len(matched)))
			entry.WeightedScore = Round2(weighted)
		}

		result.Breakdown[kpi.Name] = entry
	}

	if result.TotalWeight > 0 {
		result.TotalProgressScore = Round2(result.TotalWeighted / result.TotalWeight)
	}

	return result
}

// Round2 rounds to two decimal places from the exact binary value, breaking exact
// ties to even, so 0.125 gives 0.12 and 2.675 (stored just below) gives 2.67.
func Round2(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return v
	}
	return r
}
