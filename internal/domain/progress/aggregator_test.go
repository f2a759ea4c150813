package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opticorai/taskeval/internal/domain/entity"
)

func score(v float64) *float64 { return &v }
func kpiRef(id int64) *int64   { return &id }

func TestComputeWeightedProgress_PerTaskWeighting(t *testing.T) {
	kpis := []entity.KPI{
		{ID: 1, Name: "Delivery", Weight: 50},
		{ID: 2, Name: "Quality", Weight: 50},
	}
	tasks := []ScoredTask{
		{TaskID: 10, KPIID: kpiRef(1), FinalScore: score(80)},
		{TaskID: 11, KPIID: kpiRef(1), FinalScore: score(90)},
		{TaskID: 12, KPIID: kpiRef(2), FinalScore: score(100)},
	}

	got := ComputeWeightedProgress(tasks, kpis)
	require.NotNil(t, got)

	assert.InDelta(t, 13500.0, got.TotalWeighted, 1e-9)
	assert.InDelta(t, 150.0, got.TotalWeight, 1e-9)
	assert.Equal(t, 90.0, got.TotalProgressScore)

	delivery := got.Breakdown["Delivery"]
	assert.Equal(t, int64(1), delivery.KPIID)
	assert.Equal(t, 2, delivery.TaskCount)
	assert.Equal(t, 85.0, delivery.AverageScore)
	assert.Equal(t, 8500.0, delivery.WeightedScore)
	assert.Len(t, delivery.Tasks, 2)

	quality := got.Breakdown["Quality"]
	assert.Equal(t, 1, quality.TaskCount)
	assert.Equal(t, 5000.0, quality.WeightedScore)
}

func TestComputeWeightedProgress_NotAverageOfAverages(t *testing.T) {
	kpis := []entity.KPI{
		{ID: 1, Name: "Volume", Weight: 40},
		{ID: 2, Name: "Special", Weight: 40},
	}
	tasks := []ScoredTask{
		{TaskID: 1, KPIID: kpiRef(1), FinalScore: score(60)},
		{TaskID: 2, KPIID: kpiRef(1), FinalScore: score(60)},
		{TaskID: 3, KPIID: kpiRef(1), FinalScore: score(60)},
		{TaskID: 4, KPIID: kpiRef(2), FinalScore: score(100)},
	}

	got := ComputeWeightedProgress(tasks, kpis)
	require.NotNil(t, got)

	// (180*40 + 100*40) / (40*3 + 40*1) = 70, not the average-of-averages 80
	assert.Equal(t, 70.0, got.TotalProgressScore)
}

func TestComputeWeightedProgress_Exclusions(t *testing.T) {
	kpis := []entity.KPI{
		{ID: 1, Name: "Delivery", Weight: 60},
		{ID: 2, Name: "Idle", Weight: 40},
	}
	tasks := []ScoredTask{
		{TaskID: 1, KPIID: kpiRef(1), FinalScore: score(70)},
		{TaskID: 2, KPIID: kpiRef(1), FinalScore: nil},
		{TaskID: 3, KPIID: kpiRef(99), FinalScore: score(10)},
		{TaskID: 4, KPIID: nil, FinalScore: score(0)},
	}

	got := ComputeWeightedProgress(tasks, kpis)
	require.NotNil(t, got)

	assert.Equal(t, 70.0, got.TotalProgressScore)
	assert.Equal(t, 1, got.Breakdown["Delivery"].TaskCount)

	idle, ok := got.Breakdown["Idle"]
	require.True(t, ok)
	assert.Equal(t, 0, idle.TaskCount)
	assert.Equal(t, 0.0, idle.AverageScore)
	assert.Equal(t, 0.0, idle.WeightedScore)
	assert.Equal(t, 40.0, idle.Weight)
	assert.Empty(t, idle.Tasks)
}

func TestComputeWeightedProgress_Empty(t *testing.T) {
	t.Run("no kpis", func(t *testing.T) {
		assert.Nil(t, ComputeWeightedProgress(nil, nil))
		assert.Nil(t, ComputeWeightedProgress([]ScoredTask{{TaskID: 1, KPIID: kpiRef(1), FinalScore: score(50)}}, nil))
	})

	t.Run("kpis without tasks", func(t *testing.T) {
		got := ComputeWeightedProgress(nil, []entity.KPI{{ID: 1, Name: "A", Weight: 30}, {ID: 2, Name: "B", Weight: 70}})
		require.NotNil(t, got)
		assert.Equal(t, 0.0, got.TotalProgressScore)
		assert.Len(t, got.Breakdown, 2)
		assert.Contains(t, got.Breakdown, "A")
		assert.Contains(t, got.Breakdown, "B")
	})

	t.Run("zero weight kpi", func(t *testing.T) {
		got := ComputeWeightedProgress(
			[]ScoredTask{{TaskID: 1, KPIID: kpiRef(1), FinalScore: score(50)}},
			[]entity.KPI{{ID: 1, Name: "Zero", Weight: 0}},
		)
		require.NotNil(t, got)
		assert.Equal(t, 0.0, got.TotalProgressScore)
		assert.Equal(t, 1, got.Breakdown["Zero"].TaskCount)
	})
}

func TestComputeWeightedProgress_Rounding(t *testing.T) {
	got := ComputeWeightedProgress(
		[]ScoredTask{
			{TaskID: 1, KPIID: kpiRef(1), FinalScore: score(33.333)},
			{TaskID: 2, KPIID: kpiRef(1), FinalScore: score(66.668)},
			{TaskID: 3, KPIID: kpiRef(1), FinalScore: score(50)},
		},
		[]entity.KPI{{ID: 1, Name: "A", Weight: 10}},
	)
	require.NotNil(t, got)
	assert.Equal(t, 50.0, got.TotalProgressScore)
	assert.Equal(t, 50.0, got.Breakdown["A"].AverageScore)
	assert.Equal(t, 1500.01, got.Breakdown["A"].WeightedScore)
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.125, 0.12},
		{0.375, 0.38},
		{-0.125, -0.12},
		{2.675, 2.67},
		{1.005, 1.0},
		{83.333333, 83.33},
		{1500.0099999, 1500.01},
		{100, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Round2(tt.in), "Round2(%v)", tt.in)
	}
}

func TestComputeWeightedProgress_TaskCompletionDates(t *testing.T) {
	done := time.Date(2024, 6, 12, 12, 0, 0, 0, time.UTC)
	got := ComputeWeightedProgress(
		[]ScoredTask{{TaskID: 7, IssueAction: "Audit", KPIID: kpiRef(1), FinalScore: score(75), CompletionDate: &done}},
		[]entity.KPI{{ID: 1, Name: "A", Weight: 100}},
	)
	require.NotNil(t, got)
	require.Len(t, got.Breakdown["A"].Tasks, 1)
	assert.Equal(t, &done, got.Breakdown["A"].Tasks[0].CompletionDate)
}

func TestComputeWeightedProgress_Deterministic(t *testing.T) {
	kpis := []entity.KPI{{ID: 1, Name: "A", Weight: 25}, {ID: 2, Name: "B", Weight: 75}}
	tasks := []ScoredTask{
		{TaskID: 1, KPIID: kpiRef(1), FinalScore: score(40)},
		{TaskID: 2, KPIID: kpiRef(2), FinalScore: score(95.5)},
	}

	assert.Equal(t, ComputeWeightedProgress(tasks, kpis), ComputeWeightedProgress(tasks, kpis))
}

func TestPeriods(t *testing.T) {
	today := time.Date(2024, 5, 17, 18, 0, 0, 0, time.UTC)

	p := DefaultPeriod(today)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), p.Start)
	assert.Equal(t, time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC), p.End)

	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	got, err := NormalizePeriod(&start, nil, today)
	require.NoError(t, err)
	assert.Equal(t, start, got.Start)

	late := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err = NormalizePeriod(&late, nil, today)
	assert.ErrorIs(t, err, entity.ErrInvalidPeriod)

	assert.True(t, Contains(p, time.Date(2024, 5, 17, 23, 59, 0, 0, time.UTC)))
	assert.True(t, Contains(p, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, Contains(p, time.Date(2024, 4, 30, 12, 0, 0, 0, time.UTC)))
}
