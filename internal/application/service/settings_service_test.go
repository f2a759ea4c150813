package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opticorai/taskeval/internal/domain/entity"
)

func TestSettingsService_Get(t *testing.T) {
	t.Run("defaults when nothing stored", func(t *testing.T) {
		svc := NewSettingsService(&mockSettingsRepo{}, newFakeClock(time.Now()), &mockLogger{})
		got, err := svc.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, entity.DefaultEvaluationSettings(), got)
	})

	t.Run("stored settings win", func(t *testing.T) {
		stored := entity.DefaultEvaluationSettings()
		stored.LateCompletionPenaltyPerDay = 3
		svc := NewSettingsService(&mockSettingsRepo{stored: &stored}, newFakeClock(time.Now()), &mockLogger{})

		got, err := svc.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3.0, got.LateCompletionPenaltyPerDay)
	})
}

func TestSettingsService_Update(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		mutate  func(s *entity.EvaluationSettings)
		wantErr error
	}{
		{name: "valid", mutate: func(s *entity.EvaluationSettings) { s.UseTimeBonusPenalty = false }},
		{name: "zero rates are allowed", mutate: func(s *entity.EvaluationSettings) { s.ManagerClosurePenalty = 0 }},
		{name: "negative rate", mutate: func(s *entity.EvaluationSettings) { s.EarlyCompletionBonusPerDay = -1 }, wantErr: entity.ErrInvalidSettings},
		{name: "negative cap", mutate: func(s *entity.EvaluationSettings) { s.MaxLateCompletionPenalty = -5 }, wantErr: entity.ErrInvalidSettings},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockSettingsRepo{}
			svc := NewSettingsService(repo, newFakeClock(now), &mockLogger{})

			settings := entity.DefaultEvaluationSettings()
			tt.mutate(&settings)
			got, err := svc.Update(context.Background(), settings)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, repo.saves)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1, repo.saves)
			assert.True(t, got.UpdatedAt.Equal(now))
			assert.Equal(t, got, *repo.stored)
		})
	}
}

func TestSettingsService_EnsureDefaults(t *testing.T) {
	repo := &mockSettingsRepo{}
	svc := NewSettingsService(repo, newFakeClock(time.Now()), &mockLogger{})

	_, err := svc.EnsureDefaults(context.Background())
	require.NoError(t, err)
	_, err = svc.EnsureDefaults(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, repo.saves, "existing settings are not overwritten")
}
