package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		deadline time.Time
		status   Status
		want     DeadlineState
	}{
		{
			name:     "completed wins regardless of date",
			deadline: now.Add(-30 * 24 * time.Hour),
			status:   StatusCompleted,
			want:     DeadlineCompleted,
		},
		{
			name:     "completed wins over future deadline",
			deadline: now.Add(10 * 24 * time.Hour),
			status:   StatusCompleted,
			want:     DeadlineCompleted,
		},
		{
			name:     "past deadline is overdue",
			deadline: now.Add(-time.Hour),
			status:   StatusPending,
			want:     DeadlineOverdue,
		},
		{
			name:     "past deadline overdue for in-progress too",
			deadline: now.Add(-5 * 24 * time.Hour),
			status:   StatusInProgress,
			want:     DeadlineOverdue,
		},
		{
			name:     "deadline right now is approaching (boundary 0)",
			deadline: now,
			status:   StatusPending,
			want:     DeadlineApproaching,
		},
		{
			name:     "deadline in exactly three days is approaching (boundary 3)",
			deadline: now.Add(3 * 24 * time.Hour),
			status:   StatusPending,
			want:     DeadlineApproaching,
		},
		{
			name:     "deadline in two days is approaching",
			deadline: now.Add(2 * 24 * time.Hour),
			status:   StatusInProgress,
			want:     DeadlineApproaching,
		},
		{
			name:     "deadline in four days is normal",
			deadline: now.Add(4 * 24 * time.Hour),
			status:   StatusPending,
			want:     DeadlineNormal,
		},
		{
			name:     "fractional day rounds up past the window",
			deadline: now.Add(3*24*time.Hour + time.Minute),
			status:   StatusPending,
			want:     DeadlineNormal,
		},
		{
			name:     "zero deadline classifies normal, not overdue",
			deadline: time.Time{},
			status:   StatusPending,
			want:     DeadlineNormal,
		},
		{
			name:     "zero deadline with completed status is completed",
			deadline: time.Time{},
			status:   StatusCompleted,
			want:     DeadlineCompleted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Classify(tt.deadline, tt.status, now))
		})
	}
}

func TestClassifyIsPure(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	deadline := now.Add(48 * time.Hour)

	first := Classify(deadline, StatusPending, now)
	second := Classify(deadline, StatusPending, now)
	assert.Equal(t, first, second)
}
