package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func manilaScheduler(t *testing.T) *Scheduler {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Manila")
	require.NoError(t, err)
	return NewScheduler(loc, 1, 30, 7)
}

func TestMinMaxDates(t *testing.T) {
	s := manilaScheduler(t)
	now := time.Date(2024, 3, 15, 22, 45, 0, 0, s.Location())

	min := s.MinDate(now)
	max := s.MaxDate(now)
	assert.Equal(t, time.Date(2024, 3, 16, 0, 0, 0, 0, s.Location()), min)
	assert.Equal(t, time.Date(2024, 4, 14, 0, 0, 0, 0, s.Location()), max)
}

func TestValidateDateBoundsInclusive(t *testing.T) {
	s := manilaScheduler(t)
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, s.Location())

	assert.NoError(t, s.ValidateDate(now, s.MinDate(now)))
	assert.NoError(t, s.ValidateDate(now, s.MaxDate(now)))
	assert.Error(t, s.ValidateDate(now, s.MinDate(now).AddDate(0, 0, -1)))
	assert.Error(t, s.ValidateDate(now, s.MaxDate(now).AddDate(0, 0, 1)))
}

func TestValidateDateRejectsToday(t *testing.T) {
	s := manilaScheduler(t)
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, s.Location())
	assert.Error(t, s.ValidateDate(now, now))
}

func TestDaysRemainingCountdown(t *testing.T) {
	s := manilaScheduler(t)
	requested := time.Date(2024, 3, 1, 14, 30, 0, 0, s.Location())

	onDue := time.Date(2024, 3, 8, 8, 0, 0, 0, s.Location())
	assert.Equal(t, 0, s.DaysRemaining(requested, 7, onDue))

	dayBefore := time.Date(2024, 3, 7, 23, 59, 0, 0, s.Location())
	assert.Equal(t, 1, s.DaysRemaining(requested, 7, dayBefore))

	dayAfter := time.Date(2024, 3, 9, 0, 1, 0, 0, s.Location())
	assert.Equal(t, -1, s.DaysRemaining(requested, 7, dayAfter))
}

func TestDaysRemainingDefaultsExpectedDays(t *testing.T) {
	s := manilaScheduler(t)
	requested := time.Date(2024, 3, 1, 0, 0, 0, 0, s.Location())
	now := time.Date(2024, 3, 8, 0, 0, 0, 0, s.Location())
	// Zero expectedDays falls back to the configured default of 7.
	assert.Equal(t, 0, s.DaysRemaining(requested, 0, now))
}

func TestDaysRemainingCrossMidnightUTC(t *testing.T) {
	s := manilaScheduler(t)
	// 2024-03-08 18:00 UTC is already 2024-03-09 in Manila; the countdown
	// must follow the canonical zone, not the server's.
	requested := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 3, 8, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, -1, s.DaysRemaining(requested, 7, now))
}

func TestDaysRemainingAcrossDSTTransition(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	s := NewScheduler(loc, 1, 30, 7)

	// Spring forward on 2024-03-10 leaves only 167 hours between these two
	// midnights; the countdown still spans seven calendar days.
	requested := time.Date(2024, 3, 8, 9, 0, 0, 0, loc)
	now := time.Date(2024, 3, 8, 9, 0, 0, 0, loc)
	assert.Equal(t, 7, s.DaysRemaining(requested, 7, now))
}

func TestRenderCountdown(t *testing.T) {
	assert.Equal(t, "Expected release: Today!", RenderCountdown(0))
	assert.Equal(t, "3 day(s) remaining", RenderCountdown(3))
	assert.Equal(t, "2 day(s) overdue", RenderCountdown(-2))
}

func TestRenderCompleted(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Manila")
	require.NoError(t, err)
	released := time.Date(2024, 3, 20, 0, 0, 0, 0, loc)
	assert.Equal(t, "Released on March 20, 2024", RenderCompleted(released, loc))
}
