package workflow

import (
	"fmt"
	"time"
)

// Scheduler performs all release-date arithmetic in one fixed time zone.
// The legacy portal anchored "today" to UTC+8 by hand; here the zone is
// loaded once and every truncation goes through it, so the server and the
// browser can disagree on local time without shifting dates.
type Scheduler struct {
	loc                 *time.Location
	minOffsetDays       int
	maxOffsetDays       int
	defaultExpectedDays int
}

// NewScheduler builds a scheduler. Offsets default to the portal's
// tomorrow/+30d window; expectedDays defaults to 7.
func NewScheduler(loc *time.Location, minOffsetDays, maxOffsetDays, defaultExpectedDays int) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if minOffsetDays <= 0 {
		minOffsetDays = 1
	}
	if maxOffsetDays <= 0 {
		maxOffsetDays = 30
	}
	if defaultExpectedDays <= 0 {
		defaultExpectedDays = 7
	}
	return &Scheduler{
		loc:                 loc,
		minOffsetDays:       minOffsetDays,
		maxOffsetDays:       maxOffsetDays,
		defaultExpectedDays: defaultExpectedDays,
	}
}

// DefaultExpectedDays exposes the fallback processing-day count.
func (s *Scheduler) DefaultExpectedDays() int {
	return s.defaultExpectedDays
}

// Location exposes the canonical zone.
func (s *Scheduler) Location() *time.Location {
	return s.loc
}

// truncate drops the time component in the canonical zone.
func (s *Scheduler) truncate(t time.Time) time.Time {
	t = t.In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
}

// MinDate is the earliest selectable release date: tomorrow.
func (s *Scheduler) MinDate(now time.Time) time.Time {
	return s.truncate(now).AddDate(0, 0, s.minOffsetDays)
}

// MaxDate is the latest selectable release date: +30 days.
func (s *Scheduler) MaxDate(now time.Time) time.Time {
	return s.truncate(now).AddDate(0, 0, s.maxOffsetDays)
}

// ValidateDate checks the chosen release date lies in [MinDate, MaxDate],
// bounds inclusive.
func (s *Scheduler) ValidateDate(now, chosen time.Time) error {
	day := s.truncate(chosen)
	min := s.MinDate(now)
	max := s.MaxDate(now)
	if day.Before(min) || day.After(max) {
		return fmt.Errorf("release date %s outside window [%s, %s]",
			day.Format("2006-01-02"), min.Format("2006-01-02"), max.Format("2006-01-02"))
	}
	return nil
}

// DaysRemaining computes the signed whole-day countdown to the expected
// release date. Negative values mean the request is overdue.
func (s *Scheduler) DaysRemaining(dateRequested time.Time, expectedDays int, now time.Time) int {
	if expectedDays <= 0 {
		expectedDays = s.defaultExpectedDays
	}
	expected := s.truncate(dateRequested).AddDate(0, 0, expectedDays)
	today := s.truncate(now)
	return daysBetween(today, expected)
}

// daysBetween counts calendar days from a to b. The dates are re-anchored in
// UTC so a DST shift in the canonical zone cannot shave an hour off the
// difference and truncate the count.
func daysBetween(a, b time.Time) int {
	au := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bu := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bu.Sub(au) / (24 * time.Hour))
}

// ExpectedReleaseDate returns dateRequested + expectedDays, date-only.
func (s *Scheduler) ExpectedReleaseDate(dateRequested time.Time, expectedDays int) time.Time {
	if expectedDays <= 0 {
		expectedDays = s.defaultExpectedDays
	}
	return s.truncate(dateRequested).AddDate(0, 0, expectedDays)
}

// RenderCountdown renders the remaining/overdue language for an in-flight
// request. Completed requests take a different branch entirely; see
// RenderCompleted.
func RenderCountdown(daysRemaining int) string {
	switch {
	case daysRemaining == 0:
		return "Expected release: Today!"
	case daysRemaining > 0:
		return fmt.Sprintf("%d day(s) remaining", daysRemaining)
	default:
		return fmt.Sprintf("%d day(s) overdue", -daysRemaining)
	}
}

// RenderCompleted substitutes the realized release date for completed
// requests, suppressing remaining/overdue language. This is a distinct
// rendering branch, not a relabel of the countdown.
func RenderCompleted(releaseDate time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return fmt.Sprintf("Released on %s", releaseDate.In(loc).Format("January 2, 2006"))
}
