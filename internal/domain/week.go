package domain

import "time"

// ISOWeekOf returns the ISO-8601 week (Thursday-anchored) containing t, in
// UTC. Week 1 of a year can start in late December and week 52/53 can run
// into early January, so year here is the ISO year, not the calendar year.
// Streak claims compare against this pair, never against calendar weeks.
func ISOWeekOf(t time.Time) (year, week int) {
	return t.UTC().ISOWeek()
}

// SameISOWeek reports whether two (ISO year, week) pairs name the same week.
func SameISOWeek(aYear, aWeek, bYear, bWeek int) bool {
	return aYear == bYear && aWeek == bWeek
}

// PreviousISOWeek returns the ISO (year, week) of the week before t.
func PreviousISOWeek(t time.Time) (year, week int) {
	return ISOWeekOf(t.UTC().AddDate(0, 0, -7))
}

// StartOfMonth returns the first instant of t's calendar month in UTC.
func StartOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// StartOfNextMonth returns the first instant of the month after t in UTC.
// Monthly quests expire here, calendar-aligned, not a rolling +30d window.
func StartOfNextMonth(t time.Time) time.Time {
	return StartOfMonth(t).AddDate(0, 1, 0)
}
