// Package calendar converts urgency levels into absolute due instants against
// a business-hours calendar. All functions are pure: the configuration is
// threaded in explicitly and nothing reads process-wide state.
package calendar

import (
	"time"

	"github.com/hmuroya/taskward/internal/task"
)

// Config is the immutable business calendar: an IANA timezone and the daily
// start/end of business. Weekends are non-business days; there is no holiday
// calendar. DST transitions follow the zone database via time.Location.
type Config struct {
	Location    *time.Location
	StartHour   int
	StartMinute int
	EndHour     int
	EndMinute   int
}

// ComputeDueAt derives the due instant for an urgency level relative to now.
//
//	RED    due immediately
//	ORANGE now + 60 minutes
//	YELLOW close of the current business day; weekends and instants past
//	       close roll to the next weekday's close
//	GREEN  close of the next weekday, always at least one day out; a weekend
//	       now resolves to the nearest upcoming weekday's close
//
// Weekday and hour extraction happen in the configured zone, never in the
// host zone or UTC.
func ComputeDueAt(urgency task.Urgency, now time.Time, cfg Config) time.Time {
	switch urgency {
	case task.UrgencyRed:
		return now
	case task.UrgencyOrange:
		return now.Add(60 * time.Minute)
	case task.UrgencyYellow:
		local := now.In(cfg.Location)
		if isWeekday(local) {
			close := cfg.closeOf(local)
			// Exactly at close still counts as before close.
			if !local.After(close) {
				return close
			}
		}
		return cfg.closeOf(nextWeekday(local))
	default: // GREEN and anything unrecognized
		local := now.In(cfg.Location)
		return cfg.closeOf(nextWeekday(local))
	}
}

// WithinBusinessHours reports whether now falls on a weekday inside the
// configured start/end window, both boundaries inclusive.
func WithinBusinessHours(now time.Time, cfg Config) bool {
	local := now.In(cfg.Location)
	if !isWeekday(local) {
		return false
	}
	open := time.Date(local.Year(), local.Month(), local.Day(), cfg.StartHour, cfg.StartMinute, 0, 0, cfg.Location)
	close := cfg.closeOf(local)
	return !local.Before(open) && !local.After(close)
}

// closeOf returns the business-day end boundary on the same calendar day as
// local.
func (c Config) closeOf(local time.Time) time.Time {
	return time.Date(local.Year(), local.Month(), local.Day(), c.EndHour, c.EndMinute, 0, 0, c.Location)
}

func isWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// nextWeekday steps forward at least one day and then skips any weekend days.
// A Saturday input lands on Monday, as does a Sunday or a Friday.
func nextWeekday(local time.Time) time.Time {
	d := local.AddDate(0, 0, 1)
	for !isWeekday(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}
