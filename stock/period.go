/*
period.go - Reporting periods and their time windows

PURPOSE:
  Turns a period name into the [From, To] window a report covers. Windows
  are anchored to the call time, not to stored state.

PERIODS:
  daily   = midnight of today in the report location, until now
  weekly  = now minus 7 days, until now
  monthly = now minus 30 days, until now
  ""      = daily

SEE ALSO:
  - report.go: Sales and revenue reports
*/
package stock

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - Reporting window anchored to call time
// =============================================================================

type Period string

const (
	PeriodDaily   Period = "daily"   // current calendar day
	PeriodWeekly  Period = "weekly"  // trailing 7 days
	PeriodMonthly Period = "monthly" // trailing 30 days
)

// ParsePeriod accepts the three period names. Empty defaults to daily.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case "":
		return PeriodDaily, nil
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return p, nil
	}
	return "", invalid("period", fmt.Sprintf("unknown period %q (want daily, weekly or monthly)", s))
}

// Window is the inclusive time range [From, To].
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}

// WindowAt returns the period's window ending at now. The daily window starts
// at midnight of now's calendar day in loc.
func (p Period) WindowAt(now time.Time, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	switch p {
	case PeriodWeekly:
		return Window{From: now.AddDate(0, 0, -7), To: now}
	case PeriodMonthly:
		return Window{From: now.AddDate(0, 0, -30), To: now}
	default:
		return Window{From: startOfDay(now), To: now}
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// dateKey is the calendar date of t in loc, e.g. "2025-03-10".
func dateKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01-02")
}
