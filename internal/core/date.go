package core

import "time"

// Date is a calendar date with day granularity. The embedded time.Time is
// always UTC midnight so equality and ordering ignore time-of-day.
type Date struct {
	time.Time
}

// NewDate creates a Date from year, month, day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return d.Format(time.DateOnly)
}

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.AddDate(0, 0, n)}
}

// IsWeekend reports whether d falls on a Saturday or Sunday.
func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// SameDay reports whether two dates are the same calendar day.
func (d Date) SameDay(o Date) bool {
	return d.Time.Equal(o.Time)
}

// After reports whether d is strictly after o at day granularity.
func (d Date) After(o Date) bool {
	return d.Time.After(o.Time)
}

// Before reports whether d is strictly before o at day granularity.
func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

// StartOfWeek returns the Monday of d's week. The Monday-first convention is
// shared by the calendar grid and the approval range resolver; changing it in
// one place without the other desynchronizes grid and batch boundaries.
func (d Date) StartOfWeek() Date {
	wd := int(d.Weekday())
	if wd == 0 {
		wd = 7 // Sunday belongs to the week that started the previous Monday
	}
	return d.AddDays(-(wd - 1))
}

// EndOfWeek returns the Sunday of d's week.
func (d Date) EndOfWeek() Date {
	return d.StartOfWeek().AddDays(6)
}

// Month is a calendar month (the "view month" of the calendar UI).
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing d.
func MonthOf(d Date) Month {
	return Month{Year: d.Year(), Month: d.Time.Month()}
}

// Contains reports whether d falls inside m.
func (m Month) Contains(d Date) bool {
	return d.Year() == m.Year && d.Time.Month() == m.Month
}

// Start returns the first day of the month.
func (m Month) Start() Date {
	return NewDate(m.Year, m.Month, 1)
}

// End returns the last day of the month.
func (m Month) End() Date {
	return Date{Time: time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC)}
}

func (m Month) String() string {
	return m.Start().Format("2006-01")
}
