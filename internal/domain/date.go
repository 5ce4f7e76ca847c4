package domain

import (
	"fmt"
	"time"
)

// DateFormat is the ISO-8601 layout used to represent calendar dates as strings
const DateFormat = "2006-01-02"

// Date represents a calendar date with day-level granularity
// It is a comparable value type so it can be used as a map key,
// which time.Time (with its location and monotonic clock) cannot safely be
type Date struct {
	year  int
	month time.Month
	day   int
}

// NewDate returns a normalized Date for the given year, month and day
func NewDate(year int, month time.Month, day int) Date {
	d := Date{year, month, day}
	d.year, d.month, d.day = d.time().Date()
	return d
}

// DateOf truncates a time.Time to its calendar date
func DateOf(t time.Time) Date {
	return NewDate(t.Date())
}

// Today returns the current calendar date
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a Date from its ISO-8601 string form
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (want %q): %w", s, DateFormat, err)
	}
	return DateOf(t), nil
}

// MustParseDate is like ParseDate but panics on error; intended for tests and constants
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// time returns the canonical time.Time for the date (midnight UTC)
func (d Date) time() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

// Time returns the date as a time.Time at midnight UTC
func (d Date) Time() time.Time { return d.time() }

// Add returns the date shifted by the given number of days (may be negative)
func (d Date) Add(days int) Date {
	return NewDate(d.year, d.month, d.day+days)
}

// Before reports whether d is an earlier calendar day than x
func (d Date) Before(x Date) bool { return d.time().Before(x.time()) }

// After reports whether d is a later calendar day than x
func (d Date) After(x Date) bool { return d.time().After(x.time()) }

// IsZero reports whether the date is the zero value
func (d Date) IsZero() bool {
	return d.year == 0 && d.month == 0 && d.day == 0
}

// String formats the date in its ISO-8601 form
func (d Date) String() string { return d.time().Format(DateFormat) }
