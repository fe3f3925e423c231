// Package calgrid computes month calendar grids and binds dated events to
// the days they fall on.
//
// Everything here is a pure function of its inputs: the caller owns the
// displayed month (MonthCursor) and the selected date, and passes "today"
// in from whatever clock it trusts. Grids are rebuilt on every navigation
// or data change; nothing is mutated in place.
package calgrid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidArgument is the only error kind produced by this package.
// Callers should test for it with errors.Is.
var ErrInvalidArgument = errors.New("invalid argument")

// Date is a calendar date in the proleptic Gregorian calendar.
// The zero Date means "no date" and never matches a grid cell.
type Date struct {
	Year  int
	Month int
	Day   int
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// String formats d as ISO YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Cursor returns the month that contains d.
func (d Date) Cursor() MonthCursor {
	return MonthCursor{Year: d.Year, Month: d.Month}
}

// Weekday returns the day of week of d.
func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

// Validate checks that d names a real day.
func (d Date) Validate() error {
	n, err := DaysInMonth(d.Year, d.Month)
	if err != nil {
		return err
	}
	if d.Day < 1 || d.Day > n {
		return fmt.Errorf("calgrid: day %d out of range 1..%d for %04d-%02d: %w", d.Day, n, d.Year, d.Month, ErrInvalidArgument)
	}
	return nil
}

// ParseDate parses an ISO "YYYY-MM-DD" string by exact split on "-".
// Anything else, including out-of-range months or days, is rejected with
// ErrInvalidArgument.
func ParseDate(s string) (Date, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("calgrid: malformed date %q: %w", s, ErrInvalidArgument)
	}

	year, err := parseFixedDigits(parts[0], 4)
	if err != nil {
		return Date{}, fmt.Errorf("calgrid: malformed year in %q: %w", s, err)
	}
	month, err := parseFixedDigits(parts[1], 2)
	if err != nil {
		return Date{}, fmt.Errorf("calgrid: malformed month in %q: %w", s, err)
	}
	day, err := parseFixedDigits(parts[2], 2)
	if err != nil {
		return Date{}, fmt.Errorf("calgrid: malformed day in %q: %w", s, err)
	}

	d := Date{Year: year, Month: month, Day: day}
	if err := d.Validate(); err != nil {
		return Date{}, err
	}
	return d, nil
}

// parseFixedDigits accepts exactly width ASCII digits.
func parseFixedDigits(s string, width int) (int, error) {
	if len(s) != width {
		return 0, ErrInvalidArgument
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, ErrInvalidArgument
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrInvalidArgument
	}
	return n, nil
}

// MonthCursor identifies the month whose grid is displayed.
type MonthCursor struct {
	Year  int
	Month int
}

// CursorOf returns the month containing t.
func CursorOf(t time.Time) MonthCursor {
	return MonthCursor{Year: t.Year(), Month: int(t.Month())}
}

// ParseCursor parses a "YYYY-MM" month string.
func ParseCursor(s string) (MonthCursor, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return MonthCursor{}, fmt.Errorf("calgrid: malformed month %q: %w", s, ErrInvalidArgument)
	}
	year, err := parseFixedDigits(parts[0], 4)
	if err != nil {
		return MonthCursor{}, fmt.Errorf("calgrid: malformed year in %q: %w", s, err)
	}
	month, err := parseFixedDigits(parts[1], 2)
	if err != nil {
		return MonthCursor{}, fmt.Errorf("calgrid: malformed month in %q: %w", s, err)
	}
	c := MonthCursor{Year: year, Month: month}
	if err := c.Validate(); err != nil {
		return MonthCursor{}, err
	}
	return c, nil
}

// Validate checks that the month is within 1..12.
func (c MonthCursor) Validate() error {
	if c.Month < 1 || c.Month > 12 {
		return fmt.Errorf("calgrid: month %d out of range 1..12: %w", c.Month, ErrInvalidArgument)
	}
	return nil
}

// String formats c as "YYYY-MM".
func (c MonthCursor) String() string {
	return fmt.Sprintf("%04d-%02d", c.Year, c.Month)
}

// Title is the month header shown above a grid, e.g. "March 2024".
func (c MonthCursor) Title() string {
	if c.Validate() != nil {
		return c.String()
	}
	return time.Month(c.Month).String() + " " + strconv.Itoa(c.Year)
}

// Contains reports whether d falls in month c.
func (c MonthCursor) Contains(d Date) bool {
	return d.Year == c.Year && d.Month == c.Month
}

// Day returns the date of the given day within c.
func (c MonthCursor) Day(day int) Date {
	return Date{Year: c.Year, Month: c.Month, Day: day}
}

// Next returns the following month, rolling December into January.
func (c MonthCursor) Next() MonthCursor {
	if c.Month >= 12 {
		return MonthCursor{Year: c.Year + 1, Month: 1}
	}
	return MonthCursor{Year: c.Year, Month: c.Month + 1}
}

// Prev returns the preceding month, rolling January into December.
func (c MonthCursor) Prev() MonthCursor {
	if c.Month <= 1 {
		return MonthCursor{Year: c.Year - 1, Month: 12}
	}
	return MonthCursor{Year: c.Year, Month: c.Month - 1}
}

// NextMonth is the function form of MonthCursor.Next.
func NextMonth(c MonthCursor) MonthCursor { return c.Next() }

// PrevMonth is the function form of MonthCursor.Prev.
func PrevMonth(c MonthCursor) MonthCursor { return c.Prev() }

// IsLeapYear applies the Gregorian leap-year rule.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

var monthLengths = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year, month int) (int, error) {
	if month < 1 || month > 12 {
		return 0, fmt.Errorf("calgrid: month %d out of range 1..12: %w", month, ErrInvalidArgument)
	}
	if month == 2 && IsLeapYear(year) {
		return 29, nil
	}
	return monthLengths[month-1], nil
}

// FirstWeekday returns the weekday index (0=Sunday..6=Saturday) of the
// first day of the given month.
func FirstWeekday(year, month int) (int, error) {
	if month < 1 || month > 12 {
		return 0, fmt.Errorf("calgrid: month %d out of range 1..12: %w", month, ErrInvalidArgument)
	}
	return int(time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Weekday()), nil
}
