package calgrid

import "time"

// DayCell is one day's slot in a month grid. Blanks before day 1 are not
// represented as cells; see Grid.LeadingBlanks.
type DayCell struct {
	Day            int
	Date           Date
	IsCurrentMonth bool
	IsToday        bool
	IsSelected     bool
	Events         []CalendarEvent
}

// HasEvents reports whether any event is bound to the cell.
func (c DayCell) HasEvents() bool {
	return len(c.Events) > 0
}

// Grid is the computed layout of one month.
//
// Invariants: len(Cells) == DaysInMonth(Cursor) and
// LeadingBlanks == FirstWeekday(Cursor), with Sunday as index 0.
type Grid struct {
	Cursor        MonthCursor
	LeadingBlanks int
	Cells         []DayCell
}

// BuildGrid lays out the month named by cursor and binds each event to the
// cell of its exact date. Events outside the month are ignored. Same-day
// events keep their relative input order.
//
// today and selected drive the IsToday and IsSelected flags; pass a zero
// Date to disable either.
func BuildGrid(cursor MonthCursor, events []CalendarEvent, today, selected Date) (Grid, error) {
	n, err := DaysInMonth(cursor.Year, cursor.Month)
	if err != nil {
		return Grid{}, err
	}
	lead, err := FirstWeekday(cursor.Year, cursor.Month)
	if err != nil {
		return Grid{}, err
	}

	cells := make([]DayCell, n)
	for i := range cells {
		day := i + 1
		cells[i] = DayCell{
			Day:            day,
			Date:           cursor.Day(day),
			IsCurrentMonth: true,
			IsToday:        IsToday(cursor, day, today),
			IsSelected:     IsSelected(cursor, day, selected),
		}
	}

	for _, ev := range events {
		if !cursor.Contains(ev.Date) || ev.Date.Day < 1 || ev.Date.Day > n {
			continue
		}
		c := &cells[ev.Date.Day-1]
		c.Events = append(c.Events, ev)
	}

	return Grid{Cursor: cursor, LeadingBlanks: lead, Cells: cells}, nil
}

// IsToday reports whether day in cursor's month is today.
func IsToday(cursor MonthCursor, day int, today Date) bool {
	return !today.IsZero() && cursor.Day(day) == today
}

// IsSelected reports whether day in cursor's month is the selected date.
func IsSelected(cursor MonthCursor, day int, selected Date) bool {
	return !selected.IsZero() && cursor.Day(day) == selected
}

// Cell returns the cell for day, if the month has it.
func (g Grid) Cell(day int) (DayCell, bool) {
	if day < 1 || day > len(g.Cells) {
		return DayCell{}, false
	}
	return g.Cells[day-1], true
}

// Weeks arranges the cells into rows of seven columns starting at
// weekStart. Slots outside the month are nil. The last row is padded to
// seven columns.
func (g Grid) Weeks(weekStart time.Weekday) [][]*DayCell {
	offset := (g.LeadingBlanks - int(weekStart) + 7) % 7
	slots := offset + len(g.Cells)
	rows := (slots + 6) / 7

	weeks := make([][]*DayCell, rows)
	for r := range weeks {
		weeks[r] = make([]*DayCell, 7)
	}
	for i := range g.Cells {
		pos := offset + i
		weeks[pos/7][pos%7] = &g.Cells[i]
	}
	return weeks
}

// WeekdayHeaders returns single-letter column headers starting at weekStart.
func WeekdayHeaders(weekStart time.Weekday) []string {
	names := [7]string{"S", "M", "T", "W", "T", "F", "S"}
	out := make([]string, 7)
	for i := range out {
		out[i] = names[(int(weekStart)+i)%7]
	}
	return out
}
