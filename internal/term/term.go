// Package term prints a month grid and the selected day's agenda to a
// terminal.
package term

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"surgcal/internal/calgrid"
)

const cellWidth = 4

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	headerStyle   = lipgloss.NewStyle().Faint(true).Width(cellWidth).Align(lipgloss.Right)
	dayStyle      = lipgloss.NewStyle().Width(cellWidth).Align(lipgloss.Right)
	busyStyle     = dayStyle.Bold(true)
	todayStyle    = lipgloss.NewStyle().Underline(true)
	selectedStyle = lipgloss.NewStyle().Reverse(true)

	statusStyles = map[calgrid.Status]lipgloss.Style{
		calgrid.StatusScheduled:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		calgrid.StatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		calgrid.StatusCompleted:  lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
	}
)

// RenderMonth writes the grid as a seven-column table starting at
// weekStart. Days with events are bold and suffixed with "*"; today is
// underlined and the selected day is reversed.
func RenderMonth(w io.Writer, g calgrid.Grid, weekStart time.Weekday) error {
	var b strings.Builder

	title := g.Cursor.Title()
	pad := (cellWidth*7 - len(title)) / 2
	if pad < 0 {
		pad = 0
	}
	b.WriteString(strings.Repeat(" ", pad))
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	for _, h := range calgrid.WeekdayHeaders(weekStart) {
		b.WriteString(headerStyle.Render(h))
	}
	b.WriteString("\n")

	for _, week := range g.Weeks(weekStart) {
		for _, cell := range week {
			b.WriteString(renderCell(cell))
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func renderCell(c *calgrid.DayCell) string {
	if c == nil {
		return strings.Repeat(" ", cellWidth)
	}
	label := strconv.Itoa(c.Day)
	if c.IsToday {
		label = todayStyle.Render(label)
	}
	if c.IsSelected {
		label = selectedStyle.Render(label)
	}
	if c.HasEvents() {
		return busyStyle.Render(label + "*")
	}
	return dayStyle.Render(label + " ")
}

// RenderAgenda writes the events of one day, one per line.
func RenderAgenda(w io.Writer, date calgrid.Date, events []calgrid.CalendarEvent) error {
	var b strings.Builder

	heading := date.String()
	if !date.IsZero() {
		heading = time.Date(date.Year, time.Month(date.Month), date.Day, 0, 0, 0, 0, time.UTC).Format("Monday, January 2 2006")
	}
	fmt.Fprintf(&b, "%s · %d events\n", titleStyle.Render(heading), len(events))

	if len(events) == 0 {
		b.WriteString("  No events\n")
	}
	for _, ev := range events {
		when := ev.Time
		if when == "" {
			when = "all day"
		}
		fmt.Fprintf(&b, "  %-7s %s", when, ev.Title)
		if ev.PatientName != "" {
			fmt.Fprintf(&b, " (%s)", ev.PatientName)
		}
		if ev.Room != "" {
			fmt.Fprintf(&b, " @ %s", ev.Room)
		}
		style, ok := statusStyles[ev.Status]
		if !ok {
			style = lipgloss.NewStyle()
		}
		fmt.Fprintf(&b, "  [%s]\n", style.Render(ev.Status.Label()))
	}

	_, err := io.WriteString(w, b.String())
	return err
}
