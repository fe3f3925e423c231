package calgrid

// Status is the lifecycle state of a scheduled case.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// ParseStatus maps a wire value onto a Status.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusScheduled, StatusInProgress, StatusCompleted:
		return Status(s), true
	}
	return "", false
}

// Label is the badge text shown next to an event.
func (s Status) Label() string {
	switch s {
	case StatusScheduled:
		return "Scheduled"
	case StatusInProgress:
		return "In Progress"
	case StatusCompleted:
		return "Completed"
	default:
		return string(s)
	}
}

// Category classifies what kind of appointment an event is.
type Category string

const (
	CategorySurgery      Category = "surgery"
	CategoryConsultation Category = "consultation"
	CategoryOther        Category = "other"
)

// ParseCategory maps a wire value onto a Category.
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategorySurgery, CategoryConsultation, CategoryOther:
		return Category(s), true
	}
	return "", false
}

// CalendarEvent is one dated entry on the schedule. Events are immutable
// once loaded from their source.
type CalendarEvent struct {
	ID              string
	Date            Date
	Title           string
	Time            string // "HH:MM", empty for all-day entries
	DurationMinutes int
	Status          Status
	Category        Category

	PatientName string
	Surgeon     string
	Room        string
}

// EventsOnDate returns the events whose date equals date, in input order.
func EventsOnDate(events []CalendarEvent, date Date) []CalendarEvent {
	out := make([]CalendarEvent, 0)
	for _, ev := range events {
		if ev.Date == date {
			out = append(out, ev)
		}
	}
	return out
}

// EventsInMonth returns the events that fall in month c, in input order.
func EventsInMonth(events []CalendarEvent, c MonthCursor) []CalendarEvent {
	out := make([]CalendarEvent, 0)
	for _, ev := range events {
		if c.Contains(ev.Date) {
			out = append(out, ev)
		}
	}
	return out
}

// Summary counts events by status and category.
type Summary struct {
	Total      int
	ByStatus   map[Status]int
	ByCategory map[Category]int
}

// Summarize tallies events. Every known status and category is present in
// the result, with zero counts where nothing matched.
func Summarize(events []CalendarEvent) Summary {
	s := Summary{
		ByStatus: map[Status]int{
			StatusScheduled:  0,
			StatusInProgress: 0,
			StatusCompleted:  0,
		},
		ByCategory: map[Category]int{
			CategorySurgery:      0,
			CategoryConsultation: 0,
			CategoryOther:        0,
		},
	}
	for _, ev := range events {
		s.Total++
		s.ByStatus[ev.Status]++
		s.ByCategory[ev.Category]++
	}
	return s
}
