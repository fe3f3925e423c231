package web

import "surgcal/internal/calgrid"

type errorResponse struct {
	Error string `json:"error"`
}

// invalidResponse carries an empty grid alongside the error.
type invalidResponse struct {
	Error string    `json:"error"`
	Cells []cellDTO `json:"cells"`
}

// calendarResponse is the JSON shape of /api/calendar.
type calendarResponse struct {
	Month          string     `json:"month"`
	Title          string     `json:"title"`
	Prev           string     `json:"prev"`
	Next           string     `json:"next"`
	WeekStart      string     `json:"week_start"`
	LeadingBlanks  int        `json:"leading_blanks"`
	Today          string     `json:"today"`
	Selected       string     `json:"selected"`
	Cells          []cellDTO  `json:"cells"`
	SelectedEvents []eventDTO `json:"selected_events"`
	Summary        summaryDTO `json:"summary"`
}

type cellDTO struct {
	Day            int        `json:"day"`
	Date           string     `json:"date"`
	IsCurrentMonth bool       `json:"is_current_month"`
	IsToday        bool       `json:"is_today"`
	IsSelected     bool       `json:"is_selected"`
	Events         []eventDTO `json:"events"`
}

type eventDTO struct {
	ID              string `json:"id"`
	Date            string `json:"date"`
	Title           string `json:"title"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration_minutes"`
	Status          string `json:"status"`
	StatusLabel     string `json:"status_label"`
	Category        string `json:"category"`
	PatientName     string `json:"patient_name,omitempty"`
	Surgeon         string `json:"surgeon,omitempty"`
	Room            string `json:"room,omitempty"`
}

type summaryDTO struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	ByCategory map[string]int `json:"by_category"`
}

// eventsResponse is the JSON shape of /api/events.
type eventsResponse struct {
	Date   string     `json:"date"`
	Count  int        `json:"count"`
	Events []eventDTO `json:"events"`
}

func newCalendarResponse(v monthView, weekStart string) calendarResponse {
	cursor := v.Grid.Cursor
	cells := make([]cellDTO, 0, len(v.Grid.Cells))
	for _, c := range v.Grid.Cells {
		cells = append(cells, cellDTO{
			Day:            c.Day,
			Date:           c.Date.String(),
			IsCurrentMonth: c.IsCurrentMonth,
			IsToday:        c.IsToday,
			IsSelected:     c.IsSelected,
			Events:         toEventDTOs(c.Events),
		})
	}

	sum := summaryDTO{
		Total:      v.Summary.Total,
		ByStatus:   make(map[string]int, len(v.Summary.ByStatus)),
		ByCategory: make(map[string]int, len(v.Summary.ByCategory)),
	}
	for k, n := range v.Summary.ByStatus {
		sum.ByStatus[string(k)] = n
	}
	for k, n := range v.Summary.ByCategory {
		sum.ByCategory[string(k)] = n
	}

	return calendarResponse{
		Month:          cursor.String(),
		Title:          cursor.Title(),
		Prev:           cursor.Prev().String(),
		Next:           cursor.Next().String(),
		WeekStart:      weekStart,
		LeadingBlanks:  v.Grid.LeadingBlanks,
		Today:          v.Today.String(),
		Selected:       v.Selected.String(),
		Cells:          cells,
		SelectedEvents: toEventDTOs(v.SelectedEvents),
		Summary:        sum,
	}
}

func toEventDTOs(events []calgrid.CalendarEvent) []eventDTO {
	out := make([]eventDTO, 0, len(events))
	for _, ev := range events {
		out = append(out, eventDTO{
			ID:              ev.ID,
			Date:            ev.Date.String(),
			Title:           ev.Title,
			Time:            ev.Time,
			DurationMinutes: ev.DurationMinutes,
			Status:          string(ev.Status),
			StatusLabel:     ev.Status.Label(),
			Category:        string(ev.Category),
			PatientName:     ev.PatientName,
			Surgeon:         ev.Surgeon,
			Room:            ev.Room,
		})
	}
	return out
}
