package model

import "time"

// CaseRecord is a schedule entry as supplied by a data source, before
// validation. Dates and times are still strings in their wire form.
type CaseRecord struct {
	ID string `yaml:"id" json:"id"`

	// Date is an ISO "YYYY-MM-DD" string.
	Date string `yaml:"date" json:"date"`
	// Time is "HH:MM" local time; empty for all-day entries.
	Time string `yaml:"time" json:"time"`

	Title string `yaml:"title" json:"title"`
	// Procedure is accepted as a fallback for Title.
	Procedure string `yaml:"procedure,omitempty" json:"procedure,omitempty"`

	DurationMinutes int    `yaml:"duration_minutes" json:"duration_minutes"`
	Status          string `yaml:"status" json:"status"`
	Category        string `yaml:"category" json:"category"`

	PatientName string `yaml:"patient_name" json:"patient_name"`
	Surgeon     string `yaml:"surgeon" json:"surgeon"`
	Room        string `yaml:"room" json:"room"`
}

// Occurrence represents a single concrete instance of an ICS event
// (after recurrence expansion and timezone normalization).
type Occurrence struct {
	SourceID string // calendar source ID
	UID      string // iCalendar UID

	// InstanceKey uniquely identifies a single occurrence of a recurring
	// event, derived from the local start time.
	InstanceKey string

	Summary     string
	Description string
	Location    string

	AllDay bool

	// Start / End are in the configured display timezone.
	Start time.Time
	End   time.Time
}
