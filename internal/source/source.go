// Package source loads schedule entries from their origins and converts
// them into validated calendar events.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"surgcal/internal/calgrid"
	"surgcal/internal/ics"
	appLog "surgcal/internal/log"
	"surgcal/internal/model"
)

// Loader produces the current records of one source.
type Loader interface {
	Load(ctx context.Context) ([]model.CaseRecord, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) ([]model.CaseRecord, error)

func (f LoaderFunc) Load(ctx context.Context) ([]model.CaseRecord, error) { return f(ctx) }

// CaseFile reads case records from a YAML or JSON file. The file holds
// either a bare list or a document with a top-level "cases" list.
type CaseFile struct {
	Path string
}

type caseDocument struct {
	Cases []model.CaseRecord `yaml:"cases"`
}

func (f CaseFile) Load(_ context.Context) ([]model.CaseRecord, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("source: read %s: %w", f.Path, err)
	}
	return DecodeCases(data)
}

// DecodeCases parses YAML (or JSON) case records. Records without an id get
// a random one so they stay addressable.
func DecodeCases(data []byte) ([]model.CaseRecord, error) {
	var recs []model.CaseRecord
	if err := yaml.Unmarshal(data, &recs); err != nil {
		var doc caseDocument
		if derr := yaml.Unmarshal(data, &doc); derr != nil {
			return nil, fmt.Errorf("source: decode cases: %w", errors.Join(err, derr))
		}
		recs = doc.Cases
	}
	for i := range recs {
		if recs[i].ID == "" {
			recs[i].ID = uuid.NewString()
		}
	}
	return recs, nil
}

// ICSFeed loads an ICS subscription and expands it over a window of months
// around the current one.
type ICSFeed struct {
	Source   ics.Source
	Category calgrid.Category
	Fetcher  *ics.Fetcher
	Location *time.Location
	// WindowMonths before and after the current month are expanded.
	WindowMonths int
	Now          func() time.Time
}

func (f ICSFeed) Load(ctx context.Context) ([]model.CaseRecord, error) {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}
	t := now().In(loc)

	res, err := f.Fetcher.Fetch(ctx, f.Source)
	if err != nil {
		return nil, err
	}
	parsed, err := ics.Parse(f.Source, res.Body)
	if err != nil {
		return nil, err
	}

	monthStart := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	expanded, err := ics.Expand(parsed, ics.ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      monthStart.AddDate(0, -f.WindowMonths, 0),
		RangeEnd:        monthStart.AddDate(0, f.WindowMonths+1, 0),
	})
	if err != nil {
		return nil, err
	}
	return FromOccurrences(expanded.Occurrences, f.Category, t), nil
}

// FromOccurrences maps expanded ICS occurrences onto case records. Status is
// derived from now: completed once ended, in progress while running.
func FromOccurrences(occs []model.Occurrence, category calgrid.Category, now time.Time) []model.CaseRecord {
	out := make([]model.CaseRecord, 0, len(occs))
	for _, occ := range occs {
		rec := model.CaseRecord{
			ID:              occ.UID + "@" + occ.InstanceKey,
			Date:            occ.Start.Format("2006-01-02"),
			Title:           occ.Summary,
			DurationMinutes: int(occ.End.Sub(occ.Start) / time.Minute),
			Category:        string(category),
			Room:            occ.Location,
		}
		if !occ.AllDay {
			rec.Time = occ.Start.Format("15:04")
		}
		switch {
		case !occ.End.After(now):
			rec.Status = string(calgrid.StatusCompleted)
		case !occ.Start.After(now):
			rec.Status = string(calgrid.StatusInProgress)
		default:
			rec.Status = string(calgrid.StatusScheduled)
		}
		if rec.DurationMinutes < 0 {
			rec.DurationMinutes = 0
		}
		out = append(out, rec)
	}
	return out
}

// ToEvent validates a record. Unknown status defaults to scheduled and
// unknown category to other; a bad date, time or duration is rejected with
// calgrid.ErrInvalidArgument.
func ToEvent(rec model.CaseRecord) (calgrid.CalendarEvent, error) {
	date, err := calgrid.ParseDate(strings.TrimSpace(rec.Date))
	if err != nil {
		return calgrid.CalendarEvent{}, fmt.Errorf("record %s: %w", rec.ID, err)
	}
	if rec.Time != "" {
		if _, err := time.Parse("15:04", rec.Time); err != nil {
			return calgrid.CalendarEvent{}, fmt.Errorf("record %s: malformed time %q: %w", rec.ID, rec.Time, calgrid.ErrInvalidArgument)
		}
	}
	if rec.DurationMinutes < 0 {
		return calgrid.CalendarEvent{}, fmt.Errorf("record %s: negative duration: %w", rec.ID, calgrid.ErrInvalidArgument)
	}

	status, ok := calgrid.ParseStatus(rec.Status)
	if !ok {
		status = calgrid.StatusScheduled
	}
	category, ok := calgrid.ParseCategory(rec.Category)
	if !ok {
		category = calgrid.CategoryOther
	}
	title := rec.Title
	if title == "" {
		title = rec.Procedure
	}

	return calgrid.CalendarEvent{
		ID:              rec.ID,
		Date:            date,
		Title:           title,
		Time:            rec.Time,
		DurationMinutes: rec.DurationMinutes,
		Status:          status,
		Category:        category,
		PatientName:     rec.PatientName,
		Surgeon:         rec.Surgeon,
		Room:            rec.Room,
	}, nil
}

// Convert validates records in order. Valid events are always returned;
// rejected records are logged and reported together in the error.
func Convert(recs []model.CaseRecord) ([]calgrid.CalendarEvent, error) {
	events := make([]calgrid.CalendarEvent, 0, len(recs))
	var errs []error
	for _, rec := range recs {
		ev, err := ToEvent(rec)
		if err != nil {
			appLog.Warn("case record skipped", "id", rec.ID, "cause", err.Error())
			errs = append(errs, err)
			continue
		}
		events = append(events, ev)
	}
	return events, errors.Join(errs...)
}
