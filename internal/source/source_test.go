package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surgcal/internal/calgrid"
	"surgcal/internal/ics"
	"surgcal/internal/model"
)

const casesYAML = `
cases:
  - id: c-1
    date: "2024-02-14"
    time: "08:30"
    procedure: Total knee arthroplasty
    duration_minutes: 120
    status: scheduled
    category: surgery
    patient_name: Maria Lopez
    surgeon: Dr. Chen
    room: OR 3
  - date: "2024-02-14"
    time: "13:00"
    title: Post-op review
    status: completed
    category: consultation
`

func TestCaseFileLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.yaml")
	require.NoError(t, os.WriteFile(path, []byte(casesYAML), 0o600))

	recs, err := CaseFile{Path: path}.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "c-1", recs[0].ID)
	assert.NotEmpty(t, recs[1].ID)
	assert.Equal(t, "Maria Lopez", recs[0].PatientName)

	events, err := Convert(recs)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Total knee arthroplasty", events[0].Title)
	assert.Equal(t, calgrid.Date{Year: 2024, Month: 2, Day: 14}, events[0].Date)
	assert.Equal(t, calgrid.CategoryConsultation, events[1].Category)
	assert.Equal(t, calgrid.StatusCompleted, events[1].Status)
}

func TestDecodeCasesJSONList(t *testing.T) {
	recs, err := DecodeCases([]byte(`[{"id":"j1","date":"2024-03-01","title":"Consult","status":"in_progress"}]`))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "in_progress", recs[0].Status)
}

func TestDecodeCasesRejectsGarbage(t *testing.T) {
	_, err := DecodeCases([]byte("cases: [unterminated"))
	assert.Error(t, err)
}

func TestCaseFileMissing(t *testing.T) {
	_, err := CaseFile{Path: filepath.Join(t.TempDir(), "none.yaml")}.Load(context.Background())
	assert.Error(t, err)
}

func TestToEventDefaultsAndRejections(t *testing.T) {
	ev, err := ToEvent(model.CaseRecord{ID: "a", Date: "2024-01-05", Status: "cancelled", Category: "lab"})
	require.NoError(t, err)
	assert.Equal(t, calgrid.StatusScheduled, ev.Status)
	assert.Equal(t, calgrid.CategoryOther, ev.Category)

	bad := []model.CaseRecord{
		{ID: "b", Date: "2024/13/40"},
		{ID: "c", Date: "2024-02-30"},
		{ID: "d", Date: "2024-02-10", Time: "25:99"},
		{ID: "e", Date: "2024-02-10", DurationMinutes: -5},
	}
	for _, rec := range bad {
		_, err := ToEvent(rec)
		assert.ErrorIs(t, err, calgrid.ErrInvalidArgument, rec.ID)
	}
}

func TestConvertKeepsValidRecords(t *testing.T) {
	recs := []model.CaseRecord{
		{ID: "1", Date: "2024-02-01"},
		{ID: "2", Date: "2024/02/01"},
		{ID: "3", Date: "2024-02-02"},
	}
	events, err := Convert(recs)
	assert.ErrorIs(t, err, calgrid.ErrInvalidArgument)
	require.Len(t, events, 2)
	assert.Equal(t, "1", events[0].ID)
	assert.Equal(t, "3", events[1].ID)
}

func TestFromOccurrences(t *testing.T) {
	now := time.Date(2024, 2, 14, 10, 0, 0, 0, time.UTC)
	occs := []model.Occurrence{
		{UID: "done", InstanceKey: "k1", Summary: "Early case", Start: now.Add(-3 * time.Hour), End: now.Add(-time.Hour)},
		{UID: "running", InstanceKey: "k2", Summary: "Current case", Start: now.Add(-30 * time.Minute), End: now.Add(time.Hour), Location: "OR 1"},
		{UID: "later", InstanceKey: "k3", Summary: "Clinic day", AllDay: true,
			Start: time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 2, 21, 0, 0, 0, 0, time.UTC)},
	}

	recs := FromOccurrences(occs, calgrid.CategorySurgery, now)
	require.Len(t, recs, 3)

	assert.Equal(t, "completed", recs[0].Status)
	assert.Equal(t, "07:00", recs[0].Time)
	assert.Equal(t, 120, recs[0].DurationMinutes)

	assert.Equal(t, "in_progress", recs[1].Status)
	assert.Equal(t, "OR 1", recs[1].Room)

	assert.Equal(t, "scheduled", recs[2].Status)
	assert.Equal(t, "", recs[2].Time)
	assert.Equal(t, "2024-02-20", recs[2].Date)
	assert.Equal(t, 1440, recs[2].DurationMinutes)

	events, err := Convert(recs)
	require.NoError(t, err)
	assert.Len(t, events, 3)
	for _, ev := range events {
		assert.Equal(t, calgrid.CategorySurgery, ev.Category)
	}
}

func TestLoaderFunc(t *testing.T) {
	var l Loader = LoaderFunc(func(context.Context) ([]model.CaseRecord, error) {
		return []model.CaseRecord{{ID: "x"}}, nil
	})
	recs, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestICSFeedLoad(t *testing.T) {
	body := strings.ReplaceAll(`BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//surgcal//EN
BEGIN:VEVENT
UID:weekly
DTSTAMP:20240101T000000Z
DTSTART:20240101T090000Z
DTEND:20240101T093000Z
RRULE:FREQ=WEEKLY
SUMMARY:Tumor board
END:VEVENT
END:VCALENDAR
`, "\n", "\r\n")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	feed := ICSFeed{
		Source:       ics.Source{ID: "board", URL: srv.URL},
		Category:     calgrid.CategoryConsultation,
		Fetcher:      ics.NewFetcher(t.TempDir()),
		Location:     time.UTC,
		WindowMonths: 0,
		Now:          func() time.Time { return time.Date(2024, 2, 14, 12, 0, 0, 0, time.UTC) },
	}
	recs, err := feed.Load(context.Background())
	require.NoError(t, err)

	// Mondays in February 2024; the window ends at March 1.
	var dates []string
	for _, r := range recs {
		dates = append(dates, r.Date)
		assert.Equal(t, "09:00", r.Time)
		assert.Equal(t, 30, r.DurationMinutes)
	}
	assert.Equal(t, []string{"2024-02-05", "2024-02-12", "2024-02-19", "2024-02-26"}, dates)
	assert.Equal(t, "completed", recs[0].Status)
	assert.Equal(t, "scheduled", recs[3].Status)
}
