package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixture = strings.ReplaceAll(`BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//surgcal//EN
BEGIN:VEVENT
UID:single-1
DTSTAMP:20240101T000000Z
DTSTART:20240214T083000Z
DTEND:20240214T100000Z
SUMMARY:Knee arthroscopy
LOCATION:OR 2
END:VEVENT
BEGIN:VEVENT
UID:weekly-1
DTSTAMP:20240101T000000Z
DTSTART:20240205T130000Z
DTEND:20240205T140000Z
RRULE:FREQ=WEEKLY;COUNT=4
EXDATE:20240212T130000Z
SUMMARY:Pre-op clinic
END:VEVENT
BEGIN:VEVENT
UID:weekly-1
DTSTAMP:20240101T000000Z
RECURRENCE-ID:20240219T130000Z
DTSTART:20240219T150000Z
DTEND:20240219T160000Z
SUMMARY:Pre-op clinic (moved)
END:VEVENT
BEGIN:VEVENT
UID:allday-1
DTSTAMP:20240101T000000Z
DTSTART;VALUE=DATE:20240220
DTEND;VALUE=DATE:20240221
SUMMARY:OR maintenance
END:VEVENT
BEGIN:VEVENT
UID:cancel-1
DTSTAMP:20240101T000000Z
DTSTART:20240222T090000Z
DTEND:20240222T100000Z
STATUS:CANCELLED
SUMMARY:Cancelled case
END:VEVENT
END:VCALENDAR
`, "\n", "\r\n")

func TestParse(t *testing.T) {
	events, err := Parse(Source{ID: "or"}, []byte(fixture))
	require.NoError(t, err)
	require.Len(t, events, 5)

	assert.Equal(t, "single-1", events[0].UID)
	assert.Equal(t, "OR 2", events[0].Location)
	assert.False(t, events[0].AllDay)

	assert.Equal(t, "FREQ=WEEKLY;COUNT=4", events[1].RawRRule)
	require.Len(t, events[1].ExDates, 1)

	assert.True(t, events[2].IsOverride())
	assert.True(t, events[3].AllDay)
	assert.True(t, events[4].Cancelled)
}

func TestParseRejectsEmpty(t *testing.T) {
	_, err := Parse(Source{ID: "or"}, nil)
	assert.Error(t, err)
}

func TestExpand(t *testing.T) {
	events, err := Parse(Source{ID: "or"}, []byte(fixture))
	require.NoError(t, err)

	res, err := Expand(events, ExpandConfig{
		DisplayLocation: time.UTC,
		RangeStart:      time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Empty(t, res.Truncated)

	var summaries []string
	for _, occ := range res.Occurrences {
		assert.Equal(t, "or", occ.SourceID)
		summaries = append(summaries, occ.Summary+"@"+occ.Start.Format("01-02 15:04"))
	}
	assert.Equal(t, []string{
		"Knee arthroscopy@02-14 08:30",
		"Pre-op clinic@02-05 13:00",
		"Pre-op clinic (moved)@02-19 15:00",
		"Pre-op clinic@02-26 13:00",
		"OR maintenance@02-20 00:00",
	}, summaries)
}

func TestExpandCapsOccurrences(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	ev := ParsedEvent{
		Source:   Source{ID: "x"},
		UID:      "daily",
		Start:    start,
		End:      start.Add(time.Hour),
		RawRRule: "FREQ=DAILY",
	}
	res, err := Expand([]ParsedEvent{ev}, ExpandConfig{
		DisplayLocation:        time.UTC,
		RangeStart:             start,
		RangeEnd:               start.AddDate(0, 1, 0),
		MaxOccurrencesPerEvent: 10,
	})
	require.NoError(t, err)
	assert.Len(t, res.Occurrences, 10)
	assert.Equal(t, []string{"daily"}, res.Truncated)
}

func TestExpandRejectsInvertedRange(t *testing.T) {
	now := time.Now()
	_, err := Expand(nil, ExpandConfig{RangeStart: now, RangeEnd: now.Add(-time.Hour)})
	assert.Error(t, err)
}

func TestFetchUsesConditionalCache(t *testing.T) {
	var mode atomic.Int32 // 0 = serve, 1 = fail
	var conditional atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if mode.Load() == 1 {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		if r.Header.Get("If-None-Match") == `"v1"` {
			conditional.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(fixture))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	src := Source{ID: "or", URL: srv.URL + "/feed.ics?token=secret"}
	ctx := context.Background()

	first, err := f.Fetch(ctx, src)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, fixture, string(first.Body))

	second, err := f.Fetch(ctx, src)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, int32(1), conditional.Load())
	assert.Equal(t, first.Body, second.Body)

	mode.Store(1)
	third, err := f.Fetch(ctx, src)
	require.NoError(t, err)
	assert.True(t, third.FromCache)
	assert.Equal(t, first.Body, third.Body)
}

func TestFetchFailsWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewFetcher(t.TempDir()).Fetch(context.Background(), Source{ID: "x", URL: srv.URL})
	assert.Error(t, err)

	_, err = NewFetcher(t.TempDir()).Fetch(context.Background(), Source{ID: "x"})
	assert.Error(t, err)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://cal.example.com/...(redacted)", redactURL("https://cal.example.com/private/abc.ics?token=1"))
	assert.Equal(t, "ics://...(redacted)", redactURL("not a url"))
}
