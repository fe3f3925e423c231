package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surgcal/internal/calgrid"
	"surgcal/internal/config"
	"surgcal/internal/model"
	"surgcal/internal/source"
	"surgcal/internal/store"
)

func TestBuildLoaders(t *testing.T) {
	conf := config.DefaultConfig()
	conf.CasesFile = "cases.yaml"
	conf.ICSCacheDir = t.TempDir()
	conf.ICS = []config.ICSConfig{
		{URL: "https://example.com/a.ics", ID: "or-a", Category: "surgery"},
		{URL: "https://example.com/b.ics", Name: "clinic"},
		{URL: "https://example.com/c.ics"},
		{ID: "no-url"},
	}

	loaders := buildLoaders(conf, time.UTC)
	require.Len(t, loaders, 4)
	assert.Equal(t, "cases", loaders[0].ID)
	assert.Equal(t, "or-a", loaders[1].ID)
	assert.Equal(t, "clinic", loaders[2].ID)
	assert.Equal(t, "https://example.com/c.ics", loaders[3].ID)

	feed, ok := loaders[1].Loader.(source.ICSFeed)
	require.True(t, ok)
	assert.Equal(t, calgrid.CategorySurgery, feed.Category)
	assert.Equal(t, conf.WindowMonths, feed.WindowMonths)

	feed, ok = loaders[2].Loader.(source.ICSFeed)
	require.True(t, ok)
	assert.Equal(t, calgrid.CategoryOther, feed.Category)
}

func TestRunOnce(t *testing.T) {
	recs := []model.CaseRecord{
		{ID: "1", Date: "2024-02-01", Time: "07:45", Title: "Hip replacement", Room: "OR 1"},
		{ID: "2", Date: "2024-02-20", Title: "Follow-up"},
	}
	st := store.New([]store.Named{{ID: "cases", Loader: source.LoaderFunc(func(context.Context) ([]model.CaseRecord, error) {
		return recs, nil
	})}})
	require.NoError(t, st.Refresh(context.Background()))

	conf := config.DefaultConfig()
	var buf bytes.Buffer
	require.NoError(t, runOnce(&buf, conf, st, time.UTC, "2024-02"))

	out := buf.String()
	assert.Contains(t, out, "February 2024")
	assert.Contains(t, out, "Thursday, February 1 2024")
	assert.Contains(t, out, "1 events")
	assert.Contains(t, out, "Hip replacement")
	assert.NotContains(t, out, "Follow-up")
}

func TestRunOnceRejectsBadMonth(t *testing.T) {
	st := store.New(nil)
	var buf bytes.Buffer
	err := runOnce(&buf, config.DefaultConfig(), st, time.UTC, "2024-13")
	assert.ErrorIs(t, err, calgrid.ErrInvalidArgument)
	assert.Empty(t, buf.String())
}
