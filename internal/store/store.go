// Package store keeps the latest validated events of every configured
// source and refreshes them on a cron schedule.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"surgcal/internal/calgrid"
	appLog "surgcal/internal/log"
	"surgcal/internal/source"
)

// Named pairs a loader with the ID it is logged and merged under.
type Named struct {
	ID     string
	Loader source.Loader
}

// Store holds one snapshot per source. Snapshots are replaced whole, never
// mutated, so readers can hold on to a returned slice.
type Store struct {
	loaders []Named

	mu        sync.RWMutex
	bySource  map[string][]calgrid.CalendarEvent
	merged    []calgrid.CalendarEvent
	updatedAt time.Time
}

// New creates an empty store over the given sources. Merge order follows
// the order of loaders.
func New(loaders []Named) *Store {
	return &Store{
		loaders:  loaders,
		bySource: make(map[string][]calgrid.CalendarEvent),
		merged:   []calgrid.CalendarEvent{},
	}
}

// Refresh reloads every source. A source that fails to load keeps its
// previous snapshot; records that fail validation are dropped individually.
// The returned error joins all load failures.
func (s *Store) Refresh(ctx context.Context) error {
	var errs []error
	fresh := make(map[string][]calgrid.CalendarEvent, len(s.loaders))

	for _, l := range s.loaders {
		recs, err := l.Loader.Load(ctx)
		if err != nil {
			appLog.Error("source load failed; keeping previous snapshot", err, "source", l.ID)
			errs = append(errs, fmt.Errorf("source %s: %w", l.ID, err))
			continue
		}
		events, cerr := source.Convert(recs)
		if cerr != nil {
			appLog.Warn("source had invalid records", "source", l.ID, "kept", len(events), "total", len(recs))
		}
		fresh[l.ID] = events
	}

	s.mu.Lock()
	for id, events := range fresh {
		s.bySource[id] = events
	}
	merged := make([]calgrid.CalendarEvent, 0)
	for _, l := range s.loaders {
		merged = append(merged, s.bySource[l.ID]...)
	}
	s.merged = merged
	s.updatedAt = time.Now()
	s.mu.Unlock()

	appLog.Info("refresh completed", "sources", len(s.loaders), "failed", len(errs), "event_count", len(merged))
	return errors.Join(errs...)
}

// Events returns the merged snapshot. Callers must not modify it.
func (s *Store) Events() []calgrid.CalendarEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.merged
}

// UpdatedAt is the time of the last Refresh.
func (s *Store) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// Schedule refreshes the store on the cron spec until ctx is done. The
// returned channel closes once the scheduler has stopped and any running
// refresh has finished.
func (s *Store) Schedule(ctx context.Context, spec string) (<-chan struct{}, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if err := s.Refresh(ctx); err != nil {
			appLog.Error("scheduled refresh had failures", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("store: bad refresh schedule %q: %w", spec, err)
	}
	c.Start()
	appLog.Info("refresh scheduler started", "schedule", spec)

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		close(done)
	}()
	return done, nil
}
