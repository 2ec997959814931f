// Package timetrack records work time in a single JSON document:
//
//	{"timeEntries": [...], "currentEntry": {...} | null}
//
// At most one entry runs at a time. Starting a timer stops the running
// one first.
package timetrack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/remoteflow/remoteflow/internal/schema"
	"github.com/remoteflow/remoteflow/internal/shared/fileutil"
)

const dateLayout = "2006-01-02"

type document struct {
	TimeEntries  []schema.TimeEntry `json:"timeEntries"`
	CurrentEntry *schema.TimeEntry  `json:"currentEntry"`
}

// Tracker is a file-backed schema.TimeTracker.
type Tracker struct {
	path  string
	loc   *time.Location
	now   func() time.Time
	newID func() string

	mu sync.Mutex
}

// NewTracker returns a tracker persisting to path. Entry dates and week
// boundaries are computed in loc (time.Local when nil).
func NewTracker(path string, loc *time.Location) *Tracker {
	if loc == nil {
		loc = time.Local
	}
	return &Tracker{path: path, loc: loc, now: time.Now, newID: uuid.NewString}
}

// Path returns the backing file path.
func (t *Tracker) Path() string { return t.path }

// StartTimer stops any running entry and starts a new one.
func (t *Tracker) StartTimer(_ context.Context, activity, project string) (schema.TimeEntry, error) {
	if activity == "" {
		return schema.TimeEntry{}, errors.New("activity is required")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	doc, err := t.loadLocked()
	if err != nil {
		return schema.TimeEntry{}, err
	}
	now := t.now().In(t.loc)
	if doc.CurrentEntry != nil {
		stopped := finish(*doc.CurrentEntry, now)
		doc.TimeEntries = append(doc.TimeEntries, stopped)
		slog.Info("timetrack: timer stopped", "activity", stopped.Activity, "minutes", int(stopped.Duration+0.5))
	}

	entry := schema.TimeEntry{
		ID:        t.newID(),
		Date:      now.Format(dateLayout),
		StartTime: now,
		Activity:  activity,
		Project:   project,
	}
	doc.CurrentEntry = &entry
	if err := t.saveLocked(doc); err != nil {
		return schema.TimeEntry{}, err
	}
	slog.Info("timetrack: timer started", "activity", activity, "project", project)
	return entry, nil
}

// StopTimer closes the running entry and returns it, or nil when no timer
// is running.
func (t *Tracker) StopTimer(context.Context) (*schema.TimeEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	doc, err := t.loadLocked()
	if err != nil {
		return nil, err
	}
	if doc.CurrentEntry == nil {
		slog.Debug("timetrack: no active timer")
		return nil, nil
	}

	stopped := finish(*doc.CurrentEntry, t.now().In(t.loc))
	doc.TimeEntries = append(doc.TimeEntries, stopped)
	doc.CurrentEntry = nil
	if err := t.saveLocked(doc); err != nil {
		return nil, err
	}
	slog.Info("timetrack: timer stopped", "activity", stopped.Activity, "minutes", int(stopped.Duration+0.5))
	return &stopped, nil
}

// CurrentEntry returns the running entry, or nil.
func (t *Tracker) CurrentEntry() (*schema.TimeEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	doc, err := t.loadLocked()
	if err != nil {
		return nil, err
	}
	return doc.CurrentEntry, nil
}

// Entries returns the completed entries for date (YYYY-MM-DD). An empty
// date means today.
func (t *Tracker) Entries(date string) ([]schema.TimeEntry, error) {
	if date == "" {
		date = t.now().In(t.loc).Format(dateLayout)
	}
	return t.filter(func(e schema.TimeEntry) bool { return e.Date == date })
}

// WeeklyEntries returns the completed entries of the current Sunday to
// Saturday week.
func (t *Tracker) WeeklyEntries() ([]schema.TimeEntry, error) {
	from, to := weekBounds(t.now().In(t.loc))
	return t.filter(func(e schema.TimeEntry) bool { return e.Date >= from && e.Date <= to })
}

// TotalToday returns today's tracked minutes.
func (t *Tracker) TotalToday() (float64, error) {
	entries, err := t.Entries("")
	if err != nil {
		return 0, err
	}
	return total(entries), nil
}

// TotalThisWeek returns this week's tracked minutes.
func (t *Tracker) TotalThisWeek() (float64, error) {
	entries, err := t.WeeklyEntries()
	if err != nil {
		return 0, err
	}
	return total(entries), nil
}

func (t *Tracker) filter(keep func(schema.TimeEntry) bool) ([]schema.TimeEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	doc, err := t.loadLocked()
	if err != nil {
		return nil, err
	}
	out := make([]schema.TimeEntry, 0)
	for _, e := range doc.TimeEntries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// finish stamps the end time and the duration in minutes.
func finish(e schema.TimeEntry, end time.Time) schema.TimeEntry {
	e.EndTime = &end
	e.Duration = end.Sub(e.StartTime).Minutes()
	return e
}

func total(entries []schema.TimeEntry) float64 {
	var sum float64
	for _, e := range entries {
		sum += e.Duration
	}
	return sum
}

// weekBounds returns the first and last date of the week containing now,
// weeks starting on Sunday.
func weekBounds(now time.Time) (string, string) {
	start := now.AddDate(0, 0, -int(now.Weekday()))
	end := start.AddDate(0, 0, 6)
	return start.Format(dateLayout), end.Format(dateLayout)
}

// ─── Persistence ───────────────────────────────────────────────────────────

func (t *Tracker) loadLocked() (document, error) {
	data, err := os.ReadFile(t.path)
	if os.IsNotExist(err) || (err == nil && len(data) == 0) {
		return document{}, nil
	}
	if err != nil {
		return document{}, fmt.Errorf("read time entries: %w", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return document{}, fmt.Errorf("parse time entries %s: %w", t.path, err)
	}
	return doc, nil
}

func (t *Tracker) saveLocked(doc document) error {
	if doc.TimeEntries == nil {
		doc.TimeEntries = []schema.TimeEntry{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal time entries: %w", err)
	}
	if err := fileutil.WriteFileAtomic(t.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write time entries: %w", err)
	}
	return nil
}
