// Package cron fires time-triggered automation rules.
//
// Each enabled rule with a cron expression owns exactly one robfig entry,
// keyed by rule id. The map is only mutated through Scheduler methods.
package cron

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	robfigcron "github.com/robfig/cron/v3"

	"github.com/remoteflow/remoteflow/internal/rules"
)

// FireFunc runs a rule's actions when its schedule is due.
// It is called on a robfig worker goroutine, one per firing.
type FireFunc func(rule rules.Rule)

// Scheduler maps rule ids to live cron entries.
type Scheduler struct {
	fire FireFunc
	loc  *time.Location

	mu      sync.Mutex
	robfig  *robfigcron.Cron
	entries map[string]robfigcron.EntryID // rule id → robfig entry
	running bool
}

// NewScheduler creates a Scheduler whose schedules are evaluated in loc
// (time.Local when nil).
func NewScheduler(fire FireFunc, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	logger := slogLogger{}
	return &Scheduler{
		fire: fire,
		loc:  loc,
		robfig: robfigcron.New(
			robfigcron.WithLocation(loc),
			robfigcron.WithLogger(logger),
			robfigcron.WithChain(
				robfigcron.Recover(logger),
				robfigcron.SkipIfStillRunning(logger),
			),
		),
		entries: make(map[string]robfigcron.EntryID),
	}
}

// Schedule registers (or re-registers) the job for rule. Any previous entry
// for the same id is removed first, so calling it repeatedly never
// accumulates jobs.
//
// Rules that are disabled, not time-triggered, or have no expression are
// left unscheduled and Schedule returns nil. A malformed expression is
// returned as an error and leaves the rule unscheduled.
func (s *Scheduler) Schedule(rule rules.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked(rule.ID)

	if !rule.Enabled || !rule.IsTimeTriggered() {
		return nil
	}
	sched, err := rules.ParseSchedule(rule.TriggerConfig.Time)
	if err != nil {
		return fmt.Errorf("schedule rule %s: %w", rule.ID, err)
	}

	ruleCopy := rule
	entryID := s.robfig.Schedule(sched, robfigcron.FuncJob(func() {
		slog.Info("cron: executing rule", "name", ruleCopy.Name, "id", ruleCopy.ID)
		s.fire(ruleCopy)
	}))
	s.entries[rule.ID] = entryID

	slog.Debug("cron: scheduled rule", "id", rule.ID, "expr", rule.TriggerConfig.Time)
	return nil
}

// Unschedule stops and discards the job for id. It reports whether a job
// existed.
func (s *Scheduler) Unschedule(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(id)
}

func (s *Scheduler) cancelLocked(id string) bool {
	eid, ok := s.entries[id]
	if !ok {
		return false
	}
	s.robfig.Remove(eid)
	delete(s.entries, id)
	return true
}

// Scheduled reports whether id currently has a live job.
func (s *Scheduler) Scheduled(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	return ok
}

// Len returns the number of live jobs.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// IDs returns the rule ids with live jobs, sorted.
func (s *Scheduler) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NextRun returns the next firing time for id.
func (s *Scheduler) NextRun(id string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eid, ok := s.entries[id]
	if !ok {
		return time.Time{}, false
	}
	entry := s.robfig.Entry(eid)
	if !entry.Valid() {
		return time.Time{}, false
	}
	return entry.Schedule.Next(time.Now().In(s.loc)), true
}

// Start begins dispatching due jobs. Calling Start on a running scheduler
// is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.robfig.Start()
	s.running = true
}

// Stop halts dispatching and discards every job. Firings already in
// progress are allowed to finish; the returned channel is closed once they
// have.
func (s *Scheduler) Stop() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	done := s.robfig.Stop().Done()
	for id := range s.entries {
		s.cancelLocked(id)
	}
	s.running = false
	return done
}
