// Package poller evaluates calendar-triggered rules on a fixed interval.
//
// Each cycle lists the enabled calendar rules; when there are none no
// calendar query is made. Otherwise the upcoming events and the current
// meeting are fetched once and shared by every rule in the cycle.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/remoteflow/remoteflow/internal/actions"
	"github.com/remoteflow/remoteflow/internal/rules"
	"github.com/remoteflow/remoteflow/internal/schema"
)

const (
	DefaultInterval       = 5 * time.Minute
	DefaultStartLookahead = 5 * time.Minute
	DefaultEndThreshold   = 2 * time.Minute
)

// RuleLister is the read side of the rule store.
type RuleLister interface {
	List() ([]rules.Rule, error)
}

// Executor runs a rule's actions.
type Executor interface {
	Execute(ctx context.Context, rule rules.Rule, event *schema.CalendarEvent) actions.Report
}

// Config tunes the poll loop. Zero fields take the defaults.
type Config struct {
	Interval time.Duration
	// StartLookahead is the window passed to Calendar.UpcomingEvents.
	StartLookahead time.Duration
	// EndThreshold fires meeting_end when the current meeting's remaining
	// time is in (0, EndThreshold].
	EndThreshold time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.StartLookahead <= 0 {
		c.StartLookahead = DefaultStartLookahead
	}
	if c.EndThreshold <= 0 {
		c.EndThreshold = DefaultEndThreshold
	}
	return c
}

// Service runs the calendar poll loop.
type Service struct {
	rules    RuleLister
	calendar schema.Calendar
	exec     Executor
	cfg      Config
	now      func() time.Time
}

// NewService creates a poller. calendar must not be nil; the engine only
// builds a poller when a calendar collaborator is configured.
func NewService(rl RuleLister, calendar schema.Calendar, exec Executor, cfg Config) *Service {
	return &Service{
		rules:    rl,
		calendar: calendar,
		exec:     exec,
		cfg:      cfg.withDefaults(),
		now:      time.Now,
	}
}

// Interval returns the effective poll interval.
func (s *Service) Interval() time.Duration { return s.cfg.Interval }

// Start runs the poll loop until ctx is cancelled. The first cycle runs
// one interval after Start.
func (s *Service) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	slog.Info("poller: started", "interval", s.cfg.Interval)

	for {
		select {
		case <-ticker.C:
			s.safePoll(ctx)
		case <-ctx.Done():
			slog.Info("poller: stopped")
			return ctx.Err()
		}
	}
}

// safePoll runs one cycle and keeps the loop alive whatever happens in it.
func (s *Service) safePoll(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("poller: cycle panicked", "panic", r)
		}
	}()
	if _, err := s.Poll(ctx); err != nil {
		slog.Error("poller: cycle failed", "err", err)
	}
}

// Poll runs a single evaluation cycle and returns how many rules fired.
// Calendar query failures are logged and treated as "no events" so the
// other query's rules still run; only a rule listing failure is returned.
func (s *Service) Poll(ctx context.Context) (int, error) {
	all, err := s.rules.List()
	if err != nil {
		return 0, fmt.Errorf("list rules: %w", err)
	}

	var active []rules.Rule
	for _, r := range all {
		if r.Enabled && r.IsCalendarTriggered() {
			active = append(active, r)
		}
	}
	if len(active) == 0 {
		return 0, nil
	}

	upcoming, err := s.calendar.UpcomingEvents(ctx, s.cfg.StartLookahead)
	if err != nil {
		slog.Error("poller: upcoming events query failed", "err", err)
		upcoming = nil
	}
	current, err := s.calendar.CurrentMeeting(ctx)
	if err != nil {
		slog.Error("poller: current meeting query failed", "err", err)
		current = nil
	}

	next := earliest(upcoming)
	now := s.now()
	fired := 0

	// Stopping the loop must not cut short an action list already started.
	actx := context.WithoutCancel(ctx)

	for _, rule := range active {
		switch rule.TriggerConfig.CalendarEventType {
		case rules.MeetingStart:
			if next == nil {
				continue
			}
			slog.Info("poller: meeting starting", "rule", rule.ID, "event", next.Title)
			s.exec.Execute(actx, rule, next)
			fired++

		case rules.MeetingEnd:
			if current == nil {
				continue
			}
			remaining := current.Remaining(now)
			if remaining <= 0 || remaining > s.cfg.EndThreshold {
				continue
			}
			slog.Info("poller: meeting ending", "rule", rule.ID, "event", current.Title, "remaining", remaining)
			s.exec.Execute(actx, rule, nil)
			fired++

		default:
			slog.Debug("poller: calendar event type not evaluated",
				"rule", rule.ID, "type", rule.TriggerConfig.CalendarEventType)
		}
	}
	return fired, nil
}

// earliest returns a copy of the event with the smallest start time.
func earliest(events []schema.CalendarEvent) *schema.CalendarEvent {
	if len(events) == 0 {
		return nil
	}
	first := events[0]
	for _, e := range events[1:] {
		if e.Start.Before(first.Start) {
			first = e
		}
	}
	return &first
}
