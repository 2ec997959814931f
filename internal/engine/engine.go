// Package engine owns the automation lifecycle: it keeps the cron job set in
// step with the rule store and runs the calendar poll loop.
//
// The engine is either stopped or running. While stopped, rule mutations
// only touch the store; Start reconciles the job set from whatever the
// store holds. While running, every mutation updates the job set before
// returning.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/remoteflow/remoteflow/internal/actions"
	"github.com/remoteflow/remoteflow/internal/cron"
	"github.com/remoteflow/remoteflow/internal/poller"
	"github.com/remoteflow/remoteflow/internal/rules"
	"github.com/remoteflow/remoteflow/internal/schema"
)

// ErrRuleDisabled is returned by RunRule for a disabled rule unless forced.
var ErrRuleDisabled = errors.New("rule is disabled")

// Option configures an Engine.
type Option func(*options)

type options struct {
	calendar schema.Calendar
	loc      *time.Location
	poll     poller.Config
}

// WithCalendar enables the calendar poll loop.
func WithCalendar(c schema.Calendar) Option { return func(o *options) { o.calendar = c } }

// WithLocation sets the time zone cron expressions are evaluated in.
func WithLocation(loc *time.Location) Option { return func(o *options) { o.loc = loc } }

// WithPollConfig overrides the poll interval and calendar windows.
func WithPollConfig(cfg poller.Config) Option { return func(o *options) { o.poll = cfg } }

// Engine coordinates the rule store, the time scheduler, the calendar
// poller and the action executor.
type Engine struct {
	store     *rules.Store
	exec      *actions.Executor
	scheduler *cron.Scheduler
	poller    *poller.Service // nil without a calendar

	mu         sync.Mutex
	running    bool
	cancelPoll context.CancelFunc
}

// New creates a stopped engine.
func New(store *rules.Store, exec *actions.Executor, opts ...Option) *Engine {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	e := &Engine{store: store, exec: exec}
	e.scheduler = cron.NewScheduler(e.fire, o.loc)
	if o.calendar != nil {
		e.poller = poller.NewService(store, o.calendar, exec, o.poll)
	}
	return e
}

// fire runs a time-triggered rule. The job's snapshot is checked against
// the store first: another process (the CLI) may have disabled, removed or
// rescheduled the rule since the job was registered. Actions get their own
// context so an in-flight firing is not interrupted by Stop.
func (e *Engine) fire(snapshot rules.Rule) {
	rule, err := e.store.Get(snapshot.ID)
	switch {
	case errors.Is(err, rules.ErrRuleNotFound):
		slog.Info("engine: dropping job for removed rule", "rule", snapshot.ID)
		e.scheduler.Unschedule(snapshot.ID)
		return
	case err != nil:
		slog.Error("engine: skipping firing, rule store unreadable", "rule", snapshot.ID, "err", err)
		return
	case !rule.Enabled || !rule.IsTimeTriggered():
		slog.Info("engine: dropping job for disabled rule", "rule", rule.ID)
		e.scheduler.Unschedule(rule.ID)
		return
	case rule.TriggerConfig.Time != snapshot.TriggerConfig.Time:
		slog.Info("engine: rule schedule changed, rescheduling", "rule", rule.ID, "expr", rule.TriggerConfig.Time)
		if err := e.scheduler.Schedule(rule); err != nil {
			slog.Error("engine: failed to reschedule rule", "rule", rule.ID, "err", err)
		}
		return
	}
	e.exec.Execute(context.Background(), rule, nil)
}

// ─── Lifecycle ─────────────────────────────────────────────────────────────

// Start loads the rules, registers a job for every enabled time rule and
// starts the poll loop when a calendar is configured. Calling Start on a
// running engine is a no-op. A rule whose schedule fails to register is
// logged and skipped; only a store read failure is returned.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return nil
	}

	all, err := e.store.List()
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	for _, r := range all {
		if err := e.scheduler.Schedule(r); err != nil {
			slog.Error("engine: failed to schedule rule", "rule", r.ID, "name", r.Name, "err", err)
		}
	}
	e.scheduler.Start()

	if e.poller != nil {
		pctx, cancel := context.WithCancel(ctx)
		e.cancelPoll = cancel
		go e.poller.Start(pctx) //nolint:errcheck
	}

	e.running = true
	slog.Info("engine: started",
		"rules", len(all),
		"jobs", e.scheduler.Len(),
		"calendar", e.poller != nil,
	)
	return nil
}

// Stop cancels every scheduled job and the poll loop. It does not wait
// for firings already in progress; the returned channel is closed once
// in-flight cron firings have returned.
func (e *Engine) Stop() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		done := make(chan struct{})
		close(done)
		return done
	}

	if e.cancelPoll != nil {
		e.cancelPoll()
		e.cancelPoll = nil
	}
	done := e.scheduler.Stop()
	e.running = false
	slog.Info("engine: stopped")
	return done
}

// Running reports whether the engine is started.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// HasCalendar reports whether the poll loop is configured.
func (e *Engine) HasCalendar() bool { return e.poller != nil }

// Jobs returns the ids of rules with a live cron job, sorted.
func (e *Engine) Jobs() []string { return e.scheduler.IDs() }

// NextRun returns the next firing time of a scheduled rule.
func (e *Engine) NextRun(id string) (time.Time, bool) { return e.scheduler.NextRun(id) }

// ─── Rule operations ───────────────────────────────────────────────────────

// AddRule persists rule and, when running, schedules it.
func (e *Engine) AddRule(rule rules.Rule) (rules.Rule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	added, err := e.store.Add(rule)
	if err != nil {
		return rules.Rule{}, err
	}
	if e.running {
		if err := e.scheduler.Schedule(added); err != nil {
			slog.Error("engine: failed to schedule rule", "rule", added.ID, "err", err)
		}
	}
	slog.Info("engine: rule added", "rule", added.ID, "name", added.Name, "trigger", added.Trigger)
	return added, nil
}

// RemoveRule deletes a rule and its job. A missing id returns false.
func (e *Engine) RemoveRule(id string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	removed, err := e.store.Remove(id)
	if err != nil {
		return false, err
	}
	e.scheduler.Unschedule(id)
	if removed {
		slog.Info("engine: rule removed", "rule", id)
	}
	return removed, nil
}

// EnableRule enables a rule and, when running, schedules it. If the
// schedule cannot be registered the rule is disabled again and the error
// returned. A missing id returns false and no error.
func (e *Engine) EnableRule(id string) (rules.Rule, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rule, ok, err := e.store.Enable(id)
	if err != nil || !ok {
		return rule, ok, err
	}
	if e.running {
		if err := e.scheduler.Schedule(rule); err != nil {
			if _, _, rbErr := e.store.Disable(id); rbErr != nil {
				slog.Error("engine: rollback of enable failed", "rule", id, "err", rbErr)
			}
			return rules.Rule{}, true, fmt.Errorf("schedule rule %s: %w", id, err)
		}
	}
	slog.Info("engine: rule enabled", "rule", id)
	return rule, true, nil
}

// DisableRule disables a rule and drops its job. A missing id returns
// false and no error.
func (e *Engine) DisableRule(id string) (rules.Rule, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rule, ok, err := e.store.Disable(id)
	if err != nil || !ok {
		return rule, ok, err
	}
	e.scheduler.Unschedule(id)
	slog.Info("engine: rule disabled", "rule", id)
	return rule, true, nil
}

// ListRules returns every stored rule.
func (e *Engine) ListRules() ([]rules.Rule, error) { return e.store.List() }

// GetRule returns a single rule.
func (e *Engine) GetRule(id string) (rules.Rule, error) { return e.store.Get(id) }

// RunRule executes a rule's actions immediately, regardless of trigger
// kind. Disabled rules are rejected unless force is set.
func (e *Engine) RunRule(ctx context.Context, id string, force bool) (actions.Report, error) {
	rule, err := e.store.Get(id)
	if err != nil {
		return actions.Report{}, err
	}
	if !rule.Enabled && !force {
		return actions.Report{}, fmt.Errorf("%s: %w", id, ErrRuleDisabled)
	}
	slog.Info("engine: running rule", "rule", id, "name", rule.Name, "forced", force)
	return e.exec.Execute(ctx, rule, nil), nil
}
