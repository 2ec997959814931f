// Package actions executes a rule's action list against the injected
// collaborators.
//
// Every action runs in order and fails on its own: an error or panic in one
// action is recorded in the Report and the next action still runs. Execute
// never returns an error.
//
// A collaborator that was not supplied turns its actions into silent
// no-ops (OutcomeSkipped). This is the optional-capability policy: a
// slack_status action on an engine without Slack credentials is not a
// failure.
package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/remoteflow/remoteflow/internal/rules"
	"github.com/remoteflow/remoteflow/internal/schema"
)

// Capabilities holds the optional collaborators. Any field may be nil.
type Capabilities struct {
	Status   schema.StatusUpdater
	Meetings schema.MeetingJoiner
	Standup  schema.StandupGenerator
	Timer    schema.TimeTracker
}

// Outcome is the result of one action.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Result describes one executed action.
type Result struct {
	Index    int              `json:"index"`
	Type     rules.ActionType `json:"type"`
	Outcome  Outcome          `json:"outcome"`
	Reason   string           `json:"reason,omitempty"`
	Error    string           `json:"error,omitempty"`
	Duration time.Duration    `json:"durationNs"`
}

// Report describes one execution of a rule's action list.
type Report struct {
	RuleID    string                `json:"ruleId"`
	RuleName  string                `json:"ruleName"`
	Trigger   rules.TriggerKind     `json:"trigger"`
	Event     *schema.CalendarEvent `json:"event,omitempty"`
	StartedAt time.Time             `json:"startedAt"`
	Results   []Result              `json:"results"`
}

// Failed returns the number of failed actions.
func (r Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == OutcomeFailed {
			n++
		}
	}
	return n
}

// Sink receives a Report after every execution.
type Sink interface {
	Publish(report Report)
}

// skip marks an action that did not run because a precondition is absent.
type skip struct{ reason string }

func (s skip) Error() string { return s.reason }

// Executor runs action lists.
type Executor struct {
	caps    Capabilities
	timeout time.Duration
	sinks   []Sink
	metrics *Metrics
}

// Option configures an Executor.
type Option func(*Executor)

// WithTimeout bounds each action's collaborator call. Zero disables the bound.
func WithTimeout(d time.Duration) Option { return func(e *Executor) { e.timeout = d } }

// WithSink adds a Report subscriber.
func WithSink(s Sink) Option { return func(e *Executor) { e.sinks = append(e.sinks, s) } }

// WithMetrics records executions in m.
func WithMetrics(m *Metrics) Option { return func(e *Executor) { e.metrics = m } }

// NewExecutor creates an Executor over caps.
func NewExecutor(caps Capabilities, opts ...Option) *Executor {
	e := &Executor{caps: caps, timeout: time.Minute}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Capabilities returns the collaborators the executor was built with.
func (e *Executor) Capabilities() Capabilities { return e.caps }

// Execute runs rule's actions in order. event is the triggering calendar
// event and may be nil.
func (e *Executor) Execute(ctx context.Context, rule rules.Rule, event *schema.CalendarEvent) Report {
	report := Report{
		RuleID:    rule.ID,
		RuleName:  rule.Name,
		Trigger:   rule.Trigger,
		Event:     event,
		StartedAt: time.Now(),
		Results:   make([]Result, 0, len(rule.Actions)),
	}
	e.metrics.observeFiring(rule.Trigger)

	for i, action := range rule.Actions {
		res := e.run(ctx, i, action, event)
		report.Results = append(report.Results, res)
		e.metrics.observeAction(res)

		switch res.Outcome {
		case OutcomeFailed:
			slog.Error("actions: action failed",
				"rule", rule.ID, "index", i, "type", res.Type, "err", res.Error)
		case OutcomeSkipped:
			slog.Debug("actions: action skipped",
				"rule", rule.ID, "index", i, "type", res.Type, "reason", res.Reason)
		}
	}

	slog.Info("actions: rule executed",
		"rule", rule.ID, "name", rule.Name, "actions", len(report.Results), "failed", report.Failed())
	for _, s := range e.sinks {
		s.Publish(report)
	}
	return report
}

func (e *Executor) run(ctx context.Context, index int, action rules.Action, event *schema.CalendarEvent) (res Result) {
	res = Result{Index: index}
	if action.Step == nil {
		res.Outcome = OutcomeFailed
		res.Error = "empty action"
		return res
	}
	res.Type = action.Type()

	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		if r := recover(); r != nil {
			res.Outcome = OutcomeFailed
			res.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	actx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	err := e.dispatch(actx, action.Step, event)
	var sk skip
	switch {
	case err == nil:
		res.Outcome = OutcomeOK
	case errors.As(err, &sk):
		res.Outcome = OutcomeSkipped
		res.Reason = sk.reason
	default:
		res.Outcome = OutcomeFailed
		res.Error = err.Error()
	}
	return res
}

func (e *Executor) dispatch(ctx context.Context, step rules.Step, event *schema.CalendarEvent) error {
	switch a := step.(type) {
	case rules.SlackStatus:
		if e.caps.Status == nil {
			return skip{"status collaborator not configured"}
		}
		return e.caps.Status.UpdateStatus(ctx, a.Text, a.Emoji, a.ExpiresAt())

	case rules.JoinMeeting:
		if e.caps.Meetings == nil {
			return skip{"meeting joiner not configured"}
		}
		if event == nil || event.MeetingURL == "" {
			return skip{"no triggering event with a meeting url"}
		}
		return e.caps.Meetings.JoinMeeting(ctx, *event)

	case rules.PostStandup:
		if e.caps.Standup == nil || e.caps.Status == nil {
			return skip{"standup generator or status collaborator not configured"}
		}
		data, err := e.caps.Standup.Generate(ctx)
		if err != nil {
			return fmt.Errorf("generate standup: %w", err)
		}
		return e.caps.Status.PostMessage(ctx, a.Channel, e.caps.Standup.FormatForChat(data))

	case rules.StartTimer:
		if e.caps.Timer == nil {
			return skip{"time tracker not configured"}
		}
		_, err := e.caps.Timer.StartTimer(ctx, a.Activity, a.Project)
		return err

	case rules.StopTimer:
		if e.caps.Timer == nil {
			return skip{"time tracker not configured"}
		}
		_, err := e.caps.Timer.StopTimer(ctx)
		return err

	default:
		return fmt.Errorf("unsupported action %T", step)
	}
}
