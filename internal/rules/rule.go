// Package rules defines automation rules and persists them in a single JSON
// document.
//
// Document layout (~/.remoteflow/automation-rules.json):
//
//	{ "rules": [ { "id":"…", "name":"…", "trigger":"time",
//	    "triggerConfig":{"time":"0 9 * * 1-5"},
//	    "actions":[ {"type":"slack_status","config":{"text":"…","emoji":":coffee:"}} ],
//	    "enabled":true } ] }
package rules

import (
	"errors"
	"fmt"
	"strings"

	robfigcron "github.com/robfig/cron/v3"
)

var (
	ErrInvalidRule        = errors.New("invalid rule")
	ErrDuplicateRule      = errors.New("duplicate rule id")
	ErrUnsupportedTrigger = errors.New("unsupported trigger")
	ErrRuleNotFound       = errors.New("rule not found")
)

// TriggerKind selects which subsystem fires a rule.
type TriggerKind string

const (
	TriggerTime     TriggerKind = "time"
	TriggerCalendar TriggerKind = "calendar"
	TriggerManual   TriggerKind = "manual"
)

// CalendarEventType selects which calendar condition fires a calendar rule.
type CalendarEventType string

const (
	MeetingStart CalendarEventType = "meeting_start"
	MeetingEnd   CalendarEventType = "meeting_end"
	// WorkHours is reserved. Rules using it are rejected by Validate.
	WorkHours CalendarEventType = "work_hours"
)

// TriggerConfig carries the payload for the rule's trigger kind.
// Time is used by time rules, CalendarEventType by calendar rules; manual
// rules leave both empty.
type TriggerConfig struct {
	Time              string            `json:"time,omitempty" yaml:"time,omitempty"`
	CalendarEventType CalendarEventType `json:"calendarEventType,omitempty" yaml:"calendarEventType,omitempty"`
}

// Rule is a persisted automation definition.
type Rule struct {
	ID            string        `json:"id" yaml:"id,omitempty"`
	Name          string        `json:"name" yaml:"name"`
	Trigger       TriggerKind   `json:"trigger" yaml:"trigger"`
	TriggerConfig TriggerConfig `json:"triggerConfig" yaml:"triggerConfig,omitempty"`
	Actions       []Action      `json:"actions" yaml:"actions"`
	Enabled       bool          `json:"enabled" yaml:"enabled"`
}

// IsTimeTriggered reports whether the rule carries a cron schedule.
func (r Rule) IsTimeTriggered() bool {
	return r.Trigger == TriggerTime && r.TriggerConfig.Time != ""
}

// IsCalendarTriggered reports whether the rule is owned by the calendar poller.
func (r Rule) IsCalendarTriggered() bool {
	return r.Trigger == TriggerCalendar
}

// Validate checks the trigger definition and every action's required fields.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRule)
	}

	switch r.Trigger {
	case TriggerTime:
		if r.TriggerConfig.Time == "" {
			return fmt.Errorf("%w: time trigger requires a cron expression", ErrInvalidRule)
		}
		if _, err := ParseSchedule(r.TriggerConfig.Time); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRule, err)
		}
	case TriggerCalendar:
		switch r.TriggerConfig.CalendarEventType {
		case MeetingStart, MeetingEnd:
		case WorkHours:
			return fmt.Errorf("%w: calendar event type %q is not implemented", ErrUnsupportedTrigger, WorkHours)
		case "":
			return fmt.Errorf("%w: calendar trigger requires calendarEventType", ErrInvalidRule)
		default:
			return fmt.Errorf("%w: unknown calendar event type %q", ErrInvalidRule, r.TriggerConfig.CalendarEventType)
		}
	case TriggerManual:
	default:
		return fmt.Errorf("%w: unknown trigger %q", ErrInvalidRule, r.Trigger)
	}

	for i, a := range r.Actions {
		if a.Step == nil {
			return fmt.Errorf("%w: action %d is empty", ErrInvalidRule, i)
		}
		if err := a.validate(); err != nil {
			return fmt.Errorf("%w: action %d (%s): %v", ErrInvalidRule, i, a.Type(), err)
		}
	}
	return nil
}

var scheduleParser = robfigcron.NewParser(
	robfigcron.Minute | robfigcron.Hour | robfigcron.Dom | robfigcron.Month | robfigcron.Dow,
)

// ParseSchedule parses a standard 5-field cron expression
// (minute, hour, day-of-month, month, day-of-week).
func ParseSchedule(expr string) (robfigcron.Schedule, error) {
	sched, err := scheduleParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return sched, nil
}
