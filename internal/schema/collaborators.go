// Package schema contains the contracts shared across remoteflow packages.
// Concrete implementations live in their respective packages; this package
// holds the interfaces the automation engine depends on so that the engine
// never imports an integration directly.
package schema

import (
	"context"
	"time"
)

// StatusUpdater sets and clears the user's chat status and posts messages.
// Implemented by integrations/slack.Client.
type StatusUpdater interface {
	// UpdateStatus sets the status text and emoji. A nil expiration keeps
	// the status until it is changed again.
	UpdateStatus(ctx context.Context, text, emoji string, expiration *time.Time) error
	ClearStatus(ctx context.Context) error
	PostMessage(ctx context.Context, channel, text string) error
}

// Calendar answers the two questions the calendar poller asks every cycle.
type Calendar interface {
	// UpcomingEvents returns events starting within lookahead, earliest first.
	UpcomingEvents(ctx context.Context, lookahead time.Duration) ([]CalendarEvent, error)
	// CurrentMeeting returns the meeting in progress, or nil when there is none.
	CurrentMeeting(ctx context.Context) (*CalendarEvent, error)
}

// MeetingJoiner opens a meeting for the user.
// Implemented by meeting.Joiner.
type MeetingJoiner interface {
	JoinMeeting(ctx context.Context, event CalendarEvent) error
}

// StandupGenerator builds the daily standup report.
// Implemented by standup.Generator.
type StandupGenerator interface {
	Generate(ctx context.Context) (StandupData, error)
	FormatForChat(data StandupData) string
}

// TimeTracker records time entries.
// Implemented by timetrack.Tracker.
type TimeTracker interface {
	// StartTimer stops any running entry and starts a new one.
	StartTimer(ctx context.Context, activity, project string) (TimeEntry, error)
	// StopTimer stops the running entry. It returns nil when no timer is running.
	StopTimer(ctx context.Context) (*TimeEntry, error)
}
