package schema

import "time"

// CalendarEvent is a single calendar entry as seen by the automation engine.
type CalendarEvent struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	MeetingURL string    `json:"meetingUrl,omitempty"`
}

// Remaining returns how long the event still runs after now.
// The result is zero or negative once the event has ended.
func (e CalendarEvent) Remaining(now time.Time) time.Duration {
	return e.End.Sub(now)
}
