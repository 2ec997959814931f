// Package calendar provides a schema.Calendar backed by a local YAML (or
// JSON) events file. The file is re-read on every query so edits take
// effect on the next poll.
//
//	events:
//	  - title: Planning
//	    start: "2026-10-16T14:00:00Z"
//	    end: "2026-10-16T15:00:00Z"
//	    meetingUrl: https://meet.google.com/abc-defg-hij
//	  - title: Standup
//	    daily: "09:30-09:45"
//	    days: [mon, tue, wed, thu, fri]
//	    meetingUrl: https://acme.zoom.us/j/123
package calendar

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/remoteflow/remoteflow/internal/schema"
)

type fileEvent struct {
	ID         string `yaml:"id"`
	Title      string `yaml:"title"`
	Start      string `yaml:"start"` // RFC 3339
	End        string `yaml:"end"`
	MeetingURL string `yaml:"meetingUrl"`
	// Daily is "HH:MM-HH:MM" in the calendar's location. It replaces
	// Start and End.
	Daily string   `yaml:"daily"`
	Days  []string `yaml:"days"`
}

type fileDoc struct {
	Events []fileEvent `yaml:"events"`
}

// File is a schema.Calendar reading path.
type File struct {
	path string
	loc  *time.Location
	now  func() time.Time
}

// NewFile returns a calendar over path. Daily events are placed in loc
// (time.Local when nil).
func NewFile(path string, loc *time.Location) *File {
	if loc == nil {
		loc = time.Local
	}
	return &File{path: path, loc: loc, now: time.Now}
}

// UpcomingEvents returns events starting within [now, now+lookahead],
// earliest first.
func (f *File) UpcomingEvents(_ context.Context, lookahead time.Duration) ([]schema.CalendarEvent, error) {
	now := f.now()
	events, err := f.expand(now)
	if err != nil {
		return nil, err
	}
	var out []schema.CalendarEvent
	for _, e := range events {
		if !e.Start.Before(now) && !e.Start.After(now.Add(lookahead)) {
			out = append(out, e)
		}
	}
	return out, nil
}

// CurrentMeeting returns the in-progress event that started first, or nil.
func (f *File) CurrentMeeting(context.Context) (*schema.CalendarEvent, error) {
	now := f.now()
	events, err := f.expand(now)
	if err != nil {
		return nil, err
	}
	for _, e := range events {
		if !e.Start.After(now) && now.Before(e.End) {
			return &e, nil
		}
	}
	return nil, nil
}

// TodayEvents returns the events starting on the current day in the
// calendar's location, earliest first.
func (f *File) TodayEvents(context.Context) ([]schema.CalendarEvent, error) {
	now := f.now().In(f.loc)
	events, err := f.expand(now)
	if err != nil {
		return nil, err
	}
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, f.loc)
	next := day.AddDate(0, 0, 1)
	var out []schema.CalendarEvent
	for _, e := range events {
		if !e.Start.Before(day) && e.Start.Before(next) {
			out = append(out, e)
		}
	}
	return out, nil
}

// expand loads the file and materialises daily events for yesterday,
// today and tomorrow. The result is sorted by start time.
func (f *File) expand(now time.Time) ([]schema.CalendarEvent, error) {
	doc, err := f.load()
	if err != nil {
		return nil, err
	}

	var out []schema.CalendarEvent
	local := now.In(f.loc)
	for i, fe := range doc.Events {
		id := fe.ID
		if id == "" {
			id = fmt.Sprintf("event-%d", i)
		}
		if fe.Daily == "" {
			start, err := time.Parse(time.RFC3339, fe.Start)
			if err != nil {
				return nil, fmt.Errorf("calendar: event %q start: %w", fe.Title, err)
			}
			end, err := time.Parse(time.RFC3339, fe.End)
			if err != nil {
				return nil, fmt.Errorf("calendar: event %q end: %w", fe.Title, err)
			}
			out = append(out, schema.CalendarEvent{
				ID: id, Title: fe.Title, Start: start, End: end, MeetingURL: fe.MeetingURL,
			})
			continue
		}

		from, to, err := parseSpan(fe.Daily)
		if err != nil {
			return nil, fmt.Errorf("calendar: event %q: %w", fe.Title, err)
		}
		for d := -1; d <= 1; d++ {
			day := time.Date(local.Year(), local.Month(), local.Day()+d, 0, 0, 0, 0, f.loc)
			if !onDay(fe.Days, day.Weekday()) {
				continue
			}
			out = append(out, schema.CalendarEvent{
				ID:         fmt.Sprintf("%s@%s", id, day.Format("2006-01-02")),
				Title:      fe.Title,
				Start:      wallClock(day, from),
				End:        wallClock(day, to),
				MeetingURL: fe.MeetingURL,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (f *File) load() (fileDoc, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return fileDoc{}, nil
	}
	if err != nil {
		return fileDoc{}, fmt.Errorf("calendar: read %s: %w", f.path, err)
	}
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fileDoc{}, fmt.Errorf("calendar: parse %s: %w", f.path, err)
	}
	return doc, nil
}

// parseSpan parses "HH:MM-HH:MM" into offsets from midnight.
func parseSpan(s string) (time.Duration, time.Duration, error) {
	startS, endS, ok := strings.Cut(s, "-")
	if !ok {
		return 0, 0, fmt.Errorf("daily %q: want HH:MM-HH:MM", s)
	}
	start, err := time.Parse("15:04", strings.TrimSpace(startS))
	if err != nil {
		return 0, 0, fmt.Errorf("daily %q: %w", s, err)
	}
	end, err := time.Parse("15:04", strings.TrimSpace(endS))
	if err != nil {
		return 0, 0, fmt.Errorf("daily %q: %w", s, err)
	}
	from := time.Duration(start.Hour())*time.Hour + time.Duration(start.Minute())*time.Minute
	to := time.Duration(end.Hour())*time.Hour + time.Duration(end.Minute())*time.Minute
	if to <= from {
		return 0, 0, fmt.Errorf("daily %q: end must be after start", s)
	}
	return from, to, nil
}

// wallClock places a midnight offset on day's wall clock, so a "09:30"
// event stays at 09:30 on days with a DST transition.
func wallClock(day time.Time, off time.Duration) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, int(off/time.Minute), 0, 0, day.Location())
}

func onDay(days []string, wd time.Weekday) bool {
	if len(days) == 0 {
		return true
	}
	name := strings.ToLower(wd.String()[:3])
	for _, d := range days {
		if strings.ToLower(d) == name {
			return true
		}
	}
	return false
}
