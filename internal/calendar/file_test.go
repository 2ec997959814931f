package calendar

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Friday 2026-10-16 09:28 UTC.
var now = time.Date(2026, 10, 16, 9, 28, 0, 0, time.UTC)

const eventsYAML = `
events:
  - title: Standup
    daily: "09:30-09:45"
    days: [mon, tue, wed, thu, fri]
    meetingUrl: https://acme.zoom.us/j/123
  - title: Weekend check-in
    daily: "09:29-09:40"
    days: [sat, sun]
  - title: Planning
    start: "2026-10-16T09:00:00Z"
    end: "2026-10-16T09:29:30Z"
    meetingUrl: https://meet.google.com/abc
`

func newTestFile(t *testing.T, content string) *File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	f := NewFile(path, time.UTC)
	f.now = func() time.Time { return now }
	return f
}

func TestUpcomingEvents(t *testing.T) {
	f := newTestFile(t, eventsYAML)

	events, err := f.UpcomingEvents(context.Background(), 5*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("expected only the weekday standup, got %+v", events)
	}
	ev := events[0]
	if ev.Title != "Standup" || !ev.Start.Equal(now.Add(2*time.Minute)) || ev.MeetingURL == "" {
		t.Errorf("event = %+v", ev)
	}
	if ev.ID != "event-0@2026-10-16" {
		t.Errorf("ID = %s", ev.ID)
	}

	events, _ = f.UpcomingEvents(context.Background(), time.Minute)
	if len(events) != 0 {
		t.Errorf("1m lookahead should be empty, got %+v", events)
	}
}

func TestCurrentMeeting(t *testing.T) {
	f := newTestFile(t, eventsYAML)

	cur, err := f.CurrentMeeting(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if cur == nil || cur.Title != "Planning" {
		t.Fatalf("current = %+v", cur)
	}
	if got := cur.Remaining(now); got != 90*time.Second {
		t.Errorf("remaining = %v", got)
	}

	f.now = func() time.Time { return now.Add(time.Hour) }
	if cur, _ := f.CurrentMeeting(context.Background()); cur != nil {
		t.Errorf("expected no meeting, got %+v", cur)
	}
}

func TestMissingFile(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "none.yaml"), time.UTC)
	events, err := f.UpcomingEvents(context.Background(), time.Hour)
	if err != nil || len(events) != 0 {
		t.Fatalf("UpcomingEvents = %v, %v", events, err)
	}
}

func TestInvalidDaily(t *testing.T) {
	f := newTestFile(t, "events:\n  - title: x\n    daily: \"10:00-09:00\"\n")
	if _, err := f.CurrentMeeting(context.Background()); err == nil {
		t.Fatal("expected error for inverted span")
	}
}

func TestJSONFile(t *testing.T) {
	f := newTestFile(t, `{"events":[{"title":"Sync","start":"2026-10-16T09:30:00Z","end":"2026-10-16T10:00:00Z"}]}`)
	events, err := f.UpcomingEvents(context.Background(), 5*time.Minute)
	if err != nil || len(events) != 1 || events[0].Title != "Sync" {
		t.Fatalf("UpcomingEvents = %+v, %v", events, err)
	}
}

func TestDailyEventOnDSTTransition(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	path := filepath.Join(t.TempDir(), "events.yaml")
	content := "events:\n  - title: Standup\n    daily: \"09:30-09:45\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	f := NewFile(path, ny)
	// Clocks jumped from 02:00 to 03:00 earlier that morning.
	f.now = func() time.Time { return time.Date(2026, 3, 8, 8, 0, 0, 0, ny) }

	events, err := f.UpcomingEvents(context.Background(), 2*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %+v", events)
	}
	start := events[0].Start.In(ny)
	if start.Hour() != 9 || start.Minute() != 30 {
		t.Errorf("start = %s, want 09:30 local", start.Format(time.Kitchen))
	}
	if end := events[0].End.In(ny); end.Hour() != 9 || end.Minute() != 45 {
		t.Errorf("end = %s, want 09:45 local", end.Format(time.Kitchen))
	}
}

func TestTodayEvents(t *testing.T) {
	f := newTestFile(t, eventsYAML+`
  - title: Retro
    start: "2026-10-17T10:00:00Z"
    end: "2026-10-17T11:00:00Z"
`)

	events, err := f.TodayEvents(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var titles []string
	for _, e := range events {
		titles = append(titles, e.Title)
	}
	if len(titles) != 2 || titles[0] != "Planning" || titles[1] != "Standup" {
		t.Errorf("today = %v, want [Planning Standup]", titles)
	}
}
