package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/remoteflow/remoteflow/internal/schema"
)

func TestPrintEvents(t *testing.T) {
	start := time.Date(2026, 10, 16, 13, 30, 0, 0, time.UTC)
	events := []schema.CalendarEvent{
		{Title: "Planning", Start: start, End: start.Add(time.Hour), MeetingURL: "https://meet.google.com/abc"},
		{Title: "Focus", Start: start.Add(2 * time.Hour), End: start.Add(3 * time.Hour)},
	}

	var out bytes.Buffer
	printEvents(&out, events, time.UTC, "No events today")

	want := "Planning\n  1:30 PM - 2:30 PM\n  https://meet.google.com/abc\n" +
		"Focus\n  3:30 PM - 4:30 PM\n"
	if out.String() != want {
		t.Errorf("output =\n%s\nwant\n%s", out.String(), want)
	}
}

func TestPrintEvents_Empty(t *testing.T) {
	var out bytes.Buffer
	printEvents(&out, nil, time.UTC, "No upcoming events")
	if out.String() != "No upcoming events\n" {
		t.Errorf("output = %q", out.String())
	}
}
