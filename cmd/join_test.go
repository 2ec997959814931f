package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/remoteflow/remoteflow/internal/schema"
)

type fakeCalendar struct {
	current   *schema.CalendarEvent
	upcoming  []schema.CalendarEvent
	err       error
	lookahead time.Duration
}

func (f *fakeCalendar) UpcomingEvents(_ context.Context, lookahead time.Duration) ([]schema.CalendarEvent, error) {
	f.lookahead = lookahead
	return f.upcoming, f.err
}

func (f *fakeCalendar) CurrentMeeting(context.Context) (*schema.CalendarEvent, error) {
	return f.current, f.err
}

type fakeJoiner struct{ joined []string }

func (f *fakeJoiner) JoinMeeting(_ context.Context, e schema.CalendarEvent) error {
	f.joined = append(f.joined, e.Title)
	return nil
}

func TestJoin_PrefersCurrentMeeting(t *testing.T) {
	cal := &fakeCalendar{
		current:  &schema.CalendarEvent{Title: "Planning"},
		upcoming: []schema.CalendarEvent{{Title: "Standup"}},
	}
	j := &fakeJoiner{}
	var out bytes.Buffer

	if err := joinMeeting(context.Background(), &out, cal, j); err != nil {
		t.Fatal(err)
	}
	if len(j.joined) != 1 || j.joined[0] != "Planning" {
		t.Errorf("joined = %v", j.joined)
	}
	if !strings.Contains(out.String(), "Joining current meeting: Planning") {
		t.Errorf("output = %q", out.String())
	}
}

func TestJoin_FallsBackToNextMeeting(t *testing.T) {
	cal := &fakeCalendar{upcoming: []schema.CalendarEvent{{Title: "Standup"}, {Title: "1:1"}}}
	j := &fakeJoiner{}
	var out bytes.Buffer

	if err := joinMeeting(context.Background(), &out, cal, j); err != nil {
		t.Fatal(err)
	}
	if cal.lookahead != 5*time.Minute {
		t.Errorf("lookahead = %s", cal.lookahead)
	}
	if len(j.joined) != 1 || j.joined[0] != "Standup" {
		t.Errorf("joined = %v", j.joined)
	}
	if !strings.Contains(out.String(), "Joining next meeting: Standup") {
		t.Errorf("output = %q", out.String())
	}
}

func TestJoin_NothingToJoin(t *testing.T) {
	j := &fakeJoiner{}
	var out bytes.Buffer

	if err := joinMeeting(context.Background(), &out, &fakeCalendar{}, j); err != nil {
		t.Fatal(err)
	}
	if len(j.joined) != 0 || strings.TrimSpace(out.String()) != "No meetings to join" {
		t.Errorf("joined = %v, output = %q", j.joined, out.String())
	}
}

func TestJoin_CalendarError(t *testing.T) {
	err := joinMeeting(context.Background(), &bytes.Buffer{}, &fakeCalendar{err: errors.New("bad file")}, &fakeJoiner{})
	if err == nil {
		t.Fatal("expected the calendar error")
	}
}
