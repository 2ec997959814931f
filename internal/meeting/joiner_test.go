package meeting

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/remoteflow/remoteflow/internal/schema"
)

func newTestJoiner(open Opener) *Joiner {
	return &Joiner{open: open, timeout: time.Second}
}

func TestDetectPlatform(t *testing.T) {
	cases := map[string]Platform{
		"https://acme.zoom.us/j/123456":                 PlatformZoom,
		"https://teams.microsoft.com/l/meetup-join/abc": PlatformTeams,
		"https://meet.google.com/abc-defg-hij":          PlatformMeet,
		"https://whereby.com/standup":                   PlatformUnknown,
	}
	for url, want := range cases {
		if got := DetectPlatform(url); got != want {
			t.Errorf("DetectPlatform(%q) = %s, want %s", url, got, want)
		}
	}
}

func TestJoinMeeting_OpensURL(t *testing.T) {
	var opened []string
	j := newTestJoiner(func(_ context.Context, url string) error {
		opened = append(opened, url)
		return nil
	})

	err := j.JoinMeeting(context.Background(), schema.CalendarEvent{
		Title: "Standup", MeetingURL: "https://meet.google.com/abc-defg-hij",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(opened) != 1 || opened[0] != "https://meet.google.com/abc-defg-hij" {
		t.Errorf("opened = %v", opened)
	}
}

func TestJoinMeeting_NoURL(t *testing.T) {
	j := newTestJoiner(func(context.Context, string) error {
		t.Fatal("opener must not be called")
		return nil
	})
	if err := j.JoinMeeting(context.Background(), schema.CalendarEvent{Title: "Focus"}); err != nil {
		t.Fatal(err)
	}
}

func TestJoinMeeting_OpenerError(t *testing.T) {
	j := newTestJoiner(func(context.Context, string) error { return errors.New("xdg-open: not found") })
	err := j.JoinMeeting(context.Background(), schema.CalendarEvent{
		Title: "1:1", MeetingURL: "https://acme.zoom.us/j/1",
	})
	if err == nil || !strings.Contains(err.Error(), "zoom") {
		t.Fatalf("expected wrapped error naming the platform, got %v", err)
	}
}

func TestJoinMeeting_AppliesTimeout(t *testing.T) {
	j := newTestJoiner(func(ctx context.Context, _ string) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("expected a deadline on the opener context")
		}
		return nil
	})
	j.JoinMeeting(context.Background(), schema.CalendarEvent{MeetingURL: "https://meet.google.com/x"})
}

func TestOpenCommand(t *testing.T) {
	url := "https://meet.google.com/x"
	cases := []struct {
		goos string
		name string
		args []string
	}{
		{"darwin", "open", []string{url}},
		{"windows", "cmd", []string{"/c", "start", "", url}},
		{"linux", "xdg-open", []string{url}},
	}
	for _, tc := range cases {
		name, args := openCommand(tc.goos, url)
		if name != tc.name || !reflect.DeepEqual(args, tc.args) {
			t.Errorf("%s: got %s %v", tc.goos, name, args)
		}
	}
}
