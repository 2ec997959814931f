package actions

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/remoteflow/remoteflow/internal/schema"
)

// recorder collects collaborator calls in order across all fakes.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type fakeStatus struct {
	rec       *recorder
	updateErr error
	postErr   error
	posted    map[string]string
}

func (f *fakeStatus) UpdateStatus(_ context.Context, text, emoji string, _ *time.Time) error {
	f.rec.add("status:" + text + " " + emoji)
	return f.updateErr
}

func (f *fakeStatus) ClearStatus(context.Context) error {
	f.rec.add("status:clear")
	return nil
}

func (f *fakeStatus) PostMessage(_ context.Context, channel, text string) error {
	f.rec.add("post:" + channel)
	if f.posted == nil {
		f.posted = map[string]string{}
	}
	f.posted[channel] = text
	return f.postErr
}

type fakeTimer struct {
	rec      *recorder
	startErr error
	panicky  bool
}

func (f *fakeTimer) StartTimer(_ context.Context, activity, project string) (schema.TimeEntry, error) {
	if f.panicky {
		panic("tracker exploded")
	}
	f.rec.add("timer:start " + activity + "/" + project)
	return schema.TimeEntry{Activity: activity, Project: project}, f.startErr
}

func (f *fakeTimer) StopTimer(context.Context) (*schema.TimeEntry, error) {
	f.rec.add("timer:stop")
	return nil, nil
}

type fakeJoiner struct {
	rec *recorder
}

func (f *fakeJoiner) JoinMeeting(_ context.Context, e schema.CalendarEvent) error {
	f.rec.add("join:" + e.MeetingURL)
	return nil
}

type fakeStandup struct {
	rec *recorder
	err error
}

func (f *fakeStandup) Generate(context.Context) (schema.StandupData, error) {
	f.rec.add("standup:generate")
	if f.err != nil {
		return schema.StandupData{}, f.err
	}
	return schema.StandupData{Date: "2026-10-16", Summary: "shipped"}, nil
}

func (f *fakeStandup) FormatForChat(d schema.StandupData) string {
	return "standup " + d.Date
}

var errAPIDown = errors.New("chat api down")

type sinkFunc func(Report)

func (f sinkFunc) Publish(r Report) { f(r) }
