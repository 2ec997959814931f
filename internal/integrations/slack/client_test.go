package slack

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	slackgo "github.com/slack-go/slack"
)

type call struct {
	method string
	auth   string
	form   url.Values
}

// fakeSlack records Web API calls and answers ok.
type fakeSlack struct {
	mu    sync.Mutex
	calls []call
	fail  bool
}

func (f *fakeSlack) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.ParseForm()
	f.mu.Lock()
	f.calls = append(f.calls, call{method: r.URL.Path, auth: r.Header.Get("Authorization"), form: r.PostForm})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if f.fail {
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "invalid_auth"})
		return
	}
	switch r.URL.Path {
	case "/chat.postMessage":
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "channel": "C123", "ts": "1700000000.000100"})
	case "/users.profile.get":
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "profile": map[string]any{
			"status_text": "Lunch break", "status_emoji": ":fork_and_knife:",
		}})
	default:
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}
}

func newTestClient(t *testing.T, userToken, botToken string) (*Client, *fakeSlack) {
	t.Helper()
	fake := &fakeSlack{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return NewClient(userToken, botToken, slackgo.OptionAPIURL(srv.URL+"/")), fake
}

func profileParam(t *testing.T, c call) map[string]any {
	t.Helper()
	var p map[string]any
	if err := json.Unmarshal([]byte(c.form.Get("profile")), &p); err != nil {
		t.Fatalf("profile param: %v (%q)", err, c.form.Get("profile"))
	}
	return p
}

func TestUpdateStatus(t *testing.T) {
	c, fake := newTestClient(t, "xoxp-user", "")
	exp := time.Unix(1700003600, 0)

	if err := c.UpdateStatus(context.Background(), "In a meeting", ":calendar:", &exp); err != nil {
		t.Fatal(err)
	}
	if len(fake.calls) != 1 || fake.calls[0].method != "/users.profile.set" {
		t.Fatalf("calls = %+v", fake.calls)
	}
	p := profileParam(t, fake.calls[0])
	if p["status_text"] != "In a meeting" || p["status_emoji"] != ":calendar:" || p["status_expiration"] != float64(1700003600) {
		t.Errorf("profile = %v", p)
	}
}

func TestClearStatus(t *testing.T) {
	c, fake := newTestClient(t, "xoxp-user", "")
	if err := c.ClearStatus(context.Background()); err != nil {
		t.Fatal(err)
	}
	p := profileParam(t, fake.calls[0])
	if p["status_text"] != "" || p["status_emoji"] != "" {
		t.Errorf("profile = %v", p)
	}
}

func TestPostMessage_UsesBotToken(t *testing.T) {
	c, fake := newTestClient(t, "xoxp-user", "xoxb-bot")
	if err := c.PostMessage(context.Background(), "#standup", "hello"); err != nil {
		t.Fatal(err)
	}
	got := fake.calls[0]
	if got.method != "/chat.postMessage" || got.form.Get("channel") != "#standup" || got.form.Get("text") != "hello" {
		t.Errorf("call = %+v", got)
	}
	if got.auth != "Bearer xoxb-bot" && got.form.Get("token") != "xoxb-bot" {
		t.Errorf("expected bot token, got auth=%q token=%q", got.auth, got.form.Get("token"))
	}
}

func TestPostMessage_FallsBackToUserToken(t *testing.T) {
	c, fake := newTestClient(t, "xoxp-user", "")
	if err := c.PostMessage(context.Background(), "C1", "hi"); err != nil {
		t.Fatal(err)
	}
	if len(fake.calls) != 1 {
		t.Fatalf("calls = %+v", fake.calls)
	}
}

func TestNoToken(t *testing.T) {
	c := NewClient("", "")
	ctx := context.Background()
	if err := c.UpdateStatus(ctx, "x", ":x:", nil); !errors.Is(err, ErrNoToken) {
		t.Errorf("UpdateStatus: %v", err)
	}
	if err := c.ClearStatus(ctx); !errors.Is(err, ErrNoToken) {
		t.Errorf("ClearStatus: %v", err)
	}
	if err := c.PostMessage(ctx, "C1", "x"); !errors.Is(err, ErrNoToken) {
		t.Errorf("PostMessage: %v", err)
	}
}

func TestAPIError(t *testing.T) {
	c, fake := newTestClient(t, "xoxp-user", "")
	fake.fail = true
	if err := c.UpdateStatus(context.Background(), "x", ":x:", nil); err == nil {
		t.Fatal("expected error from ok=false response")
	}
}

func TestProfile(t *testing.T) {
	c, _ := newTestClient(t, "xoxp-user", "")
	text, emoji, err := c.Profile(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if text != "Lunch break" || emoji != ":fork_and_knife:" {
		t.Errorf("Profile = %q %q", text, emoji)
	}
}

// ─── Presets ───────────────────────────────────────────────────────────────

type statusRecorder struct {
	text, emoji string
	exp         *time.Time
}

func (s *statusRecorder) UpdateStatus(_ context.Context, text, emoji string, exp *time.Time) error {
	s.text, s.emoji, s.exp = text, emoji, exp
	return nil
}
func (s *statusRecorder) ClearStatus(context.Context) error                 { return nil }
func (s *statusRecorder) PostMessage(context.Context, string, string) error { return nil }

func TestApplyPreset(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	rec := &statusRecorder{}

	if err := ApplyPreset(context.Background(), rec, "lunch", 0, now); err != nil {
		t.Fatal(err)
	}
	if rec.text != "Lunch break" || rec.exp == nil || !rec.exp.Equal(now.Add(time.Hour)) {
		t.Errorf("lunch = %+v", rec)
	}

	ApplyPreset(context.Background(), rec, "focus", 90*time.Minute, now)
	if rec.emoji != ":no_entry:" || !rec.exp.Equal(now.Add(90*time.Minute)) {
		t.Errorf("focus = %+v", rec)
	}

	ApplyPreset(context.Background(), rec, "working", 0, now)
	if rec.exp != nil {
		t.Error("working should not expire")
	}

	if err := ApplyPreset(context.Background(), rec, "vacation", 0, now); err == nil {
		t.Error("expected unknown preset error")
	}
}
