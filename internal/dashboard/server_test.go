package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/remoteflow/remoteflow/internal/actions"
	"github.com/remoteflow/remoteflow/internal/analytics"
	"github.com/remoteflow/remoteflow/internal/engine"
	"github.com/remoteflow/remoteflow/internal/rules"
	"github.com/remoteflow/remoteflow/internal/schema"
	"github.com/remoteflow/remoteflow/internal/timetrack"
)

type testEnv struct {
	srv    *httptest.Server
	engine *engine.Engine
	hub    *Hub
	timer  *timetrack.Tracker
}

func newTestEnv(t *testing.T, opts ...ServerOption) *testEnv {
	t.Helper()
	dir := t.TempDir()

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	reg := prometheus.NewRegistry()
	tracker := timetrack.NewTracker(filepath.Join(dir, "time-tracking.json"), time.UTC)
	exec := actions.NewExecutor(
		actions.Capabilities{Timer: tracker},
		actions.WithSink(hub),
		actions.WithMetrics(actions.NewMetrics(reg)),
	)
	eng := engine.New(rules.NewStore(filepath.Join(dir, "automation-rules.json")), exec)
	if err := eng.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { eng.Stop() })

	srv := httptest.NewServer(NewServer(eng, tracker, hub, reg, []string{"http://localhost:3000"}, opts...).Router())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, engine: eng, hub: hub, timer: tracker}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return v
}

const timeRuleJSON = `{
	"name": "morning focus",
	"trigger": "time",
	"triggerConfig": {"time": "0 9 * * 1-5"},
	"actions": [{"type": "start_timer", "config": {"activity": "focus"}}],
	"enabled": true
}`

// ─── Rules API ─────────────────────────────────────────────────────────────

func TestRulesCRUD(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/rules", timeRuleJSON)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /api/rules = %d %s", resp.StatusCode, body)
	}
	created := decode[rules.Rule](t, body)
	if created.ID == "" {
		t.Fatal("expected an assigned id")
	}
	if len(env.engine.Jobs()) != 1 {
		t.Errorf("expected the rule scheduled, jobs=%v", env.engine.Jobs())
	}

	_, body = env.do(t, http.MethodGet, "/api/rules", "")
	if list := decode[[]rules.Rule](t, body); len(list) != 1 || list[0].Name != "morning focus" {
		t.Errorf("GET /api/rules = %s", body)
	}

	resp, body = env.do(t, http.MethodPut, "/api/rules/"+created.ID+"/disable", "")
	if resp.StatusCode != http.StatusOK || decode[rules.Rule](t, body).Enabled {
		t.Errorf("disable = %d %s", resp.StatusCode, body)
	}
	if len(env.engine.Jobs()) != 0 {
		t.Error("disable should drop the job")
	}

	resp, _ = env.do(t, http.MethodPut, "/api/rules/"+created.ID+"/enable", "")
	if resp.StatusCode != http.StatusOK || len(env.engine.Jobs()) != 1 {
		t.Errorf("enable = %d jobs=%v", resp.StatusCode, env.engine.Jobs())
	}

	resp, _ = env.do(t, http.MethodDelete, "/api/rules/"+created.ID, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("DELETE = %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodGet, "/api/rules/"+created.ID, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET removed rule = %d", resp.StatusCode)
	}
}

func TestAddRule_Errors(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"name":`, http.StatusBadRequest},
		{"bad cron", `{"name":"x","trigger":"time","triggerConfig":{"time":"nope"},"actions":[],"enabled":true}`, http.StatusBadRequest},
		{"work hours", `{"name":"x","trigger":"calendar","triggerConfig":{"calendarEventType":"work_hours"},"actions":[],"enabled":true}`, http.StatusBadRequest},
		{"unknown action", `{"name":"x","trigger":"manual","actions":[{"type":"send_fax","config":{}}],"enabled":true}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := env.do(t, http.MethodPost, "/api/rules", tc.body)
			if resp.StatusCode != tc.want {
				t.Errorf("status = %d, want %d (%s)", resp.StatusCode, tc.want, body)
			}
		})
	}

	_, body := env.do(t, http.MethodPost, "/api/rules", `{"id":"fixed","name":"a","trigger":"manual","actions":[],"enabled":true}`)
	decode[rules.Rule](t, body)
	resp, _ := env.do(t, http.MethodPost, "/api/rules", `{"id":"fixed","name":"b","trigger":"manual","actions":[],"enabled":true}`)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate id = %d", resp.StatusCode)
	}
}

func TestEnableMissingRule(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.do(t, http.MethodPut, "/api/rules/ghost/enable", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestRunRule(t *testing.T) {
	env := newTestEnv(t)
	_, body := env.do(t, http.MethodPost, "/api/rules",
		`{"name":"start","trigger":"manual","actions":[{"type":"start_timer","config":{"activity":"pairing"}}],"enabled":false}`)
	rule := decode[rules.Rule](t, body)

	resp, _ := env.do(t, http.MethodPost, "/api/rules/"+rule.ID+"/run", "")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("run disabled = %d", resp.StatusCode)
	}

	resp, body = env.do(t, http.MethodPost, "/api/rules/"+rule.ID+"/run?force=true", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("forced run = %d %s", resp.StatusCode, body)
	}
	report := decode[actions.Report](t, body)
	if len(report.Results) != 1 || report.Results[0].Outcome != actions.OutcomeOK {
		t.Errorf("report = %+v", report)
	}
	if cur, _ := env.timer.CurrentEntry(); cur == nil || cur.Activity != "pairing" {
		t.Errorf("timer not started: %+v", cur)
	}
}

// ─── Time API ──────────────────────────────────────────────────────────────

func TestTimerEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/api/time/start", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("start without activity = %d", resp.StatusCode)
	}

	resp, body := env.do(t, http.MethodPost, "/api/time/start", `{"activity":"review","project":"api"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start = %d %s", resp.StatusCode, body)
	}

	_, body = env.do(t, http.MethodGet, "/api/time/current", "")
	cur := decode[struct{ Entry *schema.TimeEntry }](t, body)
	if cur.Entry == nil || cur.Entry.Activity != "review" {
		t.Errorf("current = %s", body)
	}

	_, body = env.do(t, http.MethodPost, "/api/time/stop", "")
	if stopped := decode[struct{ Entry *schema.TimeEntry }](t, body); stopped.Entry == nil || stopped.Entry.EndTime == nil {
		t.Errorf("stop = %s", body)
	}

	_, body = env.do(t, http.MethodGet, "/api/time/today", "")
	if day := decode[dayView](t, body); len(day.Entries) != 1 {
		t.Errorf("today = %s", body)
	}

	_, body = env.do(t, http.MethodPost, "/api/time/stop", "")
	if stopped := decode[struct{ Entry *schema.TimeEntry }](t, body); stopped.Entry != nil {
		t.Errorf("second stop = %s", body)
	}
}

// ─── Infrastructure ────────────────────────────────────────────────────────

func TestHealthAndStatus(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/rules", timeRuleJSON)

	resp, _ := env.do(t, http.MethodGet, "/healthz", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz = %d", resp.StatusCode)
	}

	_, body := env.do(t, http.MethodGet, "/api/status", "")
	st := decode[statusView](t, body)
	if !st.Running || st.Rules != 1 || st.Enabled != 1 || len(st.Jobs) != 1 || st.Jobs[0].NextRun.IsZero() {
		t.Errorf("status = %s", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	_, body := env.do(t, http.MethodPost, "/api/rules",
		`{"name":"stop","trigger":"manual","actions":[{"type":"stop_timer","config":{}}],"enabled":true}`)
	rule := decode[rules.Rule](t, body)
	env.do(t, http.MethodPost, "/api/rules/"+rule.ID+"/run", "")

	resp, body := env.do(t, http.MethodGet, "/metrics", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics = %d", resp.StatusCode)
	}
	if !bytes.Contains(body, []byte(`remoteflow_actions_total{outcome="ok",type="stop_timer"} 1`)) {
		t.Errorf("metrics missing action counter:\n%s", body)
	}
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)
	req, _ := http.NewRequest(http.MethodOptions, env.srv.URL+"/api/rules", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestWebSocketFeed(t *testing.T) {
	env := newTestEnv(t)

	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for env.hub.Clients() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	_, body := env.do(t, http.MethodPost, "/api/rules",
		`{"name":"ping","trigger":"manual","actions":[{"type":"stop_timer","config":{}}],"enabled":true}`)
	rule := decode[rules.Rule](t, body)
	env.do(t, http.MethodPost, "/api/rules/"+rule.ID+"/run", "")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var frame struct {
		Action  string         `json:"action"`
		Payload actions.Report `json:"payload"`
	}
	if err := json.Unmarshal(msg, &frame); err != nil {
		t.Fatal(err)
	}
	if frame.Action != ActionRuleExecuted || frame.Payload.RuleID != rule.ID {
		t.Errorf("frame = %s", msg)
	}
}

// ─── Analytics API ─────────────────────────────────────────────────────────

type stubAnalytics struct {
	weekly analytics.Weekly
	err    error
}

func (s stubAnalytics) Generate(context.Context) (analytics.Weekly, error) { return s.weekly, s.err }

func TestAnalyticsEndpoint(t *testing.T) {
	env := newTestEnv(t, WithAnalytics(stubAnalytics{weekly: analytics.Weekly{
		TotalCommits:        12,
		TotalPullRequests:   2,
		ActiveRepos:         []string{"acme/api"},
		TimeTracked:         90,
		MostProductiveHours: []int{10, 14},
	}}))

	resp, body := env.do(t, http.MethodGet, "/api/analytics", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/analytics = %d %s", resp.StatusCode, body)
	}
	got := decode[analytics.Weekly](t, body)
	if got.TotalCommits != 12 || got.TimeTracked != 90 || len(got.ActiveRepos) != 1 {
		t.Errorf("weekly = %+v", got)
	}
}

func TestAnalyticsEndpoint_SourceError(t *testing.T) {
	env := newTestEnv(t, WithAnalytics(stubAnalytics{err: errors.New("github: bad credentials")}))

	resp, body := env.do(t, http.MethodGet, "/api/analytics", "")
	if resp.StatusCode != http.StatusBadGateway || !strings.Contains(string(body), "bad credentials") {
		t.Errorf("GET /api/analytics = %d %s", resp.StatusCode, body)
	}
}

func TestAnalyticsEndpoint_NotConfigured(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodGet, "/api/analytics", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /api/analytics without a generator = %d", resp.StatusCode)
	}
}
