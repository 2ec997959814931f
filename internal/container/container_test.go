package container

import (
	"path/filepath"
	"testing"

	"github.com/remoteflow/remoteflow/internal/config"
)

func testPaths(t *testing.T) Paths {
	t.Helper()
	dir := t.TempDir()
	return Paths{
		Rules:        filepath.Join(dir, "automation-rules.json"),
		TimeTracking: filepath.Join(dir, "time-tracking.json"),
	}
}

func TestNew_Defaults(t *testing.T) {
	cfg := config.DefaultConfig()
	c, err := New(&cfg, testPaths(t))
	if err != nil {
		t.Fatal(err)
	}
	if c.Engine() == nil || c.Store() == nil || c.Dashboard() == nil || c.Hub() == nil {
		t.Fatal("expected all services wired")
	}
	caps := c.Capabilities()
	if caps.Status != nil || caps.Meetings != nil || caps.Standup != nil || caps.Timer != nil {
		t.Errorf("no collaborator should be configured by default: %+v", caps)
	}
	if c.Engine().HasCalendar() {
		t.Error("calendar polling needs an events file")
	}
	if c.Notifier() != nil {
		t.Error("telegram notifier needs a token and chat")
	}
	if c.Analytics() == nil {
		t.Error("analytics should always be wired")
	}
	if c.Calendar() != nil {
		t.Error("no calendar without an events file")
	}
	if c.Location().String() != "UTC" {
		t.Errorf("location = %s", c.Location())
	}
}

func TestNew_AllCollaborators(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Slack.UserToken = "xoxp-test"
	cfg.Settings.EnableAutoJoin = true
	cfg.Settings.EnableTimeTracking = true
	cfg.Settings.Timezone = "Europe/Paris"
	cfg.Standup.Repos = []string{t.TempDir()}
	cfg.Calendar.EventsFile = filepath.Join(t.TempDir(), "events.yaml")
	cfg.Notify.Telegram.Token = "tg"
	cfg.Notify.Telegram.ChatID = 42

	c, err := New(&cfg, testPaths(t))
	if err != nil {
		t.Fatal(err)
	}
	caps := c.Capabilities()
	if caps.Status == nil || caps.Meetings == nil || caps.Standup == nil || caps.Timer == nil {
		t.Errorf("expected every collaborator, got %+v", caps)
	}
	if !c.Engine().HasCalendar() || c.Calendar() == nil {
		t.Error("expected calendar polling")
	}
	if c.Notifier() == nil {
		t.Error("expected telegram notifier")
	}
	if c.Location().String() != "Europe/Paris" {
		t.Errorf("location = %s", c.Location())
	}
}

func TestNew_GitHubActivity(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.GitHub.Token = "ghp_test"
	cfg.GitHub.Username = "octocat"

	c, err := New(&cfg, testPaths(t))
	if err != nil {
		t.Fatal(err)
	}
	if c.Capabilities().Standup == nil {
		t.Error("a GitHub account alone should enable standups")
	}
}

func TestNew_BadTimezone(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Settings.Timezone = "Mars/Olympus"
	if _, err := New(&cfg, testPaths(t)); err == nil {
		t.Fatal("expected timezone error")
	}
}
