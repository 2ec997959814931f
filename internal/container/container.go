// Package container wires remoteflow services using go.uber.org/dig.
package container

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/dig"

	"github.com/remoteflow/remoteflow/internal/actions"
	"github.com/remoteflow/remoteflow/internal/analytics"
	"github.com/remoteflow/remoteflow/internal/calendar"
	"github.com/remoteflow/remoteflow/internal/config"
	"github.com/remoteflow/remoteflow/internal/dashboard"
	"github.com/remoteflow/remoteflow/internal/engine"
	"github.com/remoteflow/remoteflow/internal/integrations/github"
	"github.com/remoteflow/remoteflow/internal/integrations/slack"
	"github.com/remoteflow/remoteflow/internal/integrations/telegram"
	"github.com/remoteflow/remoteflow/internal/meeting"
	"github.com/remoteflow/remoteflow/internal/poller"
	"github.com/remoteflow/remoteflow/internal/rules"
	"github.com/remoteflow/remoteflow/internal/standup"
	"github.com/remoteflow/remoteflow/internal/timetrack"
)

// Paths locates the data files.
type Paths struct {
	Rules        string
	TimeTracking string
}

// DefaultPaths returns the files under ~/.remoteflow.
func DefaultPaths() Paths {
	return Paths{Rules: config.RulesPath(), TimeTracking: config.TimeTrackingPath()}
}

// Container holds the resolved service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	store     *rules.Store
	tracker   *timetrack.Tracker
	caps      actions.Capabilities
	engine    *engine.Engine
	hub       *dashboard.Hub
	dashboard *dashboard.Server
	notifier  *telegram.Notifier
	analytics *analytics.Generator
	calendar  *calendar.File
	loc       *time.Location
}

func (c *Container) Store() *rules.Store                { return c.store }
func (c *Container) Tracker() *timetrack.Tracker        { return c.tracker }
func (c *Container) Capabilities() actions.Capabilities { return c.caps }
func (c *Container) Engine() *engine.Engine             { return c.engine }
func (c *Container) Hub() *dashboard.Hub                { return c.hub }
func (c *Container) Dashboard() *dashboard.Server       { return c.dashboard }
func (c *Container) Location() *time.Location           { return c.loc }

// Notifier returns the Telegram report notifier, or nil when it is not
// configured.
func (c *Container) Notifier() *telegram.Notifier { return c.notifier }

// Analytics returns the weekly analytics generator.
func (c *Container) Analytics() *analytics.Generator { return c.analytics }

// Calendar returns the events-file calendar, or nil when no file is
// configured.
func (c *Container) Calendar() *calendar.File { return c.calendar }

// New builds and wires all services from cfg.
func New(cfg *config.Config, paths Paths) (*Container, error) {
	d := dig.New()

	for _, ctor := range []any{
		func() *config.Config { return cfg },
		func() Paths { return paths },
		newLocation,
		newRegistry,
		newRuleStore,
		newTracker,
		newActivity,
		newCapabilities,
		dashboard.NewHub,
		newNotifier,
		newMetrics,
		newExecutor,
		newCalendar,
		newEngine,
		newAnalytics,
		newDashboard,
	} {
		if err := d.Provide(ctor); err != nil {
			return nil, err
		}
	}

	var result *Container
	err := d.Invoke(func(
		store *rules.Store,
		tracker *timetrack.Tracker,
		caps actions.Capabilities,
		eng *engine.Engine,
		hub *dashboard.Hub,
		srv *dashboard.Server,
		notifier *telegram.Notifier,
		weekly *analytics.Generator,
		cal *calendar.File,
		loc *time.Location,
	) {
		result = &Container{
			store:     store,
			tracker:   tracker,
			caps:      caps,
			engine:    eng,
			hub:       hub,
			dashboard: srv,
			notifier:  notifier,
			analytics: weekly,
			calendar:  cal,
			loc:       loc,
		}
	})
	if err != nil {
		return nil, dig.RootCause(err)
	}
	return result, nil
}

func newLocation(cfg *config.Config) (*time.Location, error) {
	return cfg.Location()
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func newRuleStore(p Paths) *rules.Store {
	return rules.NewStore(p.Rules)
}

func newTracker(p Paths, loc *time.Location) *timetrack.Tracker {
	return timetrack.NewTracker(p.TimeTracking, loc)
}

// newActivity prefers GitHub; without it the configured git checkouts are
// read, and with neither every list is empty.
func newActivity(cfg *config.Config) (standup.ActivitySource, error) {
	if gh := cfg.GitHub; gh.Configured() {
		return github.NewSource(gh.Token, gh.Username)
	}
	return standup.GitSource{Repos: cfg.Standup.Repos, Author: cfg.Standup.Author}, nil
}

// newCapabilities supplies only the collaborators the user configured;
// actions needing a missing one are skipped.
func newCapabilities(cfg *config.Config, tracker *timetrack.Tracker, activity standup.ActivitySource) actions.Capabilities {
	var caps actions.Capabilities
	if cfg.Slack.Configured() {
		caps.Status = slack.NewClient(cfg.Slack.UserToken, cfg.Slack.BotToken)
	}
	if cfg.Settings.EnableAutoJoin {
		caps.Meetings = meeting.NewJoiner()
	}
	if cfg.GitHub.Configured() || len(cfg.Standup.Repos) > 0 {
		caps.Standup = standup.NewGenerator(activity)
	}
	if cfg.Settings.EnableTimeTracking {
		caps.Timer = tracker
	}
	return caps
}

func newMetrics(reg *prometheus.Registry) *actions.Metrics {
	return actions.NewMetrics(reg)
}

func newAnalytics(activity standup.ActivitySource, tracker *timetrack.Tracker, loc *time.Location) *analytics.Generator {
	return analytics.NewGenerator(activity, tracker, loc)
}

func newNotifier(cfg *config.Config) *telegram.Notifier {
	tg := cfg.Notify.Telegram
	if !tg.Configured() {
		return nil
	}
	return telegram.NewNotifier(tg.Token, tg.ChatID, tg.OnlyFailures)
}

func newExecutor(cfg *config.Config, caps actions.Capabilities, m *actions.Metrics, hub *dashboard.Hub, notifier *telegram.Notifier) *actions.Executor {
	opts := []actions.Option{
		actions.WithTimeout(cfg.Engine.ActionTimeout()),
		actions.WithMetrics(m),
		actions.WithSink(hub),
	}
	if notifier != nil {
		opts = append(opts, actions.WithSink(notifier))
	}
	return actions.NewExecutor(caps, opts...)
}

func newCalendar(cfg *config.Config, loc *time.Location) *calendar.File {
	if cfg.Calendar.EventsFile == "" {
		return nil
	}
	return calendar.NewFile(cfg.Calendar.EventsFile, loc)
}

func newEngine(cfg *config.Config, store *rules.Store, exec *actions.Executor, cal *calendar.File, loc *time.Location) *engine.Engine {
	opts := []engine.Option{
		engine.WithLocation(loc),
		engine.WithPollConfig(poller.Config{
			Interval:       cfg.Engine.PollInterval(),
			StartLookahead: cfg.Engine.MeetingStartLookahead(),
			EndThreshold:   cfg.Engine.MeetingEndThreshold(),
		}),
	}
	if cal != nil {
		opts = append(opts, engine.WithCalendar(cal))
	}
	return engine.New(store, exec, opts...)
}

func newDashboard(cfg *config.Config, eng *engine.Engine, tracker *timetrack.Tracker, hub *dashboard.Hub, reg *prometheus.Registry, weekly *analytics.Generator) *dashboard.Server {
	port := cfg.Settings.WebDashboardPort
	origins := []string{
		fmt.Sprintf("http://localhost:%d", port),
		fmt.Sprintf("http://127.0.0.1:%d", port),
	}
	return dashboard.NewServer(eng, tracker, hub, reg, origins, dashboard.WithAnalytics(weekly))
}
