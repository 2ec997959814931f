// Package config defines the configuration schema for remoteflow.
//
// JSON keys use camelCase, matching the environment-variable names of
// the settings they override (TIMEZONE → settings.timezone).
package config

import (
	"fmt"
	"time"
)

// SlackConfig holds Slack credentials. The user token sets the status;
// the bot token, when present, posts messages.
type SlackConfig struct {
	UserToken string `json:"userToken"`
	BotToken  string `json:"botToken"`
}

// Configured reports whether any token is set.
func (s SlackConfig) Configured() bool { return s.UserToken != "" || s.BotToken != "" }

// SettingsConfig holds user preferences.
type SettingsConfig struct {
	Timezone           string `json:"timezone"`
	WorkStartHour      int    `json:"workStartHour"`
	WorkEndHour        int    `json:"workEndHour"`
	EnableAutoJoin     bool   `json:"enableAutoJoin"`
	EnableTimeTracking bool   `json:"enableTimeTracking"`
	WebDashboardPort   int    `json:"webDashboardPort"`
}

func defaultSettingsConfig() SettingsConfig {
	return SettingsConfig{
		Timezone:         "UTC",
		WorkStartHour:    9,
		WorkEndHour:      17,
		WebDashboardPort: 3000,
	}
}

// EngineConfig tunes the automation engine.
type EngineConfig struct {
	PollIntervalSeconds          int `json:"pollIntervalSeconds"`
	MeetingStartLookaheadMinutes int `json:"meetingStartLookaheadMinutes"`
	MeetingEndThresholdSeconds   int `json:"meetingEndThresholdSeconds"`
	ActionTimeoutSeconds         int `json:"actionTimeoutSeconds"`
}

func defaultEngineConfig() EngineConfig {
	return EngineConfig{
		PollIntervalSeconds:          300,
		MeetingStartLookaheadMinutes: 5,
		MeetingEndThresholdSeconds:   120,
		ActionTimeoutSeconds:         60,
	}
}

func (e EngineConfig) PollInterval() time.Duration {
	return time.Duration(e.PollIntervalSeconds) * time.Second
}

func (e EngineConfig) MeetingStartLookahead() time.Duration {
	return time.Duration(e.MeetingStartLookaheadMinutes) * time.Minute
}

func (e EngineConfig) MeetingEndThreshold() time.Duration {
	return time.Duration(e.MeetingEndThresholdSeconds) * time.Second
}

func (e EngineConfig) ActionTimeout() time.Duration {
	return time.Duration(e.ActionTimeoutSeconds) * time.Second
}

// CalendarConfig points at the local events file polled for meetings.
// An empty EventsFile disables calendar triggers.
type CalendarConfig struct {
	EventsFile string `json:"eventsFile"`
}

// StandupConfig lists the git checkouts the standup report is built from.
// Without repos the post_standup action is skipped.
type StandupConfig struct {
	Repos  []string `json:"repos"`
	Author string   `json:"author"`
}

// GitHubConfig reads commits, pull requests and assigned issues from
// GitHub. When set it replaces the local git checkouts as the activity
// source.
type GitHubConfig struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// Configured reports whether both the token and username are set.
func (g GitHubConfig) Configured() bool { return g.Token != "" && g.Username != "" }

// TelegramConfig sends rule reports to a Telegram chat. An empty Token
// disables notifications.
type TelegramConfig struct {
	Token        string `json:"token"`
	ChatID       int64  `json:"chatId"`
	OnlyFailures bool   `json:"onlyFailures"`
}

// Configured reports whether both the token and chat are set.
func (t TelegramConfig) Configured() bool { return t.Token != "" && t.ChatID != 0 }

// NotifyConfig holds the report notification targets.
type NotifyConfig struct {
	Telegram TelegramConfig `json:"telegram"`
}

// Config is the root configuration object, loaded from ~/.remoteflow/config.json.
type Config struct {
	Slack    SlackConfig    `json:"slack"`
	Settings SettingsConfig `json:"settings"`
	Engine   EngineConfig   `json:"engine"`
	Calendar CalendarConfig `json:"calendar"`
	Standup  StandupConfig  `json:"standup"`
	GitHub   GitHubConfig   `json:"github"`
	Notify   NotifyConfig   `json:"notify"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() Config {
	return Config{
		Settings: defaultSettingsConfig(),
		Engine:   defaultEngineConfig(),
		Standup:  StandupConfig{Repos: []string{}},
		Notify:   NotifyConfig{Telegram: TelegramConfig{OnlyFailures: true}},
	}
}

// Location resolves settings.timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Settings.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Settings.Timezone)
	if err != nil {
		return nil, fmt.Errorf("settings.timezone %q: %w", c.Settings.Timezone, err)
	}
	return loc, nil
}

// InWorkHours reports whether t falls in [workStartHour, workEndHour).
func (c *Config) InWorkHours(t time.Time) bool {
	h := t.Hour()
	return h >= c.Settings.WorkStartHour && h < c.Settings.WorkEndHour
}
