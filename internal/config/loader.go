package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// ConfigPath returns the default configuration file path: ~/.remoteflow/config.json.
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.json")
}

// DataDir returns the remoteflow data directory: ~/.remoteflow.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".remoteflow"
	}
	return filepath.Join(home, ".remoteflow")
}

// RulesPath is the automation rule store.
func RulesPath() string { return filepath.Join(DataDir(), "automation-rules.json") }

// TimeTrackingPath is the time tracker document.
func TimeTrackingPath() string { return filepath.Join(DataDir(), "time-tracking.json") }

// Load reads and parses the config file at path, then applies environment
// overrides. If path is empty, ConfigPath() is used.
// On parse failure it prints a warning and returns DefaultConfig().
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			fmt.Printf("Warning: failed to parse config %s: %v\n", path, err)
			fmt.Println("Using default configuration.")
			cfg = DefaultConfig()
		}
	}

	applyEnv(&cfg, os.LookupEnv)
	return &cfg, nil
}

// applyEnv overrides cfg with the environment variables that are set.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("config: ignoring non-numeric env value", "key", key, "value", v)
			return
		}
		*dst = n
	}
	num64 := func(key string, dst *int64) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			slog.Warn("config: ignoring non-numeric env value", "key", key, "value", v)
			return
		}
		*dst = n
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v == "true"
		}
	}

	str("SLACK_USER_TOKEN", &cfg.Slack.UserToken)
	str("SLACK_BOT_TOKEN", &cfg.Slack.BotToken)
	str("TIMEZONE", &cfg.Settings.Timezone)
	num("WORK_START_HOUR", &cfg.Settings.WorkStartHour)
	num("WORK_END_HOUR", &cfg.Settings.WorkEndHour)
	num("WEB_DASHBOARD_PORT", &cfg.Settings.WebDashboardPort)
	flag("ENABLE_AUTO_JOIN", &cfg.Settings.EnableAutoJoin)
	flag("ENABLE_TIME_TRACKING", &cfg.Settings.EnableTimeTracking)
	str("GITHUB_TOKEN", &cfg.GitHub.Token)
	str("GITHUB_USERNAME", &cfg.GitHub.Username)
	str("TELEGRAM_BOT_TOKEN", &cfg.Notify.Telegram.Token)
	num64("TELEGRAM_CHAT_ID", &cfg.Notify.Telegram.ChatID)
}

// Save writes cfg to path as indented JSON.
// If path is empty, ConfigPath() is used.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
