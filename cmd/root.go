// Package cmd implements the remoteflow CLI using cobra.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/remoteflow/remoteflow/internal/config"
	"github.com/remoteflow/remoteflow/internal/container"
)

const version = "0.1.0"
const logo = "🌊"

var configPath string

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:           "remoteflow",
	Short:         logo + " remoteflow, automation for remote workdays",
	Long:          logo + " remoteflow: rule-driven automation for status, meetings, standups and time tracking",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.remoteflow/config.json)")

	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(timerCmd)
	rootCmd.AddCommand(slackCmd)
	rootCmd.AddCommand(analyticsCmd)
	rootCmd.AddCommand(calendarCmd)
	rootCmd.AddCommand(joinCmd)
}

// ---- helpers ---------------------------------------------------------------

func cfgPath() string {
	if configPath != "" {
		return configPath
	}
	return config.ConfigPath()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// buildContainer loads the config and wires every service.
func buildContainer() (*config.Config, *container.Container, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	c, err := container.New(cfg, container.DefaultPaths())
	if err != nil {
		return nil, nil, err
	}
	return cfg, c, nil
}

// setupLogging installs a text handler on stderr at Info, or Debug when
// verbose.
func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
