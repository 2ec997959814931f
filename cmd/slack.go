package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/remoteflow/remoteflow/internal/actions"
	"github.com/remoteflow/remoteflow/internal/integrations/slack"
)

var (
	slackMinutes int
	slackDryRun  bool
)

var slackCmd = &cobra.Command{
	Use:   "slack",
	Short: "Set the Slack status or post a standup now",
}

var slackStatusCmd = &cobra.Command{
	Use:   "status <preset>",
	Short: "Apply a status preset (" + strings.Join(slack.PresetNames(), ", ") + ")",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		caps, err := loadCapabilities()
		if err != nil {
			return err
		}
		if caps.Status == nil {
			return errors.New("slack is not configured")
		}
		d := time.Duration(slackMinutes) * time.Minute
		if err := slack.ApplyPreset(context.Background(), caps.Status, args[0], d, time.Now()); err != nil {
			return err
		}
		fmt.Printf("✓ Status set to %s\n", args[0])
		return nil
	},
}

var slackClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the Slack status",
	RunE: func(_ *cobra.Command, _ []string) error {
		caps, err := loadCapabilities()
		if err != nil {
			return err
		}
		if caps.Status == nil {
			return errors.New("slack is not configured")
		}
		if err := caps.Status.ClearStatus(context.Background()); err != nil {
			return err
		}
		fmt.Println("✓ Status cleared")
		return nil
	},
}

var slackStandupCmd = &cobra.Command{
	Use:   "standup <channel>",
	Short: "Generate the standup report and post it to a channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		caps, err := loadCapabilities()
		if err != nil {
			return err
		}
		if caps.Standup == nil {
			return errors.New("standup is not configured (set standup.repos)")
		}
		ctx := context.Background()
		data, err := caps.Standup.Generate(ctx)
		if err != nil {
			return err
		}
		text := caps.Standup.FormatForChat(data)
		if slackDryRun {
			fmt.Println(text)
			return nil
		}
		if caps.Status == nil {
			return errors.New("slack is not configured")
		}
		if err := caps.Status.PostMessage(ctx, args[0], text); err != nil {
			return err
		}
		fmt.Printf("✓ Standup posted to %s\n", args[0])
		return nil
	},
}

func init() {
	slackStatusCmd.Flags().IntVar(&slackMinutes, "minutes", 0, "Expire the status after this many minutes")
	slackStandupCmd.Flags().BoolVar(&slackDryRun, "dry-run", false, "Print the report instead of posting it")
	slackCmd.AddCommand(slackStatusCmd, slackClearCmd, slackStandupCmd)
}

func loadCapabilities() (actions.Capabilities, error) {
	_, c, err := buildContainer()
	if err != nil {
		return actions.Capabilities{}, err
	}
	return c.Capabilities(), nil
}
