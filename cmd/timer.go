package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/remoteflow/remoteflow/internal/shared/stringutils"
	"github.com/remoteflow/remoteflow/internal/timetrack"
)

var timerProject string

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Track time spent on activities",
}

var timerStartCmd = &cobra.Command{
	Use:   "start <activity>",
	Short: "Start a timer, stopping any running one",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		_, c, err := buildContainer()
		if err != nil {
			return err
		}
		entry, err := c.Tracker().StartTimer(context.Background(), args[0], timerProject)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Started %q at %s\n", entry.Activity, entry.StartTime.In(c.Location()).Format("15:04"))
		return nil
	},
}

var timerStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running timer",
	RunE: func(_ *cobra.Command, _ []string) error {
		_, c, err := buildContainer()
		if err != nil {
			return err
		}
		entry, err := c.Tracker().StopTimer(context.Background())
		if err != nil {
			return err
		}
		if entry == nil {
			fmt.Println("No timer running.")
			return nil
		}
		fmt.Printf("✓ Stopped %q after %s\n", entry.Activity, stringutils.Minutes(entry.Duration))
		return nil
	},
}

var timerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running timer and today's total",
	RunE: func(_ *cobra.Command, _ []string) error {
		_, c, err := buildContainer()
		if err != nil {
			return err
		}
		return printTimer(c.Tracker())
	},
}

var timerTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List today's entries",
	RunE: func(_ *cobra.Command, _ []string) error {
		_, c, err := buildContainer()
		if err != nil {
			return err
		}
		tr := c.Tracker()
		entries, err := tr.Entries(time.Now().In(c.Location()).Format("2006-01-02"))
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No entries today.")
		}
		for _, e := range entries {
			end := "running"
			if e.EndTime != nil {
				end = e.EndTime.In(c.Location()).Format("15:04")
			}
			project := ""
			if e.Project != "" {
				project = " [" + e.Project + "]"
			}
			fmt.Printf("  %s-%-7s %-8s %s%s\n",
				e.StartTime.In(c.Location()).Format("15:04"), end,
				stringutils.Minutes(e.Duration), stringutils.Truncate(e.Activity, 40), project)
		}

		week, err := tr.TotalThisWeek()
		if err != nil {
			return err
		}
		today, err := tr.TotalToday()
		if err != nil {
			return err
		}
		fmt.Printf("\nToday: %s   This week: %s\n", stringutils.Minutes(today), stringutils.Minutes(week))
		return nil
	},
}

func init() {
	timerStartCmd.Flags().StringVar(&timerProject, "project", "", "Project name")
	timerCmd.AddCommand(timerStartCmd, timerStopCmd, timerStatusCmd, timerTodayCmd)
}

func printTimer(tr *timetrack.Tracker) error {
	cur, err := tr.CurrentEntry()
	if err != nil {
		return err
	}
	if cur == nil {
		fmt.Println("Timer:     not running")
	} else {
		elapsed := time.Since(cur.StartTime).Minutes()
		fmt.Printf("Timer:     %s (%s)\n", stringutils.Truncate(cur.Activity, 40), stringutils.Minutes(elapsed))
	}
	today, err := tr.TotalToday()
	if err != nil {
		return err
	}
	fmt.Printf("Today:     %s\n", stringutils.Minutes(today))
	return nil
}
