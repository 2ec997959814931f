package cmd

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/remoteflow/remoteflow/internal/actions"
	"github.com/remoteflow/remoteflow/internal/rules"
	"github.com/remoteflow/remoteflow/internal/shared/cmdutils"
	"github.com/remoteflow/remoteflow/internal/shared/stringutils"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show remoteflow status",
	RunE:  runStatus,
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

func fileMark(path string) string {
	_, err := os.Stat(path)
	return mark(err == nil)
}

func runStatus(_ *cobra.Command, _ []string) error {
	fmt.Printf("%s remoteflow Status\n\n", logo)

	cfg, c, err := buildContainer()
	if err != nil {
		fmt.Printf("  (could not load config: %v)\n", err)
		return nil
	}

	fmt.Printf("Config:    %s %s\n", cfgPath(), fileMark(cfgPath()))
	fmt.Printf("Rules:     %s %s\n", c.Store().Path(), fileMark(c.Store().Path()))
	fmt.Printf("Timesheet: %s %s\n", c.Tracker().Path(), fileMark(c.Tracker().Path()))

	now := time.Now().In(c.Location())
	fmt.Printf("Timezone:  %s (%s)\n", c.Location(), now.Format("Mon 15:04"))
	fmt.Printf("Work hours: %02d:00-%02d:00 %s\n\n",
		cfg.Settings.WorkStartHour, cfg.Settings.WorkEndHour, mark(cfg.InWorkHours(now)))

	printCapabilities(c.Capabilities(), c.Engine().HasCalendar())

	list, err := c.Engine().ListRules()
	if err != nil {
		return err
	}
	counts := map[rules.TriggerKind]int{}
	enabled := 0
	for _, r := range list {
		counts[r.Trigger]++
		if r.Enabled {
			enabled++
		}
	}
	fmt.Printf("\nRules: %d total, %d enabled (time %d, calendar %d, manual %d)\n",
		len(list), enabled, counts[rules.TriggerTime], counts[rules.TriggerCalendar], counts[rules.TriggerManual])

	printNextRuns(list, now)

	if cfg.Settings.EnableTimeTracking {
		fmt.Println()
		if err := printTimer(c.Tracker()); err != nil {
			return err
		}
	}
	return nil
}

func printCapabilities(caps actions.Capabilities, calendar bool) {
	fmt.Println("Integrations:")
	fmt.Printf("  Slack:        %s\n", mark(caps.Status != nil))
	fmt.Printf("  Calendar:     %s\n", mark(calendar))
	fmt.Printf("  Auto-join:    %s\n", mark(caps.Meetings != nil))
	fmt.Printf("  Standup:      %s\n", mark(caps.Standup != nil))
	fmt.Printf("  Time tracking: %s\n", mark(caps.Timer != nil))
}

// printNextRuns lists the next firing of every enabled time rule.
func printNextRuns(list []rules.Rule, now time.Time) {
	type next struct {
		name  string
		label string
		at    time.Time
	}
	var upcoming []next
	for _, r := range list {
		if !r.Enabled || !r.IsTimeTriggered() {
			continue
		}
		sched, err := rules.ParseSchedule(r.TriggerConfig.Time)
		if err != nil {
			continue
		}
		upcoming = append(upcoming, next{name: r.Name, label: cmdutils.TriggerLabel(r), at: sched.Next(now)})
	}
	if len(upcoming) == 0 {
		return
	}
	sort.Slice(upcoming, func(i, j int) bool { return upcoming[i].at.Before(upcoming[j].at) })

	fmt.Println("\nNext runs:")
	for _, u := range upcoming {
		fmt.Printf("  %s  %-40s %s\n", u.at.Format("Mon Jan 2 15:04"), stringutils.Truncate(u.name, 40), u.label)
	}
}
