// Package cmdutils renders engine results for the terminal.
package cmdutils

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/remoteflow/remoteflow/internal/actions"
	"github.com/remoteflow/remoteflow/internal/rules"
	"github.com/remoteflow/remoteflow/internal/shared/stringutils"
)

const logo = "🌊"

var outcomeMark = map[actions.Outcome]string{
	actions.OutcomeOK:      "✓",
	actions.OutcomeSkipped: "-",
	actions.OutcomeFailed:  "✗",
}

// PrintReport writes one line per executed action.
func PrintReport(w io.Writer, report actions.Report) {
	fmt.Fprintf(w, "\n%s %s (%s)\n", logo, report.RuleName, report.RuleID)
	if len(report.Results) == 0 {
		fmt.Fprintln(w, "  (no actions)")
		return
	}
	for _, res := range report.Results {
		line := fmt.Sprintf("  %s %-13s %s", outcomeMark[res.Outcome], res.Type, res.Duration.Round(time.Millisecond))
		switch {
		case res.Error != "":
			line += "  " + res.Error
		case res.Reason != "":
			line += "  (" + res.Reason + ")"
		}
		fmt.Fprintln(w, line)
	}
	if n := report.Failed(); n > 0 {
		fmt.Fprintf(w, "\n%d of %d actions failed\n", n, len(report.Results))
	}
}

// PrintRules writes rules as an aligned table.
func PrintRules(w io.Writer, list []rules.Rule) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No rules.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTRIGGER\tACTIONS\tENABLED")
	for _, r := range list {
		enabled := "✓"
		if !r.Enabled {
			enabled = "✗"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.ID, stringutils.Truncate(r.Name, 30), TriggerLabel(r), actionTypes(r.Actions), enabled)
	}
	tw.Flush()
}

// TriggerLabel renders the trigger with its payload, e.g. "time 0 9 * * 1-5".
func TriggerLabel(r rules.Rule) string {
	switch r.Trigger {
	case rules.TriggerTime:
		return "time " + r.TriggerConfig.Time
	case rules.TriggerCalendar:
		return "calendar " + string(r.TriggerConfig.CalendarEventType)
	default:
		return string(r.Trigger)
	}
}

func actionTypes(list []rules.Action) string {
	if len(list) == 0 {
		return "-"
	}
	names := make([]string, len(list))
	for i, a := range list {
		names[i] = string(a.Type())
	}
	return strings.Join(names, ",")
}
