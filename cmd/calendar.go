package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/remoteflow/remoteflow/internal/calendar"
	"github.com/remoteflow/remoteflow/internal/schema"
)

var calendarUpcoming int

var errNoCalendar = errors.New("no calendar configured: set calendar.eventsFile in the config")

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Show today's calendar events",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cal, loc, err := loadCalendar()
		if err != nil {
			return err
		}
		ctx := context.Background()

		if cmd.Flags().Changed("upcoming") {
			events, err := cal.UpcomingEvents(ctx, time.Duration(calendarUpcoming)*time.Minute)
			if err != nil {
				return err
			}
			fmt.Printf("Upcoming events (next %d min):\n\n", calendarUpcoming)
			printEvents(os.Stdout, events, loc, "No upcoming events")
			return nil
		}

		events, err := cal.TodayEvents(ctx)
		if err != nil {
			return err
		}
		fmt.Print("Today's events:\n\n")
		printEvents(os.Stdout, events, loc, "No events today")
		return nil
	},
}

func loadCalendar() (*calendar.File, *time.Location, error) {
	_, c, err := buildContainer()
	if err != nil {
		return nil, nil, err
	}
	if c.Calendar() == nil {
		return nil, nil, errNoCalendar
	}
	return c.Calendar(), c.Location(), nil
}

// printEvents writes one block per event: the title, its span on a 12-hour
// clock and the meeting link when there is one.
func printEvents(w io.Writer, events []schema.CalendarEvent, loc *time.Location, empty string) {
	if len(events) == 0 {
		fmt.Fprintln(w, empty)
		return
	}
	for _, e := range events {
		fmt.Fprintln(w, e.Title)
		fmt.Fprintf(w, "  %s - %s\n", e.Start.In(loc).Format("3:04 PM"), e.End.In(loc).Format("3:04 PM"))
		if e.MeetingURL != "" {
			fmt.Fprintf(w, "  %s\n", e.MeetingURL)
		}
	}
}

func init() {
	calendarCmd.Flags().IntVarP(&calendarUpcoming, "upcoming", "u", 30, "Show events starting in the next N minutes instead")
}
