package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/remoteflow/remoteflow/internal/meeting"
	"github.com/remoteflow/remoteflow/internal/schema"
)

// joinLookahead is how far ahead join looks when no meeting is running.
const joinLookahead = 5 * time.Minute

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join the current meeting, or the next one starting within 5 minutes",
	RunE: func(_ *cobra.Command, _ []string) error {
		cal, _, err := loadCalendar()
		if err != nil {
			return err
		}
		return joinMeeting(context.Background(), os.Stdout, cal, meeting.NewJoiner())
	},
}

// pickMeeting returns the meeting in progress, else the first one starting
// within joinLookahead, else nil. current reports which of the two it is.
func pickMeeting(ctx context.Context, cal schema.Calendar) (event *schema.CalendarEvent, current bool, err error) {
	event, err = cal.CurrentMeeting(ctx)
	if err != nil || event != nil {
		return event, event != nil, err
	}
	upcoming, err := cal.UpcomingEvents(ctx, joinLookahead)
	if err != nil {
		return nil, false, err
	}
	if len(upcoming) == 0 {
		return nil, false, nil
	}
	return &upcoming[0], false, nil
}

func joinMeeting(ctx context.Context, w io.Writer, cal schema.Calendar, joiner schema.MeetingJoiner) error {
	event, current, err := pickMeeting(ctx, cal)
	if err != nil {
		return err
	}
	switch {
	case event == nil:
		fmt.Fprintln(w, "No meetings to join")
		return nil
	case current:
		fmt.Fprintf(w, "Joining current meeting: %s\n", event.Title)
	default:
		fmt.Fprintf(w, "Joining next meeting: %s\n", event.Title)
	}
	return joiner.JoinMeeting(ctx, *event)
}
