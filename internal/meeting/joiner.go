// Package meeting opens calendar meetings in the user's desktop client.
package meeting

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/remoteflow/remoteflow/internal/schema"
)

// Platform is the conferencing product a meeting URL belongs to.
type Platform string

const (
	PlatformZoom    Platform = "zoom"
	PlatformTeams   Platform = "teams"
	PlatformMeet    Platform = "google_meet"
	PlatformUnknown Platform = "unknown"
)

// DetectPlatform classifies a meeting URL by host.
func DetectPlatform(url string) Platform {
	switch {
	case strings.Contains(url, "zoom.us"):
		return PlatformZoom
	case strings.Contains(url, "teams.microsoft.com"):
		return PlatformTeams
	case strings.Contains(url, "meet.google.com"):
		return PlatformMeet
	default:
		return PlatformUnknown
	}
}

// Opener hands a URL to the operating system.
type Opener func(ctx context.Context, url string) error

// Joiner is a schema.MeetingJoiner that opens meeting URLs with the
// platform's default handler, which routes Zoom and Teams links to their
// desktop apps when installed.
type Joiner struct {
	open    Opener
	timeout time.Duration
}

// NewJoiner returns a joiner using the system opener.
func NewJoiner() *Joiner {
	return &Joiner{open: SystemOpener, timeout: 15 * time.Second}
}

// JoinMeeting opens event's meeting URL. An event without a URL is logged
// and ignored.
func (j *Joiner) JoinMeeting(ctx context.Context, event schema.CalendarEvent) error {
	if event.MeetingURL == "" {
		slog.Info("meeting: no meeting URL", "event", event.Title)
		return nil
	}

	platform := DetectPlatform(event.MeetingURL)
	if platform == PlatformUnknown {
		slog.Warn("meeting: unknown platform, opening in browser", "url", event.MeetingURL)
	}

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	if err := j.open(ctx, event.MeetingURL); err != nil {
		return fmt.Errorf("open %s meeting %q: %w", platform, event.Title, err)
	}
	slog.Info("meeting: joined", "event", event.Title, "platform", platform)
	return nil
}

// SystemOpener opens url with open(1) on macOS, start on Windows and
// xdg-open elsewhere.
func SystemOpener(ctx context.Context, url string) error {
	name, args := openCommand(runtime.GOOS, url)
	cmd := exec.CommandContext(ctx, name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func openCommand(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "cmd", []string{"/c", "start", "", url}
	default:
		return "xdg-open", []string{url}
	}
}
