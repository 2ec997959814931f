package slack

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/remoteflow/remoteflow/internal/schema"
)

// Preset is a named status.
type Preset struct {
	Text  string
	Emoji string
	// DefaultDuration applies when the caller gives none. Zero never expires.
	DefaultDuration time.Duration
}

// Presets are the built-in statuses.
var Presets = map[string]Preset{
	"working": {Text: "Working", Emoji: ":computer:"},
	"meeting": {Text: "In a meeting", Emoji: ":calendar:"},
	"focus":   {Text: "Focus time - DND", Emoji: ":no_entry:"},
	"lunch":   {Text: "Lunch break", Emoji: ":fork_and_knife:", DefaultDuration: time.Hour},
	"away":    {Text: "Away", Emoji: ":palm_tree:"},
}

// PresetNames returns the preset names, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for n := range Presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ApplyPreset sets the named status on s. A positive d overrides the
// preset's default duration.
func ApplyPreset(ctx context.Context, s schema.StatusUpdater, name string, d time.Duration, now time.Time) error {
	p, ok := Presets[name]
	if !ok {
		return fmt.Errorf("unknown status preset %q (want one of %v)", name, PresetNames())
	}
	if d <= 0 {
		d = p.DefaultDuration
	}
	var exp *time.Time
	if d > 0 {
		t := now.Add(d)
		exp = &t
	}
	return s.UpdateStatus(ctx, p.Text, p.Emoji, exp)
}
