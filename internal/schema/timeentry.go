package schema

import "time"

// TimeEntry is one tracked block of work.
// EndTime and Duration are unset while the entry is running.
type TimeEntry struct {
	ID        string     `json:"id"`
	Date      string     `json:"date"` // YYYY-MM-DD, local to the tracker's clock
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Activity  string     `json:"activity"`
	Project   string     `json:"project,omitempty"`
	Duration  float64    `json:"duration,omitempty"` // minutes
}
