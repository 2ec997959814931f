// Package analytics summarises the current week's development activity and
// tracked time.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/remoteflow/remoteflow/internal/schema"
	"github.com/remoteflow/remoteflow/internal/standup"
)

const dateLayout = "2006-01-02"

// EntrySource supplies the week's completed time entries.
// Implemented by timetrack.Tracker.
type EntrySource interface {
	WeeklyEntries() ([]schema.TimeEntry, error)
}

// DailyStats is one day of the week.
type DailyStats struct {
	Date        string  `json:"date"`
	Commits     int     `json:"commits"`
	HoursWorked float64 `json:"hoursWorked"`
}

// Weekly is the week's summary. TimeTracked is in minutes.
type Weekly struct {
	TotalCommits        int          `json:"totalCommits"`
	TotalPullRequests   int          `json:"totalPullRequests"`
	TotalIssues         int          `json:"totalIssues"`
	ActiveRepos         []string     `json:"activeRepos"`
	TimeTracked         float64      `json:"timeTracked"`
	MostProductiveHours []int        `json:"mostProductiveHours"`
	Daily               []DailyStats `json:"daily"`
}

// Generator builds Weekly reports. Weeks start on Sunday in loc.
type Generator struct {
	activity standup.ActivitySource
	entries  EntrySource
	loc      *time.Location
	now      func() time.Time
}

// NewGenerator creates a Generator. A nil loc means UTC.
func NewGenerator(activity standup.ActivitySource, entries EntrySource, loc *time.Location) *Generator {
	if loc == nil {
		loc = time.UTC
	}
	return &Generator{activity: activity, entries: entries, loc: loc, now: time.Now}
}

// Generate fetches the week's activity and entries concurrently.
func (g *Generator) Generate(ctx context.Context) (Weekly, error) {
	now := g.now().In(g.loc)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, g.loc)
	weekStart := day.AddDate(0, 0, -int(day.Weekday()))

	var (
		commits []schema.Commit
		prs     []schema.PullRequest
		issues  []schema.Issue
		entries []schema.TimeEntry
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		commits, err = g.activity.RecentCommits(egCtx, weekStart)
		return err
	})
	eg.Go(func() (err error) {
		prs, err = g.activity.RecentPullRequests(egCtx, weekStart)
		return err
	})
	eg.Go(func() (err error) {
		issues, err = g.activity.AssignedIssues(egCtx)
		return err
	})
	eg.Go(func() (err error) {
		entries, err = g.entries.WeeklyEntries()
		return err
	})
	if err := eg.Wait(); err != nil {
		return Weekly{}, fmt.Errorf("weekly analytics: %w", err)
	}

	w := Weekly{
		TotalCommits:      len(commits),
		TotalPullRequests: len(prs),
		TotalIssues:       len(issues),
		ActiveRepos:       []string{},
	}

	byDate := map[string]*DailyStats{}
	for i := 0; i < 7; i++ {
		date := weekStart.AddDate(0, 0, i).Format(dateLayout)
		w.Daily = append(w.Daily, DailyStats{Date: date})
	}
	for i := range w.Daily {
		byDate[w.Daily[i].Date] = &w.Daily[i]
	}

	seen := map[string]bool{}
	hours := map[int]int{}
	for _, c := range commits {
		if !seen[c.Repo] {
			seen[c.Repo] = true
			w.ActiveRepos = append(w.ActiveRepos, c.Repo)
		}
		ts, err := time.Parse(time.RFC3339, c.Timestamp)
		if err != nil {
			continue
		}
		ts = ts.In(g.loc)
		hours[ts.Hour()]++
		if d, ok := byDate[ts.Format(dateLayout)]; ok {
			d.Commits++
		}
	}
	sort.Strings(w.ActiveRepos)

	for _, e := range entries {
		w.TimeTracked += e.Duration
		if d, ok := byDate[e.Date]; ok {
			d.HoursWorked += e.Duration / 60
		}
	}

	w.MostProductiveHours = topHours(hours, 3)
	return w, nil
}

// topHours returns up to n hours by descending commit count, earlier hour
// first on ties.
func topHours(counts map[int]int, n int) []int {
	out := make([]int, 0, len(counts))
	for h := range counts {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i]] != counts[out[j]] {
			return counts[out[i]] > counts[out[j]]
		}
		return out[i] < out[j]
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Format renders w for the terminal.
func Format(w Weekly) string {
	var b strings.Builder
	b.WriteString("📊 Weekly Analytics\n")
	b.WriteString(strings.Repeat("─", 50) + "\n")

	b.WriteString("\n📝 Activity:\n")
	fmt.Fprintf(&b, "  • Commits: %d\n", w.TotalCommits)
	fmt.Fprintf(&b, "  • Pull Requests: %d\n", w.TotalPullRequests)
	fmt.Fprintf(&b, "  • Open Issues: %d\n", w.TotalIssues)
	fmt.Fprintf(&b, "  • Active Repos: %d\n", len(w.ActiveRepos))

	minutes := int(w.TimeTracked + 0.5)
	b.WriteString("\n⏱️  Time Tracking:\n")
	fmt.Fprintf(&b, "  • Total Time: %d hours %d minutes\n", minutes/60, minutes%60)

	if len(w.MostProductiveHours) > 0 {
		b.WriteString("\n🌟 Most Productive Hours:\n")
		for _, h := range w.MostProductiveHours {
			fmt.Fprintf(&b, "  • %s\n", clockHour(h))
		}
	}

	b.WriteString("\n📅 Daily Breakdown:\n")
	for _, d := range w.Daily {
		if d.Commits == 0 && d.HoursWorked == 0 {
			continue
		}
		t, err := time.Parse(dateLayout, d.Date)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "  %s: %d commits, %.1fh\n", t.Format("Mon, Jan 2"), d.Commits, d.HoursWorked)
	}

	if len(w.ActiveRepos) > 0 {
		b.WriteString("\n📂 Active Repositories:\n")
		for _, r := range w.ActiveRepos {
			fmt.Fprintf(&b, "  • %s\n", r)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// clockHour renders 0..23 as "12:00 AM".."11:00 PM".
func clockHour(h int) string {
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	display := h % 12
	if display == 0 {
		display = 12
	}
	return fmt.Sprintf("%d:00 %s", display, suffix)
}
