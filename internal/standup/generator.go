// Package standup builds the daily standup report from recent development
// activity and renders it as Slack mrkdwn.
package standup

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/remoteflow/remoteflow/internal/schema"
)

const (
	dateLayout = "2006-01-02"

	// maxListed caps the commits and issues shown in the chat message.
	maxListed = 3
)

// ActivitySource supplies the raw activity a standup is built from.
type ActivitySource interface {
	RecentCommits(ctx context.Context, since time.Time) ([]schema.Commit, error)
	RecentPullRequests(ctx context.Context, since time.Time) ([]schema.PullRequest, error)
	AssignedIssues(ctx context.Context) ([]schema.Issue, error)
}

// Generator is a schema.StandupGenerator.
type Generator struct {
	source   ActivitySource
	lookback time.Duration
	now      func() time.Time
}

// NewGenerator returns a generator covering the last 24 hours of activity.
func NewGenerator(source ActivitySource) *Generator {
	return &Generator{source: source, lookback: 24 * time.Hour, now: time.Now}
}

// Generate fetches commits, pull requests and issues concurrently.
func (g *Generator) Generate(ctx context.Context) (schema.StandupData, error) {
	now := g.now()
	since := now.Add(-g.lookback)

	var (
		commits []schema.Commit
		prs     []schema.PullRequest
		issues  []schema.Issue
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		commits, err = g.source.RecentCommits(egCtx, since)
		if err != nil {
			return fmt.Errorf("recent commits: %w", err)
		}
		return nil
	})
	eg.Go(func() (err error) {
		prs, err = g.source.RecentPullRequests(egCtx, since)
		if err != nil {
			return fmt.Errorf("recent pull requests: %w", err)
		}
		return nil
	})
	eg.Go(func() (err error) {
		issues, err = g.source.AssignedIssues(egCtx)
		if err != nil {
			return fmt.Errorf("assigned issues: %w", err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return schema.StandupData{}, err
	}

	return schema.StandupData{
		Date:         now.Format(dateLayout),
		Commits:      commits,
		PullRequests: prs,
		Issues:       issues,
		Summary:      summarize(commits, prs),
	}, nil
}

// summarize renders a markdown summary grouped by repository.
func summarize(commits []schema.Commit, prs []schema.PullRequest) string {
	var b strings.Builder

	b.WriteString("## What I did yesterday\n\n")
	if len(commits) == 0 {
		b.WriteString("_No commits_\n")
	}
	for _, repo := range repoOrder(commits) {
		fmt.Fprintf(&b, "**%s**\n", repo)
		for _, c := range commits {
			if c.Repo == repo {
				fmt.Fprintf(&b, "  - %s\n", firstLine(c.Message))
			}
		}
	}

	b.WriteString("\n## Pull Requests\n\n")
	if len(prs) == 0 {
		b.WriteString("_No PRs_\n")
	}
	for _, group := range []struct {
		label string
		state schema.PullRequestState
	}{
		{"Open", schema.PullRequestOpen},
		{"Merged", schema.PullRequestMerged},
	} {
		var lines []string
		for _, pr := range prs {
			if pr.State == group.state {
				lines = append(lines, fmt.Sprintf("  - [#%d] %s (%s)", pr.Number, pr.Title, pr.Repo))
			}
		}
		if len(lines) > 0 {
			fmt.Fprintf(&b, "**%s:**\n%s\n", group.label, strings.Join(lines, "\n"))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatForChat renders data as a Slack message.
func (g *Generator) FormatForChat(data schema.StandupData) string {
	var lines []string

	lines = append(lines, fmt.Sprintf("*Daily Standup - %s*", displayDate(data.Date)), "")

	lines = append(lines, "*Yesterday:*")
	if n := len(data.Commits); n > 0 {
		lines = append(lines, fmt.Sprintf("• Pushed %d commits across %d repo(s)", n, len(repoOrder(data.Commits))))
		for _, c := range data.Commits[:min(n, maxListed)] {
			lines = append(lines, "  - "+firstLine(c.Message))
		}
		if n > maxListed {
			lines = append(lines, fmt.Sprintf("  _...and %d more_", n-maxListed))
		}
	} else {
		lines = append(lines, "• No commits")
	}

	if len(data.PullRequests) > 0 {
		lines = append(lines, "", "*Pull Requests:*")
		for _, pr := range data.PullRequests {
			lines = append(lines, fmt.Sprintf("%s <%s|#%d>: %s", stateMarker(pr.State), pr.URL, pr.Number, pr.Title))
		}
	}

	if n := len(data.Issues); n > 0 {
		lines = append(lines, "", fmt.Sprintf("*Assigned Issues (%d):*", n))
		for _, issue := range data.Issues[:min(n, maxListed)] {
			lines = append(lines, fmt.Sprintf("• <%s|#%d>: %s", issue.URL, issue.Number, issue.Title))
		}
		if n > maxListed {
			lines = append(lines, fmt.Sprintf("_...and %d more_", n-maxListed))
		}
	}

	return strings.Join(lines, "\n")
}

func stateMarker(s schema.PullRequestState) string {
	switch s {
	case schema.PullRequestMerged:
		return ":white_check_mark:"
	case schema.PullRequestOpen:
		return ":arrows_counterclockwise:"
	default:
		return ":x:"
	}
}

func displayDate(date string) string {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("Jan 2, 2006")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// repoOrder returns the distinct repositories in order of first appearance.
func repoOrder(commits []schema.Commit) []string {
	seen := make(map[string]bool)
	var repos []string
	for _, c := range commits {
		if !seen[c.Repo] {
			seen[c.Repo] = true
			repos = append(repos, c.Repo)
		}
	}
	return repos
}

// sortCommits orders commits newest first by their RFC 3339 timestamp.
func sortCommits(commits []schema.Commit) {
	sort.SliceStable(commits, func(i, j int) bool { return commits[i].Timestamp > commits[j].Timestamp })
}
