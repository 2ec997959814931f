package standup

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/remoteflow/remoteflow/internal/schema"
)

// GitSource reads commits from local git checkouts. It has no pull
// request or issue tracker, so those lists are always empty; configure a
// GitHub account to get them.
type GitSource struct {
	Repos  []string // checkout paths
	Author string   // passed to git log --author; empty means everyone
}

// field separator in the git log format
const unitSep = "\x1f"

// RecentCommits runs git log in every repository and merges the results,
// newest first.
func (g GitSource) RecentCommits(ctx context.Context, since time.Time) ([]schema.Commit, error) {
	var all []schema.Commit
	for _, repo := range g.Repos {
		out, err := g.log(ctx, repo, since)
		if err != nil {
			return nil, err
		}
		all = append(all, parseLog(filepath.Base(repo), out)...)
	}
	sortCommits(all)
	return all, nil
}

func (GitSource) RecentPullRequests(context.Context, time.Time) ([]schema.PullRequest, error) {
	return nil, nil
}

func (GitSource) AssignedIssues(context.Context) ([]schema.Issue, error) {
	return nil, nil
}

func (g GitSource) log(ctx context.Context, repo string, since time.Time) (string, error) {
	args := []string{
		"-C", repo, "log", "--all", "--no-merges",
		"--since=" + since.Format(time.RFC3339),
		"--pretty=format:%H" + unitSep + "%cI" + unitSep + "%B" + "\x1e",
	}
	if g.Author != "" {
		args = append(args, "--author="+g.Author)
	}
	cmd := exec.CommandContext(ctx, "git", args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git log in %s: %w: %s", repo, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// parseLog splits records on the record separator and fields on unitSep.
func parseLog(repo, out string) []schema.Commit {
	var commits []schema.Commit
	for _, rec := range strings.Split(out, "\x1e") {
		rec = strings.TrimSpace(rec)
		if rec == "" {
			continue
		}
		parts := strings.SplitN(rec, unitSep, 3)
		if len(parts) != 3 {
			continue
		}
		sha := parts[0]
		if len(sha) > 7 {
			sha = sha[:7]
		}
		commits = append(commits, schema.Commit{
			SHA:       sha,
			Message:   strings.TrimSpace(parts[2]),
			Repo:      repo,
			Timestamp: parts[1],
		})
	}
	return commits
}
