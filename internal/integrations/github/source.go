// Package github reads a user's recent commits, pull requests and assigned
// issues from the GitHub API. Source implements standup.ActivitySource.
package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v66/github"

	"github.com/remoteflow/remoteflow/internal/schema"
)

const (
	eventsPerPage = 100
	prsPerPage    = 50
	issuesPerPage = 30
)

// Source queries GitHub on behalf of one user.
type Source struct {
	client   *gh.Client
	username string
}

// Option configures a Source.
type Option func(*Source) error

// WithBaseURL points the client at another API root, such as a GitHub
// Enterprise server.
func WithBaseURL(base string) Option {
	return func(s *Source) error {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return fmt.Errorf("github: base url: %w", err)
		}
		s.client.BaseURL = u
		return nil
	}
}

// NewSource creates a Source authenticated with token.
func NewSource(token, username string, opts ...Option) (*Source, error) {
	s := &Source{client: gh.NewClient(nil).WithAuthToken(token), username: username}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// RecentCommits returns the commits of the user's push events created at
// or after since, newest first.
func (s *Source) RecentCommits(ctx context.Context, since time.Time) ([]schema.Commit, error) {
	events, _, err := s.client.Activity.ListEventsPerformedByUser(ctx, s.username, false,
		&gh.ListOptions{PerPage: eventsPerPage})
	if err != nil {
		return nil, fmt.Errorf("github: list events: %w", err)
	}

	var out []schema.Commit
	for _, e := range events {
		if e.GetType() != "PushEvent" {
			continue
		}
		created := e.GetCreatedAt().Time
		if created.Before(since) {
			continue
		}
		payload, err := e.ParsePayload()
		if err != nil {
			return nil, fmt.Errorf("github: push event payload: %w", err)
		}
		push, ok := payload.(*gh.PushEvent)
		if !ok {
			continue
		}
		repo := e.GetRepo().GetName()
		for _, c := range push.Commits {
			sha := c.GetSHA()
			if sha == "" {
				sha = c.GetID()
			}
			out = append(out, schema.Commit{
				SHA:       shortSHA(sha),
				Message:   c.GetMessage(),
				Repo:      repo,
				Timestamp: created.Format(time.RFC3339),
				URL:       fmt.Sprintf("https://github.com/%s/commit/%s", repo, sha),
			})
		}
	}
	return out, nil
}

// RecentPullRequests returns the user's pull requests updated on or after
// since's date.
func (s *Source) RecentPullRequests(ctx context.Context, since time.Time) ([]schema.PullRequest, error) {
	q := fmt.Sprintf("author:%s type:pr updated:>=%s", s.username, since.Format("2006-01-02"))
	issues, err := s.search(ctx, q, prsPerPage)
	if err != nil {
		return nil, err
	}
	out := make([]schema.PullRequest, 0, len(issues))
	for _, is := range issues {
		out = append(out, schema.PullRequest{
			Number: is.GetNumber(),
			Title:  is.GetTitle(),
			Repo:   repoFromURL(is.GetRepositoryURL()),
			State:  prState(is),
			URL:    is.GetHTMLURL(),
		})
	}
	return out, nil
}

// AssignedIssues returns the open issues assigned to the user.
func (s *Source) AssignedIssues(ctx context.Context) ([]schema.Issue, error) {
	q := fmt.Sprintf("assignee:%s type:issue state:open", s.username)
	issues, err := s.search(ctx, q, issuesPerPage)
	if err != nil {
		return nil, err
	}
	out := make([]schema.Issue, 0, len(issues))
	for _, is := range issues {
		out = append(out, schema.Issue{
			Number: is.GetNumber(),
			Title:  is.GetTitle(),
			Repo:   repoFromURL(is.GetRepositoryURL()),
			State:  is.GetState(),
			URL:    is.GetHTMLURL(),
		})
	}
	return out, nil
}

func (s *Source) search(ctx context.Context, q string, perPage int) ([]*gh.Issue, error) {
	res, _, err := s.client.Search.Issues(ctx, q, &gh.SearchOptions{
		Sort:        "updated",
		ListOptions: gh.ListOptions{PerPage: perPage},
	})
	if err != nil {
		return nil, fmt.Errorf("github: search %q: %w", q, err)
	}
	return res.Issues, nil
}

func prState(is *gh.Issue) schema.PullRequestState {
	if is.GetState() == "open" {
		return schema.PullRequestOpen
	}
	if l := is.PullRequestLinks; l != nil && l.MergedAt != nil {
		return schema.PullRequestMerged
	}
	return schema.PullRequestClosed
}

// repoFromURL turns https://api.github.com/repos/owner/name into owner/name.
func repoFromURL(u string) string {
	parts := strings.Split(strings.TrimSuffix(u, "/"), "/")
	if len(parts) < 2 {
		return u
	}
	return parts[len(parts)-2] + "/" + parts[len(parts)-1]
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
