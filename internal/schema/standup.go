package schema

// StandupData is the raw material for a daily standup report.
type StandupData struct {
	Date         string        `json:"date"` // YYYY-MM-DD
	Commits      []Commit      `json:"commits"`
	PullRequests []PullRequest `json:"pullRequests"`
	Issues       []Issue       `json:"issues"`
	Summary      string        `json:"summary"`
}

type Commit struct {
	SHA       string `json:"sha"`
	Message   string `json:"message"`
	Repo      string `json:"repo"`
	Timestamp string `json:"timestamp"`
	URL       string `json:"url"`
}

// PullRequestState is one of "open", "closed" or "merged".
type PullRequestState string

const (
	PullRequestOpen   PullRequestState = "open"
	PullRequestClosed PullRequestState = "closed"
	PullRequestMerged PullRequestState = "merged"
)

type PullRequest struct {
	Number int              `json:"number"`
	Title  string           `json:"title"`
	Repo   string           `json:"repo"`
	State  PullRequestState `json:"state"`
	URL    string           `json:"url"`
}

type Issue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Repo   string `json:"repo"`
	State  string `json:"state"`
	URL    string `json:"url"`
}
