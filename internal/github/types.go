package github

import "time"

// Repo is the repository document.
type Repo struct {
	FullName        string    `json:"full_name"`
	HTMLURL         string    `json:"html_url"`
	Homepage        string    `json:"homepage"`
	CreatedAt       time.Time `json:"created_at"`
	StargazersCount float64   `json:"stargazers_count"`
	OpenIssuesCount int       `json:"open_issues_count"`
	Archived        bool      `json:"archived"`
}

// Issue is an issue as listed by the issues endpoint. That endpoint also
// lists pull requests.
type Issue struct {
	Number    int        `json:"number"`
	HTMLURL   string     `json:"html_url"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// PullRequest is a pull request as listed by the pulls endpoint.
type PullRequest struct {
	Number    int       `json:"number"`
	HTMLURL   string    `json:"html_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Participation is the weekly commit count of the last 52 weeks.
type Participation struct {
	All   []int `json:"all"`
	Owner []int `json:"owner"`
}

// Commit is a commit as listed by the commits endpoint.
type Commit struct {
	SHA    string       `json:"sha"`
	Commit CommitDetail `json:"commit"`
}

// CommitDetail is the git-level part of a commit.
type CommitDetail struct {
	Author CommitAuthor `json:"author"`
}

// CommitAuthor is the author signature of a commit.
type CommitAuthor struct {
	Name string    `json:"name"`
	Date time.Time `json:"date"`
}

// RepoData is everything the metrics read from GitHub for one repository.
// OldestOpenIssue, OldestPR and LastCommit are nil when the list is empty.
type RepoData struct {
	Ref              RepoRef        `json:"ref"`
	Repo             *Repo          `json:"repo"`
	OldestOpenIssue  *Issue         `json:"oldestOpenIssue"`
	OldestPR         *PullRequest   `json:"oldestPR"`
	CommitsStats     *Participation `json:"commitsStats"`
	LastCommit       *Commit        `json:"lastCommit"`
	LastClosedIssues []Issue        `json:"lastClosedIssues"`
}
