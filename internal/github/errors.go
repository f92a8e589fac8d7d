package github

import "errors"

// GitHub API errors.
// Rate limiting is reported with model.ErrRateLimited so that callers
// outside this package do not need to import it to detect quota problems.
var (
	// ErrAPI is returned for any other non-success response. The wrapped
	// message carries the API message and its documentation URL.
	ErrAPI = errors.New("GitHub API error")

	// ErrEmptyRepository is returned when owner or repository name is empty.
	ErrEmptyRepository = errors.New("owner and repository name are required")
)

// RateLimitHint is the guidance shown next to a rate limit error.
const RateLimitHint = "set GITHUB_TOKEN or run with --token to raise the GitHub API quota"
