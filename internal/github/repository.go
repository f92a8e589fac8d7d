package github

import (
	"fmt"
	"regexp"

	"github.com/nao1215/depscout/internal/model"
)

// repoURLPattern captures owner and repository from
// <scheme>://<host>/<owner>/<repo>(.git|/|end).
var repoURLPattern = regexp.MustCompile(`.+://[^/]+?/([^/]+?)/([^/]+?)(?:\.git|/|$)`)

// RepoRef identifies a repository.
type RepoRef struct {
	Owner string `json:"owner"`
	Name  string `json:"repo"`
}

// String returns "owner/repo".
func (r RepoRef) String() string {
	return r.Owner + "/" + r.Name
}

// ParseRepository extracts owner and repository from a repository URL such
// as git+https://github.com/owner/repo.git. The host is not checked.
func ParseRepository(rawURL string) (RepoRef, error) {
	m := repoURLPattern.FindStringSubmatch(rawURL)
	if m == nil || m[1] == "" || m[2] == "" {
		return RepoRef{}, fmt.Errorf("%w: %s", model.ErrUnsupportedRepository, rawURL)
	}
	return RepoRef{Owner: m[1], Name: m[2]}, nil
}
