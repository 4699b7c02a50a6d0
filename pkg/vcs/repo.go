package vcs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when the requested object does not exist.
var ErrNotFound = errors.New("not found")

// Repo identifies a GitHub repository.
type Repo struct {
	Owner string
	Name  string
}

func (r Repo) String() string { return r.Owner + "/" + r.Name }

type Tag struct {
	Name   string
	Commit string
}

type Commit struct {
	SHA  string
	Date time.Time
}

type PullRequest struct {
	Number   int
	Title    string
	Body     string
	Author   string
	URL      string
	Base     string
	Labels   []string
	MergedAt time.Time // zero when unmerged
}

type Release struct {
	TagName    string
	Name       string
	Body       string
	CreatedAt  time.Time
	Draft      bool
	Prerelease bool
}

type Issue struct {
	Number int
	Title  string
	Body   string
	State  string
}

type Comment struct {
	Author string
	Body   string
}

type RepoClient interface {
	// ListTags returns tags, newest first, reading at most maxPages pages.
	ListTags(ctx context.Context, repo Repo, maxPages int) ([]Tag, error)

	// GetCommit resolves a ref to its commit SHA and committer date.
	GetCommit(ctx context.Context, repo Repo, ref string) (Commit, error)

	// FileContent returns the decoded content of path at ref.
	FileContent(ctx context.Context, repo Repo, path, ref string) ([]byte, error)

	// BranchExists reports whether the branch is present in the repository.
	BranchExists(ctx context.Context, repo Repo, branch string) (bool, error)

	// MergeBase returns the commit where head diverged from base.
	MergeBase(ctx context.Context, repo Repo, base, head string) (Commit, error)

	// SearchPullRequests runs an issue search query and returns the matching pull requests.
	SearchPullRequests(ctx context.Context, query string, maxPages int) ([]PullRequest, error)

	GetPullRequest(ctx context.Context, repo Repo, number int) (PullRequest, error)

	// ListReleases returns releases, newest first, reading at most maxPages pages.
	ListReleases(ctx context.Context, repo Repo, perPage, maxPages int) ([]Release, error)

	GetReleaseByTag(ctx context.Context, repo Repo, tag string) (Release, error)

	// ListCommits returns the commits on the default branch between since and until.
	ListCommits(ctx context.Context, repo Repo, since, until time.Time) ([]Commit, error)

	// PullRequestsForCommit returns the pull requests that introduced sha.
	PullRequestsForCommit(ctx context.Context, repo Repo, sha string) ([]PullRequest, error)

	PullRequestDiff(ctx context.Context, repo Repo, number int) (string, error)

	// ListComments returns issue and review comments of a pull request.
	ListComments(ctx context.Context, repo Repo, number int) ([]Comment, error)

	GetIssue(ctx context.Context, repo Repo, number int) (Issue, error)
}

// ParseRepo accepts "owner/repo" or a GitHub URL.
func ParseRepo(repoURL string) (Repo, error) {
	repoURL = strings.TrimPrefix(repoURL, "https://")
	repoURL = strings.TrimPrefix(repoURL, "http://")
	repoURL = strings.TrimPrefix(repoURL, "github.com/")
	repoURL = strings.TrimSuffix(repoURL, ".git")
	repoURL = strings.TrimSuffix(repoURL, "/")

	parts := strings.SplitN(repoURL, "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Repo{}, fmt.Errorf("cannot parse GitHub repo from %q", repoURL)
	}
	return Repo{Owner: parts[0], Name: parts[1]}, nil
}
