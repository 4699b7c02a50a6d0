// Package vcstest provides an in-memory vcs.RepoClient for tests.
package vcstest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/runtime-release-mapper/pkg/vcs"
)

// Search answers any query containing Contains with PRs.
type Search struct {
	Contains string
	PRs      []vcs.PullRequest
}

// Fake is a RepoClient backed by maps. Keys are built with Ref and File.
// Missing entries produce vcs.ErrNotFound.
type Fake struct {
	Tags         map[string][]vcs.Tag         // repo
	Commits      map[string]vcs.Commit        // Ref(repo, ref)
	Files        map[string][]byte            // File(repo, ref, path)
	Branches     map[string]bool              // Ref(repo, branch)
	MergeBases   map[string]vcs.Commit        // Ref(repo, head)
	Searches     []Search                     // first match wins
	PullRequests map[string]vcs.PullRequest   // Number(repo, n)
	Releases     map[string][]vcs.Release     // repo
	History      map[string][]vcs.Commit      // repo
	CommitPRs    map[string][]vcs.PullRequest // sha
	Diffs        map[string]string            // Number(repo, n)
	Comments     map[string][]vcs.Comment     // Number(repo, n)
	Issues       map[string]vcs.Issue         // Number(repo, n)

	mu      sync.Mutex
	queries []string
	fetched []string
}

func New() *Fake {
	return &Fake{
		Tags:         make(map[string][]vcs.Tag),
		Commits:      make(map[string]vcs.Commit),
		Files:        make(map[string][]byte),
		Branches:     make(map[string]bool),
		MergeBases:   make(map[string]vcs.Commit),
		PullRequests: make(map[string]vcs.PullRequest),
		Releases:     make(map[string][]vcs.Release),
		History:      make(map[string][]vcs.Commit),
		CommitPRs:    make(map[string][]vcs.PullRequest),
		Diffs:        make(map[string]string),
		Comments:     make(map[string][]vcs.Comment),
		Issues:       make(map[string]vcs.Issue),
	}
}

func Ref(repo vcs.Repo, ref string) string { return repo.String() + "@" + ref }

func File(repo vcs.Repo, ref, path string) string { return Ref(repo, ref) + ":" + path }

func Number(repo vcs.Repo, n int) string { return fmt.Sprintf("%s#%d", repo, n) }

// Queries returns the search queries issued so far.
func (f *Fake) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

// Fetched returns the Number keys passed to GetPullRequest.
func (f *Fake) Fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, vcs.ErrNotFound)
}

func (f *Fake) ListTags(_ context.Context, repo vcs.Repo, _ int) ([]vcs.Tag, error) {
	return f.Tags[repo.String()], nil
}

func (f *Fake) GetCommit(_ context.Context, repo vcs.Repo, ref string) (vcs.Commit, error) {
	c, ok := f.Commits[Ref(repo, ref)]
	if !ok {
		return vcs.Commit{}, notFound("commit " + ref)
	}
	return c, nil
}

func (f *Fake) FileContent(_ context.Context, repo vcs.Repo, path, ref string) ([]byte, error) {
	data, ok := f.Files[File(repo, ref, path)]
	if !ok {
		return nil, notFound(path)
	}
	return data, nil
}

func (f *Fake) BranchExists(_ context.Context, repo vcs.Repo, branch string) (bool, error) {
	return f.Branches[Ref(repo, branch)], nil
}

func (f *Fake) MergeBase(_ context.Context, repo vcs.Repo, _, head string) (vcs.Commit, error) {
	c, ok := f.MergeBases[Ref(repo, head)]
	if !ok {
		return vcs.Commit{}, notFound("merge base " + head)
	}
	return c, nil
}

func (f *Fake) SearchPullRequests(_ context.Context, query string, _ int) ([]vcs.PullRequest, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	for _, s := range f.Searches {
		if strings.Contains(query, s.Contains) {
			return s.PRs, nil
		}
	}
	return nil, nil
}

func (f *Fake) GetPullRequest(_ context.Context, repo vcs.Repo, number int) (vcs.PullRequest, error) {
	key := Number(repo, number)
	f.mu.Lock()
	f.fetched = append(f.fetched, key)
	f.mu.Unlock()
	pr, ok := f.PullRequests[key]
	if !ok {
		return vcs.PullRequest{}, notFound(key)
	}
	return pr, nil
}

func (f *Fake) ListReleases(_ context.Context, repo vcs.Repo, _, _ int) ([]vcs.Release, error) {
	return f.Releases[repo.String()], nil
}

func (f *Fake) GetReleaseByTag(_ context.Context, repo vcs.Repo, tag string) (vcs.Release, error) {
	for _, r := range f.Releases[repo.String()] {
		if r.TagName == tag {
			return r, nil
		}
	}
	return vcs.Release{}, notFound("release " + tag)
}

func (f *Fake) ListCommits(_ context.Context, repo vcs.Repo, since, until time.Time) ([]vcs.Commit, error) {
	var out []vcs.Commit
	for _, c := range f.History[repo.String()] {
		if c.Date.Before(since) || c.Date.After(until) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *Fake) PullRequestsForCommit(_ context.Context, _ vcs.Repo, sha string) ([]vcs.PullRequest, error) {
	return f.CommitPRs[sha], nil
}

func (f *Fake) PullRequestDiff(_ context.Context, repo vcs.Repo, number int) (string, error) {
	d, ok := f.Diffs[Number(repo, number)]
	if !ok {
		return "", notFound("diff")
	}
	return d, nil
}

func (f *Fake) ListComments(_ context.Context, repo vcs.Repo, number int) ([]vcs.Comment, error) {
	return f.Comments[Number(repo, number)], nil
}

func (f *Fake) GetIssue(_ context.Context, repo vcs.Repo, number int) (vcs.Issue, error) {
	is, ok := f.Issues[Number(repo, number)]
	if !ok {
		return vcs.Issue{}, notFound("issue")
	}
	return is, nil
}

var _ vcs.RepoClient = (*Fake)(nil)
