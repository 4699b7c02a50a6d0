package vcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/go-github/v60/github"
)

const (
	defaultMaxRetries   = 4
	defaultBackoff      = 2 * time.Second
	defaultMaxWait      = 15 * time.Minute
	lowRateLimitWarning = 100
)

type GitHubClient struct {
	client     *github.Client
	logger     *slog.Logger
	maxRetries int
	backoff    time.Duration
	maxWait    time.Duration
	sleep      func(ctx context.Context, d time.Duration) error

	mu          sync.Mutex
	warnedReset time.Time
}

type Option func(*GitHubClient)

func WithLogger(l *slog.Logger) Option {
	return func(g *GitHubClient) { g.logger = l }
}

// WithRetry sets how often a rate-limited or failing request is retried and
// the initial backoff between attempts.
func WithRetry(maxRetries int, backoff time.Duration) Option {
	return func(g *GitHubClient) {
		g.maxRetries = maxRetries
		g.backoff = backoff
	}
}

// NewClient returns a go-github client, authenticated when token is set.
func NewClient(token string) *github.Client {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return client
}

func NewGitHubClient(client *github.Client, opts ...Option) *GitHubClient {
	g := &GitHubClient{
		client:     client,
		logger:     slog.Default(),
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
		maxWait:    defaultMaxWait,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// call runs fn, retrying rate-limit and server errors with exponential
// backoff. A 404 is reported as ErrNotFound.
func (g *GitHubClient) call(ctx context.Context, op string, fn func() (*github.Response, error)) error {
	backoff := g.backoff
	for attempt := 0; ; attempt++ {
		resp, err := fn()
		g.observeRate(resp)
		if err == nil {
			return nil
		}
		if isNotFound(resp, err) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		wait, retryable := g.retryDelay(err, backoff)
		if !retryable || attempt >= g.maxRetries {
			return fmt.Errorf("%s: %w", op, err)
		}
		g.logger.WarnContext(ctx, "github request throttled, retrying",
			"op", op, "attempt", attempt+1, "wait", wait.Round(time.Second), "error", err)
		if err := g.sleep(ctx, wait); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		backoff *= 2
	}
}

func isNotFound(resp *github.Response, err error) bool {
	if resp != nil && resp.Response != nil && resp.StatusCode == http.StatusNotFound {
		return true
	}
	var respErr *github.ErrorResponse
	return errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == http.StatusNotFound
}

func (g *GitHubClient) retryDelay(err error, backoff time.Duration) (time.Duration, bool) {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		wait := time.Until(rateErr.Rate.Reset.Time) + time.Second
		if wait < backoff {
			wait = backoff
		}
		return min(wait, g.maxWait), true
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		if d := abuseErr.GetRetryAfter(); d > 0 {
			return min(d, g.maxWait), true
		}
		return backoff, true
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode >= http.StatusInternalServerError {
		return backoff, true
	}
	return 0, false
}

func (g *GitHubClient) observeRate(resp *github.Response) {
	if resp == nil || resp.Rate.Limit == 0 || resp.Rate.Remaining >= lowRateLimitWarning {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.warnedReset.Equal(resp.Rate.Reset.Time) {
		return
	}
	g.warnedReset = resp.Rate.Reset.Time
	g.logger.Warn("low github rate limit",
		"remaining", resp.Rate.Remaining, "limit", resp.Rate.Limit, "reset", resp.Rate.Reset.Time)
}

func (g *GitHubClient) ListTags(ctx context.Context, repo Repo, maxPages int) ([]Tag, error) {
	var allTags []Tag
	opts := &github.ListOptions{PerPage: 100}

	for page := 1; maxPages <= 0 || page <= maxPages; page++ {
		var (
			tags []*github.RepositoryTag
			resp *github.Response
		)
		err := g.call(ctx, "list tags for "+repo.String(), func() (*github.Response, error) {
			var err error
			tags, resp, err = g.client.Repositories.ListTags(ctx, repo.Owner, repo.Name, opts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}
		for _, t := range tags {
			allTags = append(allTags, Tag{
				Name:   t.GetName(),
				Commit: t.GetCommit().GetSHA(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return allTags, nil
}

func (g *GitHubClient) GetCommit(ctx context.Context, repo Repo, ref string) (Commit, error) {
	var commit *github.RepositoryCommit
	err := g.call(ctx, fmt.Sprintf("get commit %s in %s", ref, repo), func() (*github.Response, error) {
		var (
			resp *github.Response
			err  error
		)
		commit, resp, err = g.client.Repositories.GetCommit(ctx, repo.Owner, repo.Name, ref, nil)
		return resp, err
	})
	if err != nil {
		return Commit{}, err
	}
	return toCommit(commit), nil
}

func toCommit(c *github.RepositoryCommit) Commit {
	return Commit{
		SHA:  c.GetSHA(),
		Date: c.GetCommit().GetCommitter().GetDate().Time,
	}
}

func (g *GitHubClient) FileContent(ctx context.Context, repo Repo, path, ref string) ([]byte, error) {
	opts := &github.RepositoryContentGetOptions{Ref: ref}
	op := fmt.Sprintf("get %s@%s in %s", path, ref, repo)

	var file *github.RepositoryContent
	err := g.call(ctx, op, func() (*github.Response, error) {
		var (
			resp *github.Response
			err  error
		)
		file, _, resp, err = g.client.Repositories.GetContents(ctx, repo.Owner, repo.Name, path, opts)
		return resp, err
	})
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, fmt.Errorf("%s: path is a directory", op)
	}

	// Files over 1MB come back without inline content.
	if file.GetEncoding() != "none" && file.Content != nil {
		content, err := file.GetContent()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return []byte(content), nil
	}

	var rc io.ReadCloser
	err = g.call(ctx, op, func() (*github.Response, error) {
		var (
			resp *github.Response
			err  error
		)
		rc, resp, err = g.client.Repositories.DownloadContents(ctx, repo.Owner, repo.Name, path, opts)
		return resp, err
	})
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return data, nil
}

func (g *GitHubClient) BranchExists(ctx context.Context, repo Repo, branch string) (bool, error) {
	err := g.call(ctx, fmt.Sprintf("get branch %s in %s", branch, repo), func() (*github.Response, error) {
		_, resp, err := g.client.Repositories.GetBranch(ctx, repo.Owner, repo.Name, branch, 1)
		return resp, err
	})
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (g *GitHubClient) MergeBase(ctx context.Context, repo Repo, base, head string) (Commit, error) {
	var comparison *github.CommitsComparison
	err := g.call(ctx, fmt.Sprintf("compare %s...%s in %s", base, head, repo), func() (*github.Response, error) {
		var (
			resp *github.Response
			err  error
		)
		comparison, resp, err = g.client.Repositories.CompareCommits(ctx, repo.Owner, repo.Name, base, head, &github.ListOptions{PerPage: 1})
		return resp, err
	})
	if err != nil {
		return Commit{}, err
	}
	mb := comparison.GetMergeBaseCommit()
	if mb == nil {
		return Commit{}, fmt.Errorf("compare %s...%s in %s: no merge base: %w", base, head, repo, ErrNotFound)
	}
	return toCommit(mb), nil
}

func (g *GitHubClient) SearchPullRequests(ctx context.Context, query string, maxPages int) ([]PullRequest, error) {
	var prs []PullRequest
	opts := &github.SearchOptions{ListOptions: github.ListOptions{PerPage: 100}}

	for page := 1; maxPages <= 0 || page <= maxPages; page++ {
		var (
			result *github.IssuesSearchResult
			resp   *github.Response
		)
		err := g.call(ctx, fmt.Sprintf("search %q", query), func() (*github.Response, error) {
			var err error
			result, resp, err = g.client.Search.Issues(ctx, query, opts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}
		for _, issue := range result.Issues {
			if !issue.IsPullRequest() {
				continue
			}
			prs = append(prs, PullRequest{
				Number:   issue.GetNumber(),
				Title:    issue.GetTitle(),
				Body:     issue.GetBody(),
				Author:   issue.GetUser().GetLogin(),
				URL:      issue.GetHTMLURL(),
				Labels:   labelNames(issue.Labels),
				MergedAt: issue.GetPullRequestLinks().GetMergedAt().Time,
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return prs, nil
}

func labelNames(labels []*github.Label) []string {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.GetName())
	}
	return names
}

func (g *GitHubClient) GetPullRequest(ctx context.Context, repo Repo, number int) (PullRequest, error) {
	var pr *github.PullRequest
	err := g.call(ctx, fmt.Sprintf("get pull request #%d in %s", number, repo), func() (*github.Response, error) {
		var (
			resp *github.Response
			err  error
		)
		pr, resp, err = g.client.PullRequests.Get(ctx, repo.Owner, repo.Name, number)
		return resp, err
	})
	if err != nil {
		return PullRequest{}, err
	}
	return toPullRequest(pr), nil
}

func toPullRequest(pr *github.PullRequest) PullRequest {
	return PullRequest{
		Number:   pr.GetNumber(),
		Title:    pr.GetTitle(),
		Body:     pr.GetBody(),
		Author:   pr.GetUser().GetLogin(),
		URL:      pr.GetHTMLURL(),
		Base:     pr.GetBase().GetRef(),
		Labels:   labelNames(pr.Labels),
		MergedAt: pr.GetMergedAt().Time,
	}
}

func (g *GitHubClient) ListReleases(ctx context.Context, repo Repo, perPage, maxPages int) ([]Release, error) {
	var releases []Release
	opts := &github.ListOptions{PerPage: perPage}

	for page := 1; maxPages <= 0 || page <= maxPages; page++ {
		var (
			batch []*github.RepositoryRelease
			resp  *github.Response
		)
		err := g.call(ctx, "list releases for "+repo.String(), func() (*github.Response, error) {
			var err error
			batch, resp, err = g.client.Repositories.ListReleases(ctx, repo.Owner, repo.Name, opts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}
		for _, r := range batch {
			releases = append(releases, toRelease(r))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return releases, nil
}

func toRelease(r *github.RepositoryRelease) Release {
	return Release{
		TagName:    r.GetTagName(),
		Name:       r.GetName(),
		Body:       r.GetBody(),
		CreatedAt:  r.GetCreatedAt().Time,
		Draft:      r.GetDraft(),
		Prerelease: r.GetPrerelease(),
	}
}

func (g *GitHubClient) GetReleaseByTag(ctx context.Context, repo Repo, tag string) (Release, error) {
	var release *github.RepositoryRelease
	err := g.call(ctx, fmt.Sprintf("get release %s in %s", tag, repo), func() (*github.Response, error) {
		var (
			resp *github.Response
			err  error
		)
		release, resp, err = g.client.Repositories.GetReleaseByTag(ctx, repo.Owner, repo.Name, tag)
		return resp, err
	})
	if err != nil {
		return Release{}, err
	}
	return toRelease(release), nil
}

func (g *GitHubClient) ListCommits(ctx context.Context, repo Repo, since, until time.Time) ([]Commit, error) {
	var commits []Commit
	opts := &github.CommitsListOptions{
		Since:       since,
		Until:       until,
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		var (
			batch []*github.RepositoryCommit
			resp  *github.Response
		)
		err := g.call(ctx, "list commits for "+repo.String(), func() (*github.Response, error) {
			var err error
			batch, resp, err = g.client.Repositories.ListCommits(ctx, repo.Owner, repo.Name, opts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}
		for _, c := range batch {
			commits = append(commits, toCommit(c))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return commits, nil
}

func (g *GitHubClient) PullRequestsForCommit(ctx context.Context, repo Repo, sha string) ([]PullRequest, error) {
	var prs []*github.PullRequest
	err := g.call(ctx, fmt.Sprintf("list pull requests for %s in %s", sha, repo), func() (*github.Response, error) {
		var (
			resp *github.Response
			err  error
		)
		prs, resp, err = g.client.PullRequests.ListPullRequestsWithCommit(ctx, repo.Owner, repo.Name, sha, nil)
		return resp, err
	})
	if err != nil {
		return nil, err
	}
	out := make([]PullRequest, 0, len(prs))
	for _, pr := range prs {
		out = append(out, toPullRequest(pr))
	}
	return out, nil
}

func (g *GitHubClient) PullRequestDiff(ctx context.Context, repo Repo, number int) (string, error) {
	var diff string
	err := g.call(ctx, fmt.Sprintf("get diff of #%d in %s", number, repo), func() (*github.Response, error) {
		var (
			resp *github.Response
			err  error
		)
		diff, resp, err = g.client.PullRequests.GetRaw(ctx, repo.Owner, repo.Name, number, github.RawOptions{Type: github.Diff})
		return resp, err
	})
	return diff, err
}

func (g *GitHubClient) ListComments(ctx context.Context, repo Repo, number int) ([]Comment, error) {
	var comments []Comment

	var issueComments []*github.IssueComment
	err := g.call(ctx, fmt.Sprintf("list comments of #%d in %s", number, repo), func() (*github.Response, error) {
		var (
			resp *github.Response
			err  error
		)
		issueComments, resp, err = g.client.Issues.ListComments(ctx, repo.Owner, repo.Name, number,
			&github.IssueListCommentsOptions{ListOptions: github.ListOptions{PerPage: 100}})
		return resp, err
	})
	if err != nil {
		return nil, err
	}
	for _, c := range issueComments {
		comments = append(comments, Comment{Author: c.GetUser().GetLogin(), Body: c.GetBody()})
	}

	var reviewComments []*github.PullRequestComment
	err = g.call(ctx, fmt.Sprintf("list review comments of #%d in %s", number, repo), func() (*github.Response, error) {
		var (
			resp *github.Response
			err  error
		)
		reviewComments, resp, err = g.client.PullRequests.ListComments(ctx, repo.Owner, repo.Name, number,
			&github.PullRequestListCommentsOptions{ListOptions: github.ListOptions{PerPage: 100}})
		return resp, err
	})
	if err != nil {
		return nil, err
	}
	for _, c := range reviewComments {
		comments = append(comments, Comment{Author: c.GetUser().GetLogin(), Body: c.GetBody()})
	}
	return comments, nil
}

func (g *GitHubClient) GetIssue(ctx context.Context, repo Repo, number int) (Issue, error) {
	var issue *github.Issue
	err := g.call(ctx, fmt.Sprintf("get issue #%d in %s", number, repo), func() (*github.Response, error) {
		var (
			resp *github.Response
			err  error
		)
		issue, resp, err = g.client.Issues.Get(ctx, repo.Owner, repo.Name, number)
		return resp, err
	})
	if err != nil {
		return Issue{}, err
	}
	return Issue{
		Number: issue.GetNumber(),
		Title:  issue.GetTitle(),
		Body:   issue.GetBody(),
		State:  issue.GetState(),
	}, nil
}
