// Package analyzer collects the pull requests merged between two runtime
// releases together with their comments, linked issues and diff sizes.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/runtime-release-mapper/pkg/config"
	"github.com/runtime-release-mapper/pkg/vcs"
)

const releasesPerPage = 30

// ReleaseInfo is a runtime release and the SDK version it was built against.
type ReleaseInfo struct {
	vcs.Release
	SDKVersion string
}

// PRDetail is everything gathered for one pull request.
type PRDetail struct {
	PR       vcs.PullRequest
	Comments []vcs.Comment
	Issues   []vcs.Issue
	Diff     DiffSummary
}

// Analysis is the comparison of two consecutive releases.
type Analysis struct {
	Newer   ReleaseInfo
	Older   ReleaseInfo
	PRCount int
	PRs     []PRDetail // newest merge first
}

// SDKChanged reports whether both SDK versions are known and differ.
func (a *Analysis) SDKChanged() bool {
	return a.Older.SDKVersion != UnknownSDK && a.Newer.SDKVersion != UnknownSDK &&
		a.Older.SDKVersion != a.Newer.SDKVersion
}

type Analyzer struct {
	client vcs.RepoClient
	repo   vcs.Repo
	limits config.Limits
	logger *slog.Logger
}

func New(client vcs.RepoClient, repo vcs.Repo, limits config.Limits, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{client: client, repo: repo, limits: limits, logger: logger}
}

// Releases returns published releases, newest first.
func (a *Analyzer) Releases(ctx context.Context) ([]vcs.Release, error) {
	all, err := a.client.ListReleases(ctx, a.repo, releasesPerPage, a.limits.ReleasePages)
	if err != nil {
		return nil, fmt.Errorf("list releases: %w", err)
	}
	var out []vcs.Release
	for _, r := range all {
		if !r.Draft {
			out = append(out, r)
		}
	}
	return out, nil
}

// LatestPair returns the two most recent releases.
func (a *Analyzer) LatestPair(ctx context.Context) (newer, older vcs.Release, err error) {
	releases, err := a.Releases(ctx)
	if err != nil {
		return newer, older, err
	}
	if len(releases) < 2 {
		return newer, older, fmt.Errorf("need two releases to compare, found %d", len(releases))
	}
	return releases[0], releases[1], nil
}

// ReleaseAndPrevious returns the release tagged tag and the one published before it.
func (a *Analyzer) ReleaseAndPrevious(ctx context.Context, tag string) (newer, older vcs.Release, err error) {
	newer, err = a.client.GetReleaseByTag(ctx, a.repo, tag)
	if err != nil {
		return newer, older, fmt.Errorf("get release %s: %w", tag, err)
	}
	releases, err := a.Releases(ctx)
	if err != nil {
		return newer, older, err
	}
	for i, r := range releases {
		if r.TagName != tag {
			continue
		}
		if i+1 >= len(releases) {
			return newer, older, fmt.Errorf("no release found before %s", tag)
		}
		return newer, releases[i+1], nil
	}
	return newer, older, fmt.Errorf("release %s not found in recent releases", tag)
}

// Compare gathers the pull requests merged between older and newer.
func (a *Analyzer) Compare(ctx context.Context, newer, older vcs.Release) (*Analysis, error) {
	a.logger.Info("analyzing changes", "older", older.TagName, "newer", newer.TagName)

	prs, err := a.pullRequestsBetween(ctx, older.CreatedAt, newer.CreatedAt)
	if err != nil {
		return nil, err
	}
	details, err := a.details(ctx, prs)
	if err != nil {
		return nil, err
	}

	return &Analysis{
		Newer:   ReleaseInfo{Release: newer, SDKVersion: a.SDKVersion(ctx, newer.TagName)},
		Older:   ReleaseInfo{Release: older, SDKVersion: a.SDKVersion(ctx, older.TagName)},
		PRCount: len(prs),
		PRs:     details,
	}, nil
}

// SDKVersion reads the release's Cargo.lock and names its SDK version.
func (a *Analyzer) SDKVersion(ctx context.Context, tag string) string {
	data, err := a.client.FileContent(ctx, a.repo, "Cargo.lock", tag)
	if err != nil {
		a.logger.Warn("could not fetch Cargo.lock", "tag", tag, "error", err)
		return UnknownSDK
	}
	return SDKVersionFromLock(data)
}

func (a *Analyzer) pullRequestsBetween(ctx context.Context, since, until time.Time) ([]vcs.PullRequest, error) {
	commits, err := a.client.ListCommits(ctx, a.repo, since, until)
	if err != nil {
		return nil, fmt.Errorf("list commits: %w", err)
	}
	a.logger.Info("found commits between releases", "count", len(commits))

	found := make([]*vcs.PullRequest, len(commits))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers(a.limits.CommitWorkers))
	for i, c := range commits {
		g.Go(func() error {
			prs, err := a.client.PullRequestsForCommit(gctx, a.repo, c.SHA)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				a.logger.Debug("no pull request for commit", "sha", c.SHA, "error", err)
				return nil
			}
			if len(prs) > 0 {
				found[i] = &prs[0]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolve commit pull requests: %w", err)
	}

	seen := make(map[int]bool)
	var out []vcs.PullRequest
	for _, pr := range found {
		if pr == nil || seen[pr.Number] {
			continue
		}
		seen[pr.Number] = true
		out = append(out, *pr)
	}
	a.logger.Info("found unique pull requests", "count", len(out))
	return out, nil
}

func (a *Analyzer) details(ctx context.Context, prs []vcs.PullRequest) ([]PRDetail, error) {
	results := make([]*PRDetail, len(prs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers(a.limits.DetailWorkers))
	for i, pr := range prs {
		g.Go(func() error {
			d, err := a.detail(gctx, pr.Number)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				a.logger.Warn("could not process pull request", "pr", pr.Number, "error", err)
				return nil
			}
			a.logger.Debug("processed pull request", "pr", pr.Number)
			results[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch pull request details: %w", err)
	}

	var out []PRDetail
	for _, d := range results {
		if d != nil {
			out = append(out, *d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].PR.MergedAt.Equal(out[j].PR.MergedAt) {
			return out[i].PR.MergedAt.After(out[j].PR.MergedAt)
		}
		return out[i].PR.Number > out[j].PR.Number
	})
	return out, nil
}

func (a *Analyzer) detail(ctx context.Context, number int) (*PRDetail, error) {
	pr, err := a.client.GetPullRequest(ctx, a.repo, number)
	if err != nil {
		return nil, fmt.Errorf("get pull request: %w", err)
	}
	comments, err := a.client.ListComments(ctx, a.repo, number)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	var issues []vcs.Issue
	for _, n := range LinkedIssueNumbers(a.repo, number, pr.Body) {
		issue, err := a.client.GetIssue(ctx, a.repo, n)
		if err != nil {
			continue
		}
		issues = append(issues, issue)
	}

	raw, err := a.client.PullRequestDiff(ctx, a.repo, number)
	if err != nil {
		a.logger.Warn("could not fetch diff", "pr", number, "error", err)
		raw = ""
	}

	return &PRDetail{
		PR:       pr,
		Comments: comments,
		Issues:   issues,
		Diff:     DiffStats(raw, a.limits.MaxDiffLength),
	}, nil
}

func workers(n int) int {
	if n > 0 {
		return n
	}
	return 1
}
