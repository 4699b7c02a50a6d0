// Package collector gathers SDK tags, branch PR sets and runtime releases from
// GitHub and feeds them through the matching core.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/runtime-release-mapper/pkg/config"
	"github.com/runtime-release-mapper/pkg/lockfile"
	"github.com/runtime-release-mapper/pkg/mapping"
	"github.com/runtime-release-mapper/pkg/vcs"
)

const (
	masterBranch    = "master"
	runtimeLockfile = "Cargo.lock"
	releasesPerPage = 30
)

var stableTagPattern = regexp.MustCompile(`^polkadot-stable\d{4}`)

// ReleaseMapping is a runtime release and the SDK tag inferred for it.
type ReleaseMapping struct {
	Tag           string
	Date          time.Time
	Packages      map[string]string
	Match         mapping.Match
	SDKBranch     string
	SDKDate       time.Time
	BranchPRCount int
	PRCount       int
}

// Result is everything one mapper run produced.
type Result struct {
	GeneratedAt  time.Time
	Tags         []mapping.Tag
	Branches     []mapping.Branch
	Windows      map[string]mapping.Window
	Releases     []ReleaseMapping
	Attributions []mapping.Attribution
	PRs          *PRStore
	Backports    mapping.BackportLinks
}

type Mapper struct {
	client  vcs.RepoClient
	config  *config.Config
	logger  *slog.Logger
	sdk     vcs.Repo
	runtime vcs.Repo
	now     func() time.Time
}

func New(client vcs.RepoClient, cfg *config.Config, logger *slog.Logger) (*Mapper, error) {
	sdk, err := vcs.ParseRepo(cfg.SDKRepo)
	if err != nil {
		return nil, fmt.Errorf("sdk repo: %w", err)
	}
	runtime, err := vcs.ParseRepo(cfg.RuntimeRepo)
	if err != nil {
		return nil, fmt.Errorf("runtime repo: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{
		client:  client,
		config:  cfg,
		logger:  logger,
		sdk:     sdk,
		runtime: runtime,
		now:     time.Now,
	}, nil
}

// Run executes the full pipeline: tag database, branch PR sets, runtime
// release matching, attribution and backport linkage.
func (m *Mapper) Run(ctx context.Context) (*Result, error) {
	tags, err := m.BuildTags(ctx)
	if err != nil {
		return nil, err
	}
	idx := mapping.Index(tags)

	store := NewPRStore()
	branches, err := m.AnalyzeBranches(ctx, tags, store)
	if err != nil {
		return nil, err
	}

	releases, err := m.MapReleases(ctx, tags, idx)
	if err != nil {
		return nil, err
	}

	byCode := make(map[string]mapping.Branch, len(branches))
	for _, b := range branches {
		byCode[b.Code] = b
	}

	var resolved []mapping.Release
	for i, r := range releases {
		if !r.Match.Found() {
			continue
		}
		releases[i].BranchPRCount = len(byCode[r.SDKBranch].PRs)
		resolved = append(resolved, mapping.Release{
			Tag:     r.Tag,
			SDKTag:  r.Match.Tag,
			Branch:  r.SDKBranch,
			SDKDate: r.SDKDate,
		})
	}
	attrs := mapping.Attribute(resolved, byCode, store.PullRequests())
	counts := mapping.CountByRelease(attrs)
	for i := range releases {
		releases[i].PRCount = counts[releases[i].Tag]
	}
	m.logger.Info("attributed pull requests", "prs", len(attrs), "releases", len(resolved))

	if err := m.FetchMissingOriginals(ctx, store); err != nil {
		return nil, err
	}

	return &Result{
		GeneratedAt:  m.now().UTC(),
		Tags:         tags,
		Branches:     branches,
		Windows:      mapping.Cutoffs(byCode, m.now().UTC()),
		Releases:     releases,
		Attributions: attrs,
		PRs:          store,
		Backports:    mapping.LinkBackports(store.PullRequests()),
	}, nil
}

func (m *Mapper) workers() int {
	if m.config.Workers > 0 {
		return m.config.Workers
	}
	return 1
}

// BuildTags lists the SDK stable tags and reads each one's commit date and
// tracked package versions. Tags whose commit cannot be read are skipped;
// unreadable manifests leave the package out of the fingerprint.
func (m *Mapper) BuildTags(ctx context.Context) ([]mapping.Tag, error) {
	raw, err := m.client.ListTags(ctx, m.sdk, m.config.Limits.TagPages)
	if err != nil {
		return nil, fmt.Errorf("list sdk tags: %w", err)
	}
	var stable []vcs.Tag
	for _, t := range raw {
		if stableTagPattern.MatchString(t.Name) {
			stable = append(stable, t)
		}
	}
	m.logger.Info("found stable sdk tags", "count", len(stable), "scanned", len(raw))

	tags := make([]mapping.Tag, len(stable))
	found := make([]bool, len(stable))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers())
	for i, t := range stable {
		g.Go(func() error {
			commit, err := m.client.GetCommit(gctx, m.sdk, t.Name)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				m.logger.Warn("skipping tag without commit", "tag", t.Name, "error", err)
				return nil
			}
			tags[i] = mapping.NewTag(t.Name, commit.SHA, commit.Date, m.packageVersions(gctx, t.Name))
			found[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analyze sdk tags: %w", err)
	}

	out := make([]mapping.Tag, 0, len(tags))
	for i, t := range tags {
		if found[i] {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Mapper) packageVersions(ctx context.Context, ref string) map[string]string {
	versions := make(map[string]string)
	for _, pkg := range m.config.Packages {
		data, err := m.client.FileContent(ctx, m.sdk, pkg.Manifest, ref)
		if err != nil {
			m.logger.Debug("manifest unavailable", "tag", ref, "package", pkg.Name, "error", err)
			continue
		}
		version, err := lockfile.ManifestVersion(data)
		if err != nil || version == "" {
			m.logger.Debug("manifest without version", "tag", ref, "package", pkg.Name, "error", err)
			continue
		}
		versions[pkg.Name] = version
	}
	return versions
}

// AnalyzeBranches resolves every stable branch's creation point and PR set.
func (m *Mapper) AnalyzeBranches(ctx context.Context, tags []mapping.Tag, store *PRStore) ([]mapping.Branch, error) {
	byCode := make(map[string]mapping.Branch)
	earliest := make(map[string]time.Time)
	for _, t := range tags {
		if t.Branch == mapping.UnknownBranch {
			continue
		}
		b, ok := byCode[t.Branch]
		if !ok {
			b = mapping.NewBranch(t.Branch)
		}
		b.Tags = append(b.Tags, t.Name)
		byCode[t.Branch] = b
		if e, ok := earliest[t.Branch]; !t.Date.IsZero() && (!ok || t.Date.Before(e)) {
			earliest[t.Branch] = t.Date
		}
	}

	codes := make([]string, 0, len(byCode))
	for code := range byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	exists := make([]bool, len(codes))
	created := make([]time.Time, len(codes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers())
	for i, code := range codes {
		g.Go(func() error {
			ok, err := m.client.BranchExists(gctx, m.sdk, code)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				m.logger.Warn("branch lookup failed", "branch", code, "error", err)
			}
			exists[i] = ok
			if ok {
				base, err := m.client.MergeBase(gctx, m.sdk, masterBranch, code)
				if err == nil && !base.Date.IsZero() {
					created[i] = base.Date
					return nil
				}
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				m.logger.Warn("no merge base, using earliest tag", "branch", code, "error", err)
			}
			created[i] = earliest[code]
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolve branch points: %w", err)
	}
	for i, code := range codes {
		b := byCode[code]
		b.Created = created[i]
		byCode[code] = b
	}

	windows := mapping.Cutoffs(byCode, m.now().UTC())
	for i, code := range codes {
		if err := m.collectBranchPRs(ctx, byCode[code], exists[i], windows[code], store); err != nil {
			return nil, err
		}
		m.logger.Info("analyzed branch", "branch", code, "tags", len(byCode[code].Tags),
			"created", byCode[code].Created, "prs", len(byCode[code].PRs))
	}

	branches := make([]mapping.Branch, 0, len(byCode))
	for _, b := range byCode {
		sort.Strings(b.Tags)
		branches = append(branches, b)
	}
	mapping.SortBranches(branches)
	return branches, nil
}

// collectBranchPRs fills b.PRs with direct merges, title-marked backports and,
// when the branch has a predecessor, master merges from its window.
func (m *Mapper) collectBranchPRs(ctx context.Context, b mapping.Branch, exists bool, w mapping.Window, store *PRStore) error {
	repo := m.sdk.String()
	var queries []string
	if exists {
		queries = append(queries, fmt.Sprintf("repo:%s type:pr is:merged base:%s", repo, b.Code))
	}
	queries = append(queries,
		fmt.Sprintf(`repo:%s type:pr is:merged "[%s]" in:title`, repo, b.Code),
		fmt.Sprintf(`repo:%s type:pr is:merged "backport" "%s" in:title`, repo, b.Code),
	)

	for _, q := range queries {
		prs, err := m.client.SearchPullRequests(ctx, q, m.config.Limits.BranchSearchPages)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			m.logger.Warn("branch pr search failed", "branch", b.Code, "query", q, "error", err)
			continue
		}
		for _, pr := range prs {
			if b.HasPR(pr.Number) {
				continue
			}
			b.PRs[pr.Number] = struct{}{}
			rec := PRRecord{PullRequest: pr, Branch: b.Code, Direct: true}
			rec.OriginalPR = m.backportOf(ctx, &rec.PullRequest)
			store.Put(rec)
		}
	}

	if !w.Claimable() {
		m.logger.Info("skipping master history", "branch", b.Code, "reason", "no earlier branch or unknown branch point")
		return nil
	}

	q := fmt.Sprintf("repo:%s type:pr is:merged base:%s merged:%s..%s", repo, masterBranch,
		w.From.UTC().Format(time.RFC3339), w.To.UTC().Format(time.RFC3339))
	prs, err := m.client.SearchPullRequests(ctx, q, m.config.Limits.MasterSearchPages)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		m.logger.Warn("master pr search failed", "branch", b.Code, "error", err)
		return nil
	}
	for _, pr := range prs {
		if b.HasPR(pr.Number) || !w.Contains(pr.MergedAt) {
			continue
		}
		b.PRs[pr.Number] = struct{}{}
		store.Put(PRRecord{PullRequest: pr, Branch: b.Code, FromMaster: true})
	}
	return nil
}

// backportOf extracts the original PR of a branch PR, fetching the full body
// when search returned none for a title that looks like a backport.
func (m *Mapper) backportOf(ctx context.Context, pr *vcs.PullRequest) int {
	if pr.Body == "" && strings.Contains(pr.Title, "[") && strings.Contains(pr.Title, "]") {
		full, err := m.client.GetPullRequest(ctx, m.sdk, pr.Number)
		if err == nil {
			pr.Body = full.Body
			if pr.Base == "" {
				pr.Base = full.Base
			}
		}
	}
	orig, ok := mapping.ExtractBackport(pr.Number, pr.Title, pr.Body)
	if !ok {
		return 0
	}
	return orig
}

// MapReleases reads each published runtime release's Cargo.lock and matches
// it against the SDK tags. Releases without a readable lockfile are skipped;
// releases that match nothing are kept with a NoMatch result.
func (m *Mapper) MapReleases(ctx context.Context, tags []mapping.Tag, idx mapping.ReverseIndex) ([]ReleaseMapping, error) {
	all, err := m.client.ListReleases(ctx, m.runtime, releasesPerPage, m.config.Limits.ReleasePages)
	if err != nil {
		return nil, fmt.Errorf("list runtime releases: %w", err)
	}
	var releases []vcs.Release
	for _, r := range all {
		if !r.Draft && !r.Prerelease {
			releases = append(releases, r)
		}
	}
	m.logger.Info("found runtime releases", "count", len(releases))

	byName := make(map[string]mapping.Tag, len(tags))
	for _, t := range tags {
		byName[t.Name] = t
	}
	tracked := m.config.TrackedNames()

	out := make([]*ReleaseMapping, len(releases))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers())
	for i, r := range releases {
		g.Go(func() error {
			data, err := m.client.FileContent(gctx, m.runtime, runtimeLockfile, r.TagName)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				m.logger.Warn("could not read runtime lockfile", "release", r.TagName, "error", err)
				return nil
			}
			versions, err := lockfile.LockVersions(data, tracked)
			if err != nil || len(versions) == 0 {
				m.logger.Warn("no tracked package versions", "release", r.TagName, "error", err)
				return nil
			}

			match := mapping.MatchCandidate(mapping.ReleaseCandidate{
				Tag:      r.TagName,
				Date:     r.CreatedAt,
				Packages: versions,
			}, idx, byName)

			rm := &ReleaseMapping{
				Tag:      r.TagName,
				Date:     r.CreatedAt,
				Packages: versions,
				Match:    match,
			}
			if match.Found() {
				rm.SDKBranch = byName[match.Tag].Branch
				rm.SDKDate = byName[match.Tag].Date
			}
			out[i] = rm
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("map runtime releases: %w", err)
	}

	var mapped []ReleaseMapping
	for _, rm := range out {
		if rm == nil {
			continue
		}
		switch {
		case !rm.Match.Found():
			m.logger.Warn("no sdk match", "release", rm.Tag)
		case rm.Match.Confidence.LowConfidence():
			m.logger.Warn("low confidence sdk match", "release", rm.Tag, "sdk_tag", rm.Match.Tag, "score", rm.Match.Score)
		default:
			m.logger.Info("matched release", "release", rm.Tag, "sdk_tag", rm.Match.Tag,
				"confidence", rm.Match.Confidence.String(), "score", rm.Match.Score)
		}
		mapped = append(mapped, *rm)
	}
	sort.Slice(mapped, func(i, j int) bool {
		if !mapped[i].Date.Equal(mapped[j].Date) {
			return mapped[i].Date.Before(mapped[j].Date)
		}
		return mapped[i].Tag < mapped[j].Tag
	})
	return mapped, nil
}

// FetchMissingOriginals caches the original PRs that backports point to.
func (m *Mapper) FetchMissingOriginals(ctx context.Context, store *PRStore) error {
	missing := store.MissingOriginals()
	if len(missing) == 0 {
		return nil
	}
	m.logger.Info("fetching original pull requests", "count", len(missing))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers())
	for _, n := range missing {
		g.Go(func() error {
			pr, err := m.client.GetPullRequest(gctx, m.sdk, n)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				if !errors.Is(err, vcs.ErrNotFound) {
					m.logger.Warn("could not fetch original pull request", "pr", n, "error", err)
				}
				return nil
			}
			store.Put(PRRecord{
				PullRequest: pr,
				Branch:      pr.Base,
				FromMaster:  pr.Base == masterBranch,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("fetch original pull requests: %w", err)
	}
	return nil
}
