package analyzer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runtime-release-mapper/pkg/config"
	"github.com/runtime-release-mapper/pkg/vcs"
	"github.com/runtime-release-mapper/pkg/vcs/vcstest"
)

var runtimeRepo = vcs.Repo{Owner: "polkadot-fellows", Name: "runtimes"}

const sampleDiff = `diff --git a/relay/polkadot/src/lib.rs b/relay/polkadot/src/lib.rs
index 1111111..2222222 100644
--- a/relay/polkadot/src/lib.rs
+++ b/relay/polkadot/src/lib.rs
@@ -1,3 +1,4 @@
 fn a() {}
-fn b() {}
+fn b() -> u32 { 1 }
+fn c() {}
 fn d() {}
diff --git a/CHANGELOG.md b/CHANGELOG.md
new file mode 100644
index 0000000..3333333
--- /dev/null
+++ b/CHANGELOG.md
@@ -0,0 +1,2 @@
+# Changelog
+- fix staking
`

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func lockWith(version string) []byte {
	return []byte("[[package]]\nname = \"polkadot-primitives\"\nversion = \"" + version + "\"\n")
}

func fixture() *vcstest.Fake {
	f := vcstest.New()
	repo := runtimeRepo.String()
	f.Releases[repo] = []vcs.Release{
		{TagName: "v1.5.0", CreatedAt: at("2025-02-01T00:00:00Z")},
		{TagName: "v1.4.1", CreatedAt: at("2025-01-20T00:00:00Z"), Draft: true},
		{TagName: "v1.4.0", CreatedAt: at("2025-01-05T00:00:00Z")},
		{TagName: "v1.3.0", CreatedAt: at("2024-10-15T00:00:00Z")},
	}
	f.History[repo] = []vcs.Commit{
		{SHA: "c1", Date: at("2025-01-10T00:00:00Z")},
		{SHA: "c2", Date: at("2025-01-12T00:00:00Z")},
		{SHA: "c3", Date: at("2025-01-15T00:00:00Z")},
		{SHA: "c4", Date: at("2025-01-16T00:00:00Z")},
		{SHA: "old", Date: at("2024-12-01T00:00:00Z")},
	}
	f.CommitPRs["c1"] = []vcs.PullRequest{{Number: 40}}
	f.CommitPRs["c2"] = []vcs.PullRequest{{Number: 40}}
	f.CommitPRs["c3"] = []vcs.PullRequest{{Number: 41}}
	f.CommitPRs["c4"] = []vcs.PullRequest{{Number: 42}}

	f.PullRequests[vcstest.Number(runtimeRepo, 40)] = vcs.PullRequest{
		Number: 40, Title: "Bump SDK", Author: "alice", MergedAt: at("2025-01-12T00:00:00Z"),
		Body: "Fixes #12 and relates to #13.",
	}
	f.PullRequests[vcstest.Number(runtimeRepo, 41)] = vcs.PullRequest{
		Number: 41, Title: "Docs", Author: "bob", MergedAt: at("2025-01-15T00:00:00Z"),
	}
	f.Issues[vcstest.Number(runtimeRepo, 12)] = vcs.Issue{Number: 12, Title: "Staking bug", State: "closed"}
	f.Comments[vcstest.Number(runtimeRepo, 40)] = []vcs.Comment{{Author: "carol", Body: "lgtm"}}
	f.Diffs[vcstest.Number(runtimeRepo, 40)] = sampleDiff

	f.Files[vcstest.File(runtimeRepo, "v1.5.0", "Cargo.lock")] = lockWith("17.0.0")
	f.Files[vcstest.File(runtimeRepo, "v1.4.0", "Cargo.lock")] = lockWith("16.1.0")
	return f
}

func newTestAnalyzer(f *vcstest.Fake) *Analyzer {
	limits := config.Default().Limits
	limits.CommitWorkers = 2
	limits.DetailWorkers = 2
	return New(f, runtimeRepo, limits, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestLatestPairSkipsDrafts(t *testing.T) {
	a := newTestAnalyzer(fixture())
	newer, older, err := a.LatestPair(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v1.5.0", newer.TagName)
	assert.Equal(t, "v1.4.0", older.TagName)
}

func TestLatestPairNeedsTwoReleases(t *testing.T) {
	f := vcstest.New()
	f.Releases[runtimeRepo.String()] = []vcs.Release{{TagName: "v1.0.0"}}
	_, _, err := newTestAnalyzer(f).LatestPair(context.Background())
	assert.Error(t, err)
}

func TestReleaseAndPrevious(t *testing.T) {
	a := newTestAnalyzer(fixture())
	ctx := context.Background()

	newer, older, err := a.ReleaseAndPrevious(ctx, "v1.4.0")
	require.NoError(t, err)
	assert.Equal(t, "v1.4.0", newer.TagName)
	assert.Equal(t, "v1.3.0", older.TagName)

	_, _, err = a.ReleaseAndPrevious(ctx, "v1.3.0")
	assert.ErrorContains(t, err, "no release found before v1.3.0")

	_, _, err = a.ReleaseAndPrevious(ctx, "v9.9.9")
	assert.True(t, errors.Is(err, vcs.ErrNotFound))
}

func TestCompare(t *testing.T) {
	f := fixture()
	a := newTestAnalyzer(f)
	ctx := context.Background()

	newer, older, err := a.LatestPair(ctx)
	require.NoError(t, err)
	res, err := a.Compare(ctx, newer, older)
	require.NoError(t, err)

	assert.Equal(t, "stable2412", res.Newer.SDKVersion)
	assert.Equal(t, "stable2409", res.Older.SDKVersion)
	assert.True(t, res.SDKChanged())
	assert.Equal(t, 3, res.PRCount, "commits sharing a PR are collapsed")

	require.Len(t, res.PRs, 2, "PRs whose details cannot be fetched are dropped")
	assert.Equal(t, 41, res.PRs[0].PR.Number)
	assert.Equal(t, 40, res.PRs[1].PR.Number)

	bump := res.PRs[1]
	assert.Equal(t, []vcs.Issue{{Number: 12, Title: "Staking bug", State: "closed"}}, bump.Issues)
	assert.Len(t, bump.Comments, 1)
	assert.Equal(t, []string{"relay/polkadot/src/lib.rs", "CHANGELOG.md"}, bump.Diff.Files)
	assert.Equal(t, 4, bump.Diff.Additions)
	assert.Equal(t, 1, bump.Diff.Deletions)

	assert.Equal(t, 0, res.PRs[0].Diff.FilesChanged())
}

func TestSDKVersionUnknownWithoutLock(t *testing.T) {
	a := newTestAnalyzer(fixture())
	assert.Equal(t, UnknownSDK, a.SDKVersion(context.Background(), "v1.3.0"))
}
