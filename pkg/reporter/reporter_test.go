package reporter

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runtime-release-mapper/pkg/analyzer"
	"github.com/runtime-release-mapper/pkg/collector"
	"github.com/runtime-release-mapper/pkg/mapping"
	"github.com/runtime-release-mapper/pkg/vcs"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func sampleResult() *collector.Result {
	store := collector.NewPRStore()
	store.Put(collector.PRRecord{
		PullRequest: vcs.PullRequest{Number: 100, Title: "Add staking hook", Author: "alice", MergedAt: day("2024-10-01")},
		Branch:      "stable2412",
		FromMaster:  true,
	})
	store.Put(collector.PRRecord{
		PullRequest: vcs.PullRequest{Number: 200, Title: "[stable2409] Fix import", Labels: []string{"A4-backport"}, MergedAt: day("2024-09-25")},
		Branch:      "stable2409",
		Direct:      true,
		OriginalPR:  150,
	})
	store.Put(collector.PRRecord{PullRequest: vcs.PullRequest{Number: 150, Title: "Fix import"}, Branch: "master", FromMaster: true})

	b2409 := mapping.NewBranch("stable2409")
	b2409.Created = day("2024-09-01")
	b2409.Tags = []string{"polkadot-stable2409", "polkadot-stable2409-1"}
	b2409.PRs[200] = struct{}{}
	b2412 := mapping.NewBranch("stable2412")
	b2412.Tags = []string{"polkadot-stable2412"}
	b2412.PRs[100] = struct{}{}

	return &collector.Result{
		GeneratedAt: day("2025-03-01"),
		Tags: []mapping.Tag{
			mapping.NewTag("polkadot-stable2409-1", "abc", day("2024-10-10"), map[string]string{"sp-runtime": "39.0.1"}),
			mapping.NewTag("polkadot-stable2412", "def", day("2024-12-20"), map[string]string{"sp-runtime": "39.0.5"}),
		},
		Branches: []mapping.Branch{b2409, b2412},
		Releases: []collector.ReleaseMapping{
			{Tag: "v1.2.0", Date: day("2024-09-30"), Packages: map[string]string{"sp-runtime": "38.0.0"}},
			{
				Tag: "v1.3.0", Date: day("2024-10-15"), Packages: map[string]string{"sp-runtime": "39.0.1"},
				Match:     mapping.Match{Tag: "polkadot-stable2409-1", Score: 1, Confidence: mapping.Exact},
				SDKBranch: "stable2409", SDKDate: day("2024-10-10"), BranchPRCount: 1, PRCount: 1,
			},
			{
				Tag: "v1.4.0", Date: day("2025-01-05"), Packages: map[string]string{"sp-runtime": "39.0.5"},
				Match:     mapping.Match{Tag: "polkadot-stable2412", Score: 1, Confidence: mapping.Fallback},
				SDKBranch: "stable2412", SDKDate: day("2024-12-20"), BranchPRCount: 1, PRCount: 1,
			},
		},
		Attributions: []mapping.Attribution{
			{PR: 100, Release: "v1.4.0", SDKTag: "polkadot-stable2412", Branch: "stable2412", FromMaster: true},
			{PR: 200, Release: "v1.3.0", SDKTag: "polkadot-stable2409-1", Branch: "stable2409", Backport: true, OriginalPR: 150, Direct: true},
		},
		PRs: store,
		Backports: mapping.BackportLinks{
			Original:  map[int]int{200: 150},
			Backports: map[int][]int{150: {200}},
		},
	}
}

func TestBuildMappingDocument(t *testing.T) {
	doc := BuildMappingDocument(sampleResult())

	assert.Equal(t, "2025-03-01T00:00:00Z", doc.GeneratedAt)
	assert.Equal(t, Methodology, doc.Methodology)
	assert.Nil(t, doc.RuntimeMappings["v1.2.0"].SDKTag)
	assert.Equal(t, mapping.NoMatch, doc.RuntimeMappings["v1.2.0"].Confidence)
	require.NotNil(t, doc.RuntimeMappings["v1.3.0"].SDKTag)
	assert.Equal(t, "polkadot-stable2409-1", *doc.RuntimeMappings["v1.3.0"].SDKTag)
	assert.Equal(t, "2024-10-10T00:00:00Z", doc.RuntimeMappings["v1.3.0"].SDKDate)
	assert.Equal(t, "stable2409", doc.SDKTags["polkadot-stable2409-1"].Branch)
	assert.Nil(t, doc.BranchInfo["stable2412"].CreatedDate)
	assert.Equal(t, Statistics{
		TotalSDKTags:          2,
		TotalBranches:         2,
		TotalPRsTracked:       3,
		RuntimeReleasesMapped: 2,
		UnmatchedReleases:     1,
		LowConfidenceMatches:  1,
		AttributedPRs:         2,
	}, doc.Statistics)
}

func TestWriteMappings(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sdk-mappings")
	require.NoError(t, WriteMappings(dir, sampleResult()))

	raw, err := os.ReadFile(filepath.Join(dir, MappingsFile))
	require.NoError(t, err)
	var full map[string]any
	require.NoError(t, json.Unmarshal(raw, &full))
	mappings := full["runtime_mappings"].(map[string]any)
	assert.Equal(t, "fallback", mappings["v1.4.0"].(map[string]any)["confidence"])
	assert.Nil(t, mappings["v1.2.0"].(map[string]any)["sdk_tag"])

	raw, err = os.ReadFile(filepath.Join(dir, WebsiteFile))
	require.NoError(t, err)
	var site map[string]any
	require.NoError(t, json.Unmarshal(raw, &site))

	versions := site["runtime_sdk_versions"].(map[string]any)
	assert.Len(t, versions, 2, "unmatched releases are not published")
	assert.Equal(t, "polkadot-stable2412", versions["v1.4.0"].(map[string]any)["sdk_version"])

	details := site["pr_details"].(map[string]any)
	assert.Equal(t, "200", details["200"].(map[string]any)["number"])
	assert.Equal(t, true, details["200"].(map[string]any)["is_backport"])
	assert.Nil(t, details["150"].(map[string]any)["merged_at"])

	releases := site["pr_to_releases"].(map[string]any)
	assert.Equal(t, []any{map[string]any{
		"runtime_version": "1.3.0",
		"sdk_version":     "polkadot-stable2409-1",
		"sdk_branch":      "stable2409",
		"is_backport":     true,
		"original_pr":     float64(150),
		"is_direct":       true,
	}}, releases["200"])
	assert.NotContains(t, releases, "150")

	assert.Equal(t, map[string]any{"200": float64(150)}, site["backport_mapping"])
	assert.Equal(t, map[string]any{"150": []any{float64(200)}}, site["original_to_backports"])
}

func TestTableReporter(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	require.NoError(t, New("table", &buf).Report(sampleResult()))

	out := buf.String()
	for _, snippet := range []string{
		"Runtime releases mapped: 3",
		"polkadot-stable2409-1",
		"(none)",
		"fallback",
		"sp-runtime@39.0.5",
		"2 release(s) matched with low confidence or not at all.",
		"Release Branch Summary",
		"2024-09-01",
	} {
		assert.Contains(t, out, snippet)
	}
}

func TestJSONReporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New("json", &buf).Report(sampleResult()))

	var out struct {
		Statistics Statistics                 `json:"statistics"`
		Releases   map[string]json.RawMessage `json:"runtime_mappings"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, 2, out.Statistics.RuntimeReleasesMapped)
	assert.Len(t, out.Releases, 3)
}

func sampleAnalysis() *analyzer.Analysis {
	files := []string{"a.rs", "b.rs", "c.rs", "d.rs", "e.rs", "f.rs", "g.rs"}
	return &analyzer.Analysis{
		Newer: analyzer.ReleaseInfo{
			Release:    vcs.Release{TagName: "v1.5.0", Name: "Runtimes 1.5.0", Body: "notes", CreatedAt: day("2025-02-01")},
			SDKVersion: "stable2412",
		},
		Older: analyzer.ReleaseInfo{
			Release:    vcs.Release{TagName: "v1.4.0", CreatedAt: day("2025-01-05")},
			SDKVersion: "stable2409",
		},
		PRCount: 2,
		PRs: []analyzer.PRDetail{
			{
				PR:       vcs.PullRequest{Number: 41, Title: "Docs", Author: "bob", MergedAt: day("2025-01-15")},
				Comments: []vcs.Comment{{Body: "x"}},
			},
			{
				PR: vcs.PullRequest{
					Number: 40, Title: "Bump SDK", Author: "alice", MergedAt: day("2025-01-12"),
					Labels: []string{"T1-runtime", "B1-note"},
				},
				Issues: []vcs.Issue{{Number: 12, Title: "Bug", State: "closed"}, {Number: 13, Title: "Other", State: "open"}},
				Diff:   analyzer.DiffSummary{Files: files, Additions: 10, Deletions: 2},
			},
		},
	}
}

func TestRenderReleaseMarkdown(t *testing.T) {
	out := RenderReleaseMarkdown(sampleAnalysis(), "AI says hi")

	for _, snippet := range []string{
		"- **Previous Release**: v1.4.0 (2025-01-05T00:00:00Z)\n  - SDK Version: stable2409",
		"- **Total PRs Merged**: 2\n- **SDK Version Change**: stable2409 → stable2412\n",
		"## AI-Generated Analysis\n\nAI says hi\n",
		"### PR #41: Docs\n- **Author**: @bob\n",
		"- **Files Changed**: 7 (+10/-2)",
		"- **Labels**: `T1-runtime`, `B1-note`",
		"- **Linked Issues**: #12, #13",
		"  - `e.rs`\n  - ... and 2 more files",
	} {
		assert.Contains(t, out, snippet)
	}
	assert.NotContains(t, out, "`f.rs`")
}

func TestRenderReleaseMarkdownUnknownSDK(t *testing.T) {
	a := sampleAnalysis()
	a.Older.SDKVersion = analyzer.UnknownSDK
	out := RenderReleaseMarkdown(a, "")
	assert.Contains(t, out, "SDK Version: Unable to determine")
	assert.NotContains(t, out, "SDK Version Change")
}

func TestWriteRelease(t *testing.T) {
	dir := t.TempDir()
	mdPath, jsonPath, err := WriteRelease(dir, sampleAnalysis(), "summary")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "v1.5.0.md"), mdPath)

	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var doc ReleaseDocument
	require.NoError(t, json.Unmarshal(raw, &doc))

	assert.Equal(t, "Runtimes 1.5.0", doc.NewerRelease.Name)
	assert.Equal(t, "notes", doc.NewerRelease.Body)
	assert.Equal(t, "v1.4.0", doc.OlderRelease.Name, "name defaults to the tag")
	assert.Equal(t, 2, doc.PRCount)
	assert.Equal(t, "summary", doc.AIAnalysis)
	require.Len(t, doc.PRDetails, 2)
	assert.Equal(t, []string{}, doc.PRDetails[0].Labels)
	assert.Equal(t, 7, doc.PRDetails[1].FilesChanged)
	assert.Equal(t, []LinkedIssue{{Number: 12, Title: "Bug", State: "closed"}, {Number: 13, Title: "Other", State: "open"}},
		doc.PRDetails[1].LinkedIssues)
}
