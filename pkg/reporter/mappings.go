package reporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/runtime-release-mapper/pkg/collector"
	"github.com/runtime-release-mapper/pkg/mapping"
)

const (
	// Methodology labels the attribution strategy in the written mappings.
	Methodology = "branch-aware-comprehensive"

	MappingsFile = "branch_aware_mappings.json"
	WebsiteFile  = "sdk_pr_mappings.json"
)

type RuntimeMapping struct {
	SDKTag          *string            `json:"sdk_tag"`
	SDKBranch       string             `json:"sdk_branch,omitempty"`
	SDKDate         string             `json:"sdk_date,omitempty"`
	Confidence      mapping.Confidence `json:"confidence"`
	Score           int                `json:"score"`
	ReleaseDate     string             `json:"release_date,omitempty"`
	PackageVersions map[string]string  `json:"package_versions"`
	BranchPRCount   int                `json:"branch_pr_count"`
	ActualPRCount   int                `json:"actual_pr_count"`
}

type SDKTag struct {
	Commit          string            `json:"commit"`
	Date            string            `json:"date,omitempty"`
	Branch          string            `json:"branch"`
	PackageVersions map[string]string `json:"package_versions"`
}

type BranchInfo struct {
	Tags        []string `json:"tags"`
	CreatedDate *string  `json:"created_date"`
	PRCount     int      `json:"pr_count"`
}

type Statistics struct {
	TotalSDKTags          int `json:"total_sdk_tags"`
	TotalBranches         int `json:"total_branches"`
	TotalPRsTracked       int `json:"total_prs_tracked"`
	RuntimeReleasesMapped int `json:"runtime_releases_mapped"`
	UnmatchedReleases     int `json:"unmatched_releases"`
	LowConfidenceMatches  int `json:"low_confidence_matches"`
	AttributedPRs         int `json:"attributed_prs"`
}

// MappingDocument is the full record of one mapper run.
type MappingDocument struct {
	GeneratedAt     string                    `json:"generated_at"`
	Methodology     string                    `json:"methodology"`
	RuntimeMappings map[string]RuntimeMapping `json:"runtime_mappings"`
	SDKTags         map[string]SDKTag         `json:"sdk_tags"`
	BranchInfo      map[string]BranchInfo     `json:"branch_info"`
	Statistics      Statistics                `json:"statistics"`
}

type SDKVersion struct {
	SDKVersion  string `json:"sdk_version"`
	ReleaseDate string `json:"release_date,omitempty"`
	TotalPRs    int    `json:"total_prs"`
	NewPRs      int    `json:"new_prs"`
}

type PRDetail struct {
	Number     int      `json:"number,string"`
	Title      string   `json:"title"`
	Author     string   `json:"author"`
	MergedAt   *string  `json:"merged_at"`
	Labels     []string `json:"labels"`
	URL        string   `json:"url"`
	Branch     string   `json:"branch"`
	IsDirect   bool     `json:"is_direct"`
	FromMaster bool     `json:"from_master,omitempty"`
	IsBackport bool     `json:"is_backport,omitempty"`
	OriginalPR int      `json:"original_pr,omitempty"`
}

type PRRelease struct {
	RuntimeVersion string `json:"runtime_version"`
	SDKVersion     string `json:"sdk_version"`
	SDKBranch      string `json:"sdk_branch"`
	IsBackport     bool   `json:"is_backport,omitempty"`
	OriginalPR     int    `json:"original_pr,omitempty"`
	FromMaster     bool   `json:"from_master,omitempty"`
	IsDirect       bool   `json:"is_direct,omitempty"`
}

// WebsiteDocument is the PR-centric view consumed by the static site.
type WebsiteDocument struct {
	LastUpdated         string                `json:"last_updated"`
	RuntimeSDKVersions  map[string]SDKVersion `json:"runtime_sdk_versions"`
	PRDetails           map[int]PRDetail      `json:"pr_details"`
	PRToReleases        map[int][]PRRelease   `json:"pr_to_releases"`
	BackportMapping     map[int]int           `json:"backport_mapping"`
	OriginalToBackports map[int][]int         `json:"original_to_backports"`
}

func BuildMappingDocument(res *collector.Result) MappingDocument {
	doc := MappingDocument{
		GeneratedAt:     timestamp(res.GeneratedAt),
		Methodology:     Methodology,
		RuntimeMappings: make(map[string]RuntimeMapping, len(res.Releases)),
		SDKTags:         make(map[string]SDKTag, len(res.Tags)),
		BranchInfo:      make(map[string]BranchInfo, len(res.Branches)),
	}

	for _, rm := range res.Releases {
		entry := RuntimeMapping{
			SDKBranch:       rm.SDKBranch,
			SDKDate:         timestamp(rm.SDKDate),
			Confidence:      rm.Match.Confidence,
			Score:           rm.Match.Score,
			ReleaseDate:     timestamp(rm.Date),
			PackageVersions: rm.Packages,
			BranchPRCount:   rm.BranchPRCount,
			ActualPRCount:   rm.PRCount,
		}
		switch {
		case !rm.Match.Found():
			doc.Statistics.UnmatchedReleases++
		case rm.Match.Confidence.LowConfidence():
			doc.Statistics.LowConfidenceMatches++
		}
		if rm.Match.Found() {
			tag := rm.Match.Tag
			entry.SDKTag = &tag
			doc.Statistics.RuntimeReleasesMapped++
		}
		doc.RuntimeMappings[rm.Tag] = entry
	}

	for _, t := range res.Tags {
		doc.SDKTags[t.Name] = SDKTag{
			Commit:          t.SHA,
			Date:            timestamp(t.Date),
			Branch:          t.Branch,
			PackageVersions: t.Packages,
		}
	}

	for _, b := range res.Branches {
		info := BranchInfo{Tags: b.Tags, PRCount: len(b.PRs)}
		if !b.Created.IsZero() {
			created := timestamp(b.Created)
			info.CreatedDate = &created
		}
		if info.Tags == nil {
			info.Tags = []string{}
		}
		doc.BranchInfo[b.Code] = info
	}

	doc.Statistics.TotalSDKTags = len(res.Tags)
	doc.Statistics.TotalBranches = len(res.Branches)
	doc.Statistics.TotalPRsTracked = res.PRs.Len()
	doc.Statistics.AttributedPRs = len(res.Attributions)
	return doc
}

func BuildWebsiteDocument(res *collector.Result) WebsiteDocument {
	doc := WebsiteDocument{
		LastUpdated:         timestamp(res.GeneratedAt),
		RuntimeSDKVersions:  make(map[string]SDKVersion),
		PRDetails:           make(map[int]PRDetail),
		PRToReleases:        make(map[int][]PRRelease),
		BackportMapping:     res.Backports.Original,
		OriginalToBackports: res.Backports.Backports,
	}
	if doc.BackportMapping == nil {
		doc.BackportMapping = map[int]int{}
	}
	if doc.OriginalToBackports == nil {
		doc.OriginalToBackports = map[int][]int{}
	}

	for _, rm := range res.Releases {
		if !rm.Match.Found() {
			continue
		}
		doc.RuntimeSDKVersions[rm.Tag] = SDKVersion{
			SDKVersion:  rm.Match.Tag,
			ReleaseDate: timestamp(rm.SDKDate),
			TotalPRs:    rm.PRCount,
			NewPRs:      rm.PRCount,
		}
	}

	for _, rec := range res.PRs.Records() {
		orig := doc.BackportMapping[rec.Number]
		d := PRDetail{
			Number:     rec.Number,
			Title:      rec.Title,
			Author:     valueOr(rec.Author, "unknown"),
			Labels:     rec.Labels,
			URL:        rec.URL,
			Branch:     rec.Branch,
			IsDirect:   rec.Direct,
			FromMaster: rec.FromMaster,
			IsBackport: orig != 0,
			OriginalPR: orig,
		}
		if d.Labels == nil {
			d.Labels = []string{}
		}
		if !rec.MergedAt.IsZero() {
			merged := timestamp(rec.MergedAt)
			d.MergedAt = &merged
		}
		doc.PRDetails[rec.Number] = d
	}

	for _, a := range res.Attributions {
		doc.PRToReleases[a.PR] = []PRRelease{{
			RuntimeVersion: strings.TrimPrefix(a.Release, "v"),
			SDKVersion:     a.SDKTag,
			SDKBranch:      a.Branch,
			IsBackport:     a.Backport,
			OriginalPR:     a.OriginalPR,
			FromMaster:     a.FromMaster,
			IsDirect:       a.Direct,
		}}
	}
	return doc
}

// WriteMappings writes both mapping documents into dir.
func WriteMappings(dir string, res *collector.Result) error {
	if err := writeJSON(filepath.Join(dir, MappingsFile), BuildMappingDocument(res)); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, WebsiteFile), BuildWebsiteDocument(res))
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
