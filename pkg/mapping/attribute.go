package mapping

import (
	"sort"
	"time"
)

// PullRequest is the part of a pull request the attributor needs.
type PullRequest struct {
	Number     int
	MergedAt   time.Time // zero when unmerged or unparseable
	OriginalPR int       // 0 when the PR is not a backport
	Direct     bool      // merged straight into a stable branch
	FromMaster bool      // merged into master and inherited by a branch
}

// Release is a runtime release that has been matched to an upstream tag.
type Release struct {
	Tag     string
	SDKTag  string
	Branch  string
	SDKDate time.Time
}

// Attribution records the first release that shipped a pull request.
type Attribution struct {
	PR         int
	Release    string
	SDKTag     string
	Branch     string
	Backport   bool
	OriginalPR int
	FromMaster bool
	Direct     bool
}

// SortReleases orders releases by upstream tag date, oldest first. Releases
// with an unknown date sort last; the release tag breaks ties.
func SortReleases(releases []Release) {
	sort.SliceStable(releases, func(i, j int) bool {
		a, b := releases[i], releases[j]
		switch {
		case a.SDKDate.IsZero() != b.SDKDate.IsZero():
			return !a.SDKDate.IsZero()
		case !a.SDKDate.Equal(b.SDKDate):
			return a.SDKDate.Before(b.SDKDate)
		default:
			return a.Tag < b.Tag
		}
	})
}

// Attribute assigns every pull request to at most one release: the oldest
// release whose branch contains it and whose upstream tag is dated strictly
// after the merge. The input slice is not modified. Releases without a known
// tag date and pull requests without a known merge time are never used.
// Backport links that would form a cycle are dropped as in LinkBackports.
func Attribute(releases []Release, branches map[string]Branch, prs map[int]PullRequest) []Attribution {
	ordered := make([]Release, len(releases))
	copy(ordered, releases)
	SortReleases(ordered)
	links := LinkBackports(prs)

	claimed := make(map[int]struct{})
	var out []Attribution
	for _, r := range ordered {
		if r.SDKDate.IsZero() || r.Branch == UnknownBranch {
			continue
		}
		b, ok := branches[r.Branch]
		if !ok {
			continue
		}
		for _, n := range b.SortedPRs() {
			if _, done := claimed[n]; done {
				continue
			}
			pr, ok := prs[n]
			if !ok || pr.MergedAt.IsZero() || !pr.MergedAt.Before(r.SDKDate) {
				continue
			}
			claimed[n] = struct{}{}
			orig := links.Original[n]
			out = append(out, Attribution{
				PR:         n,
				Release:    r.Tag,
				SDKTag:     r.SDKTag,
				Branch:     r.Branch,
				Backport:   orig != 0,
				OriginalPR: orig,
				FromMaster: pr.FromMaster,
				Direct:     pr.Direct,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PR < out[j].PR })
	return out
}

// CountByRelease tallies attributions per release tag.
func CountByRelease(attrs []Attribution) map[string]int {
	counts := make(map[string]int)
	for _, a := range attrs {
		counts[a.Release]++
	}
	return counts
}
