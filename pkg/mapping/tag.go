// Package mapping infers which upstream SDK tag a runtime release was built
// from and which pull requests each release first shipped. Everything here is
// a pure transform over in-memory values.
package mapping

import (
	"regexp"
	"strings"
	"time"
)

// UnknownBranch is assigned to tags whose name carries no stable branch code.
// Such tags still take part in version matching but never in branch attribution.
const UnknownBranch = "unknown"

// TagPrefix is stripped from upstream tag names before they are recorded.
const TagPrefix = "polkadot-"

var branchPattern = regexp.MustCompile(`^stable(\d{4})`)

// Tag is one upstream stable release point and its package fingerprint.
type Tag struct {
	Name     string
	SHA      string
	Branch   string
	Date     time.Time // zero when the commit date is unknown
	Packages map[string]string
}

// NewTag normalizes the name, derives the branch and copies the package map.
func NewTag(name, sha string, date time.Time, packages map[string]string) Tag {
	name = NormalizeTagName(name)
	pkgs := make(map[string]string, len(packages))
	for k, v := range packages {
		pkgs[k] = v
	}
	return Tag{
		Name:     name,
		SHA:      sha,
		Branch:   BranchOf(name),
		Date:     date,
		Packages: pkgs,
	}
}

// NormalizeTagName drops the repository-specific prefix from a tag name.
func NormalizeTagName(name string) string {
	return strings.TrimPrefix(name, TagPrefix)
}

// BranchOf returns the stable branch code for a tag name, or UnknownBranch.
func BranchOf(tagName string) string {
	m := branchPattern.FindStringSubmatch(NormalizeTagName(tagName))
	if m == nil {
		return UnknownBranch
	}
	return "stable" + m[1]
}

// ParseTimestamp parses an ISO-8601 timestamp as returned by the GitHub API.
// Empty or malformed input yields the zero time, which every date comparison
// in this package treats as ineligible.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
