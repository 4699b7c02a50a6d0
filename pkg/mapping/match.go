package mapping

import (
	"sort"
	"time"
)

// Confidence describes how a match was decided.
type Confidence int

const (
	// NoMatch means no tag shares a package version with the release.
	NoMatch Confidence = iota
	// Exact means a single tag had the highest score.
	Exact
	// Nearest means tied tags were separated by the closest preceding date.
	Nearest
	// Fallback means the tie could not be broken by date and the
	// lexicographically greatest tag name was taken.
	Fallback
)

func (c Confidence) String() string {
	switch c {
	case Exact:
		return "exact"
	case Nearest:
		return "nearest"
	case Fallback:
		return "fallback"
	default:
		return "none"
	}
}

// MarshalText renders the confidence as its name in JSON output.
func (c Confidence) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// LowConfidence reports whether callers should flag the match.
func (c Confidence) LowConfidence() bool {
	return c == Fallback
}

// ReleaseCandidate is a runtime release whose upstream tag is being inferred.
type ReleaseCandidate struct {
	Tag      string
	Date     time.Time
	Packages map[string]string
}

// Match is the outcome of matching one candidate.
type Match struct {
	Tag        string
	Score      int
	Confidence Confidence
}

// Found reports whether any tag matched.
func (m Match) Found() bool {
	return m.Confidence != NoMatch
}

// MatchCandidate picks the upstream tag sharing the most package versions with c.
// Ties go to the most recent tag dated at or before the candidate; when no tied
// tag qualifies the greatest tag name is returned with Fallback confidence.
// A candidate sharing nothing with any tag yields a NoMatch result.
func MatchCandidate(c ReleaseCandidate, idx ReverseIndex, tags map[string]Tag) Match {
	scores := make(map[string]int)
	for pkg, ver := range c.Packages {
		for name := range idx[PackageVersion{Package: pkg, Version: ver}] {
			scores[name]++
		}
	}
	if len(scores) == 0 {
		return Match{}
	}

	maxScore := 0
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	var best []string
	for name, s := range scores {
		if s == maxScore {
			best = append(best, name)
		}
	}
	sort.Strings(best)

	if len(best) == 1 {
		return Match{Tag: best[0], Score: maxScore, Confidence: Exact}
	}

	if !c.Date.IsZero() {
		var (
			pick string
			gap  time.Duration
		)
		for _, name := range best {
			t, ok := tags[name]
			if !ok || t.Date.IsZero() || t.Date.After(c.Date) {
				continue
			}
			d := c.Date.Sub(t.Date)
			// best is sorted, so on equal gaps the later name wins.
			if pick == "" || d <= gap {
				pick, gap = name, d
			}
		}
		if pick != "" {
			return Match{Tag: pick, Score: maxScore, Confidence: Nearest}
		}
	}

	return Match{Tag: best[len(best)-1], Score: maxScore, Confidence: Fallback}
}
