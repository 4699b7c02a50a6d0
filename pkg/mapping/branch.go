package mapping

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"
)

// branchCadence is the number of months between consecutive stable branches.
const branchCadence = 3

var branchCodePattern = regexp.MustCompile(`^stable(\d{2})(\d{2})$`)

// Branch is a stable release line and the pull requests it carries.
type Branch struct {
	Code    string
	Created time.Time // zero when the branch point is unknown
	Tags    []string
	PRs     map[int]struct{}
}

// NewBranch returns a branch with an empty PR set.
func NewBranch(code string) Branch {
	return Branch{Code: code, PRs: make(map[int]struct{})}
}

// HasPR reports whether number belongs to the branch.
func (b Branch) HasPR(number int) bool {
	_, ok := b.PRs[number]
	return ok
}

// SortedPRs returns the branch PR numbers in ascending order.
func (b Branch) SortedPRs() []int {
	prs := make([]int, 0, len(b.PRs))
	for n := range b.PRs {
		prs = append(prs, n)
	}
	sort.Ints(prs)
	return prs
}

// NextBranchCode returns the code of the branch cut one cadence after code.
func NextBranchCode(code string) (string, bool) {
	return shiftBranchCode(code, branchCadence)
}

// PrevBranchCode returns the code of the branch cut one cadence before code.
func PrevBranchCode(code string) (string, bool) {
	return shiftBranchCode(code, -branchCadence)
}

func shiftBranchCode(code string, months int) (string, bool) {
	m := branchCodePattern.FindStringSubmatch(code)
	if m == nil {
		return "", false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return "", false
	}
	total := year*12 + (month - 1) + months
	if total < 0 {
		return "", false
	}
	return fmt.Sprintf("stable%02d%02d", (total/12)%100, total%12+1), true
}

// NextCutoff is the timestamp up to which the branch after code collects
// commits: the next branch's creation time when tracked, otherwise now.
func NextCutoff(code string, branches map[string]Branch, now time.Time) time.Time {
	next, ok := NextBranchCode(code)
	if !ok {
		return now
	}
	if b, ok := branches[next]; ok && !b.Created.IsZero() {
		return b.Created
	}
	return now
}

// PrevCutoff is the creation time of the branch before code. The second
// result is false when no earlier branch is tracked, in which case no shared
// master history may be attributed to code.
func PrevCutoff(code string, branches map[string]Branch) (time.Time, bool) {
	prev, ok := PrevBranchCode(code)
	if !ok {
		return time.Time{}, false
	}
	b, ok := branches[prev]
	if !ok || b.Created.IsZero() {
		return time.Time{}, false
	}
	return b.Created, true
}

// Window is the range of shared master history a branch may claim, plus the
// point at which the following branch takes over.
type Window struct {
	From    time.Time // previous branch's creation; valid only when HasFrom
	HasFrom bool
	To      time.Time // the branch's own creation; zero when unknown
	Until   time.Time // next branch's creation, or now
}

// Claimable reports whether master merges may be attributed through w.
func (w Window) Claimable() bool {
	return w.HasFrom && !w.To.IsZero() && w.From.Before(w.To)
}

// Contains reports whether a master merge at t falls inside the window.
// The lower bound is inclusive and the upper bound exclusive.
func (w Window) Contains(t time.Time) bool {
	if !w.Claimable() || t.IsZero() {
		return false
	}
	return !t.Before(w.From) && t.Before(w.To)
}

// Cutoffs resolves the window of every known branch. Unknown-branch entries
// are skipped.
func Cutoffs(branches map[string]Branch, now time.Time) map[string]Window {
	out := make(map[string]Window, len(branches))
	for code, b := range branches {
		if code == UnknownBranch {
			continue
		}
		w := Window{To: b.Created, Until: NextCutoff(code, branches, now)}
		w.From, w.HasFrom = PrevCutoff(code, branches)
		out[code] = w
	}
	return out
}

// SortBranches orders branches by creation date, unknown dates last, with
// the branch code breaking ties.
func SortBranches(branches []Branch) {
	sort.SliceStable(branches, func(i, j int) bool {
		a, b := branches[i], branches[j]
		switch {
		case a.Created.IsZero() != b.Created.IsZero():
			return !a.Created.IsZero()
		case !a.Created.Equal(b.Created):
			return a.Created.Before(b.Created)
		default:
			return a.Code < b.Code
		}
	})
}
