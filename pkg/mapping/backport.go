package mapping

import (
	"regexp"
	"sort"
	"strconv"
)

// maxPRNumber bounds accepted backport references.
const maxPRNumber = 100000

// Title patterns, tried in order.
var backportTitlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\[stable\d+\]\s*(?:backport\s*)?#(\d+)`),
	regexp.MustCompile(`(?i)backport\s+#(\d+)`),
	regexp.MustCompile(`(?i)backport\s+of\s+#(\d+)`),
	regexp.MustCompile(`(?i)backports?\s+[\w.-]+/[\w.-]+#(\d+)`),
	regexp.MustCompile(`(?i)#(\d+)\s*\(backport\)`),
	regexp.MustCompile(`(?i)cherry[- ]?pick\s+#(\d+)`),
	regexp.MustCompile(`(?i)backport-(\d+)-to-`),
}

var bodyRefPattern = regexp.MustCompile(`#(\d+)`)

// ExtractBackport returns the number of the pull request that number was
// backported from. Title markers win over body references; only the first
// body reference is considered. Out-of-range values and self references are
// rejected.
func ExtractBackport(number int, title, body string) (int, bool) {
	for _, re := range backportTitlePatterns {
		if m := re.FindStringSubmatch(title); m != nil {
			return validBackportRef(number, m[1])
		}
	}
	if m := bodyRefPattern.FindStringSubmatch(body); m != nil {
		return validBackportRef(number, m[1])
	}
	return 0, false
}

func validBackportRef(number int, raw string) (int, bool) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n >= maxPRNumber || n == number {
		return 0, false
	}
	return n, true
}

// BackportLinks is the backport relation in both directions.
type BackportLinks struct {
	Original  map[int]int   // backport -> original
	Backports map[int][]int // original -> sorted backports
}

// LinkBackports builds the backport relation from PR records, dropping any
// link that would make a PR its own ancestor.
func LinkBackports(prs map[int]PullRequest) BackportLinks {
	numbers := make([]int, 0, len(prs))
	for n := range prs {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	links := BackportLinks{
		Original:  make(map[int]int),
		Backports: make(map[int][]int),
	}
	for _, n := range numbers {
		orig := prs[n].OriginalPR
		if orig == 0 || orig == n || links.reaches(orig, n) {
			continue
		}
		links.Original[n] = orig
		links.Backports[orig] = append(links.Backports[orig], n)
	}
	return links
}

// reaches reports whether following original links from start arrives at target.
func (l BackportLinks) reaches(start, target int) bool {
	seen := make(map[int]struct{})
	for cur := start; cur != 0; cur = l.Original[cur] {
		if cur == target {
			return true
		}
		if _, ok := seen[cur]; ok {
			return false
		}
		seen[cur] = struct{}{}
	}
	return false
}
