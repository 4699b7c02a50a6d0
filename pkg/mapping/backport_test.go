package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractBackport(t *testing.T) {
	tests := []struct {
		name   string
		number int
		title  string
		body   string
		want   int
		ok     bool
	}{
		{"branch marker with backport", 2000, "[stable2503] backport #1234", "", 1234, true},
		{"branch marker only", 2000, "[stable2412] #77 fix weights", "", 77, true},
		{"plain backport", 2000, "Backport #42 to stable", "", 42, true},
		{"backport of", 2000, "backport of #43", "", 43, true},
		{"cross repo", 2000, "Backports paritytech/polkadot-sdk#5150", "", 5150, true},
		{"suffix marker", 2000, "#812 (backport)", "", 812, true},
		{"cherry-pick", 2000, "Cherry-pick #9001 onto stable", "", 9001, true},
		{"cherry pick spaced", 2000, "cherry pick #9002", "", 9002, true},
		{"branch name style", 2000, "backport-3131-to-stable2503", "", 3131, true},
		{"title beats body", 2000, "backport #11", "see #22", 11, true},
		{"body fallback", 2000, "fix bug", "see #999 for context", 999, true},
		{"first body ref", 2000, "fix bug", "closes #5, relates to #6", 5, true},
		{"no reference", 2000, "fix bug", "nothing to see", 0, false},
		{"out of range", 2000, "backport #100000", "", 0, false},
		{"zero", 2000, "fix", "#0", 0, false},
		{"self reference", 1234, "[stable2503] backport #1234", "", 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractBackport(tc.number, tc.title, tc.body)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
			assert.NotEqual(t, tc.number, got)
		})
	}
}

func TestLinkBackports(t *testing.T) {
	prs := map[int]PullRequest{
		10: {Number: 10},
		11: {Number: 11, OriginalPR: 10},
		12: {Number: 12, OriginalPR: 10},
		20: {Number: 20, OriginalPR: 21},
		21: {Number: 21, OriginalPR: 20},
		30: {Number: 30, OriginalPR: 30},
	}

	links := LinkBackports(prs)

	assert.Equal(t, map[int]int{11: 10, 12: 10, 20: 21}, links.Original)
	assert.Equal(t, map[int][]int{10: {11, 12}, 21: {20}}, links.Backports)
}
