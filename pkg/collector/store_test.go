package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/runtime-release-mapper/pkg/vcs"
)

func TestPRStoreFirstBranchWins(t *testing.T) {
	s := NewPRStore()
	s.Put(PRRecord{PullRequest: vcs.PullRequest{Number: 7}, Branch: "stable2409", Direct: true})
	s.Put(PRRecord{
		PullRequest: vcs.PullRequest{Number: 7, Body: "see #3", MergedAt: day("2024-09-02")},
		Branch:      "stable2412",
		FromMaster:  true,
		OriginalPR:  3,
	})

	rec, ok := s.Get(7)
	assert.True(t, ok)
	assert.Equal(t, "stable2409", rec.Branch)
	assert.True(t, rec.Direct)
	assert.False(t, rec.FromMaster, "flags belong to the first branch")
	assert.Equal(t, 3, rec.OriginalPR)
	assert.Equal(t, "see #3", rec.Body)
	assert.Equal(t, day("2024-09-02"), rec.MergedAt)
	assert.Equal(t, 1, s.Len())
}

func TestPRStoreMissingOriginals(t *testing.T) {
	s := NewPRStore()
	s.Put(PRRecord{PullRequest: vcs.PullRequest{Number: 20}, OriginalPR: 12})
	s.Put(PRRecord{PullRequest: vcs.PullRequest{Number: 21}, OriginalPR: 12})
	s.Put(PRRecord{PullRequest: vcs.PullRequest{Number: 22}, OriginalPR: 5})
	s.Put(PRRecord{PullRequest: vcs.PullRequest{Number: 23}, OriginalPR: 20})

	assert.Equal(t, []int{5, 12}, s.MissingOriginals())

	prs := s.PullRequests()
	assert.Len(t, prs, 4)
	assert.Equal(t, 12, prs[21].OriginalPR)

	var numbers []int
	for _, r := range s.Records() {
		numbers = append(numbers, r.Number)
	}
	assert.Equal(t, []int{20, 21, 22, 23}, numbers)
}
