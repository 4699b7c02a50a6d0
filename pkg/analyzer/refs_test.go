package analyzer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSDKVersionFromLock(t *testing.T) {
	tests := []struct {
		name string
		lock string
		want string
	}{
		{"known major", "[[package]]\nname = \"polkadot-primitives\"\nversion = \"18.1.0\"\n", "stable2503"},
		{"unknown major", "[[package]]\nname = \"polkadot-primitives\"\nversion = \"21.0.0\"\n", "v21.0.0"},
		{"package missing", "[[package]]\nname = \"serde\"\nversion = \"1.0.0\"\n", UnknownSDK},
		{"not toml", "[[package", UnknownSDK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SDKVersionFromLock([]byte(tt.lock)))
		})
	}
}

func TestLinkedIssueNumbers(t *testing.T) {
	body := "Closes #101. Fixes polkadot-fellows/runtimes#77, see #5 and #101 again. Self ref #40."
	assert.Equal(t, []int{5, 77, 101}, LinkedIssueNumbers(runtimeRepo, 40, body))
	assert.Nil(t, LinkedIssueNumbers(runtimeRepo, 40, ""))
}

func TestLinkedIssueNumbersCapped(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 15; i++ {
		fmt.Fprintf(&b, " #%d", 100+i)
	}
	got := LinkedIssueNumbers(runtimeRepo, 0, b.String())
	assert.Len(t, got, maxLinkedIssues)
	assert.Equal(t, 101, got[0])
}

func TestDiffStats(t *testing.T) {
	s := DiffStats(sampleDiff, 0)
	assert.Equal(t, 2, s.FilesChanged())
	assert.Equal(t, 4, s.Additions)
	assert.Equal(t, 1, s.Deletions)
	assert.Equal(t, sampleDiff, s.Diff)

	truncated := DiffStats(sampleDiff, 20)
	assert.Equal(t, sampleDiff[:20]+"\n... (diff truncated)", truncated.Diff)
	assert.Equal(t, 4, truncated.Additions, "counts use the full diff")

	assert.Equal(t, DiffSummary{}, DiffStats("", 100))
}
