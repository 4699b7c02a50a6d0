package analyzer

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/runtime-release-mapper/pkg/lockfile"
	"github.com/runtime-release-mapper/pkg/vcs"
)

// UnknownSDK is reported when a release's SDK version cannot be determined.
const UnknownSDK = "unknown"

const maxLinkedIssues = 10

// sdkBranchByMajor maps polkadot-primitives major versions to stable branches.
var sdkBranchByMajor = map[string]string{
	"15": "stable2407",
	"16": "stable2409",
	"17": "stable2412",
	"18": "stable2503",
}

// SDKVersionFromLock names the SDK release a runtime Cargo.lock was built
// against, falling back to the raw polkadot-primitives version.
func SDKVersionFromLock(lock []byte) string {
	versions, err := lockfile.LockVersions(lock, []string{"polkadot-primitives"})
	if err != nil {
		return UnknownSDK
	}
	version, ok := versions["polkadot-primitives"]
	if !ok || version == "" {
		return UnknownSDK
	}
	major, _, _ := strings.Cut(version, ".")
	if branch, ok := sdkBranchByMajor[major]; ok {
		return branch
	}
	return "v" + version
}

var (
	closingRefPattern = regexp.MustCompile(`(?i)\b(?:close[sd]?|fix(?:e[sd])?|resolve[sd]?)\s+#(\d+)`)
	bareRefPattern    = regexp.MustCompile(`#(\d+)`)
)

// LinkedIssueNumbers returns the issue numbers referenced by a pull request
// body, either through closing keywords or bare #N references, in ascending
// order. The PR itself is excluded and at most maxLinkedIssues are returned.
func LinkedIssueNumbers(repo vcs.Repo, number int, body string) []int {
	if body == "" {
		return nil
	}
	patterns := []*regexp.Regexp{
		closingRefPattern,
		bareRefPattern,
		regexp.MustCompile(fmt.Sprintf(`(?i)\b(?:close[sd]?|fix(?:e[sd])?|resolve[sd]?)\s+%s#(\d+)`,
			regexp.QuoteMeta(repo.String()))),
	}

	seen := make(map[int]bool)
	var out []int
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(body, -1) {
			n, err := strconv.Atoi(m[1])
			if err != nil || n <= 0 || n == number || seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Ints(out)
	if len(out) > maxLinkedIssues {
		out = out[:maxLinkedIssues]
	}
	return out
}
