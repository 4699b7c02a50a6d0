package analyzer

import (
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

const truncatedMarker = "\n... (diff truncated)"

// DiffSummary describes the size of a pull request diff.
type DiffSummary struct {
	Files     []string
	Additions int
	Deletions int
	Diff      string // possibly truncated
}

func (d DiffSummary) FilesChanged() int { return len(d.Files) }

// DiffStats parses a unified multi-file diff and counts changed files and
// lines. Diffs longer than maxLength are truncated in the returned summary;
// maxLength <= 0 keeps the full text.
func DiffStats(raw string, maxLength int) DiffSummary {
	if raw == "" {
		return DiffSummary{}
	}

	var s DiffSummary
	fileDiffs, err := diff.ParseMultiFileDiff([]byte(raw))
	if err != nil {
		s = scanDiff(raw)
	} else {
		seen := make(map[string]bool)
		for _, fd := range fileDiffs {
			name := diffFileName(fd)
			if name != "" && !seen[name] {
				seen[name] = true
				s.Files = append(s.Files, name)
			}
			st := fd.Stat()
			s.Additions += int(st.Added + st.Changed)
			s.Deletions += int(st.Deleted + st.Changed)
		}
	}

	s.Diff = raw
	if maxLength > 0 && len(raw) > maxLength {
		s.Diff = raw[:maxLength] + truncatedMarker
	}
	return s
}

func diffFileName(fd *diff.FileDiff) string {
	name := fd.NewName
	if name == "" || name == "/dev/null" {
		name = fd.OrigName
	}
	if name == "/dev/null" {
		return ""
	}
	name = strings.TrimPrefix(name, "b/")
	return strings.TrimPrefix(name, "a/")
}

// scanDiff counts lines directly for diffs the parser rejects.
func scanDiff(raw string) DiffSummary {
	var s DiffSummary
	seen := make(map[string]bool)
	for _, line := range strings.Split(raw, "\n") {
		switch {
		case strings.HasPrefix(line, "diff --git "):
			parts := strings.Fields(line)
			if len(parts) >= 3 {
				name := strings.TrimPrefix(parts[2], "a/")
				if !seen[name] {
					seen[name] = true
					s.Files = append(s.Files, name)
				}
			}
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			s.Additions++
		case strings.HasPrefix(line, "-"):
			s.Deletions++
		}
	}
	return s
}
