package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/runtime-release-mapper/pkg/analyzer"
)

const (
	maxBodyChars        = 1000
	maxIssueBodyChars   = 300
	maxCommentChars     = 200
	minCommentChars     = 50
	maxKeyComments      = 3
	maxSampleFiles      = 10
	maxDiffSampleChars  = 2000
	maxCodeChangeGroups = 10
)

type issueSummary struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	State string `json:"state"`
}

type prSummary struct {
	Title         string         `json:"title"`
	Body          string         `json:"body"`
	Author        string         `json:"author"`
	MergedAt      string         `json:"merged_at"`
	Labels        []string       `json:"labels"`
	CommentsCount int            `json:"comments_count"`
	FilesChanged  int            `json:"files_changed"`
	Additions     int            `json:"additions"`
	Deletions     int            `json:"deletions"`
	LinkedIssues  []issueSummary `json:"linked_issues"`
	KeyComments   []string       `json:"key_comments,omitempty"`
}

type codeChange struct {
	PRNumber   int      `json:"pr_number"`
	PRTitle    string   `json:"pr_title"`
	Files      []string `json:"files"`
	DiffSample string   `json:"diff_sample"`
}

// BuildPrompt formats the pull requests of a release comparison for the model.
func BuildPrompt(a *analyzer.Analysis) string {
	summaries := make([]prSummary, 0, len(a.PRs))
	var changes []codeChange
	for _, d := range a.PRs {
		s := prSummary{
			Title:         d.PR.Title,
			Body:          truncate(d.PR.Body, maxBodyChars),
			Author:        d.PR.Author,
			MergedAt:      formatTime(d.PR.MergedAt),
			Labels:        nonNil(d.PR.Labels),
			CommentsCount: len(d.Comments),
			FilesChanged:  d.Diff.FilesChanged(),
			Additions:     d.Diff.Additions,
			Deletions:     d.Diff.Deletions,
			LinkedIssues:  []issueSummary{},
		}
		for _, is := range d.Issues {
			s.LinkedIssues = append(s.LinkedIssues, issueSummary{
				Title: is.Title,
				Body:  truncate(is.Body, maxIssueBodyChars),
				State: is.State,
			})
		}
		for _, c := range d.Comments {
			if len(s.KeyComments) == maxKeyComments {
				break
			}
			if len(c.Body) > minCommentChars {
				s.KeyComments = append(s.KeyComments, truncate(c.Body, maxCommentChars))
			}
		}
		summaries = append(summaries, s)

		if d.Diff.FilesChanged() > 0 && len(changes) < maxCodeChangeGroups {
			files := d.Diff.Files
			if len(files) > maxSampleFiles {
				files = files[:maxSampleFiles]
			}
			changes = append(changes, codeChange{
				PRNumber:   d.PR.Number,
				PRTitle:    d.PR.Title,
				Files:      files,
				DiffSample: truncate(d.Diff.Diff, maxDiffSampleChars),
			})
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the following pull requests merged between releases %s and %s of the Polkadot Fellows Runtimes repository.\n\n",
		a.Older.TagName, a.Newer.TagName)
	b.WriteString("Release dates:\n")
	fmt.Fprintf(&b, "- Previous: %s (%s)\n", a.Older.TagName, formatTime(a.Older.CreatedAt))
	fmt.Fprintf(&b, "- Latest: %s (%s)\n\n", a.Newer.TagName, formatTime(a.Newer.CreatedAt))
	b.WriteString("PRs to analyze:\n")
	b.WriteString(indentJSON(summaries))
	b.WriteString("\n\nCode changes details (samples):\n")
	b.WriteString(indentJSON(nonNilChanges(changes)))
	b.WriteString("\n\nPlease provide:\n\n")
	b.WriteString(sections)
	return b.String()
}

const sections = `1. **Executive Summary for Non-Technical Users**
   - What are the main improvements and changes in plain language?
   - What benefits will users see?
   - Are there any actions users need to take?

2. **Key Changes Explained**
   - Breaking changes (explain what will stop working and why)
   - Security improvements (explain how users are better protected)
   - Performance improvements (explain how things will be faster/better)
   - New features (explain what users can now do)

3. **Technical Summary for Developers**
   - Major API/interface changes
   - Migration requirements
   - Technical improvements

4. **Code Impact Analysis**
   - Which parts of the system were most affected?
   - What types of changes were made (bug fixes, refactoring, new features)?

Please use simple, clear language especially in the non-technical sections. Avoid jargon and explain technical terms when necessary.`

func indentJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilChanges(c []codeChange) []codeChange {
	if c == nil {
		return []codeChange{}
	}
	return c
}
