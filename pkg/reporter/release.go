package reporter

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/runtime-release-mapper/pkg/analyzer"
)

type ReleaseRef struct {
	TagName    string `json:"tag_name"`
	CreatedAt  string `json:"created_at"`
	Name       string `json:"name"`
	Body       string `json:"body,omitempty"`
	SDKVersion string `json:"sdk_version"`
}

type LinkedIssue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"`
}

type ReleasePR struct {
	Number       int           `json:"number"`
	Title        string        `json:"title"`
	Author       string        `json:"author"`
	MergedAt     string        `json:"merged_at"`
	Body         string        `json:"body"`
	Labels       []string      `json:"labels"`
	FilesChanged int           `json:"files_changed"`
	Additions    int           `json:"additions"`
	Deletions    int           `json:"deletions"`
	FileList     []string      `json:"file_list"`
	LinkedIssues []LinkedIssue `json:"linked_issues"`
	CommentCount int           `json:"comment_count"`
}

// ReleaseDocument is the JSON form of a release comparison.
type ReleaseDocument struct {
	NewerRelease ReleaseRef  `json:"newer_release"`
	OlderRelease ReleaseRef  `json:"older_release"`
	PRCount      int         `json:"pr_count"`
	AIAnalysis   string      `json:"ai_analysis"`
	PRDetails    []ReleasePR `json:"pr_details"`
}

func BuildReleaseDocument(a *analyzer.Analysis, aiAnalysis string) ReleaseDocument {
	doc := ReleaseDocument{
		NewerRelease: releaseRef(a.Newer, true),
		OlderRelease: releaseRef(a.Older, false),
		PRCount:      a.PRCount,
		AIAnalysis:   aiAnalysis,
		PRDetails:    make([]ReleasePR, 0, len(a.PRs)),
	}
	for _, d := range a.PRs {
		pr := ReleasePR{
			Number:       d.PR.Number,
			Title:        d.PR.Title,
			Author:       d.PR.Author,
			MergedAt:     timestamp(d.PR.MergedAt),
			Body:         d.PR.Body,
			Labels:       d.PR.Labels,
			FilesChanged: d.Diff.FilesChanged(),
			Additions:    d.Diff.Additions,
			Deletions:    d.Diff.Deletions,
			FileList:     d.Diff.Files,
			LinkedIssues: make([]LinkedIssue, 0, len(d.Issues)),
			CommentCount: len(d.Comments),
		}
		if pr.Labels == nil {
			pr.Labels = []string{}
		}
		if pr.FileList == nil {
			pr.FileList = []string{}
		}
		for _, is := range d.Issues {
			pr.LinkedIssues = append(pr.LinkedIssues, LinkedIssue{Number: is.Number, Title: is.Title, State: is.State})
		}
		doc.PRDetails = append(doc.PRDetails, pr)
	}
	return doc
}

func releaseRef(r analyzer.ReleaseInfo, withBody bool) ReleaseRef {
	ref := ReleaseRef{
		TagName:    r.TagName,
		CreatedAt:  timestamp(r.CreatedAt),
		Name:       valueOr(r.Name, r.TagName),
		SDKVersion: r.SDKVersion,
	}
	if withBody {
		ref.Body = r.Body
	}
	return ref
}

// WriteRelease writes <dir>/<tag>.md and <dir>/<tag>.json for the newer release.
func WriteRelease(dir string, a *analyzer.Analysis, aiAnalysis string) (mdPath, jsonPath string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create releases dir: %w", err)
	}
	mdPath = filepath.Join(dir, a.Newer.TagName+".md")
	if err := os.WriteFile(mdPath, []byte(RenderReleaseMarkdown(a, aiAnalysis)), 0o644); err != nil {
		return "", "", fmt.Errorf("write report: %w", err)
	}
	jsonPath = filepath.Join(dir, a.Newer.TagName+".json")
	if err := WriteReleaseJSON(jsonPath, a, aiAnalysis); err != nil {
		return "", "", err
	}
	return mdPath, jsonPath, nil
}

func WriteReleaseJSON(path string, a *analyzer.Analysis, aiAnalysis string) error {
	return writeJSON(path, BuildReleaseDocument(a, aiAnalysis))
}
