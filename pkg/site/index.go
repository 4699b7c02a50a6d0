// Package site maintains the release index read by the static website.
package site

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/runtime-release-mapper/pkg/reporter"
)

const IndexFile = "index.json"

type Entry struct {
	TagName    string `json:"tag_name"`
	CreatedAt  string `json:"created_at"`
	Name       string `json:"name"`
	PRCount    int    `json:"pr_count"`
	ComparedTo string `json:"compared_to"`
	Filename   string `json:"filename"`
}

type Index struct {
	LastUpdated   string  `json:"last_updated"`
	Releases      []Entry `json:"releases"`
	TotalReleases int     `json:"total_releases"`
}

// UpdateIndex rebuilds <dir>/index.json from every release report in dir,
// newest first. Reports that cannot be read are logged and skipped.
func UpdateIndex(dir string, now time.Time, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create releases dir: %w", err)
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list release reports: %w", err)
	}

	idx := &Index{Releases: []Entry{}}
	for _, path := range paths {
		stem := strings.TrimSuffix(filepath.Base(path), ".json")
		if stem == "index" {
			continue
		}
		entry, err := readEntry(path)
		if err != nil {
			logger.Warn("skipping release report", "file", path, "error", err)
			continue
		}
		entry.Filename = stem
		idx.Releases = append(idx.Releases, entry)
	}

	sort.SliceStable(idx.Releases, func(i, j int) bool {
		a, b := idx.Releases[i], idx.Releases[j]
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt > b.CreatedAt
		}
		return a.TagName > b.TagName
	})
	idx.TotalReleases = len(idx.Releases)
	idx.LastUpdated = now.UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, IndexFile), append(data, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("write index: %w", err)
	}
	logger.Info("updated releases index", "releases", idx.TotalReleases)
	return idx, nil
}

func readEntry(path string) (Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, err
	}
	var doc reporter.ReleaseDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return Entry{}, fmt.Errorf("decode report: %w", err)
	}
	if doc.NewerRelease.TagName == "" {
		return Entry{}, fmt.Errorf("report has no newer_release.tag_name")
	}
	name := doc.NewerRelease.Name
	if name == "" {
		name = doc.NewerRelease.TagName
	}
	return Entry{
		TagName:    doc.NewerRelease.TagName,
		CreatedAt:  doc.NewerRelease.CreatedAt,
		Name:       name,
		PRCount:    doc.PRCount,
		ComparedTo: doc.OlderRelease.TagName,
	}, nil
}

// Analyzed reports whether a release report for tag already exists in dir.
func Analyzed(dir, tag string) bool {
	_, err := os.Stat(filepath.Join(dir, tag+".json"))
	return err == nil
}
