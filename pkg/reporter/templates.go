package reporter

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/runtime-release-mapper/pkg/analyzer"
)

const maxListedFiles = 5

var releaseTmpl = template.Must(template.New("release").Funcs(template.FuncMap{
	"sdk":  sdkLabel,
	"time": timestamp,
	"code": func(s string) string { return "`" + s + "`" },
}).Parse(`# Polkadot Fellows Runtime Release Analysis

## Release Comparison
- **Previous Release**: {{ .Older.TagName }} ({{ time .Older.CreatedAt }})
  - SDK Version: {{ sdk .Older.SDKVersion }}
- **Latest Release**: {{ .Newer.TagName }} ({{ time .Newer.CreatedAt }})
  - SDK Version: {{ sdk .Newer.SDKVersion }}
- **Total PRs Merged**: {{ .PRCount }}
{{- if .SDKChanged }}
- **SDK Version Change**: {{ .Older.SDKVersion }} → {{ .Newer.SDKVersion }}
{{- end }}

## AI-Generated Analysis

{{ .AIAnalysis }}

## Detailed PR List

{{ range .PRs -}}
### PR #{{ .PR.Number }}: {{ .PR.Title }}
- **Author**: @{{ .PR.Author }}
- **Merged**: {{ time .PR.MergedAt }}
- **Files Changed**: {{ .Diff.FilesChanged }} (+{{ .Diff.Additions }}/-{{ .Diff.Deletions }})
{{- if .PR.Labels }}
- **Labels**: {{ range $i, $l := .PR.Labels }}{{ if $i }}, {{ end }}{{ code $l }}{{ end }}
{{- end }}
{{- if .Issues }}
- **Linked Issues**: {{ range $i, $is := .Issues }}{{ if $i }}, {{ end }}#{{ $is.Number }}{{ end }}
{{- end }}
- **Comments**: {{ len .Comments }}
{{- if .Diff.Files }}
- **Key Files Modified**:
{{- range .ShownFiles }}
  - {{ code . }}
{{- end }}
{{- if .HiddenFiles }}
  - ... and {{ .HiddenFiles }} more files
{{- end }}
{{- end }}

{{ end -}}
`))

type releaseData struct {
	*analyzer.Analysis
	AIAnalysis string
	PRs        []prData
}

type prData struct {
	analyzer.PRDetail
	ShownFiles  []string
	HiddenFiles int
}

// RenderReleaseMarkdown renders the release comparison report.
func RenderReleaseMarkdown(a *analyzer.Analysis, aiAnalysis string) string {
	data := releaseData{Analysis: a, AIAnalysis: aiAnalysis}
	for _, d := range a.PRs {
		p := prData{PRDetail: d, ShownFiles: d.Diff.Files}
		if len(p.ShownFiles) > maxListedFiles {
			p.HiddenFiles = len(p.ShownFiles) - maxListedFiles
			p.ShownFiles = p.ShownFiles[:maxListedFiles]
		}
		data.PRs = append(data.PRs, p)
	}

	var buf bytes.Buffer
	if err := releaseTmpl.Execute(&buf, data); err != nil {
		return fmt.Sprintf("Error rendering release template: %v", err)
	}
	return buf.String()
}

func sdkLabel(v string) string {
	if strings.TrimSpace(v) == "" || v == analyzer.UnknownSDK {
		return "Unable to determine"
	}
	return v
}
