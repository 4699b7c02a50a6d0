package reporter

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/runtime-release-mapper/pkg/collector"
)

type TableReporter struct {
	w io.Writer
}

func (r *TableReporter) Report(res *collector.Result) error {
	heading := color.New(color.Bold)
	warn := color.New(color.FgYellow)

	heading.Fprintln(r.w, "Summary")
	fmt.Fprintf(r.w, "  SDK tags analyzed: %s\n", humanize.Comma(int64(len(res.Tags))))
	fmt.Fprintf(r.w, "  Release branches: %d\n", len(res.Branches))
	fmt.Fprintf(r.w, "  Runtime releases mapped: %d\n", len(res.Releases))
	fmt.Fprintf(r.w, "  Total PRs tracked: %s\n\n", humanize.Comma(int64(res.PRs.Len())))

	if len(res.Releases) == 0 {
		fmt.Fprintln(r.w, "No runtime releases found.")
		return nil
	}

	releases := make([]collector.ReleaseMapping, len(res.Releases))
	copy(releases, res.Releases)
	sort.SliceStable(releases, func(i, j int) bool { return releases[i].Tag > releases[j].Tag })

	heading.Fprintln(r.w, "Runtime SDK Mappings")
	tbl := newTable(r.w)
	tbl.AppendHeader(table.Row{"RELEASE", "PUBLISHED", "SDK TAG", "BRANCH", "CONFIDENCE", "PRS", "PACKAGES"})
	var flagged int
	for _, rm := range releases {
		sdkTag := rm.Match.Tag
		if sdkTag == "" {
			sdkTag = "(none)"
		}
		confidence := rm.Match.Confidence.String()
		if !rm.Match.Found() || rm.Match.Confidence.LowConfidence() {
			flagged++
			confidence = warn.Sprint(confidence)
		}
		tbl.AppendRow(table.Row{
			rm.Tag,
			relative(rm.Date),
			sdkTag,
			valueOr(rm.SDKBranch, "-"),
			confidence,
			rm.PRCount,
			packageList(rm.Packages),
		})
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d releases", len(releases))})
	tbl.Render()

	if flagged > 0 {
		warn.Fprintf(r.w, "%d release(s) matched with low confidence or not at all.\n", flagged)
	}

	fmt.Fprintln(r.w)
	heading.Fprintln(r.w, "Release Branch Summary")
	branches := newTable(r.w)
	branches.AppendHeader(table.Row{"BRANCH", "CREATED", "TAGS", "PRS"})
	for _, b := range res.Branches {
		created := "-"
		if !b.Created.IsZero() {
			created = b.Created.UTC().Format("2006-01-02")
		}
		branches.AppendRow(table.Row{b.Code, created, len(b.Tags), len(b.PRs)})
	}
	branches.Render()
	return nil
}

func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false
	return tbl
}

func relative(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return humanize.Time(t)
}

func packageList(versions map[string]string) string {
	names := make([]string, 0, len(versions))
	for name := range versions {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"@"+versions[name])
	}
	return strings.Join(parts, " ")
}

func valueOr(val, fallback string) string {
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}
