package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/runtime-release-mapper/pkg/analyzer"
	"github.com/runtime-release-mapper/pkg/collector"
	"github.com/runtime-release-mapper/pkg/llm"
	"github.com/runtime-release-mapper/pkg/reporter"
	"github.com/runtime-release-mapper/pkg/site"
	"github.com/runtime-release-mapper/pkg/vcs"
)

func newMapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Map runtime releases to SDK tags and attribute SDK pull requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			e := setup(cmd)
			m, err := collector.New(e.client(), e.cfg, e.logger)
			if err != nil {
				return err
			}
			res, err := m.Run(cmd.Context())
			if err != nil {
				return err
			}
			if err := reporter.WriteMappings(e.cfg.Output.MappingsDir, res); err != nil {
				return err
			}
			e.logger.Info("saved mappings", "dir", e.cfg.Output.MappingsDir)
			return reporter.New(e.cfg.Output.Format, os.Stdout).Report(res)
		},
	}
	cmd.Flags().String("output", "table", "Console summary format: table | json")
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [tag]",
		Short: "Summarize the pull requests merged between a runtime release and its predecessor",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := setup(cmd)
			a, err := e.analyzer()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var newer, older vcs.Release
			if len(args) == 1 {
				newer, older, err = a.ReleaseAndPrevious(ctx, args[0])
			} else {
				newer, older, err = a.LatestPair(ctx)
			}
			if err != nil {
				return err
			}
			return e.analyzeRelease(ctx, a, newer, older)
		},
	}
	cmd.Flags().String("model", "", "Claude model used for the summary")
	return cmd
}

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Rebuild the release index read by the site",
		RunE: func(cmd *cobra.Command, args []string) error {
			e := setup(cmd)
			_, err := site.UpdateIndex(e.cfg.Output.ReleasesDir, time.Now(), e.logger)
			return err
		},
	}
}

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Analyze recent runtime releases that have no report yet, then rebuild the index",
		RunE: func(cmd *cobra.Command, args []string) error {
			e := setup(cmd)
			count, _ := cmd.Flags().GetInt("count")
			a, err := e.analyzer()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			releases, err := a.Releases(ctx)
			if err != nil {
				return err
			}
			n := min(count, len(releases)-1)
			e.logger.Info("initializing site", "releases", len(releases), "to_analyze", max(n, 0))
			for i := 0; i < n; i++ {
				tag := releases[i].TagName
				if site.Analyzed(e.cfg.Output.ReleasesDir, tag) {
					e.logger.Info("release already analyzed, skipping", "release", tag)
					continue
				}
				if err := e.analyzeRelease(ctx, a, releases[i], releases[i+1]); err != nil {
					if ctxErr := ctx.Err(); ctxErr != nil {
						return ctxErr
					}
					e.logger.Error("could not analyze release", "release", tag, "error", err)
				}
			}
			_, err = site.UpdateIndex(e.cfg.Output.ReleasesDir, time.Now(), e.logger)
			return err
		},
	}
	cmd.Flags().Int("count", 10, "Number of most recent releases to analyze")
	cmd.Flags().String("model", "", "Claude model used for the summaries")
	return cmd
}

func (e *env) analyzer() (*analyzer.Analyzer, error) {
	repo, err := vcs.ParseRepo(e.cfg.RuntimeRepo)
	if err != nil {
		return nil, fmt.Errorf("runtime repo: %w", err)
	}
	return analyzer.New(e.client(), repo, e.cfg.Limits, e.logger), nil
}

func (e *env) analyzeRelease(ctx context.Context, a *analyzer.Analyzer, newer, older vcs.Release) error {
	res, err := a.Compare(ctx, newer, older)
	if err != nil {
		return fmt.Errorf("compare %s with %s: %w", newer.TagName, older.TagName, err)
	}

	summarizer := llm.NewSummarizer(e.cfg.LLM)
	if _, disabled := summarizer.(llm.Disabled); disabled {
		e.logger.Warn("no Anthropic API key provided; AI analysis will be skipped")
	}
	e.logger.Info("generating summary", "model", e.cfg.LLM.Model, "prs", len(res.PRs))
	summary, err := summarizer.Summarize(ctx, llm.BuildPrompt(res))
	if err != nil {
		return fmt.Errorf("summarize %s: %w", newer.TagName, err)
	}

	mdPath, jsonPath, err := reporter.WriteRelease(e.cfg.Output.ReleasesDir, res, summary)
	if err != nil {
		return err
	}
	color.New(color.FgGreen).Printf("Analysis of %s saved to %s and %s\n", newer.TagName, mdPath, jsonPath)
	return nil
}
