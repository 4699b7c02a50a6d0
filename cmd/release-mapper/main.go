package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/runtime-release-mapper/pkg/config"
	"github.com/runtime-release-mapper/pkg/vcs"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "release-mapper",
		Short:         "Map runtime releases to the SDK releases and pull requests they ship",
		Long:          `Reconstructs which SDK stable tag each runtime release was built against, attributes SDK pull requests to the first runtime release that shipped them, and summarizes the changes between runtime releases.`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", ".release-mapper.yml", "Path to config file")
	flags.String("sdk-repo", "", "SDK repository (owner/repo)")
	flags.String("runtime-repo", "", "Runtime repository (owner/repo)")
	flags.String("github-token", os.Getenv("GITHUB_TOKEN"), "GitHub token for API access")
	flags.String("anthropic-key", os.Getenv("ANTHROPIC_API_KEY"), "Anthropic API key for release summaries")
	flags.Int("workers", 0, "Concurrent GitHub requests")
	flags.String("mappings-dir", "", "Directory for SDK mapping JSON files")
	flags.String("releases-dir", "", "Directory for release reports and the site index")
	flags.BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newMapCmd(), newAnalyzeCmd(), newIndexCmd(), newInitCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
}

type env struct {
	cfg    *config.Config
	logger *slog.Logger
}

func setup(cmd *cobra.Command) *env {
	cfgPath, _ := cmd.Flags().GetString("config")

	cfg, loadErr := config.Load(cfgPath)
	if loadErr != nil {
		cfg = config.Default()
	}
	cfg = config.MergeFlags(cfg, cmd.Flags())
	logger := newLogger(cfg.Verbose)

	switch {
	case errors.Is(loadErr, fs.ErrNotExist):
		logger.Debug("no config file, using defaults", "path", cfgPath)
	case loadErr != nil:
		logger.Warn("could not load config file, using defaults", "path", cfgPath, "error", loadErr)
	}

	if cfg.Token == "" {
		logger.Warn("no GitHub token provided; unauthenticated requests are limited to 60 per hour")
	}
	return &env{cfg: cfg, logger: logger}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func (e *env) client() vcs.RepoClient {
	return vcs.NewGitHubClient(vcs.NewClient(e.cfg.Token), vcs.WithLogger(e.logger))
}
