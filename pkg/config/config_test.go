package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapper.yml")
	yml := `
sdk_repo: example/sdk
workers: 3
packages:
  - name: sp-core
    manifest: substrate/primitives/core/Cargo.toml
limits:
  tag_pages: 2
llm:
  model: claude-test
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "example/sdk", cfg.SDKRepo)
	assert.Equal(t, "polkadot-fellows/runtimes", cfg.RuntimeRepo)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, []Package{{Name: "sp-core", Manifest: "substrate/primitives/core/Cargo.toml"}}, cfg.Packages)
	assert.Equal(t, 2, cfg.Limits.TagPages)
	assert.Equal(t, 10, cfg.Limits.MasterSearchPages)
	assert.Equal(t, "claude-test", cfg.LLM.Model)
	assert.Equal(t, 4000, cfg.LLM.MaxTokens)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestTrackedNames(t *testing.T) {
	assert.Equal(t, []string{"frame-support", "polkadot-primitives", "sp-runtime"}, Default().TrackedNames())
}

func TestMergeFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("sdk-repo", "", "")
	flags.String("github-token", "", "")
	flags.Int("workers", 0, "")
	flags.String("output", "", "")
	flags.Bool("verbose", false, "")
	require.NoError(t, flags.Parse([]string{"--sdk-repo=me/sdk", "--github-token=tok", "--output=json", "--verbose"}))

	cfg := MergeFlags(Default(), flags)

	assert.Equal(t, "me/sdk", cfg.SDKRepo)
	assert.Equal(t, "tok", cfg.Token)
	assert.Equal(t, 8, cfg.Workers, "zero flag keeps the configured value")
	assert.Equal(t, "json", cfg.Output.Format)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "docs/data/sdk-mappings", cfg.Output.MappingsDir, "undefined flags are ignored")
}

func TestMergeFlagsKeepsConfiguredDefaults(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("output", "table", "")
	flags.Bool("verbose", false, "")
	require.NoError(t, flags.Parse(nil))

	cfg := Default()
	cfg.Output.Format = "json"
	cfg.Verbose = true
	cfg = MergeFlags(cfg, flags)

	assert.Equal(t, "json", cfg.Output.Format, "unset flag defaults do not override the file")
	assert.True(t, cfg.Verbose)
}
