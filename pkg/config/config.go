package config

import (
	"os"
	"sort"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Config struct {
	SDKRepo     string    `yaml:"sdk_repo"`
	RuntimeRepo string    `yaml:"runtime_repo"`
	Packages    []Package `yaml:"packages"`
	Workers     int       `yaml:"workers"`
	Limits      Limits    `yaml:"limits"`
	Output      Output    `yaml:"output"`
	LLM         LLM       `yaml:"llm"`
	Token       string    `yaml:"-"`
	Verbose     bool      `yaml:"verbose"`
}

// Package is a tracked crate and where its manifest lives in the SDK repository.
type Package struct {
	Name     string `yaml:"name"`
	Manifest string `yaml:"manifest"`
}

// Limits bounds GitHub paging, request fan-out and diff sizes.
type Limits struct {
	TagPages          int `yaml:"tag_pages"`
	ReleasePages      int `yaml:"release_pages"`
	BranchSearchPages int `yaml:"branch_search_pages"`
	MasterSearchPages int `yaml:"master_search_pages"`
	CommitWorkers     int `yaml:"commit_workers"`
	DetailWorkers     int `yaml:"detail_workers"`
	MaxDiffLength     int `yaml:"max_diff_length"`
}

type Output struct {
	MappingsDir string `yaml:"mappings_dir"`
	ReleasesDir string `yaml:"releases_dir"`
	Format      string `yaml:"format"`
}

type LLM struct {
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
	APIKey    string `yaml:"-"`
}

func Default() *Config {
	return &Config{
		SDKRepo:     "paritytech/polkadot-sdk",
		RuntimeRepo: "polkadot-fellows/runtimes",
		Packages: []Package{
			{Name: "polkadot-primitives", Manifest: "polkadot/primitives/Cargo.toml"},
			{Name: "sp-runtime", Manifest: "substrate/primitives/runtime/Cargo.toml"},
			{Name: "frame-support", Manifest: "substrate/frame/support/Cargo.toml"},
		},
		Workers: 8,
		Limits: Limits{
			TagPages:          15,
			ReleasePages:      5,
			BranchSearchPages: 5,
			MasterSearchPages: 10,
			CommitWorkers:     10,
			DetailWorkers:     5,
			MaxDiffLength:     10000,
		},
		Output: Output{
			MappingsDir: "docs/data/sdk-mappings",
			ReleasesDir: "docs/data/releases",
			Format:      "table",
		},
		LLM: LLM{
			Model:     "claude-3-5-sonnet-20241022",
			MaxTokens: 4000,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// TrackedNames returns the tracked package names in sorted order.
func (c *Config) TrackedNames() []string {
	names := make([]string, 0, len(c.Packages))
	for _, p := range c.Packages {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

func MergeFlags(cfg *Config, flags *pflag.FlagSet) *Config {
	if v, err := flags.GetString("sdk-repo"); err == nil && v != "" {
		cfg.SDKRepo = v
	}
	if v, err := flags.GetString("runtime-repo"); err == nil && v != "" {
		cfg.RuntimeRepo = v
	}
	if v, err := flags.GetInt("workers"); err == nil && v > 0 {
		cfg.Workers = v
	}
	if v, err := flags.GetString("github-token"); err == nil && v != "" {
		cfg.Token = v
	}
	if v, err := flags.GetString("anthropic-key"); err == nil && v != "" {
		cfg.LLM.APIKey = v
	}
	if v, err := flags.GetString("model"); err == nil && v != "" {
		cfg.LLM.Model = v
	}
	if flags.Changed("output") {
		if v, err := flags.GetString("output"); err == nil && v != "" {
			cfg.Output.Format = v
		}
	}
	if v, err := flags.GetString("mappings-dir"); err == nil && v != "" {
		cfg.Output.MappingsDir = v
	}
	if v, err := flags.GetString("releases-dir"); err == nil && v != "" {
		cfg.Output.ReleasesDir = v
	}
	if flags.Changed("verbose") {
		if v, err := flags.GetBool("verbose"); err == nil {
			cfg.Verbose = v
		}
	}
	return cfg
}
