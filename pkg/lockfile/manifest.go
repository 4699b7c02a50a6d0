package lockfile

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// ManifestParser reads the package name and version out of a crate's Cargo.toml.
type ManifestParser struct{}

func (p *ManifestParser) Kind() string { return "Cargo.toml" }

func (p *ManifestParser) Parse(data []byte) ([]Dependency, error) {
	var manifest struct {
		Package struct {
			Name    string `toml:"name"`
			Version any    `toml:"version"`
		} `toml:"package"`
	}
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse Cargo.toml: %w", err)
	}
	if manifest.Package.Name == "" {
		return nil, nil
	}

	// version.workspace = true decodes as a table; the crate then has no
	// version of its own.
	version, _ := manifest.Package.Version.(string)
	return []Dependency{{Name: manifest.Package.Name, Version: version}}, nil
}

// ManifestVersion returns the crate version declared in a Cargo.toml, or ""
// when the version is inherited from the workspace.
func ManifestVersion(data []byte) (string, error) {
	deps, err := (&ManifestParser{}).Parse(data)
	if err != nil || len(deps) == 0 {
		return "", err
	}
	return deps[0].Version, nil
}
