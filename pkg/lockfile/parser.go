package lockfile

import (
	"fmt"
	"path/filepath"
)

// Dependency is one resolved package in a lockfile or manifest.
type Dependency struct {
	Name    string
	Version string
}

type Parser interface {
	Parse(data []byte) ([]Dependency, error)
	Kind() string
}

func NewParser(path string) (Parser, error) {
	base := filepath.Base(path)
	switch base {
	case "Cargo.lock":
		return &CargoLockParser{}, nil
	case "Cargo.toml":
		return &ManifestParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported lockfile: %s", base)
	}
}

// Versions parses data and keeps the last version seen for each tracked name.
// Cargo lists duplicate crates in ascending version order, so this is the newest.
// An empty tracked list keeps every package.
func Versions(p Parser, data []byte, tracked []string) (map[string]string, error) {
	deps, err := p.Parse(data)
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(tracked))
	for _, name := range tracked {
		want[name] = true
	}
	versions := make(map[string]string)
	for _, d := range deps {
		if len(want) > 0 && !want[d.Name] {
			continue
		}
		if d.Version == "" {
			continue
		}
		versions[d.Name] = d.Version
	}
	return versions, nil
}
