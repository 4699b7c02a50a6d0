package lockfile

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

type CargoLockParser struct{}

func (p *CargoLockParser) Kind() string { return "Cargo.lock" }

func (p *CargoLockParser) Parse(data []byte) ([]Dependency, error) {
	var lock struct {
		Package []struct {
			Name    string `toml:"name"`
			Version string `toml:"version"`
		} `toml:"package"`
	}
	if err := toml.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("parse Cargo.lock: %w", err)
	}

	deps := make([]Dependency, 0, len(lock.Package))
	for _, pkg := range lock.Package {
		deps = append(deps, Dependency{Name: pkg.Name, Version: pkg.Version})
	}
	return deps, nil
}

// LockVersions returns the versions of the tracked packages pinned by a Cargo.lock.
func LockVersions(data []byte, tracked []string) (map[string]string, error) {
	return Versions(&CargoLockParser{}, data, tracked)
}
