package mapping

import "sort"

// PackageVersion keys the reverse index.
type PackageVersion struct {
	Package string
	Version string
}

// ReverseIndex maps a (package, version) pair to the set of tag names carrying it.
type ReverseIndex map[PackageVersion]map[string]struct{}

// Index folds tags into a reverse index. The result does not depend on the
// order of tags; tags with an empty package map contribute nothing.
func Index(tags []Tag) ReverseIndex {
	idx := make(ReverseIndex)
	for _, t := range tags {
		idx.Add(t)
	}
	return idx
}

// Add records every package/version pair of t.
func (idx ReverseIndex) Add(t Tag) {
	for pkg, ver := range t.Packages {
		key := PackageVersion{Package: pkg, Version: ver}
		set, ok := idx[key]
		if !ok {
			set = make(map[string]struct{})
			idx[key] = set
		}
		set[t.Name] = struct{}{}
	}
}

// Tags returns the sorted tag names recorded for a pair.
func (idx ReverseIndex) Tags(pkg, version string) []string {
	set := idx[PackageVersion{Package: pkg, Version: version}]
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
