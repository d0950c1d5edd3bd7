package vdb

import (
	"sort"

	"github.com/obentoo/portcheck/internal/atom"
)

// Index is an immutable in-memory view of one installed-package snapshot,
// keyed by category/package identity.
type Index struct {
	byKey map[string][]Installed
	size  int
}

// BuildIndex performs the single up-front database query and indexes the
// snapshot. Versions within a key are sorted ascending.
func BuildIndex(q Querier) (*Index, error) {
	snapshot, err := q.Installed()
	if err != nil {
		return nil, err
	}

	idx := &Index{
		byKey: make(map[string][]Installed),
		size:  len(snapshot),
	}
	for _, pkg := range snapshot {
		key := pkg.FullName()
		idx.byKey[key] = append(idx.byKey[key], pkg)
	}

	for _, versions := range idx.byKey {
		sort.Slice(versions, func(i, j int) bool {
			return atom.CompareVersions(versions[i].Version, versions[j].Version) < 0
		})
	}

	return idx, nil
}

// Lookup returns every installed version of a category/package key.
func (idx *Index) Lookup(key string) []Installed {
	return idx.byKey[key]
}

// Match returns the installed versions of the atom's package that satisfy
// its version and slot constraints.
func (idx *Index) Match(a *atom.Atom) []Installed {
	var matches []Installed
	for _, pkg := range idx.byKey[a.Key()] {
		if a.Matches(pkg.Version, pkg.Slot) {
			matches = append(matches, pkg)
		}
	}
	return matches
}

// Size returns the number of installed versions in the snapshot.
func (idx *Index) Size() int {
	return idx.size
}
