// Package metadata looks up repository-side package metadata (IUSE,
// KEYWORDS, SLOT) from md5-cache records.
package metadata

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound marks a package version the configured repositories no
// longer carry metadata for.
var ErrNotFound = errors.New("no repository metadata for package version")

// PackageMeta is the repository's current metadata for one exact version.
type PackageMeta struct {
	IUSE     []string // signed flag declarations: flag, +flag, -flag
	Keywords []string
	Slot     string
}

// Source defines the interface for repository metadata lookups.
// This interface allows for mocking the repository in tests.
type Source interface {
	// Lookup returns the metadata for an exact category/pkg/version,
	// or ErrNotFound when no configured repository carries it
	Lookup(category, pkg, version string) (*PackageMeta, error)
}

// CacheDir reads md5-cache records beneath one or more repository roots,
// tried in order.
type CacheDir struct {
	roots []string
}

// DefaultRepoRoot is the conventional location of the main ebuild repository.
const DefaultRepoRoot = "/var/db/repos/gentoo"

// NewCacheDir creates a CacheDir over the given repository roots, falling
// back to DefaultRepoRoot when none are given.
func NewCacheDir(roots ...string) *CacheDir {
	if len(roots) == 0 {
		roots = []string{DefaultRepoRoot}
	}
	return &CacheDir{roots: roots}
}

// Lookup reads <root>/metadata/md5-cache/<category>/<pkg>-<version> from
// the first repository that has it.
func (c *CacheDir) Lookup(category, pkg, version string) (*PackageMeta, error) {
	relPath := filepath.Join("metadata", "md5-cache", category, pkg+"-"+version)

	for _, root := range c.roots {
		meta, err := readCacheFile(filepath.Join(root, relPath))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading metadata cache: %w", err)
		}
		return meta, nil
	}

	return nil, fmt.Errorf("%w: %s/%s-%s", ErrNotFound, category, pkg, version)
}

// readCacheFile parses the flat KEY=VALUE record format
func readCacheFile(path string) (*PackageMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	meta := &PackageMeta{}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		switch key {
		case "IUSE":
			meta.IUSE = strings.Fields(value)
		case "KEYWORDS":
			meta.Keywords = strings.Fields(value)
		case "SLOT":
			meta.Slot = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return meta, nil
}
