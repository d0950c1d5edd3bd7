// Package vdb builds an in-memory snapshot of the installed-package
// database (/var/db/pkg) for override auditing.
package vdb

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/obentoo/portcheck/internal/atom"
)

// DefaultRoot is where the package manager records installed packages.
const DefaultRoot = "/var/db/pkg"

// Installed is a snapshot of one installed package version as recorded
// in the package database.
type Installed struct {
	Category string
	Package  string
	Version  string
	Slot     string   // main slot, e.g. "0"
	SubSlot  string   // e.g. "3.8" from SLOT=0/3.8, empty when absent
	UseFlags []string // flags enabled when the package was built
	Keywords []string // KEYWORDS recorded at install time
}

// FullName returns the category/package format
func (p *Installed) FullName() string {
	return p.Category + "/" + p.Package
}

// String returns the category/package-version format
func (p *Installed) String() string {
	return p.Category + "/" + p.Package + "-" + p.Version
}

// ActiveKeyword reports the keyword form the installed copy carries for an
// arch: "amd64" when stable, "~amd64" when testing only, "" when unkeyworded.
func (p *Installed) ActiveKeyword(arch string) string {
	testing := false
	for _, k := range p.Keywords {
		if k == arch {
			return arch
		}
		if k == "~"+arch {
			testing = true
		}
	}
	if testing {
		return "~" + arch
	}
	return ""
}

// Database reads installed packages from an on-disk package database root.
type Database struct {
	root string
}

// NewDatabase creates a Database over root, falling back to DefaultRoot
// when root is empty.
func NewDatabase(root string) *Database {
	if root == "" {
		root = DefaultRoot
	}
	return &Database{root: root}
}

// Installed walks the database root once and returns every installed
// package version. Any unreadable directory or malformed entry aborts
// the query with a QueryError.
func (d *Database) Installed() ([]Installed, error) {
	categories, err := os.ReadDir(d.root)
	if err != nil {
		return nil, &QueryError{Path: d.root, Err: err}
	}

	var packages []Installed
	for _, entry := range categories {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "-") {
			continue
		}

		catPackages, err := d.readCategory(filepath.Join(d.root, name), name)
		if err != nil {
			return nil, err
		}
		packages = append(packages, catPackages...)
	}

	return packages, nil
}

// readCategory reads every <pkg>-<ver> directory of one category
func (d *Database) readCategory(catPath, category string) ([]Installed, error) {
	dirents, err := os.ReadDir(catPath)
	if err != nil {
		return nil, &QueryError{Path: catPath, Err: err}
	}

	var packages []Installed
	for _, entry := range dirents {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()

		// Interrupted-merge leftovers and hidden entries are not
		// installed packages
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "-MERGING-") {
			continue
		}

		pkgName, version, ok := atom.SplitNameVersion(name)
		if !ok {
			return nil, &QueryError{
				Path: filepath.Join(catPath, name),
				Err:  errors.New("unrecognized package directory name"),
			}
		}

		pkg, err := d.readPackage(filepath.Join(catPath, name), category, pkgName, version)
		if err != nil {
			return nil, err
		}
		packages = append(packages, *pkg)
	}

	return packages, nil
}

// readPackage assembles one Installed from the metadata files the package
// manager writes at merge time
func (d *Database) readPackage(pkgPath, category, pkg, version string) (*Installed, error) {
	slot, err := readField(filepath.Join(pkgPath, "SLOT"))
	if err != nil {
		return nil, &QueryError{Path: pkgPath, Err: err}
	}

	use, err := readOptionalField(filepath.Join(pkgPath, "USE"))
	if err != nil {
		return nil, &QueryError{Path: pkgPath, Err: err}
	}
	keywords, err := readOptionalField(filepath.Join(pkgPath, "KEYWORDS"))
	if err != nil {
		return nil, &QueryError{Path: pkgPath, Err: err}
	}

	installed := &Installed{
		Category: category,
		Package:  pkg,
		Version:  version,
		Slot:     slot,
		UseFlags: strings.Fields(use),
		Keywords: strings.Fields(keywords),
	}
	if i := strings.IndexByte(slot, '/'); i >= 0 {
		installed.Slot = slot[:i]
		installed.SubSlot = slot[i+1:]
	}

	return installed, nil
}

// readField returns the trimmed content of a required database file
func readField(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// readOptionalField treats a missing file as empty content
func readOptionalField(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
