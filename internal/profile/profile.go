// Package profile folds a profile parent chain into the default USE and
// ACCEPT_KEYWORDS environment that applies before any /etc/portage override.
package profile

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/obentoo/portcheck/internal/overrides"
)

// DefaultLink is the conventional symlink to the active profile.
const DefaultLink = "/etc/portage/make.profile"

// Profile is the folded result of one profile chain: global defaults plus
// the profile-level per-package override layers that stay in effect when
// a user override is hypothetically removed.
type Profile struct {
	Arch           string
	Use            map[string]bool // folded global USE
	AcceptKeywords []string        // folded global ACCEPT_KEYWORDS, sorted

	// UseTokens is the raw signed USE token sequence in fold order.
	// Negations must survive here: a -X token still has to beat a
	// lower-priority IUSE +X default during resolution, which the
	// folded Use map alone cannot express.
	UseTokens []string

	// Per-package layers in chain order, parents before children
	PackageUse            []overrides.Entry
	PackageAcceptKeywords []overrides.Entry

	acceptSet map[string]bool
	vars      map[string]string // plain variables for ${VAR} expansion
}

// Load walks the parent chain rooted at dir depth-first, parents before
// the profile that names them, and folds each node's make.defaults and
// package.* files. A parent cycle is an error.
func Load(dir string, repos map[string]string) (*Profile, error) {
	p := &Profile{
		Use:       make(map[string]bool),
		acceptSet: make(map[string]bool),
		vars:      make(map[string]string),
	}

	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving profile %s: %w", dir, err)
	}

	if err := p.loadChain(resolved, repos, map[string]bool{}); err != nil {
		return nil, err
	}

	p.finalize()
	return p, nil
}

// loadChain recurses through parents, then folds the node itself
func (p *Profile) loadChain(dir string, repos map[string]string, active map[string]bool) error {
	if active[dir] {
		return fmt.Errorf("profile parent cycle through %s", dir)
	}
	active[dir] = true
	defer delete(active, dir)

	parents, err := readParents(dir, repos)
	if err != nil {
		return err
	}
	for _, parent := range parents {
		if err := p.loadChain(parent, repos, active); err != nil {
			return err
		}
	}

	return p.foldNode(dir)
}

// readParents resolves the parent file of one profile node. Plain lines
// are relative paths; "repo:path" lines resolve against the repos map.
func readParents(dir string, repos map[string]string) ([]string, error) {
	f, err := os.Open(filepath.Join(dir, "parent"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var parents []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if repo, rel, found := strings.Cut(line, ":"); found {
			root, ok := repos[repo]
			if !ok {
				return nil, fmt.Errorf("%s: parent references unknown repository %q", dir, repo)
			}
			parents = append(parents, filepath.Join(root, "profiles", rel))
			continue
		}
		parents = append(parents, filepath.Join(dir, line))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return parents, nil
}

// foldNode applies one profile directory's make.defaults and package.*
// files on top of what the parents established
func (p *Profile) foldNode(dir string) error {
	if err := p.foldDefaults(filepath.Join(dir, "make.defaults")); err != nil {
		return err
	}

	if err := p.collectPackageFile(filepath.Join(dir, "package.use"), overrides.KindUse, &p.PackageUse); err != nil {
		return err
	}
	return p.collectPackageFile(filepath.Join(dir, "package.accept_keywords"), overrides.KindKeywords, &p.PackageAcceptKeywords)
}

// foldDefaults folds one make.defaults (or make.conf) file
func (p *Profile) foldDefaults(path string) error {
	assignments, err := loadAssignments(path, p.vars)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, a := range assignments {
		switch a.name {
		case "USE":
			tokens := strings.Fields(a.value)
			p.UseTokens = append(p.UseTokens, tokens...)
			Fold(p.Use, tokens)
		case "ACCEPT_KEYWORDS":
			Fold(p.acceptSet, strings.Fields(a.value))
		case "ARCH":
			p.Arch = a.value
		}
	}
	return nil
}

// collectPackageFile appends one profile-level package.* file's entries
func (p *Profile) collectPackageFile(path string, kind overrides.Kind, dest *[]overrides.Entry) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	entries, err := overrides.Load(path, kind)
	if err != nil {
		return err
	}
	*dest = append(*dest, entries...)
	return nil
}

// ApplyMakeConf folds make.conf's USE and ACCEPT_KEYWORDS on top of the
// profile chain. Call after Load, before handing the profile to a resolver.
func (p *Profile) ApplyMakeConf(path string) error {
	p.ensureMaps()
	if err := p.foldDefaults(path); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	p.finalize()
	return nil
}

// ensureMaps initializes the fold state of a Profile built as a struct
// literal rather than through Load. Declared AcceptKeywords seed the
// keyword set so folding extends them instead of replacing them.
func (p *Profile) ensureMaps() {
	if p.Use == nil {
		p.Use = make(map[string]bool)
	}
	if p.acceptSet == nil {
		p.acceptSet = make(map[string]bool, len(p.AcceptKeywords))
		for _, k := range p.AcceptKeywords {
			p.acceptSet[k] = true
		}
	}
	if p.vars == nil {
		p.vars = make(map[string]string)
	}
}

// finalize derives the exported keyword list. A profile that never sets
// ACCEPT_KEYWORDS accepts its stable arch.
func (p *Profile) finalize() {
	if len(p.acceptSet) == 0 && p.Arch != "" {
		p.acceptSet[p.Arch] = true
	}

	p.AcceptKeywords = make([]string, 0, len(p.acceptSet))
	for k := range p.acceptSet {
		p.AcceptKeywords = append(p.AcceptKeywords, k)
	}
	sort.Strings(p.AcceptKeywords)
}

// Fold applies signed tokens to set with the package manager's
// incremental semantics: flag and +flag enable, -flag removes, -* clears
// everything accumulated so far.
func Fold(set map[string]bool, tokens []string) {
	for _, tok := range tokens {
		switch {
		case tok == "-*":
			for k := range set {
				delete(set, k)
			}
		case strings.HasPrefix(tok, "-"):
			delete(set, tok[1:])
		default:
			tok = strings.TrimPrefix(tok, "+")
			if tok != "" {
				set[tok] = true
			}
		}
	}
}

// ReposByName maps repository names (profiles/repo_name) to their roots,
// for resolving repo-qualified profile parents.
func ReposByName(roots []string) map[string]string {
	repos := make(map[string]string, len(roots))
	for _, root := range roots {
		data, err := os.ReadFile(filepath.Join(root, "profiles", "repo_name"))
		if err != nil {
			continue
		}
		name := strings.TrimSpace(string(data))
		if name == "" {
			continue
		}
		if _, taken := repos[name]; !taken {
			repos[name] = root
		}
	}
	return repos
}
