// Package atom provides parsing, matching, and version comparison for
// Gentoo package atoms as they appear in package.* configuration files.
package atom

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrInvalidAtom = errors.New("invalid package atom")
)

var (
	// categoryRegex matches a category name like app-misc or dev-lang
	categoryRegex = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9+_.-]*$`)
	// packageRegex matches a package name like hello or gtk+
	packageRegex = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9+_-]*$`)
	// versionSplitRegex splits "name-version". The name part is lazy so
	// the version starts at the earliest hyphen whose remainder is a
	// complete well-formed version, which keeps libmpeg2-0.5.1 parsing
	// as (libmpeg2, 0.5.1) rather than (libmpeg2-0.5, 1).
	versionSplitRegex = regexp.MustCompile(`^([\w+][\w+-]*?)-(` + versionPattern + `)$`)
)

// operators in longest-match-first order so ">=" wins over ">"
var operators = []string{">=", "<=", "=", "<", ">", "~"}

// Atom represents a package specifier from an override configuration line.
// Identity for matching against the installed set is Category/Package; the
// operator, version, and slot narrow which installed versions the entry
// applies to but are not part of identity.
type Atom struct {
	Operator string // "", "=", ">=", ">", "<=", "<", "~"
	Category string // e.g., "app-misc"
	Package  string // e.g., "hello"
	Version  string // e.g., "1.0", "1.0_rc1", "1.0-r1"; empty when unversioned
	Wildcard bool   // true for "=cat/pkg-1.0*" version-prefix atoms
	Slot     string // e.g., "2"; empty when unconstrained
	Repo     string // e.g., "gentoo" from "::gentoo"; informational only
}

// Parse parses a single atom token from an override configuration line.
func Parse(token string) (*Atom, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidAtom)
	}

	a := &Atom{}
	rest := token

	// Strip ::repo qualifier
	if i := strings.Index(rest, "::"); i >= 0 {
		a.Repo = rest[i+2:]
		rest = rest[:i]
	}

	// Strip :slot qualifier
	if i := strings.IndexByte(rest, ':'); i >= 0 {
		a.Slot = rest[i+1:]
		rest = rest[:i]
		if a.Slot == "" {
			return nil, fmt.Errorf("%w: %q has an empty slot", ErrInvalidAtom, token)
		}
	}

	// Strip version operator
	for _, op := range operators {
		if strings.HasPrefix(rest, op) {
			a.Operator = op
			rest = rest[len(op):]
			break
		}
	}

	// Category / package split
	slash := strings.IndexByte(rest, '/')
	if slash < 0 {
		return nil, fmt.Errorf("%w: %q has no category", ErrInvalidAtom, token)
	}
	a.Category = rest[:slash]
	name := rest[slash+1:]
	if !categoryRegex.MatchString(a.Category) {
		return nil, fmt.Errorf("%w: %q has an invalid category", ErrInvalidAtom, token)
	}

	if a.Operator != "" {
		// Versioned atom: name must end in -version
		if a.Operator == "=" && strings.HasSuffix(name, "*") {
			a.Wildcard = true
			name = strings.TrimSuffix(name, "*")
		} else if strings.HasSuffix(name, "*") {
			return nil, fmt.Errorf("%w: %q combines %q with a version glob", ErrInvalidAtom, token, a.Operator)
		}

		m := versionSplitRegex.FindStringSubmatch(name)
		if m == nil {
			return nil, fmt.Errorf("%w: %q has no valid version for operator %q", ErrInvalidAtom, token, a.Operator)
		}
		a.Package = m[1]
		a.Version = m[2]
	} else {
		// Unversioned atom: a trailing -<digit...> segment would be
		// ambiguous with a version, which portage rejects too
		if versionSplitRegex.MatchString(name) {
			return nil, fmt.Errorf("%w: %q carries a version but no operator", ErrInvalidAtom, token)
		}
		a.Package = name
	}

	if !packageRegex.MatchString(a.Package) {
		return nil, fmt.Errorf("%w: %q has an invalid package name", ErrInvalidAtom, token)
	}

	return a, nil
}

// SplitNameVersion splits a "name-version" string such as an installed
// package directory name. ok is false when no trailing version is present.
func SplitNameVersion(s string) (name, version string, ok bool) {
	m := versionSplitRegex.FindStringSubmatch(s)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// Key returns the category/package identity used for installed-set lookups.
func (a *Atom) Key() string {
	return a.Category + "/" + a.Package
}

// String re-serializes the atom in its configuration-file form.
func (a *Atom) String() string {
	var sb strings.Builder
	sb.WriteString(a.Operator)
	sb.WriteString(a.Category)
	sb.WriteByte('/')
	sb.WriteString(a.Package)
	if a.Version != "" {
		sb.WriteByte('-')
		sb.WriteString(a.Version)
	}
	if a.Wildcard {
		sb.WriteByte('*')
	}
	if a.Slot != "" {
		sb.WriteByte(':')
		sb.WriteString(a.Slot)
	}
	if a.Repo != "" {
		sb.WriteString("::")
		sb.WriteString(a.Repo)
	}
	return sb.String()
}

// Matches reports whether an installed version/slot satisfies the atom's
// constraints. The category/package identity is assumed to match already.
func (a *Atom) Matches(version, slot string) bool {
	if a.Slot != "" && a.Slot != mainSlot(slot) {
		return false
	}
	if a.Version == "" {
		return true
	}

	switch a.Operator {
	case "=":
		if a.Wildcard {
			return matchVersionPrefix(version, a.Version)
		}
		return CompareVersions(version, a.Version) == 0
	case "~":
		// Any revision of the given base version
		return CompareVersions(BaseVersion(version), a.Version) == 0
	case ">":
		return CompareVersions(version, a.Version) > 0
	case ">=":
		return CompareVersions(version, a.Version) >= 0
	case "<":
		return CompareVersions(version, a.Version) < 0
	case "<=":
		return CompareVersions(version, a.Version) <= 0
	}
	return false
}

// mainSlot strips a /subslot qualifier: "0/1.2" -> "0"
func mainSlot(slot string) string {
	if i := strings.IndexByte(slot, '/'); i >= 0 {
		return slot[:i]
	}
	return slot
}

// matchVersionPrefix implements "=cat/pkg-1.0*" globs: the installed version
// must start with the prefix and continue at a component boundary, so 1.0*
// matches 1.0, 1.0.1, 1.0a, and 1.0-r2 but not 1.01.
func matchVersionPrefix(version, prefix string) bool {
	if !strings.HasPrefix(version, prefix) {
		return false
	}
	if len(version) == len(prefix) {
		return true
	}
	next := version[len(prefix)]
	return next < '0' || next > '9'
}
