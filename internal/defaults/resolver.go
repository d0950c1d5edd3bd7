// Package defaults computes the USE and keyword state that would apply
// to an installed version with no user override present: repository IUSE
// defaults folded with the profile's global and per-package layers.
package defaults

import (
	"strings"

	"github.com/obentoo/portcheck/internal/metadata"
	"github.com/obentoo/portcheck/internal/overrides"
	"github.com/obentoo/portcheck/internal/profile"
)

// Resolver answers "what would this exact version's defaults be" from
// repository metadata plus a folded profile.
type Resolver struct {
	Meta    metadata.Source
	Profile *profile.Profile
}

// NewResolver creates a Resolver over a metadata source and a profile.
func NewResolver(meta metadata.Source, prof *profile.Profile) *Resolver {
	return &Resolver{Meta: meta, Profile: prof}
}

// UseState is the default USE evaluation for one exact version.
type UseState struct {
	Enabled map[string]bool // flags on with no user override, IUSE-known only
	Known   map[string]bool // flags declared in IUSE
}

// KeywordState is the default keyword evaluation for one exact version.
type KeywordState struct {
	Keywords          []string        // the version's current KEYWORDS
	Accept            map[string]bool // folded default accepted-keyword set
	AcceptedByDefault bool            // default acceptance already admits the version
}

// UseState folds IUSE defaults, the profile's USE token sequence, and
// matching profile package.use entries into the flag set the version
// would get with no user override. Metadata for a version the tree no
// longer carries surfaces as metadata.ErrNotFound.
func (r *Resolver) UseState(category, pkg, version string) (*UseState, error) {
	meta, err := r.Meta.Lookup(category, pkg, version)
	if err != nil {
		return nil, err
	}

	state := &UseState{
		Enabled: make(map[string]bool),
		Known:   make(map[string]bool),
	}
	for _, declared := range meta.IUSE {
		flag := strings.TrimPrefix(strings.TrimPrefix(declared, "+"), "-")
		if flag == "" {
			continue
		}
		state.Known[flag] = true
		if strings.HasPrefix(declared, "+") {
			state.Enabled[flag] = true
		}
	}

	profile.Fold(state.Enabled, r.Profile.UseTokens)
	for _, e := range matching(r.Profile.PackageUse, category, pkg, version, meta.Slot) {
		profile.Fold(state.Enabled, e.Values)
	}

	// USE is meaningful only for declared flags
	for flag := range state.Enabled {
		if !state.Known[flag] {
			delete(state.Enabled, flag)
		}
	}

	return state, nil
}

// KeywordState evaluates whether the default accepted-keyword set already
// admits the version.
func (r *Resolver) KeywordState(category, pkg, version string) (*KeywordState, error) {
	meta, err := r.Meta.Lookup(category, pkg, version)
	if err != nil {
		return nil, err
	}

	accept := make(map[string]bool, len(r.Profile.AcceptKeywords))
	for _, k := range r.Profile.AcceptKeywords {
		accept[k] = true
	}
	for _, e := range matching(r.Profile.PackageAcceptKeywords, category, pkg, version, meta.Slot) {
		values := e.Values
		if len(values) == 0 {
			values = ImplicitKeywords(r.Profile.Arch)
		}
		profile.Fold(accept, values)
	}

	return &KeywordState{
		Keywords:          meta.Keywords,
		Accept:            accept,
		AcceptedByDefault: Accepted(accept, meta.Keywords),
	}, nil
}

// ImplicitKeywords is the value list of a keyword entry written with no
// explicit tokens: accept the arch's testing keyword.
func ImplicitKeywords(arch string) []string {
	if arch == "" {
		return nil
	}
	return []string{"~" + arch}
}

// Accepted reports whether an accepted-keyword set admits a version
// carrying keywords. ** admits anything, * any stable keyword, ~* any
// testing keyword; other tokens match literally.
func Accepted(accept map[string]bool, keywords []string) bool {
	if accept["**"] {
		return true
	}
	for _, k := range keywords {
		if k == "" || strings.HasPrefix(k, "-") {
			continue
		}
		if strings.HasPrefix(k, "~") {
			if accept["~*"] || accept[k] {
				return true
			}
			continue
		}
		if accept["*"] || accept[k] {
			return true
		}
	}
	return false
}

// TokenKnown reports whether an override keyword token names a keyword
// the version's metadata still carries in stable or testing form.
// Wildcard tokens are always known.
func TokenKnown(token string, keywords []string) bool {
	tok := strings.TrimPrefix(token, "-")
	if tok == "*" || tok == "~*" || tok == "**" || tok == "" {
		return true
	}
	arch := strings.TrimPrefix(tok, "~")
	for _, k := range keywords {
		if k == arch || k == "~"+arch {
			return true
		}
	}
	return false
}

// matching selects the profile entries whose atom applies to this version
func matching(entries []overrides.Entry, category, pkg, version, slot string) []overrides.Entry {
	key := category + "/" + pkg
	var out []overrides.Entry
	for _, e := range entries {
		if e.Atom == nil || e.Atom.Key() != key {
			continue
		}
		if !e.Atom.Matches(version, slot) {
			continue
		}
		out = append(out, e)
	}
	return out
}
