package audit

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/obentoo/portcheck/internal/defaults"
	"github.com/obentoo/portcheck/internal/metadata"
	"github.com/obentoo/portcheck/internal/overrides"
	"github.com/obentoo/portcheck/internal/profile"
	"github.com/obentoo/portcheck/internal/vdb"
)

// Auditor classifies override entries against one immutable installed
// snapshot and one resolver. Every entry is evaluated independently.
type Auditor struct {
	Index    *vdb.Index
	Resolver *defaults.Resolver
	Arch     string
}

// New creates an Auditor over a built index and resolver.
func New(index *vdb.Index, resolver *defaults.Resolver, arch string) *Auditor {
	return &Auditor{Index: index, Resolver: resolver, Arch: arch}
}

// Audit classifies every entry and returns the findings grouped by file
// and line. The result depends only on the entries and the snapshot, so
// repeated runs over unchanged input produce identical reports.
func (a *Auditor) Audit(entries []overrides.Entry) *Report {
	report := &Report{}
	for _, e := range entries {
		report.add(a.classify(e))
	}
	report.sortFindings()
	return report
}

// verdict is the evaluation outcome for one installed version
type verdict struct {
	live    bool
	unknown bool
	detail  string
}

func (a *Auditor) classify(e overrides.Entry) Finding {
	f := Finding{File: e.SourceFile, Line: e.LineNumber, Atom: e.RawAtom, Kind: e.Kind}

	if e.Err != nil {
		f.Class = BadLine
		f.Detail = e.Err.Error()
		return f
	}

	matches := a.Index.Match(e.Atom)
	if len(matches) == 0 {
		f.Class = Stale
		f.Detail = "no installed package matches atom"
		return f
	}

	verdicts := make([]verdict, 0, len(matches))
	for _, inst := range matches {
		switch e.Kind {
		case overrides.KindUse:
			verdicts = append(verdicts, a.evaluateUse(e, inst))
		default:
			verdicts = append(verdicts, a.evaluateKeywords(e, inst))
		}
	}

	// An entry that still matters for any matching version stays live.
	// Otherwise an unknown directive target outranks plain redundancy.
	for _, v := range verdicts {
		if v.live {
			f.Class = Live
			f.Detail = v.detail
			return f
		}
	}
	for _, v := range verdicts {
		if v.unknown {
			f.Class = Stale
			f.Detail = v.detail
			return f
		}
	}

	f.Class = Redundant
	if len(verdicts) == 1 {
		f.Detail = verdicts[0].detail
	} else {
		f.Detail = fmt.Sprintf("redundant for all %d matching installed versions", len(verdicts))
	}
	return f
}

// cannotVerify keeps an entry live when its version's metadata is
// unreadable: redundancy cannot be proven, so the auditor never advises
// removing what it cannot evaluate.
func cannotVerify(inst vdb.Installed, err error) verdict {
	if errors.Is(err, metadata.ErrNotFound) {
		return verdict{live: true, detail: fmt.Sprintf("no repository metadata for %s; cannot prove redundancy", inst.String())}
	}
	return verdict{live: true, detail: fmt.Sprintf("cannot verify %s: %v", inst.String(), err)}
}

// evaluateUse compares the default USE set with the set the override
// produces for one installed version
func (a *Auditor) evaluateUse(e overrides.Entry, inst vdb.Installed) verdict {
	state, err := a.Resolver.UseState(inst.Category, inst.Package, inst.Version)
	if err != nil {
		return cannotVerify(inst, err)
	}

	var unknownFlags []string
	for _, tok := range e.Values {
		flag := strings.TrimPrefix(strings.TrimPrefix(tok, "-"), "+")
		if flag == "" || flag == "*" {
			continue
		}
		if !state.Known[flag] {
			unknownFlags = append(unknownFlags, flag)
		}
	}

	withOverride := make(map[string]bool, len(state.Enabled))
	for flag := range state.Enabled {
		withOverride[flag] = true
	}
	profile.Fold(withOverride, e.Values)
	for flag := range withOverride {
		if !state.Known[flag] {
			delete(withOverride, flag)
		}
	}

	if !equalSets(withOverride, state.Enabled) {
		return verdict{live: true, detail: fmt.Sprintf("changes USE of %s: %s",
			inst.String(), strings.Join(useDelta(state.Enabled, withOverride), " "))}
	}
	if len(unknownFlags) > 0 {
		return verdict{unknown: true, detail: fmt.Sprintf("directive target unknown to current metadata: %s (%s)",
			strings.Join(unknownFlags, " "), inst.String())}
	}
	return verdict{detail: fmt.Sprintf("default USE of %s already yields this set", inst.String())}
}

// evaluateKeywords compares the default acceptance outcome with the
// outcome the override produces for one installed version
func (a *Auditor) evaluateKeywords(e overrides.Entry, inst vdb.Installed) verdict {
	state, err := a.Resolver.KeywordState(inst.Category, inst.Package, inst.Version)
	if err != nil {
		return cannotVerify(inst, err)
	}

	values := e.Values
	if len(values) == 0 {
		values = defaults.ImplicitKeywords(a.Arch)
	}

	var unknownTokens []string
	for _, tok := range values {
		if !defaults.TokenKnown(tok, state.Keywords) {
			unknownTokens = append(unknownTokens, tok)
		}
	}

	withOverride := make(map[string]bool, len(state.Accept))
	for k := range state.Accept {
		withOverride[k] = true
	}
	profile.Fold(withOverride, values)

	acceptedWith := defaults.Accepted(withOverride, state.Keywords)
	if acceptedWith != state.AcceptedByDefault {
		keywords := strings.Join(state.Keywords, " ")
		if keywords == "" {
			keywords = "none"
		}
		if acceptedWith {
			return verdict{live: true, detail: fmt.Sprintf("still needed: default does not accept %s (KEYWORDS: %s)",
				inst.String(), keywords)}
		}
		return verdict{live: true, detail: fmt.Sprintf("revokes default acceptance of %s", inst.String())}
	}
	if len(unknownTokens) > 0 {
		return verdict{unknown: true, detail: fmt.Sprintf("directive target unknown to current metadata: %s (%s)",
			strings.Join(unknownTokens, " "), inst.String())}
	}
	return verdict{detail: fmt.Sprintf("default already accepts %s", inst.String())}
}

// equalSets reports whether two flag sets hold the same members
func equalSets(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// useDelta renders the signed difference between the default set and the
// overridden set, sorted for stable output
func useDelta(def, with map[string]bool) []string {
	var delta []string
	for flag := range with {
		if !def[flag] {
			delta = append(delta, "+"+flag)
		}
	}
	for flag := range def {
		if !with[flag] {
			delta = append(delta, "-"+flag)
		}
	}
	sort.Strings(delta)
	return delta
}
