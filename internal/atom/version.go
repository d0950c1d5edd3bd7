package atom

import (
	"regexp"
	"strconv"
	"strings"
)

// Version suffix priorities (lower = earlier in release cycle)
var suffixPriority = map[string]int{
	"alpha": -4,
	"beta":  -3,
	"pre":   -2,
	"rc":    -1,
	"":      0, // release version
	"p":     1, // patch
}

// revisionRegex matches -r1, -r2, etc.
var revisionRegex = regexp.MustCompile(`-r(\d+)$`)

// versionPattern is the grammar of a full version string:
// numeric parts, optional trailing letter, suffix chain, optional revision.
const versionPattern = `\d+(\.\d+)*[a-z]?(_(alpha|beta|pre|rc|p)\d*)*(-r\d+)?`

var versionRegex = regexp.MustCompile(`^` + versionPattern + `$`)

// versionSuffix is one _alpha/_beta/_pre/_rc/_p element of a version
type versionSuffix struct {
	kind string
	num  int
}

// versionParts breaks a version into comparable components
type versionParts struct {
	nums     []int
	letter   byte // trailing letter on the last numeric part, 0 if none
	suffixes []versionSuffix
	revision int
}

// ValidVersion reports whether v is a well-formed version string.
func ValidVersion(v string) bool {
	return versionRegex.MatchString(v)
}

// parseVersion breaks a version string into components for comparison
func parseVersion(v string) versionParts {
	var p versionParts

	// Extract revision first (-r1, -r2, etc.)
	if matches := revisionRegex.FindStringSubmatch(v); matches != nil {
		p.revision, _ = strconv.Atoi(matches[1])
		v = revisionRegex.ReplaceAllString(v, "")
	}

	// Extract the suffix chain (1.0_beta2_p1 -> [beta 2] [p 1])
	if i := strings.IndexByte(v, '_'); i >= 0 {
		for _, s := range strings.Split(v[i+1:], "_") {
			kind := strings.TrimRight(s, "0123456789")
			num := 0
			if numStr := s[len(kind):]; numStr != "" {
				num, _ = strconv.Atoi(numStr)
			}
			p.suffixes = append(p.suffixes, versionSuffix{kind: kind, num: num})
		}
		v = v[:i]
	}

	// A single trailing letter orders after the bare version (1.0 < 1.0a < 1.0b)
	if len(v) > 0 {
		if c := v[len(v)-1]; c >= 'a' && c <= 'z' {
			p.letter = c
			v = v[:len(v)-1]
		}
	}

	// Parse numeric parts (1.0.1 -> [1, 0, 1])
	parts := strings.Split(v, ".")
	p.nums = make([]int, len(parts))
	for i, s := range parts {
		p.nums[i], _ = strconv.Atoi(s)
	}

	return p
}

// compareIntSlices compares two slices of integers
func compareIntSlices(a, b []int) int {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}

	for i := 0; i < maxLen; i++ {
		var av, bv int
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}

		if av < bv {
			return -1
		}
		if av > bv {
			return 1
		}
	}
	return 0
}

// compareSuffixes compares two suffix chains element by element.
// A missing element counts as a plain release (priority 0), so
// 1.0_alpha < 1.0 < 1.0_p1.
func compareSuffixes(a, b []versionSuffix) int {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}

	for i := 0; i < maxLen; i++ {
		ap, bp := 0, 0
		an, bn := 0, 0
		if i < len(a) {
			ap = suffixPriority[a[i].kind]
			an = a[i].num
		}
		if i < len(b) {
			bp = suffixPriority[b[i].kind]
			bn = b[i].num
		}

		if ap != bp {
			if ap < bp {
				return -1
			}
			return 1
		}
		if an != bn {
			if an < bn {
				return -1
			}
			return 1
		}
	}
	return 0
}

// CompareVersions compares two Gentoo-style version strings
// Returns: -1 if v1 < v2, 0 if v1 == v2, 1 if v1 > v2
func CompareVersions(v1, v2 string) int {
	p1 := parseVersion(v1)
	p2 := parseVersion(v2)

	// Compare numeric parts first
	if cmp := compareIntSlices(p1.nums, p2.nums); cmp != 0 {
		return cmp
	}

	// Trailing letter (absent < 'a' < 'b' < ...)
	if p1.letter != p2.letter {
		if p1.letter < p2.letter {
			return -1
		}
		return 1
	}

	// Suffix chain (alpha < beta < pre < rc < release < p)
	if cmp := compareSuffixes(p1.suffixes, p2.suffixes); cmp != 0 {
		return cmp
	}

	// Compare revisions
	if p1.revision < p2.revision {
		return -1
	}
	if p1.revision > p2.revision {
		return 1
	}

	return 0
}

// BaseVersion returns v with any -rN revision stripped.
func BaseVersion(v string) string {
	return revisionRegex.ReplaceAllString(v, "")
}
