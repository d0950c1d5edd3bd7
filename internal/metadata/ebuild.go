package metadata

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/obentoo/portcheck/internal/atom"
)

// EbuildDir reads package metadata straight from ebuild files. It backs
// up the md5-cache for repositories that ship without one, such as
// overlays that are never regenerated.
type EbuildDir struct {
	roots []string
}

// NewEbuildDir creates an ebuild-file metadata source over repository
// roots. With no roots the default main tree location is used.
func NewEbuildDir(roots ...string) *EbuildDir {
	if len(roots) == 0 {
		roots = []string{DefaultRepoRoot}
	}
	return &EbuildDir{roots: roots}
}

// Lookup reads <root>/<category>/<pkg>/<pkg>-<version>.ebuild from the
// first root that carries it.
func (e *EbuildDir) Lookup(category, pkg, version string) (*PackageMeta, error) {
	name := pkg + "-" + version + ".ebuild"
	for _, root := range e.roots {
		path := filepath.Join(root, category, pkg, name)
		meta, err := readEbuildFile(path, pkg, version)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return meta, nil
	}
	return nil, fmt.Errorf("%w: %s/%s-%s", ErrNotFound, category, pkg, version)
}

var _ Source = (*EbuildDir)(nil)

// ebuildVars are the assignments the auditor needs from an ebuild
var ebuildVars = map[string]bool{
	"IUSE":     true,
	"KEYWORDS": true,
	"SLOT":     true,
}

// readEbuildFile extracts IUSE, KEYWORDS, and SLOT without running the
// ebuild. Whole-line assignments are recognized, with the common
// ${P}/${PN}/${PV}/${PVR} expansions applied; that covers how these
// three variables are written in practice.
func readEbuildFile(path, pkg, version string) (*PackageMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	base := atom.BaseVersion(version)
	expand := strings.NewReplacer(
		"${PVR}", version,
		"${PV}", base,
		"${PN}", pkg,
		"${P}", pkg+"-"+base,
	)

	values := extractAssignments(string(data))

	meta := &PackageMeta{Slot: "0"}
	if v, ok := values["SLOT"]; ok && v != "" {
		meta.Slot = expand.Replace(v)
	}
	if v, ok := values["KEYWORDS"]; ok {
		meta.Keywords = strings.Fields(expand.Replace(v))
	}
	if v, ok := values["IUSE"]; ok {
		meta.IUSE = strings.Fields(expand.Replace(v))
	}
	return meta, nil
}

// extractAssignments pulls VAR=value lines out of bash source. Values
// may span lines inside quotes; the last assignment of a name wins,
// matching how bash would leave the variable.
func extractAssignments(src string) map[string]string {
	values := make(map[string]string)
	lines := strings.Split(src, "\n")

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		eq := strings.IndexByte(line, '=')
		if eq <= 0 {
			continue
		}
		name := line[:eq]
		if !ebuildVars[name] {
			continue
		}

		rest := line[eq+1:]
		var value string
		switch {
		case strings.HasPrefix(rest, `"`):
			value, i = takeQuoted(lines, i, rest[1:], '"')
		case strings.HasPrefix(rest, `'`):
			value, i = takeQuoted(lines, i, rest[1:], '\'')
		default:
			if cut := strings.IndexAny(rest, " \t#"); cut >= 0 {
				rest = rest[:cut]
			}
			value = rest
		}
		values[name] = value
	}
	return values
}

// takeQuoted consumes a quoted value that may continue across lines,
// returning the value and the index of the line it ended on
func takeQuoted(lines []string, i int, rest string, quote byte) (string, int) {
	var b strings.Builder
	for {
		if end := strings.IndexByte(rest, quote); end >= 0 {
			b.WriteString(rest[:end])
			return b.String(), i
		}
		b.WriteString(rest)
		b.WriteString(" ")
		i++
		if i >= len(lines) {
			return b.String(), i - 1
		}
		rest = lines[i]
	}
}

// fallback tries a primary source and falls through to a secondary one
// for versions the primary does not carry.
type fallbackSource struct {
	primary   Source
	secondary Source
}

// Fallback chains two metadata sources: the secondary answers only when
// the primary returns ErrNotFound. Real read errors from the primary
// are not masked.
func Fallback(primary, secondary Source) Source {
	return &fallbackSource{primary: primary, secondary: secondary}
}

func (f *fallbackSource) Lookup(category, pkg, version string) (*PackageMeta, error) {
	meta, err := f.primary.Lookup(category, pkg, version)
	if errors.Is(err, ErrNotFound) {
		return f.secondary.Lookup(category, pkg, version)
	}
	return meta, err
}
