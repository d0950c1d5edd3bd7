// Package overrides reads package.* override configuration files
// (package.accept_keywords, package.use) into structured entries.
package overrides

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/obentoo/portcheck/internal/atom"
)

// ErrNoUseFlags marks a package.use line that names an atom but no flags.
var ErrNoUseFlags = errors.New("no USE flags listed")

// Kind identifies which override namespace an entry belongs to. It is
// determined by the file the entry came from, never by line content.
type Kind string

const (
	KindKeywords Kind = "keywords" // package.accept_keywords
	KindUse      Kind = "use"      // package.use
)

// Entry is one directive line from an override file. Immutable once parsed.
type Entry struct {
	SourceFile string     // file the line came from
	LineNumber int        // 1-based line number within SourceFile
	RawAtom    string     // first whitespace-separated token, verbatim
	Atom       *atom.Atom // parsed atom; nil when the atom itself is malformed
	Values     []string   // remaining tokens: keywords or signed USE flags
	Kind       Kind
	Err        error // why the line cannot be audited; the entry still reaches the report
}

// Load reads override entries from path, which may be a single file or a
// directory of files. Directory entries are processed in sorted name order
// so repeated runs over unchanged input yield the same sequence.
// Malformed lines are returned as entries with Err set rather than
// aborting the run; an unreadable path is an error.
func Load(path string, kind Kind) ([]Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return parseFile(path, kind)
	}

	dirents, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, de := range dirents {
		if !de.Type().IsRegular() {
			continue
		}

		fileEntries, err := parseFile(filepath.Join(path, de.Name()), kind)
		if err != nil {
			return nil, err
		}
		entries = append(entries, fileEntries...)
	}

	return entries, nil
}

// parseFile reads one override file line by line
func parseFile(path string, kind Kind) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []Entry

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		// Strip comments, then whitespace
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		entry := Entry{
			SourceFile: path,
			LineNumber: lineNo,
			RawAtom:    fields[0],
			Values:     fields[1:],
			Kind:       kind,
		}

		parsed, err := atom.Parse(fields[0])
		if err != nil {
			entry.Err = err
		} else {
			entry.Atom = parsed
			// A keyword line without values means the implicit testing
			// keyword; a use line without flags is an editing leftover
			if kind == KindUse && len(entry.Values) == 0 {
				entry.Err = ErrNoUseFlags
			}
		}

		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
