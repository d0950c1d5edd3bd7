package profile

import (
	"fmt"
	"os"
)

// assignment is one NAME=value from a make.defaults or make.conf file
type assignment struct {
	name  string
	value string
	// raw single-quoted values are never variable-expanded
	literal bool
}

// parseAssignments reads the shell-fragment assignment format used by
// make.defaults and make.conf: NAME=word or NAME="value", where quoted
// values may span lines. Comments run from # to end of line outside
// quotes. Anything that is not an assignment is skipped.
func parseAssignments(data []byte) ([]assignment, error) {
	var out []assignment

	i, n := 0, len(data)
	for i < n {
		c := data[i]

		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			i++
			continue
		}
		if c == '#' {
			for i < n && data[i] != '\n' {
				i++
			}
			continue
		}

		start := i
		for i < n && isNameByte(data[i]) {
			i++
		}
		if i == start || i >= n || data[i] != '=' {
			// Not an assignment, drop the rest of the line
			for i < n && data[i] != '\n' {
				i++
			}
			continue
		}
		name := string(data[start:i])
		i++

		var a assignment
		a.name = name
		switch {
		case i < n && (data[i] == '"' || data[i] == '\''):
			quote := data[i]
			a.literal = quote == '\''
			i++
			vstart := i
			for i < n && data[i] != quote {
				i++
			}
			if i >= n {
				return nil, fmt.Errorf("unterminated quote in %s assignment", name)
			}
			a.value = string(data[vstart:i])
			i++
		default:
			vstart := i
			for i < n && data[i] != ' ' && data[i] != '\t' && data[i] != '\n' && data[i] != '\r' && data[i] != '#' {
				i++
			}
			a.value = string(data[vstart:i])
		}

		out = append(out, a)
	}

	return out, nil
}

func isNameByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

// loadAssignments parses one file and expands ${VAR} references against
// vars, updating vars with each plain assignment as it goes so later
// values can reference earlier ones.
func loadAssignments(path string, vars map[string]string) ([]assignment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	assignments, err := parseAssignments(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	for idx := range assignments {
		a := &assignments[idx]
		if !a.literal {
			a.value = os.Expand(a.value, func(name string) string {
				return vars[name]
			})
		}
		vars[a.name] = a.value
	}

	return assignments, nil
}
