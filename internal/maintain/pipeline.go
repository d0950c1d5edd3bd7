// Package maintain runs the routine maintenance pipeline: an ordered
// sequence of external package-management commands defined in a TOML
// file. The pipeline only invokes the external tools; it carries no
// package-management logic of its own and never edits override files.
package maintain

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Error variables for pipeline definition errors
var (
	// ErrNoSteps is returned when a pipeline file defines no steps
	ErrNoSteps = errors.New("pipeline defines no steps")
	// ErrMissingCommand is returned when a step omits the required command field
	ErrMissingCommand = errors.New("missing required field: command")
)

// Step is one external command invocation in the maintenance pipeline.
type Step struct {
	// Name is the short label shown while the step runs
	Name string `toml:"name"`
	// Command is the executable to invoke
	Command string `toml:"command"`
	// Args are passed to the command verbatim
	Args []string `toml:"args,omitempty"`
	// ContinueOnError keeps the pipeline going when this step fails
	ContinueOnError bool `toml:"continue_on_error,omitempty"`
}

// String returns the step's command line form
func (s Step) String() string {
	line := s.Command
	for _, a := range s.Args {
		line += " " + a
	}
	return line
}

// Pipeline is an ordered list of maintenance steps, written in the
// pipeline file as [[step]] tables.
type Pipeline struct {
	Steps []Step `toml:"step"`
}

// DefaultPath returns the pipeline file location under the user's
// config directory.
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(configDir, "portcheck", "maintain.toml"), nil
}

// Load reads a pipeline definition from a TOML file. A missing file
// yields the stock pipeline.
func Load(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var p Pipeline
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Default returns the stock maintenance pipeline: tree sync, world
// update, dependency cleanup, reverse-dependency rebuild, and distfile
// cleanup.
func Default() *Pipeline {
	return &Pipeline{
		Steps: []Step{
			{Name: "sync", Command: "emerge", Args: []string{"--sync"}},
			{Name: "update world", Command: "emerge", Args: []string{"--update", "--deep", "--newuse", "@world"}},
			{Name: "depclean", Command: "emerge", Args: []string{"--depclean"}},
			{Name: "revdep-rebuild", Command: "revdep-rebuild", ContinueOnError: true},
			{Name: "clean distfiles", Command: "eclean-dist", Args: []string{"--deep"}, ContinueOnError: true},
		},
	}
}

// Validate checks that the pipeline has steps and every step names a
// command.
func (p *Pipeline) Validate() error {
	if len(p.Steps) == 0 {
		return ErrNoSteps
	}
	for i, s := range p.Steps {
		if s.Command == "" {
			return fmt.Errorf("step %d (%s): %w", i+1, s.Name, ErrMissingCommand)
		}
	}
	return nil
}
