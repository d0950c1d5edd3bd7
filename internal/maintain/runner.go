package maintain

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"strings"
)

// ErrStepFailed marks a pipeline step whose command exited non-zero.
var ErrStepFailed = errors.New("maintenance step failed")

// Runner executes pipeline steps.
// This interface allows for mocking command execution in tests.
type Runner interface {
	// Run executes one step and returns an error when it exits non-zero
	Run(step Step) error
}

// ExecRunner runs steps as real system commands with output passed
// through to the terminal.
type ExecRunner struct {
	// Quiet discards command output instead of passing it through
	Quiet bool
}

// NewExecRunner creates an ExecRunner.
func NewExecRunner(quiet bool) *ExecRunner {
	return &ExecRunner{Quiet: quiet}
}

// Run executes the step's command. In quiet mode output is captured and
// only surfaces in the error when the command fails.
func (r *ExecRunner) Run(step Step) error {
	cmd := exec.Command(step.Command, step.Args...)

	var captured bytes.Buffer
	if r.Quiet {
		cmd.Stdout = &captured
		cmd.Stderr = &captured
	} else {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		cmd.Stdin = os.Stdin
	}

	if err := cmd.Run(); err != nil {
		if out := strings.TrimSpace(captured.String()); out != "" {
			return errors.Join(ErrStepFailed, errors.New(out))
		}
		return errors.Join(ErrStepFailed, err)
	}
	return nil
}
