// Package shell runs external programs to completion and surfaces their
// stderr as the error message. ffprobe and friends put the useful
// diagnostics on stderr, not in the exit code.
package shell

import (
	"os/exec"
	"strings"
)

// We prefer to return stderr over the process exit code
type ExitErrorVerbose struct {
	E exec.ExitError
}

func (e ExitErrorVerbose) Error() string {
	if len(e.E.Stderr) != 0 {
		return strings.TrimSpace(string(e.E.Stderr))
	}
	return e.E.Error()
}

// Run executes the program and returns its stdout
func Run(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", ExitErrorVerbose{*exitErr}
		}
		return "", err
	}
	return string(out), nil
}
