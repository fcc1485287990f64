// Package harness runs external commands as part of a run and times them.
package harness

import "time"

// Result describes a finished command.
type Result struct {
	Command  string        `json:"command"`
	PID      int           `json:"pid"`
	ExitCode int           `json:"exit_code"`
	Wall     time.Duration `json:"wall"`
	User     time.Duration `json:"user"`
	System   time.Duration `json:"system"`
}

// Success reports whether the command exited with status zero.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}
