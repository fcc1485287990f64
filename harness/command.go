package harness

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// CommandConfig holds the resolved program and the arguments that precede
// the caller's own arguments.
type CommandConfig struct {
	Binary    string
	ExtraArgs []string
}

// WrapCommand returns the exec configuration needed to run path. Scripts
// are handed to their interpreter by extension; anything else is run
// directly.
func WrapCommand(path string) CommandConfig {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py":
		return CommandConfig{Binary: "python3", ExtraArgs: []string{path}}
	case ".sh":
		return CommandConfig{Binary: "bash", ExtraArgs: []string{path}}
	case ".pl":
		return CommandConfig{Binary: "perl", ExtraArgs: []string{path}}
	case ".r":
		return CommandConfig{Binary: "Rscript", ExtraArgs: []string{path}}
	case ".jar":
		return CommandConfig{Binary: "java", ExtraArgs: []string{"-jar", path}}
	default:
		return CommandConfig{Binary: path}
	}
}

// ResolveBinary finds name on PATH, or checks it directly when it contains
// a path separator.
func ResolveBinary(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", name, err)
	}

	return path, nil
}

// QuoteCommand renders an argument vector for the ledger cmd column: the
// program bare, each argument in single quotes.
func QuoteCommand(args []string) string {
	if len(args) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(args[0])

	for _, arg := range args[1:] {
		b.WriteString(" '")
		b.WriteString(arg)
		b.WriteString("'")
	}

	return b.String()
}
