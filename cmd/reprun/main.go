// Package main provides the CLI entry point for reprun, which wraps
// commands and scripts with reproducible-run bookkeeping.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/weiihann/reprun/experiment"
	"github.com/weiihann/reprun/options"
)

const version = "%prog 0.1.0"

// ExitError carries an exit status out of a command.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	a := &app{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		logger: logger,
	}

	if err := a.rootCmd().Execute(); err != nil {
		code, msg := exitStatus(err)
		if msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}

		os.Exit(code)
	}
}

// exitStatus maps a command error to the process exit code and the message
// still to be printed. Usage errors were already printed by the parser.
func exitStatus(err error) (int, string) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, exitErr.Message
	}

	var usageErr *options.UsageError
	if errors.As(err, &usageErr) {
		return usageErr.ExitCode(), ""
	}

	return 1, err.Error()
}

type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "reprun",
		Short: "Run commands and scripts with reproducible-run bookkeeping",
		Long: `reprun wraps a command with a commented header recording the invocation,
host and options, redirects its streams (compressing .gz and .zst paths),
and finishes with a footer and optional timing ledger row.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.AddCommand(a.runCmd(), a.sampleCmd(), a.ledgerCmd())

	return root
}

// startConfig is the lifecycle configuration shared by subcommands.
func (a *app) startConfig() experiment.Config {
	return experiment.Config{
		EnvPrefix: "REPRUN",
		Stdin:     a.stdin,
		Stdout:    a.stdout,
		Stderr:    a.stderr,
	}
}

// startErr turns help and version requests into a clean exit.
func startErr(err error) error {
	if options.Exited(err) {
		return nil
	}

	return err
}
