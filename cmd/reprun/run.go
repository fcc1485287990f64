package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/weiihann/reprun/benchmark"
	"github.com/weiihann/reprun/experiment"
	"github.com/weiihann/reprun/harness"
	"github.com/weiihann/reprun/options"
)

func (a *app) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [options] [--] command [args...]",
		Short: "Run a command inside a recorded run",
		Long: `Run a command with the run's redirected streams. The command's wall
time is charged to the benchmark table and its exit status is passed on.`,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCommand(cmd.Context(), args)
		},
	}
}

func (a *app) runCommand(ctx context.Context, args []string) error {
	p := options.NewParser("reprun run", options.Config{
		Usage: "%prog [options] [--] command [args...]",
		Description: "Run command with reproducible-run bookkeeping. Scripts ending " +
			"in .py, .sh, .pl, .R or .jar are started through their interpreter.",
		Version: version,
		Output:  a.stderr,
	})
	p.SetInterspersed(false)

	p.Float64("timeout", "", 0,
		"stop the command after this many seconds, 0 for no limit [%default].")
	p.String("workdir", "", "",
		"directory to run the command in [default = current].").Metavar("DIR")
	p.Strings("env", "e", nil,
		"extra environment for the command as NAME=VALUE, may be repeated.")

	run, err := experiment.Start(p, append([]string{p.Prog()}, args...), a.startConfig())
	if err != nil {
		return startErr(err)
	}

	if len(run.Args) == 0 {
		return errors.Join(&ExitError{Code: 2, Message: "reprun run: error: no command given"}, run.Stop())
	}

	run.Command = harness.QuoteCommand(run.Args)

	result, err := a.execute(ctx, run)
	if stopErr := run.Stop(); stopErr != nil {
		err = errors.Join(err, stopErr)
	}

	if err != nil {
		return err
	}

	if !result.Success() {
		code := result.ExitCode
		if code < 0 {
			code = 1
		}

		return &ExitError{Code: code}
	}

	return nil
}

func (a *app) execute(ctx context.Context, run *experiment.Run) (*harness.Result, error) {
	vals := run.Options.Values
	name := filepath.Base(run.Args[0])

	wrapped := harness.WrapCommand(run.Args[0])

	binary, err := harness.ResolveBinary(wrapped.Binary)
	if err != nil {
		return nil, err
	}

	runner := harness.NewRunner(name, binary, wrapped.ExtraArgs, vals.Strings("env"), run.Logger)

	result, err := benchmark.Measure(run.Ledger, name, func() (*harness.Result, error) {
		return runner.Run(ctx, harness.RunConfig{
			Args:    run.Args[1:],
			Stdin:   run.Options.Stdin,
			Stdout:  run.Options.Stdout,
			Stderr:  run.Options.Stderr,
			Dir:     vals.String("workdir"),
			Timeout: time.Duration(vals.Float64("timeout") * float64(time.Second)),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", name, err)
	}

	return result, nil
}
