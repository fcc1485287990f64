package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"
)

// RunConfig holds parameters for a single command execution.
type RunConfig struct {
	Args    []string
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	Dir     string
	Timeout time.Duration
}

// Runner launches a single external program.
type Runner struct {
	Name       string
	BinaryPath string
	ExtraArgs  []string
	Env        []string
	Logger     *slog.Logger
}

// NewRunner creates a Runner for binaryPath. For scripts that need an
// interpreter pass the interpreter as binaryPath and the script in
// extraArgs, as WrapCommand does. Env is appended to the inherited
// environment.
func NewRunner(
	name, binaryPath string,
	extraArgs, env []string,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		Name:       name,
		BinaryPath: binaryPath,
		ExtraArgs:  extraArgs,
		Env:        env,
		Logger:     logger.With(slog.String("command", name)),
	}
}

// Run executes the program with cfg.Args after the runner's extra
// arguments. A non-zero exit status is reported in the Result, not as an
// error; errors mean the program could not be started or was stopped by
// the context or timeout.
func (r *Runner) Run(ctx context.Context, cfg RunConfig) (*Result, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	args := make([]string, 0, len(r.ExtraArgs)+len(cfg.Args))
	args = append(args, r.ExtraArgs...)
	args = append(args, cfg.Args...)

	cmd := exec.CommandContext(ctx, r.BinaryPath, args...)
	cmd.Dir = cfg.Dir
	cmd.Stdin = cfg.Stdin
	cmd.Stdout = cfg.Stdout
	cmd.Stderr = cfg.Stderr

	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	r.Logger.InfoContext(ctx, "starting command",
		slog.String("binary", r.BinaryPath),
		slog.Int("args", len(args)),
	)

	wallStart := time.Now()
	err := cmd.Run()
	wallElapsed := time.Since(wallStart)

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return nil, fmt.Errorf("command %s failed: %w", r.Name, err)
	}

	state := cmd.ProcessState
	result := &Result{
		Command:  QuoteCommand(append([]string{r.BinaryPath}, args...)),
		PID:      state.Pid(),
		ExitCode: state.ExitCode(),
		Wall:     wallElapsed,
		User:     state.UserTime(),
		System:   state.SystemTime(),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("command %s stopped: %w", r.Name, ctxErr)
	}

	r.Logger.InfoContext(ctx, "command finished",
		slog.Duration("wall_time", wallElapsed),
		slog.Int("exit_code", result.ExitCode),
	)

	return result, nil
}
