package experiment

import (
	"errors"
	"io"

	"github.com/weiihann/reprun/stream"
)

// stdio holds the closers of streams opened by Start.
type stdio struct {
	stdin  io.Closer
	stdout io.Closer
	stderr io.Closer
	log    io.Closer

	logOnStderr bool
}

func (r *Run) openStreams(cfg Config) error {
	o := r.Options
	o.Stdin, o.Stdout, o.Stderr, o.Log = cfg.Stdin, cfg.Stdout, cfg.Stderr, cfg.Stdout

	vals := o.Values
	if !vals.Has("stdin") {
		r.logIsStdio = true

		return nil
	}

	if path := vals.String("stdin"); !stream.IsStandard(path) {
		in, err := stream.OpenReader(path)
		if err != nil {
			return &StartupError{Option: "stdin", Path: path, Err: err}
		}

		o.Stdin, r.streams.stdin = in, in
	}

	stdoutPath := vals.String("stdout")
	if !stream.IsStandard(stdoutPath) {
		out, err := stream.OpenWriter(stdoutPath, stream.Write, true)
		if err != nil {
			return &StartupError{Option: "stdout", Path: stdoutPath, Err: err}
		}

		o.Stdout, r.streams.stdout = out, out
	}

	if path := vals.String("stderr"); !stream.IsStandard(path) {
		errw, err := stream.OpenWriter(path, stream.Write, true)
		if err != nil {
			return &StartupError{Option: "error", Path: path, Err: err}
		}

		o.Stderr, r.streams.stderr = errw, errw
	}

	logPath := vals.String("stdlog")

	switch {
	case !stream.IsStandard(logPath):
		logw, err := stream.OpenWriter(logPath, stream.Append, true)
		if err != nil {
			return &StartupError{Option: "log", Path: logPath, Err: err}
		}

		o.Log, r.streams.log = logw, logw
	case o.Log2Stderr:
		o.Log = o.Stderr
		r.streams.logOnStderr = true
	default:
		r.logIsStdio = stream.IsStandard(stdoutPath)
	}

	return nil
}

// closeStreams closes stdin, stdout and stderr if Start opened them. The log
// stream stays open for the remainder of the process, and stderr is kept
// when it carries the log. Closed streams are forgotten, so repeated calls
// are harmless.
func (r *Run) closeStreams() error {
	var errs []error

	closeOne := func(c *io.Closer) {
		if *c == nil {
			return
		}

		if err := (*c).Close(); err != nil {
			errs = append(errs, err)
		}

		*c = nil
	}

	closeOne(&r.streams.stdin)
	closeOne(&r.streams.stdout)

	if r.streams.logOnStderr {
		if err := stream.Flush(r.Options.Stderr); err != nil {
			errs = append(errs, err)
		}
	} else {
		closeOne(&r.streams.stderr)
	}

	return errors.Join(errs...)
}

// abortStreams releases every stream, the log included, after a failed
// Start.
func (r *Run) abortStreams() {
	r.streams.logOnStderr = false
	_ = r.closeStreams()

	if r.streams.log != nil {
		_ = r.streams.log.Close()
		r.streams.log = nil
	}
}

// streamLabel renders a stream option for the run header: the path it was
// redirected to or the standard stream it resolved to.
func (r *Run) streamLabel(dest string) string {
	if path := r.Options.Values.String(dest); !stream.IsStandard(path) {
		return path
	}

	switch dest {
	case "stdin":
		return "<stdin>"
	case "stderr":
		return "<stderr>"
	case "stdlog":
		if r.Options.Log2Stderr {
			return r.streamLabel("stderr")
		}

		return "<stdout>"
	default:
		return "<stdout>"
	}
}

func isStreamDest(dest string) bool {
	switch dest {
	case "stdin", "stdout", "stderr", "stdlog":
		return true
	}

	return false
}

// OpenOutput creates the file for section derived from the output filename
// pattern. Existing files are only replaced with --force-output.
func (r *Run) OpenOutput(section string) (io.WriteCloser, error) {
	if r.Options.Output == nil {
		return nil, ErrNoOutputPattern
	}

	return r.Options.Output.Create(section)
}
