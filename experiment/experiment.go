// Package experiment wraps a script invocation with reproducible-run
// bookkeeping.
//
// Start parses the command line, opens redirected streams, seeds the run's
// random generator, writes a commented header describing the invocation and
// configures logging. Stop writes the benchmark table and a footer carrying
// the same job id, closes the streams Start opened and optionally appends a
// row to a timing ledger file.
//
//	run, err := experiment.Start(parser, os.Args, experiment.Config{})
//	if err != nil { ... }
//	defer run.Stop()
package experiment

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/weiihann/reprun/benchmark"
	"github.com/weiihann/reprun/config"
	"github.com/weiihann/reprun/logging"
	"github.com/weiihann/reprun/options"
	"github.com/weiihann/reprun/report"
	"github.com/weiihann/reprun/stream"
	"github.com/weiihann/reprun/sysinfo"
)

// Config controls what Start registers and where it reads defaults from.
type Config struct {
	// Quiet lowers the default loglevel from 1 to 0.
	Quiet bool
	// NoPipeOptions omits the stream redirection options.
	NoPipeOptions bool
	// OutputOptions adds --output-filename-pattern and --force-output.
	OutputOptions bool

	// EnvPrefix enables option defaults from PREFIX_DEST variables.
	EnvPrefix string
	// ConfigFile supplies option defaults keyed by destination name.
	ConfigFile string
	// DotEnv is loaded into the environment before defaults are looked up.
	DotEnv string

	// Command is the initial value of Run.Command. Defaults to argv[0].
	Command string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func (c Config) withDefaults() Config {
	if c.Stdin == nil {
		c.Stdin = os.Stdin
	}

	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}

	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}

	return c
}

// Options holds the parsed well-known options and resolved streams.
// Script-specific options are read from Values.
type Options struct {
	Loglevel     int
	RandomSeed   *int64
	TimeitFile   string
	TimeitName   string
	TimeitHeader bool
	Log2Stderr   bool

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Log    io.Writer

	Output *stream.OutputPattern
	Values *options.Values
}

// JobIdentity identifies one run in its header and footer.
type JobIdentity struct {
	ID      uuid.UUID
	Started time.Time
	PID     int
	Host    string
	System  sysinfo.System
}

type state int

const (
	running state = iota
	stopped
)

// Run is one started script invocation.
type Run struct {
	Options *Options
	Args    []string
	Job     JobIdentity
	Logger  *slog.Logger
	Rand    *rand.Rand
	Ledger  *benchmark.Ledger
	// Command is written to the ledger cmd column.
	Command string

	argv       []string
	state      state
	logIsStdio bool
	streams    stdio
	baseUsage  sysinfo.Usage
}

// Start registers the common option groups on p, parses argv (whose first
// element is the program name) and prepares the run. A nil parser is
// replaced with one named after argv[0].
//
// Parse failures are returned as *options.UsageError; help and version
// requests as errors for which options.Exited reports true. Streams that
// cannot be opened produce a *StartupError.
func Start(p *options.Parser, argv []string, cfg Config) (*Run, error) {
	if len(argv) == 0 {
		argv = os.Args
	}

	cfg = cfg.withDefaults()

	if p == nil {
		p = options.NewParser(filepath.Base(argv[0]), options.Config{})
	}

	registerOptions(p, cfg)

	if err := applyConfigDefaults(p, cfg); err != nil {
		return nil, err
	}

	vals, args, err := p.Parse(argv[1:])
	if err != nil {
		return nil, err
	}

	job, err := newJobIdentity()
	if err != nil {
		return nil, err
	}

	r := &Run{
		Options: readOptions(vals),
		Args:    args,
		Job:     job,
		Ledger:  benchmark.NewLedger(),
		Command: cfg.Command,
		argv:    argv,
	}

	seed := job.Started.UnixNano()
	if r.Options.RandomSeed != nil {
		seed = *r.Options.RandomSeed
	}

	if r.Command == "" {
		r.Command = argv[0]
	}

	r.Rand = rand.New(rand.NewPCG(uint64(seed), uint64(seed)))

	if usage, err := sysinfo.ResourceUsage(); err == nil {
		r.baseUsage = usage
	}

	if err := r.openStreams(cfg); err != nil {
		r.abortStreams()

		return nil, err
	}

	if cfg.OutputOptions {
		pattern := vals.String("output_filename_pattern")

		out, err := stream.NewOutputPattern(pattern, vals.Bool("force_output"))
		if err != nil {
			r.abortStreams()

			return nil, &StartupError{Option: "output-filename-pattern", Path: pattern, Err: err}
		}

		r.Options.Output = out
	}

	if r.Options.Loglevel >= 1 {
		if err := r.writeHeader(); err != nil {
			r.abortStreams()

			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	r.Logger = slog.New(logging.NewHandler(r.Options.Log, &logging.HandlerOptions{
		Level:     logging.LevelFor(r.Options.Loglevel),
		Commented: r.logIsStdio,
	}))
	slog.SetDefault(r.Logger)

	return r, nil
}

func registerOptions(p *options.Parser, cfg Config) {
	timing := p.AddGroup("Script timing options", "")
	timing.String("timeit-file", "", "",
		"store timeing information in file [%default].").Metavar("FILE")
	timing.String("timeit-name", "", "all",
		"name in timing file for this class of jobs [%default].")
	timing.Bool("timeit-header", "",
		"add header for timing information [%default].")

	common := p.AddGroup("Common options", "")
	common.Int64("random-seed", "", 0,
		"random seed to initialize number generator with [%default].").Optional()

	loglevel := 1
	if cfg.Quiet {
		loglevel = 0
	}

	common.Int("verbose", "v", loglevel,
		"loglevel [%default]. The higher, the more output.").Dest("loglevel")
	p.AddShortHelp(common)

	if cfg.NoPipeOptions {
		return
	}

	pipes := p.AddGroup("Input/output options", "")
	pipes.String("stdin", "I", "",
		"file to read stdin from [default = stdin].").Metavar("FILE")
	pipes.String("log", "L", "",
		"file with logging information [default = stdout].").
		Dest("stdlog").Metavar("FILE")
	pipes.String("error", "E", "",
		"file with error information [default = stderr].").
		Dest("stderr").Metavar("FILE")
	pipes.String("stdout", "S", "",
		"file where output is to go [default = stdout].").Metavar("FILE")
	pipes.Bool("log2stderr", "",
		"send logging information to stderr [default = False].")

	if !cfg.OutputOptions {
		return
	}

	pipes.String("output-filename-pattern", "P", stream.Marker,
		"OUTPUT filename pattern for various methods [%default].").Metavar("PATTERN")
	pipes.Bool("force-output", "F",
		"force over-writing of existing files.")
}

func applyConfigDefaults(p *options.Parser, cfg Config) error {
	if cfg.EnvPrefix == "" && cfg.ConfigFile == "" {
		return nil
	}

	v, err := config.Load(cfg.EnvPrefix, cfg.ConfigFile, cfg.DotEnv)
	if err != nil {
		return err
	}

	for _, dest := range p.Dests() {
		if raw, ok := config.Lookup(v, dest); ok {
			p.SetDefault(dest, raw)
		}
	}

	return nil
}

func readOptions(vals *options.Values) *Options {
	opts := &Options{
		Loglevel:     vals.Int("loglevel"),
		TimeitFile:   vals.String("timeit_file"),
		TimeitName:   vals.String("timeit_name"),
		TimeitHeader: vals.Bool("timeit_header"),
		Log2Stderr:   vals.Bool("log2stderr"),
		Values:       vals,
	}

	if seed, ok := vals.Get("random_seed").(int64); ok {
		opts.RandomSeed = &seed
	}

	return opts
}

// Stop finishes the run. It is safe to call more than once; only the first
// call has an effect.
func (r *Run) Stop() error {
	if r.state == stopped {
		return nil
	}

	r.state = stopped

	var errs []error

	if r.Options.Loglevel >= 1 {
		elapsed := time.Since(r.Job.Started)

		if r.Ledger.Len() > 0 {
			if err := report.WriteBenchmark(r.Options.Log, r.Ledger, elapsed); err != nil {
				errs = append(errs, fmt.Errorf("write benchmark: %w", err))
			}
		}

		r.logResourceUsage()

		if err := r.writeFooter(); err != nil {
			errs = append(errs, fmt.Errorf("write footer: %w", err))
		}
	}

	if err := stream.Flush(r.Options.Log); err != nil {
		errs = append(errs, fmt.Errorf("flush log: %w", err))
	}

	// A compressed log file must be readable once Stop returns.
	if r.streams.log != nil {
		if err := stream.Finish(r.Options.Log); err != nil {
			errs = append(errs, fmt.Errorf("finish log: %w", err))
		}
	}

	errs = append(errs, r.closeStreams())

	if r.Options.TimeitFile != "" {
		if err := r.appendTiming(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// logResourceUsage reports memory and the CPU time spent since Start at
// debug level.
func (r *Run) logResourceUsage() {
	attrs := []any{}

	if rss, err := sysinfo.ResidentMemory(); err == nil {
		attrs = append(attrs, slog.String("rss", report.FormatBytes(rss)))
	}

	if usage, err := sysinfo.ResourceUsage(); err == nil {
		since := usage.Sub(r.baseUsage)
		attrs = append(attrs,
			slog.Duration("user", since.User),
			slog.Duration("system", since.System),
			slog.Duration("child_user", since.ChildUser),
			slog.Duration("child_system", since.ChildSystem),
		)
	}

	r.Logger.Debug("resource usage", attrs...)
}

func (r *Run) appendTiming() error {
	usage, err := sysinfo.ResourceUsage()
	if err != nil {
		r.Logger.Warn("resource usage unavailable", slog.String("error", err.Error()))
	}

	// Getwd is already absolute; an unknown directory leaves the column empty.
	cwd, _ := os.Getwd()

	end := time.Now()
	rec := benchmark.Record{
		Name:        r.Options.TimeitName,
		Wall:        end.Sub(r.Job.Started),
		User:        usage.User,
		System:      usage.System,
		ChildUser:   usage.ChildUser,
		ChildSystem: usage.ChildSystem,
		Host:        r.Job.System.Nodename,
		OS:          r.Job.System.Sysname,
		Release:     r.Job.System.Release,
		Machine:     r.Job.System.Machine,
		Start:       r.Job.Started,
		End:         end,
		Path:        cwd,
		Command:     r.Command,
	}

	if err := benchmark.AppendRecord(r.Options.TimeitFile, rec, r.Options.TimeitHeader); err != nil {
		return fmt.Errorf("timeit file: %w", err)
	}

	return nil
}
