// Package options parses command lines into typed option values.
//
// It layers optparse-style conventions on top of pflag: accumulating options
// accept comma-separated lists, the values "" and "None" leave defaults in
// place, options are grouped under headings in help output, and help text is
// wrapped to a fixed width. Help and version requests are reported through
// sentinel errors instead of exiting the process.
package options

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/pflag"
)

var (
	// ErrHelp is returned by Parse after help text was printed.
	ErrHelp = errors.New("help requested")
	// ErrVersion is returned by Parse after the version was printed.
	ErrVersion = errors.New("version requested")
)

// Exited reports whether err asks the caller to exit successfully, i.e.
// help or version output was produced instead of parsing.
func Exited(err error) bool {
	return errors.Is(err, ErrHelp) || errors.Is(err, ErrVersion)
}

// UsageError reports malformed command-line input.
type UsageError struct {
	Prog string
	Err  error
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s: error: %v", e.Prog, e.Err)
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// ExitCode is the process exit status for usage errors.
func (e *UsageError) ExitCode() int {
	return 2
}

// Config describes the program for help output.
type Config struct {
	// Usage is the synopsis printed after "Usage:". %prog expands to the
	// program name. Defaults to "%prog [options]".
	Usage string
	// Description is printed between usage and the option listing.
	Description string
	// Version enables --version when non-empty.
	Version string
	// Output receives help, version and error text. Defaults to stderr for
	// errors and stdout for help.
	Output io.Writer
}

// Parser parses command lines against declared options.
type Parser struct {
	*Group

	prog    string
	cfg     Config
	fs      *pflag.FlagSet
	groups  []*Group
	all     []*Option
	pending []pendingDefault

	help      *trigger
	shortHelp *trigger
	version   *trigger
}

type pendingDefault struct {
	dest string
	raw  string
}

// NewParser creates a parser for prog with -h/--help and, if a version is
// configured, --version already declared.
func NewParser(prog string, cfg Config) *Parser {
	if cfg.Usage == "" {
		cfg.Usage = "%prog [options]"
	}

	fs := pflag.NewFlagSet(prog, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	fs.SortFlags = false

	p := &Parser{prog: prog, cfg: cfg, fs: fs}
	p.Group = &Group{Title: "Options", parser: p}

	if cfg.Version != "" {
		p.version = p.Group.trigger("version", "",
			"show program's version number and exit")
	}

	p.help = p.Group.trigger("help", "h", "show this help message and exit")

	return p
}

// Prog returns the program name.
func (p *Parser) Prog() string {
	return p.prog
}

// AddGroup starts a new titled group of options.
func (p *Parser) AddGroup(title, description string) *Group {
	g := &Group{Title: title, Description: description, parser: p}
	p.groups = append(p.groups, g)

	return g
}

// AddShortHelp declares -? on g, printing only the option listing.
func (p *Parser) AddShortHelp(g *Group) {
	p.shortHelp = g.trigger("short-help", "?",
		"output short help (command line options only).")
}

// Lookup returns the option recording into dest.
func (p *Parser) Lookup(dest string) (*Option, bool) {
	for _, opt := range p.all {
		if opt.DestName() == dest {
			return opt, true
		}
	}

	return nil, false
}

// Dests lists the destination names of all declared options.
func (p *Parser) Dests() []string {
	dests := make([]string, 0, len(p.all))
	for _, opt := range p.all {
		if opt.Action != Trigger {
			dests = append(dests, opt.DestName())
		}
	}

	return dests
}

// SetDefault overrides the default of dest. It may be called before the
// option is declared; the override is applied when parsing starts.
func (p *Parser) SetDefault(dest, raw string) {
	p.pending = append(p.pending, pendingDefault{dest: dest, raw: raw})
}

// SetInterspersed controls whether options may follow positional
// arguments. When false, parsing stops at the first positional argument.
func (p *Parser) SetInterspersed(interspersed bool) {
	p.fs.SetInterspersed(interspersed)
}

// Parse parses args, which must not include the program name. It returns
// the option values and the remaining positional arguments.
func (p *Parser) Parse(args []string) (*Values, []string, error) {
	for _, d := range p.pending {
		opt, ok := p.Lookup(d.dest)
		if !ok {
			continue
		}

		if r, ok := opt.value.(interface{ reset() }); ok && !isDefaultToken(d.raw) {
			r.reset()
		}

		if err := opt.value.Set(d.raw); err != nil {
			return nil, nil, p.fail(fmt.Errorf("default for %s: %w", d.dest, err))
		}
	}

	noUsage := slices.Contains(args, "--no-usage")
	if noUsage && !p.hasFlag("no-usage") {
		p.Group.Bool("no-usage", "", "output help without usage information").
			Dest("help_no_usage").Hidden()
	}

	err := p.fs.Parse(args)

	switch {
	case p.help.fired:
		p.printTo(p.helpOutput(), p.FormatHelp(!noUsage, true))

		return nil, nil, ErrHelp

	case p.shortHelp != nil && p.shortHelp.fired:
		p.printTo(p.helpOutput(), p.FormatHelp(false, false))

		return nil, nil, ErrHelp

	case p.version != nil && p.version.fired:
		p.printTo(p.helpOutput(), expandProg(p.cfg.Version, p.prog)+"\n")

		return nil, nil, ErrVersion

	case err != nil:
		return nil, nil, p.fail(err)
	}

	return newValues(p.all), p.fs.Args(), nil
}

func (p *Parser) hasFlag(name string) bool {
	return p.fs.Lookup(name) != nil
}

func (p *Parser) fail(err error) error {
	uerr := &UsageError{Prog: p.prog, Err: err}

	out := p.cfg.Output
	if out == nil {
		out = os.Stderr
	}

	p.printTo(out, p.FormatUsage()+"\n"+uerr.Error()+"\n")

	return uerr
}

func (p *Parser) helpOutput() io.Writer {
	if p.cfg.Output != nil {
		return p.cfg.Output
	}

	return os.Stdout
}

func (p *Parser) printTo(w io.Writer, s string) {
	io.WriteString(w, s)
}

func expandProg(s, prog string) string {
	return strings.ReplaceAll(s, "%prog", prog)
}
