package options

import (
	"strings"

	"github.com/spf13/pflag"
)

// Action describes what an option does with its argument.
type Action int

const (
	// Store keeps the last value given.
	Store Action = iota
	// Append accumulates every value given, expanding comma lists.
	Append
	// StoreTrue sets a boolean without taking an argument.
	StoreTrue
	// Trigger ends parsing and requests help or version output.
	Trigger
)

// Option is a single declared command-line option.
type Option struct {
	Name   string
	Short  string
	Help   string
	Action Action

	dest    string
	metavar string
	value   value
	flag    *pflag.Flag
}

// Dest overrides the destination name under which the value is recorded.
func (o *Option) Dest(dest string) *Option {
	o.dest = dest

	return o
}

// Metavar sets the placeholder shown for the argument in help output.
func (o *Option) Metavar(metavar string) *Option {
	o.metavar = metavar

	return o
}

// Optional makes an unset scalar option report no value at all, rendered
// as None, instead of its zero value.
func (o *Option) Optional() *Option {
	switch v := o.value.(type) {
	case *scalar[string]:
		v.optional = true
	case *scalar[int]:
		v.optional = true
	case *scalar[int64]:
		v.optional = true
	case *scalar[float64]:
		v.optional = true
	case *scalar[bool]:
		v.optional = true
	}

	return o
}

// Hidden keeps the option out of help output.
func (o *Option) Hidden() *Option {
	o.flag.Hidden = true

	return o
}

// DestName returns the destination name of the option.
func (o *Option) DestName() string {
	if o.dest != "" {
		return o.dest
	}

	return strings.ReplaceAll(o.Name, "-", "_")
}

// MetavarName returns the placeholder shown in help output.
func (o *Option) MetavarName() string {
	if o.metavar != "" {
		return o.metavar
	}

	return strings.ToUpper(o.DestName())
}

func (o *Option) takesValue() bool {
	return o.Action == Store || o.Action == Append
}

// Group collects options under a heading in help output.
type Group struct {
	Title       string
	Description string

	parser  *Parser
	options []*Option
}

// Options returns the options of g in declaration order.
func (g *Group) Options() []*Option {
	return g.options
}

func (g *Group) add(name, short, help string, action Action, v value) *Option {
	opt := &Option{
		Name:   name,
		Short:  short,
		Help:   help,
		Action: action,
		value:  v,
	}

	opt.flag = g.parser.fs.VarPF(v, name, short, help)
	if action == StoreTrue || action == Trigger {
		opt.flag.NoOptDefVal = "true"
	}

	g.options = append(g.options, opt)
	g.parser.all = append(g.parser.all, opt)

	return opt
}

// String declares a string option.
func (g *Group) String(name, short, def, help string) *Option {
	return g.add(name, short, help, Store,
		newScalar(def, "string", parseString))
}

// Int declares an integer option.
func (g *Group) Int(name, short string, def int, help string) *Option {
	return g.add(name, short, help, Store,
		newScalar(def, "int", parseInt))
}

// Int64 declares a 64-bit integer option.
func (g *Group) Int64(name, short string, def int64, help string) *Option {
	return g.add(name, short, help, Store,
		newScalar(def, "int64", parseInt64))
}

// Float64 declares a floating-point option.
func (g *Group) Float64(name, short string, def float64, help string) *Option {
	return g.add(name, short, help, Store,
		newScalar(def, "float64", parseFloat64))
}

// Bool declares a flag that is set to true when present.
func (g *Group) Bool(name, short string, help string) *Option {
	return g.add(name, short, help, StoreTrue,
		newScalar(false, "bool", parseBool))
}

// Strings declares an accumulating string option. --opt=a,b and
// --opt=a --opt=b yield the same list.
func (g *Group) Strings(name, short string, def []string, help string) *Option {
	return g.add(name, short, help, Append,
		newList(def, "stringList", parseString))
}

// Ints declares an accumulating integer option.
func (g *Group) Ints(name, short string, def []int, help string) *Option {
	return g.add(name, short, help, Append,
		newList(def, "intList", parseInt))
}

// Float64s declares an accumulating floating-point option.
func (g *Group) Float64s(name, short string, def []float64, help string) *Option {
	return g.add(name, short, help, Append,
		newList(def, "float64List", parseFloat64))
}

func (g *Group) trigger(name, short, help string) *trigger {
	t := &trigger{}
	g.add(name, short, help, Trigger, t)

	return t
}
