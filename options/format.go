package options

import (
	"fmt"
	"strings"

	"github.com/mitchellh/go-wordwrap"
)

const (
	// HelpWidth is the terminal width help output is wrapped to.
	HelpWidth = 78

	maxHelpPosition = 24
	indentIncrement = 2
	minHelpWidth    = 11
)

// FormatUsage returns the wrapped usage line.
func (p *Parser) FormatUsage() string {
	usage := "Usage: " + expandProg(p.cfg.Usage, p.prog)

	return strings.Join(wrap(usage, HelpWidth), "\n") + "\n"
}

// FormatHelp renders the help text. Usage and description can be left out,
// which is what -? and --no-usage do.
func (p *Parser) FormatHelp(withUsage, withDescription bool) string {
	var b strings.Builder

	if withUsage {
		b.WriteString(p.FormatUsage())
		b.WriteString("\n")
	}

	if withDescription && p.cfg.Description != "" {
		desc := expandProg(p.cfg.Description, p.prog)
		b.WriteString(strings.Join(wrap(desc, HelpWidth), "\n"))
		b.WriteString("\n\n")
	}

	b.WriteString(p.formatOptionHelp())

	return b.String()
}

func (p *Parser) formatOptionHelp() string {
	f := &helpFormatter{width: HelpWidth, prog: p.prog}
	f.measure(p.Group, p.groups)

	sections := []string{"Options:\n"}
	f.indent++

	if body := f.formatOptions(p.Group.options); body != "" {
		sections = append(sections, body, "\n")
	}

	for _, g := range p.groups {
		sections = append(sections, f.formatGroup(g), "\n")
	}

	f.indent--

	return strings.Join(sections[:len(sections)-1], "")
}

type helpFormatter struct {
	width        int
	prog         string
	indent       int
	helpPosition int
	helpWidth    int
}

func (f *helpFormatter) currentIndent() int {
	return f.indent * indentIncrement
}

// measure computes the help column from the longest option string, the
// same way for the root listing and for every group.
func (f *helpFormatter) measure(root *Group, groups []*Group) {
	maxLen := 0

	visit := func(opts []*Option, indent int) {
		for _, opt := range visible(opts) {
			if n := len(optionStrings(opt)) + indent; n > maxLen {
				maxLen = n
			}
		}
	}

	visit(root.options, indentIncrement)
	for _, g := range groups {
		visit(g.options, 2*indentIncrement)
	}

	f.helpPosition = min(maxLen+2, maxHelpPosition)
	f.helpWidth = max(f.width-f.helpPosition, minHelpWidth)
}

func (f *helpFormatter) formatGroup(g *Group) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%*s%s:\n", f.currentIndent(), "", g.Title)

	if g.Description != "" {
		b.WriteString(strings.Join(wrap(expandProg(g.Description, f.prog), f.width), "\n"))
		b.WriteString("\n")
	}

	f.indent++
	b.WriteString(f.formatOptions(g.options))
	f.indent--

	return b.String()
}

func (f *helpFormatter) formatOptions(opts []*Option) string {
	var b strings.Builder
	for _, opt := range visible(opts) {
		b.WriteString(f.formatOption(opt))
	}

	return b.String()
}

func (f *helpFormatter) formatOption(opt *Option) string {
	var b strings.Builder

	indent := f.currentIndent()
	opts := optionStrings(opt)
	optWidth := f.helpPosition - indent - 2

	indentFirst := 0
	if len(opts) > optWidth {
		fmt.Fprintf(&b, "%*s%s\n", indent, "", opts)
		indentFirst = f.helpPosition
	} else {
		fmt.Fprintf(&b, "%*s%-*s  ", indent, "", optWidth, opts)
	}

	if opt.Help == "" {
		if indentFirst == 0 {
			b.WriteString("\n")
		}

		return b.String()
	}

	lines := wrap(expandHelp(opt, f.prog), f.helpWidth)
	fmt.Fprintf(&b, "%*s%s\n", indentFirst, "", lines[0])

	for _, line := range lines[1:] {
		fmt.Fprintf(&b, "%*s%s\n", f.helpPosition, "", line)
	}

	return b.String()
}

func visible(opts []*Option) []*Option {
	out := make([]*Option, 0, len(opts))
	for _, opt := range opts {
		if opt.flag == nil || !opt.flag.Hidden {
			out = append(out, opt)
		}
	}

	return out
}

// optionStrings renders "-v LOGLEVEL, --verbose=LOGLEVEL".
func optionStrings(opt *Option) string {
	var parts []string

	if opt.Short != "" {
		s := "-" + opt.Short
		if opt.takesValue() {
			s += " " + opt.MetavarName()
		}

		parts = append(parts, s)
	}

	l := "--" + opt.Name
	if opt.takesValue() {
		l += "=" + opt.MetavarName()
	}

	parts = append(parts, l)

	return strings.Join(parts, ", ")
}

func expandHelp(opt *Option, prog string) string {
	help := expandProg(opt.Help, prog)

	if strings.Contains(help, "%default") {
		help = strings.ReplaceAll(help, "%default", opt.value.String())
	}

	return help
}

// wrap breaks text into lines no wider than width, keeping explicit line
// breaks. Blank input lines are preserved as empty lines.
func wrap(text string, width int) []string {
	var lines []string

	for _, para := range strings.Split(text, "\n") {
		if strings.TrimSpace(para) == "" {
			lines = append(lines, "")

			continue
		}

		wrapped := wordwrap.WrapString(para, uint(width))
		for _, line := range strings.Split(wrapped, "\n") {
			lines = append(lines, strings.TrimRight(line, " "))
		}
	}

	if len(lines) == 0 {
		lines = append(lines, "")
	}

	return lines
}
