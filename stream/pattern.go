package stream

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Marker is the substitution point in an output filename pattern.
const Marker = "%s"

// ErrExists is returned when an output file exists and overwriting was not
// forced.
var ErrExists = errors.New("output file exists")

// OutputPattern derives output paths from a single pattern and a section
// name, e.g. "sample1_%s.tsv.gz" and "stats" give "sample1_stats.tsv.gz".
type OutputPattern struct {
	pattern string
	force   bool
}

// NewOutputPattern validates pattern, which may contain at most one marker.
// A pattern without a marker maps every section to the same path.
func NewOutputPattern(pattern string, force bool) (*OutputPattern, error) {
	if n := strings.Count(pattern, Marker); n > 1 {
		return nil, fmt.Errorf(
			"output pattern %q has %d substitution markers, want at most one",
			pattern, n,
		)
	}

	return &OutputPattern{pattern: pattern, force: force}, nil
}

// Path returns the concrete path for section.
func (p *OutputPattern) Path(section string) string {
	return strings.Replace(p.pattern, Marker, section, 1)
}

// Create opens the file for section for writing. Parent directories are
// created as needed.
func (p *OutputPattern) Create(section string) (io.WriteCloser, error) {
	path := p.Path(section)

	if !p.force {
		if _, err := os.Stat(path); err == nil {
			return nil, fmt.Errorf("%w: %s (use --force-output to overwrite)",
				ErrExists, path)
		}
	}

	return OpenWriter(path, Write, true)
}
