// Package sample draws deterministic random samples of text lines.
package sample

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sort"
	"strings"
)

// Summary contains statistics about a sampling pass.
type Summary struct {
	Lines       int `json:"lines" yaml:"lines"`
	Passthrough int `json:"passthrough" yaml:"passthrough"`
	Sampled     int `json:"sampled" yaml:"sampled"`
}

// Config controls sampling. With Reservoir > 0 exactly that many lines are
// kept; otherwise each line is kept with probability Fraction. Lines
// starting with one of the Passthrough prefixes are always copied and never
// counted as sampled.
type Config struct {
	Fraction    float64
	Reservoir   int
	Passthrough []string
}

// Validate checks that the config selects a sampling mode.
func (c Config) Validate() error {
	if c.Reservoir < 0 {
		return fmt.Errorf("reservoir size %d is negative", c.Reservoir)
	}

	if c.Reservoir == 0 && (c.Fraction <= 0 || c.Fraction > 1) {
		return fmt.Errorf("fraction %v outside (0, 1]", c.Fraction)
	}

	return nil
}

// Sampler produces deterministic samples for a given generator state.
type Sampler struct {
	cfg Config
	rng *rand.Rand
}

// NewSampler creates a Sampler drawing from rng.
func NewSampler(cfg Config, rng *rand.Rand) *Sampler {
	return &Sampler{cfg: cfg, rng: rng}
}

type indexedLine struct {
	index int
	text  string
}

// Sample copies the selected lines of r to w in input order.
func (s *Sampler) Sample(r io.Reader, w io.Writer) (Summary, error) {
	var summary Summary

	if err := s.cfg.Validate(); err != nil {
		return summary, err
	}

	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)

	var reservoir []indexedLine

	for {
		line, err := br.ReadString('\n')
		if line != "" {
			summary.Lines++

			switch {
			case s.passthrough(line):
				if _, werr := bw.WriteString(line); werr != nil {
					return summary, fmt.Errorf("write line %d: %w", summary.Lines, werr)
				}

				summary.Passthrough++

			case s.cfg.Reservoir > 0:
				reservoir = s.offer(reservoir, indexedLine{index: summary.Lines, text: line}, summary.Lines-summary.Passthrough)

			case s.rng.Float64() < s.cfg.Fraction:
				if _, werr := bw.WriteString(line); werr != nil {
					return summary, fmt.Errorf("write line %d: %w", summary.Lines, werr)
				}

				summary.Sampled++
			}
		}

		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return summary, fmt.Errorf("read line %d: %w", summary.Lines+1, err)
		}
	}

	sort.Slice(reservoir, func(i, j int) bool {
		return reservoir[i].index < reservoir[j].index
	})

	for _, l := range reservoir {
		if _, err := bw.WriteString(l.text); err != nil {
			return summary, fmt.Errorf("write sample: %w", err)
		}

		summary.Sampled++
	}

	if err := bw.Flush(); err != nil {
		return summary, fmt.Errorf("flush sample: %w", err)
	}

	return summary, nil
}

// offer applies reservoir sampling to the seen-th candidate line.
func (s *Sampler) offer(reservoir []indexedLine, l indexedLine, seen int) []indexedLine {
	if len(reservoir) < s.cfg.Reservoir {
		return append(reservoir, l)
	}

	if j := s.rng.IntN(seen); j < s.cfg.Reservoir {
		reservoir[j] = l
	}

	return reservoir
}

func (s *Sampler) passthrough(line string) bool {
	for _, prefix := range s.cfg.Passthrough {
		if prefix != "" && strings.HasPrefix(line, prefix) {
			return true
		}
	}

	return false
}
