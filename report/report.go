// Package report formats benchmark ledgers and run ledger files into tables.
package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/weiihann/reprun/benchmark"
)

// CommentPrefix starts every line of a benchmark table so it stays out of
// the data when the log shares the output stream.
const CommentPrefix = "# "

// WriteBenchmark writes the in-run benchmark table: one row per ledger
// label with its share of elapsed, then a total row. Every line carries
// CommentPrefix.
func WriteBenchmark(w io.Writer, ledger *benchmark.Ledger, elapsed time.Duration) error {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.Header("Label", "Seconds", "Percent")

	rows := append(ledger.Entries(), benchmark.Entry{Label: "total", Elapsed: ledger.Total()})
	for _, e := range rows {
		percent := "-"
		if elapsed > 0 {
			percent = fmt.Sprintf("%.1f%%", 100*e.Elapsed.Seconds()/elapsed.Seconds())
		}

		if err := table.Append([]string{
			e.Label,
			fmt.Sprintf("%.2f", e.Elapsed.Seconds()),
			percent,
		}); err != nil {
			return fmt.Errorf("benchmark row %s: %w", e.Label, err)
		}
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("render benchmark table: %w", err)
	}

	return prefixLines(w, &buf, CommentPrefix)
}

func prefixLines(w io.Writer, r io.Reader, prefix string) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if _, err := fmt.Fprintln(w, prefix+scanner.Text()); err != nil {
			return err
		}
	}

	return scanner.Err()
}

// Summary aggregates ledger records sharing a name. Times are in seconds.
type Summary struct {
	Name     string   `json:"name" yaml:"name"`
	Runs     int      `json:"runs" yaml:"runs"`
	Wall     float64  `json:"wall" yaml:"wall"`
	User     float64  `json:"user" yaml:"user"`
	Sys      float64  `json:"sys" yaml:"sys"`
	MeanWall float64  `json:"mean_wall" yaml:"mean_wall"`
	Hosts    []string `json:"hosts" yaml:"hosts"`
}

// Summarize groups records by name in first-seen order. User and Sys include
// the CPU time of child processes.
func Summarize(records []benchmark.Record) []Summary {
	var summaries []Summary
	index := make(map[string]int)

	for _, r := range records {
		i, ok := index[r.Name]
		if !ok {
			i = len(summaries)
			index[r.Name] = i
			summaries = append(summaries, Summary{Name: r.Name})
		}

		s := &summaries[i]
		s.Runs++
		s.Wall += r.Wall.Seconds()
		s.User += (r.User + r.ChildUser).Seconds()
		s.Sys += (r.System + r.ChildSystem).Seconds()

		if r.Host != "" && !contains(s.Hosts, r.Host) {
			s.Hosts = append(s.Hosts, r.Host)
		}
	}

	for i := range summaries {
		summaries[i].MeanWall = summaries[i].Wall / float64(summaries[i].Runs)
	}

	return summaries
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}

	return false
}

// Generate writes a comparison table of summaries. Relative is the mean wall
// time divided by the fastest mean.
func Generate(w io.Writer, summaries []Summary) error {
	if len(summaries) == 0 {
		return fmt.Errorf("no records to report")
	}

	fastest := findFastest(summaries)

	table := tablewriter.NewWriter(w)
	table.Header("Name", "Runs", "Wall", "User", "Sys", "Mean", "Relative", "Hosts")

	for _, s := range summaries {
		relative := 1.0
		if fastest > 0 && s.MeanWall > 0 {
			relative = s.MeanWall / fastest
		}

		if err := table.Append([]string{
			s.Name,
			fmt.Sprintf("%d", s.Runs),
			formatSeconds(s.Wall),
			formatSeconds(s.User),
			formatSeconds(s.Sys),
			formatSeconds(s.MeanWall),
			fmt.Sprintf("%.2fx", relative),
			strings.Join(s.Hosts, ","),
		}); err != nil {
			return fmt.Errorf("summary row %s: %w", s.Name, err)
		}
	}

	return table.Render()
}

// GenerateJSON writes summaries as JSON to w.
func GenerateJSON(w io.Writer, summaries []Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(summaries)
}

// GenerateYAML writes summaries as YAML to w.
func GenerateYAML(w io.Writer, summaries []Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(summaries); err != nil {
		return err
	}

	return enc.Close()
}

func findFastest(summaries []Summary) float64 {
	fastest := math.MaxFloat64
	for _, s := range summaries {
		if s.MeanWall > 0 && s.MeanWall < fastest {
			fastest = s.MeanWall
		}
	}

	if fastest == math.MaxFloat64 {
		return 0
	}

	return fastest
}

func formatSeconds(s float64) string {
	if s < 1 {
		return fmt.Sprintf("%dms", int64(math.Round(s*1000)))
	}

	return fmt.Sprintf("%.2fs", s)
}

// FormatBytes renders b with a binary unit, "-" for zero.
func FormatBytes(b uint64) string {
	if b == 0 {
		return "-"
	}

	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(b)
	unit := 0

	for size >= 1024 && unit < len(units)-1 {
		size /= 1024
		unit++
	}

	formatted := fmt.Sprintf("%.1f", size)
	formatted = strings.TrimRight(formatted, "0")
	formatted = strings.TrimRight(formatted, ".")

	return formatted + " " + units[unit]
}
