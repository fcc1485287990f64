package benchmark

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/weiihann/reprun/stream"
)

// Columns is the header row of a run ledger file.
var Columns = []string{
	"name", "wall", "user", "sys", "cuser", "csys",
	"host", "system", "release", "machine",
	"start", "end", "path", "cmd",
}

// TimeLayout is the layout of the start and end columns.
const TimeLayout = time.ANSIC

// Record is one row of a run ledger: aggregate timing of a whole run.
type Record struct {
	Name        string
	Wall        time.Duration
	User        time.Duration
	System      time.Duration
	ChildUser   time.Duration
	ChildSystem time.Duration
	Host        string
	OS          string
	Release     string
	Machine     string
	Start       time.Time
	End         time.Time
	Path        string
	Command     string
}

// Fields returns the row values in column order.
func (r Record) Fields() []string {
	return []string{
		r.Name,
		Seconds(r.Wall),
		Seconds(r.User),
		Seconds(r.System),
		Seconds(r.ChildUser),
		Seconds(r.ChildSystem),
		r.Host,
		r.OS,
		r.Release,
		r.Machine,
		r.Start.Format(TimeLayout),
		r.End.Format(TimeLayout),
		r.Path,
		r.Command,
	}
}

// String returns the tab-separated row without a trailing newline.
func (r Record) String() string {
	return strings.Join(r.Fields(), "\t")
}

// Seconds formats d the way ledger and footer lines do: "%5.2f" seconds.
func Seconds(d time.Duration) string {
	return fmt.Sprintf("%5.2f", d.Seconds())
}

// WriteHeader writes the column header row.
func WriteHeader(w io.Writer) error {
	_, err := fmt.Fprintln(w, strings.Join(Columns, "\t"))

	return err
}

// AppendRecord appends rec to the ledger file at path, preceded by a
// header row when header is set.
func AppendRecord(path string, rec Record, header bool) error {
	w, err := stream.OpenWriter(path, stream.Append, false)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}

	if header {
		if err := WriteHeader(w); err != nil {
			w.Close()

			return fmt.Errorf("write ledger header: %w", err)
		}
	}

	if _, err := fmt.Fprintln(w, rec.String()); err != nil {
		w.Close()

		return fmt.Errorf("write ledger row: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}

	return nil
}

// ReadRecords parses ledger rows from r. Header rows, which may repeat when
// runs append with --timeit-header, are skipped.
func ReadRecords(r io.Reader) ([]Record, error) {
	var records []Record

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++

		line := scanner.Text()
		if strings.TrimSpace(line) == "" || isHeader(line) {
			continue
		}

		rec, err := parseRecord(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	return records, nil
}

func isHeader(line string) bool {
	return strings.HasPrefix(line, Columns[0]+"\t"+Columns[1]+"\t")
}

func parseRecord(line string) (Record, error) {
	fields := strings.SplitN(line, "\t", len(Columns))
	if len(fields) != len(Columns) {
		return Record{}, fmt.Errorf(
			"expected %d columns, got %d", len(Columns), len(fields),
		)
	}

	var durations [5]time.Duration
	for i := range durations {
		secs, err := strconv.ParseFloat(strings.TrimSpace(fields[1+i]), 64)
		if err != nil {
			return Record{}, fmt.Errorf("column %s: %w", Columns[1+i], err)
		}

		durations[i] = time.Duration(secs * float64(time.Second))
	}

	start, err := time.ParseInLocation(TimeLayout, fields[10], time.Local)
	if err != nil {
		return Record{}, fmt.Errorf("column start: %w", err)
	}

	end, err := time.ParseInLocation(TimeLayout, fields[11], time.Local)
	if err != nil {
		return Record{}, fmt.Errorf("column end: %w", err)
	}

	return Record{
		Name:        fields[0],
		Wall:        durations[0],
		User:        durations[1],
		System:      durations[2],
		ChildUser:   durations[3],
		ChildSystem: durations[4],
		Host:        fields[6],
		OS:          fields[7],
		Release:     fields[8],
		Machine:     fields[9],
		Start:       start,
		End:         end,
		Path:        fields[12],
		Command:     fields[13],
	}, nil
}
