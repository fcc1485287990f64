package experiment

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/weiihann/reprun/benchmark"
	"github.com/weiihann/reprun/options"
	"github.com/weiihann/reprun/stream"
	"github.com/weiihann/reprun/sysinfo"
)

// TimeLayout formats the start and finish timestamps of header and footer.
const TimeLayout = time.ANSIC

func newJobIdentity() (JobIdentity, error) {
	sys, err := sysinfo.Uname()
	if err != nil {
		return JobIdentity{}, fmt.Errorf("identify host: %w", err)
	}

	return JobIdentity{
		ID:      uuid.New(),
		Started: time.Now(),
		PID:     os.Getpid(),
		Host:    sys.Nodename,
		System:  sys,
	}, nil
}

// Header returns the run header: invocation, start time, host, job id and
// one line per option sorted by destination name.
func (r *Run) Header() string {
	var b strings.Builder

	sys := r.Job.System
	fmt.Fprintf(&b, "# output generated by %s\n", strings.Join(r.argv, " "))
	fmt.Fprintf(&b, "# job started at %s on %s -- %s\n",
		r.Job.Started.Format(TimeLayout), r.Job.Host, r.Job.ID)
	fmt.Fprintf(&b, "# pid: %d, system: %s %s %s %s\n",
		r.Job.PID, sys.Sysname, sys.Release, sys.Version, sys.Machine)

	for _, pair := range r.Options.Values.Pairs() {
		value := options.FormatValue(pair.Value)
		if isStreamDest(pair.Name) {
			value = r.streamLabel(pair.Name)
		}

		fmt.Fprintf(&b, "# %-40s: %s\n", pair.Name, value)
	}

	return b.String()
}

// Footer returns the run footer: elapsed whole seconds, finish time, CPU
// times and the job id of the header.
func (r *Run) Footer() string {
	now := time.Now()

	usage, err := sysinfo.ResourceUsage()
	if err != nil && r.Logger != nil {
		r.Logger.Warn("resource usage unavailable", "error", err)
	}

	return fmt.Sprintf("# job finished in %d seconds at %s -- %s %s %s %s -- %s\n",
		int64(now.Sub(r.Job.Started).Seconds()),
		now.Format(TimeLayout),
		benchmark.Seconds(usage.User),
		benchmark.Seconds(usage.System),
		benchmark.Seconds(usage.ChildUser),
		benchmark.Seconds(usage.ChildSystem),
		r.Job.ID,
	)
}

func (r *Run) writeHeader() error {
	return writeFlushed(r.Options.Log, r.Header())
}

func (r *Run) writeFooter() error {
	return writeFlushed(r.Options.Log, r.Footer())
}

func writeFlushed(w io.Writer, s string) error {
	if _, err := io.WriteString(w, s); err != nil {
		return err
	}

	return stream.Flush(w)
}
