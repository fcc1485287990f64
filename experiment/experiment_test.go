package experiment

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/reprun/benchmark"
	"github.com/weiihann/reprun/options"
	"github.com/weiihann/reprun/stream"
)

type harness struct {
	parser *options.Parser
	usage  bytes.Buffer
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func newHarness() *harness {
	h := &harness{}
	h.parser = options.NewParser("prog", options.Config{Output: &h.usage})

	return h
}

func (h *harness) start(t *testing.T, cfg Config, args ...string) (*Run, error) {
	t.Helper()

	cfg.Stdin = strings.NewReader("")
	cfg.Stdout = &h.stdout
	cfg.Stderr = &h.stderr

	return Start(h.parser, append([]string{"prog"}, args...), cfg)
}

func (h *harness) mustStart(t *testing.T, cfg Config, args ...string) *Run {
	t.Helper()

	run, err := h.start(t, cfg, args...)
	require.NoError(t, err)

	return run
}

func lines(s string) []string {
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

var jobIDRE = regexp.MustCompile(`-- ([0-9a-f-]{36})$`)

func TestHeaderAndFooterShareJobID(t *testing.T) {
	h := newHarness()
	run := h.mustStart(t, Config{})
	require.NoError(t, run.Stop())

	out := lines(h.stdout.String())
	require.GreaterOrEqual(t, len(out), 4)

	assert.Equal(t, "# output generated by prog", out[0])
	assert.True(t, strings.HasPrefix(out[1], "# job started at "), out[1])
	assert.True(t, strings.HasPrefix(out[2], fmt.Sprintf("# pid: %d, system: ", os.Getpid())), out[2])

	footer := out[len(out)-1]
	assert.True(t, strings.HasPrefix(footer, "# job finished in "), footer)

	started := jobIDRE.FindStringSubmatch(out[1])
	finished := jobIDRE.FindStringSubmatch(footer)
	require.Len(t, started, 2)
	require.Len(t, finished, 2)

	assert.Equal(t, run.Job.ID.String(), started[1])
	assert.Equal(t, started[1], finished[1])
}

var footerRE = regexp.MustCompile(
	`^# job finished in \d+ seconds at .+ -- [ \d]+\.\d\d [ \d]+\.\d\d [ \d]+\.\d\d [ \d]+\.\d\d -- `,
)

func TestFooterFormat(t *testing.T) {
	h := newHarness()
	run := h.mustStart(t, Config{})
	require.NoError(t, run.Stop())

	out := lines(h.stdout.String())
	assert.Regexp(t, footerRE, out[len(out)-1])
}

func TestHeaderListsSortedOptions(t *testing.T) {
	h := newHarness()
	h.parser.Strings("method", "m", nil, "methods to apply")

	run := h.mustStart(t, Config{}, "--method=sort,crop", "--timeit-name=x\ty")
	require.NoError(t, run.Stop())

	out := h.stdout.String()
	assert.Contains(t, out, fmt.Sprintf("# %-40s: %s\n", "method", "[sort crop]"))
	assert.Contains(t, out, fmt.Sprintf("# %-40s: %s\n", "timeit_name", `x\ty`))
	assert.Contains(t, out, fmt.Sprintf("# %-40s: %s\n", "timeit_file", "None"))
	assert.Contains(t, out, fmt.Sprintf("# %-40s: %s\n", "random_seed", "None"))
	assert.Contains(t, out, fmt.Sprintf("# %-40s: %s\n", "stdin", "<stdin>"))
	assert.Contains(t, out, fmt.Sprintf("# %-40s: %s\n", "stdlog", "<stdout>"))

	var names []string
	for _, line := range lines(out)[3:] {
		if name, _, ok := strings.Cut(strings.TrimPrefix(line, "# "), ":"); ok && !strings.HasPrefix(line, "# job") {
			names = append(names, strings.TrimSpace(name))
		}
	}

	assert.IsIncreasing(t, names)
}

func TestLoglevelZeroIsSilent(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		args []string
	}{
		{"quiet", Config{Quiet: true}, nil},
		{"verbose zero", Config{}, []string{"--verbose=0"}},
		{"short verbose zero", Config{}, []string{"-v", "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			run := h.mustStart(t, tt.cfg, tt.args...)
			run.Ledger.Add("work", time.Second)
			run.Logger.Info("not shown")
			require.NoError(t, run.Stop())

			assert.Equal(t, 0, run.Options.Loglevel)
			assert.Empty(t, h.stdout.String())
		})
	}
}

func TestParseScenario(t *testing.T) {
	h := newHarness()
	run := h.mustStart(t, Config{}, "--verbose=2", "--timeit-name=x", "input.txt")
	defer run.Stop()

	assert.Equal(t, 2, run.Options.Loglevel)
	assert.Equal(t, "x", run.Options.TimeitName)
	assert.Equal(t, []string{"input.txt"}, run.Args)
}

func TestAccumulateScenario(t *testing.T) {
	h := newHarness()
	h.parser.Strings("method", "", nil, "methods to apply")

	run := h.mustStart(t, Config{}, "--method=sort,crop")
	defer run.Stop()

	assert.Equal(t, []string{"sort", "crop"}, run.Options.Values.Strings("method"))
}

func TestBenchmarkTableCommented(t *testing.T) {
	h := newHarness()
	run := h.mustStart(t, Config{})

	run.Ledger.Add("load", 10*time.Millisecond)
	run.Ledger.Time("crop", func() {})
	require.NoError(t, run.Stop())

	out := h.stdout.String()
	assert.Contains(t, out, "load")
	assert.Contains(t, out, "crop")

	for _, line := range lines(out) {
		assert.True(t, strings.HasPrefix(line, "#"), "uncommented line %q", line)
	}
}

func TestLoggerCommentedOnStdout(t *testing.T) {
	h := newHarness()
	run := h.mustStart(t, Config{})
	run.Logger.Info("first\nsecond")
	require.NoError(t, run.Stop())

	for _, line := range lines(h.stdout.String()) {
		assert.True(t, strings.HasPrefix(line, "#"), "uncommented line %q", line)
	}

	assert.Contains(t, h.stdout.String(), "INFO first\n#")
}

func TestLog2Stderr(t *testing.T) {
	h := newHarness()
	run := h.mustStart(t, Config{}, "--log2stderr")
	run.Logger.Info("hello")
	require.NoError(t, run.Stop())

	assert.Empty(t, h.stdout.String())

	errOut := h.stderr.String()
	assert.Contains(t, errOut, "# output generated by prog --log2stderr\n")
	assert.Contains(t, errOut, fmt.Sprintf("# %-40s: %s\n", "stdlog", "<stderr>"))

	var logLine string
	for _, line := range lines(errOut) {
		if strings.HasSuffix(line, " INFO hello") {
			logLine = line
		}
	}

	require.NotEmpty(t, logLine)
	assert.False(t, strings.HasPrefix(logLine, "#"))
}

func TestLogStreamNotClosed(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "run.log")
	outPath := filepath.Join(dir, "out.txt")

	h := newHarness()
	run := h.mustStart(t, Config{}, "-L", logPath, "-S", outPath)
	require.NoError(t, run.Stop())

	_, err := io.WriteString(run.Options.Log, "# still open\n")
	assert.NoError(t, err)

	_, err = io.WriteString(run.Options.Stdout, "closed\n")
	assert.ErrorIs(t, err, os.ErrClosed)

	if c, ok := run.Options.Log.(io.Closer); ok {
		require.NoError(t, c.Close())
	}

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "# still open\n"))
	assert.Contains(t, string(data), "# job finished in ")
}

func TestCompressedLogReadableAfterStop(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "run.log.gz")

	h := newHarness()
	run := h.mustStart(t, Config{}, "-L", logPath)
	require.NoError(t, run.Stop())

	r, err := stream.OpenReader(logPath)
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Contains(t, string(data), "# job finished in ")

	_, err = io.WriteString(run.Options.Log, "# late line\n")
	require.NoError(t, err)
	if c, ok := run.Options.Log.(io.Closer); ok {
		require.NoError(t, c.Close())
	}

	r, err = stream.OpenReader(logPath)
	require.NoError(t, err)
	defer r.Close()

	data, err = io.ReadAll(r)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "# late line\n"))
}

func TestLogStreamSharedWithStdoutStaysUsable(t *testing.T) {
	h := newHarness()
	run := h.mustStart(t, Config{})
	require.NoError(t, run.Stop())

	_, err := io.WriteString(run.Options.Log, "after\n")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(h.stdout.String(), "after\n"))
}

func TestCompressedStdoutRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.tsv.gz")
	payload := "a\tb\nc\td\n"

	h := newHarness()
	run := h.mustStart(t, Config{}, "--stdout", path)
	_, err := io.WriteString(run.Options.Stdout, payload)
	require.NoError(t, err)
	require.NoError(t, run.Stop())

	r, err := stream.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, payload, string(data))

	// The log still goes to the process stdout, uncommented.
	assert.Contains(t, h.stdout.String(), "# output generated by prog")
}

func TestStdinRedirect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.txt.gz")

	w, err := stream.OpenWriter(path, stream.Write, false)
	require.NoError(t, err)
	_, err = io.WriteString(w, "line\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	h := newHarness()
	run := h.mustStart(t, Config{}, "-I", path)
	data, err := io.ReadAll(run.Options.Stdin)
	require.NoError(t, err)
	require.NoError(t, run.Stop())

	assert.Equal(t, "line\n", string(data))
}

func TestMissingStdinIsStartupError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.txt")

	h := newHarness()
	_, err := h.start(t, Config{}, "--stdin", path)

	var serr *StartupError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "stdin", serr.Option)
	assert.Equal(t, path, serr.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, h.stdout.String())
}

func TestUsageErrorAndHelp(t *testing.T) {
	h := newHarness()
	_, err := h.start(t, Config{}, "--bogus")

	var uerr *options.UsageError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, 2, uerr.ExitCode())

	h = newHarness()
	_, err = h.start(t, Config{}, "-?")
	assert.True(t, options.Exited(err))
	assert.Contains(t, h.usage.String(), "Script timing options:")
	assert.Contains(t, h.usage.String(), "--timeit-file=FILE")
	assert.NotContains(t, h.usage.String(), "Usage:")
}

func TestNoPipeOptions(t *testing.T) {
	h := newHarness()
	run := h.mustStart(t, Config{NoPipeOptions: true})
	require.NoError(t, run.Stop())

	assert.False(t, run.Options.Values.Has("stdin"))
	assert.False(t, run.Options.Values.Has("log2stderr"))
	assert.Contains(t, h.stdout.String(), "# job finished in ")
}

func TestRandomSeedIsReproducible(t *testing.T) {
	draw := func() []int64 {
		h := newHarness()
		run := h.mustStart(t, Config{Quiet: true}, "--random-seed=42")
		defer run.Stop()

		require.NotNil(t, run.Options.RandomSeed)
		assert.Equal(t, int64(42), *run.Options.RandomSeed)

		return []int64{run.Rand.Int64(), run.Rand.Int64(), run.Rand.Int64()}
	}

	assert.Equal(t, draw(), draw())
}

func TestTimeitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timing.tsv")

	for range 2 {
		h := newHarness()
		run := h.mustStart(t, Config{Quiet: true},
			"--timeit-file", path, "--timeit-name", "nightly", "--timeit-header")
		require.NoError(t, run.Stop())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "name\twall\tuser\tsys\tcuser\tcsys\t"))

	records, err := benchmark.ReadRecords(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, records, 2)

	cwd, err := os.Getwd()
	require.NoError(t, err)

	rec := records[0]
	assert.Equal(t, "nightly", rec.Name)
	assert.Equal(t, "prog", rec.Command)
	assert.Equal(t, cwd, rec.Path)
	assert.NotEmpty(t, rec.Host)
}

func TestTimeitCommandOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timing.tsv.gz")

	h := newHarness()
	run := h.mustStart(t, Config{Quiet: true, Command: "sort 'in.txt'"}, "--timeit-file", path)
	require.NoError(t, run.Stop())

	r, err := stream.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	records, err := benchmark.ReadRecords(r)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "all", records[0].Name)
	assert.Equal(t, "sort 'in.txt'", records[0].Command)
}

func TestStopTwice(t *testing.T) {
	h := newHarness()
	run := h.mustStart(t, Config{})
	require.NoError(t, run.Stop())

	before := h.stdout.String()
	require.NoError(t, run.Stop())
	assert.Equal(t, before, h.stdout.String())
}

func TestEnvironmentDefaults(t *testing.T) {
	t.Setenv("REPRUNEXP_TIMEIT_NAME", "from-env")
	t.Setenv("REPRUNEXP_METHOD", "a,b")

	h := newHarness()
	h.parser.Strings("method", "", nil, "methods")
	run := h.mustStart(t, Config{Quiet: true, EnvPrefix: "REPRUNEXP"})
	defer run.Stop()

	assert.Equal(t, "from-env", run.Options.TimeitName)
	assert.Equal(t, []string{"a", "b"}, run.Options.Values.Strings("method"))

	h = newHarness()
	run = h.mustStart(t, Config{Quiet: true, EnvPrefix: "REPRUNEXP"}, "--timeit-name=cli")
	defer run.Stop()

	assert.Equal(t, "cli", run.Options.TimeitName)
}

func TestEnvironmentDefaultReplacesListDefault(t *testing.T) {
	t.Setenv("REPRUNEXP_METHOD", "a")

	h := newHarness()
	h.parser.Strings("method", "", []string{"x"}, "methods")
	run := h.mustStart(t, Config{Quiet: true, EnvPrefix: "REPRUNEXP"})
	defer run.Stop()

	assert.Equal(t, []string{"a"}, run.Options.Values.Strings("method"))
}

func TestOpenOutput(t *testing.T) {
	dir := t.TempDir()
	pattern := filepath.Join(dir, "out", "sample_%s.tsv")

	h := newHarness()
	run := h.mustStart(t, Config{Quiet: true, OutputOptions: true}, "-P", pattern)
	defer run.Stop()

	w, err := run.OpenOutput("stats")
	require.NoError(t, err)
	_, err = io.WriteString(w, "n\t1\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(filepath.Join(dir, "out", "sample_stats.tsv"))
	require.NoError(t, err)
	assert.Equal(t, "n\t1\n", string(data))

	_, err = run.OpenOutput("stats")
	assert.ErrorIs(t, err, stream.ErrExists)
}

func TestOpenOutputForced(t *testing.T) {
	pattern := filepath.Join(t.TempDir(), "%s.txt")
	require.NoError(t, os.WriteFile(fmt.Sprintf(pattern, "stats"), []byte("old"), 0o644))

	h := newHarness()
	run := h.mustStart(t, Config{Quiet: true, OutputOptions: true}, "-P", pattern, "-F")
	defer run.Stop()

	w, err := run.OpenOutput("stats")
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func TestOpenOutputDisabled(t *testing.T) {
	h := newHarness()
	run := h.mustStart(t, Config{Quiet: true})
	defer run.Stop()

	_, err := run.OpenOutput("stats")
	assert.True(t, errors.Is(err, ErrNoOutputPattern))
}

func TestBadOutputPattern(t *testing.T) {
	h := newHarness()
	_, err := h.start(t, Config{OutputOptions: true}, "-P", "%s_%s")

	var serr *StartupError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "output-filename-pattern", serr.Option)
}
