package harness

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWrapCommand(t *testing.T) {
	tests := []struct {
		path       string
		wantBinary string
		wantArgs   []string
	}{
		{"count.py", "python3", []string{"count.py"}},
		{"run.sh", "bash", []string{"run.sh"}},
		{"x.pl", "perl", []string{"x.pl"}},
		{"plot.R", "Rscript", []string{"plot.R"}},
		{"tool.jar", "java", []string{"-jar", "tool.jar"}},
		{"/usr/bin/sort", "/usr/bin/sort", nil},
	}

	for _, tt := range tests {
		got := WrapCommand(tt.path)
		if got.Binary != tt.wantBinary {
			t.Errorf("WrapCommand(%q).Binary = %q, want %q", tt.path, got.Binary, tt.wantBinary)
		}
		if strings.Join(got.ExtraArgs, " ") != strings.Join(tt.wantArgs, " ") {
			t.Errorf("WrapCommand(%q).ExtraArgs = %v, want %v", tt.path, got.ExtraArgs, tt.wantArgs)
		}
	}
}

func TestQuoteCommand(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{nil, ""},
		{[]string{"sort"}, "sort"},
		{[]string{"sort", "-k", "2"}, "sort '-k' '2'"},
	}

	for _, tt := range tests {
		if got := QuoteCommand(tt.args); got != tt.want {
			t.Errorf("QuoteCommand(%v) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestResolveBinary(t *testing.T) {
	if _, err := ResolveBinary("sh"); err != nil {
		t.Fatalf("ResolveBinary(sh) failed: %v", err)
	}

	if _, err := ResolveBinary("reprun-no-such-binary"); err == nil {
		t.Error("expected error for missing binary")
	}
}

func TestRunStreams(t *testing.T) {
	var stdout bytes.Buffer
	runner := NewRunner("cat", "cat", nil, nil, testLogger())

	result, err := runner.Run(context.Background(), RunConfig{
		Stdin:  strings.NewReader("hello\n"),
		Stdout: &stdout,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !result.Success() {
		t.Errorf("exit code = %d, want 0", result.ExitCode)
	}
	if stdout.String() != "hello\n" {
		t.Errorf("stdout = %q, want hello", stdout.String())
	}
	if result.PID <= 0 {
		t.Errorf("pid = %d, want positive", result.PID)
	}
}

func TestRunExitCode(t *testing.T) {
	runner := NewRunner("sh", "sh", []string{"-c"}, nil, testLogger())

	result, err := runner.Run(context.Background(), RunConfig{
		Args: []string{"exit 3"},
	})
	if err != nil {
		t.Fatalf("non-zero exit should not be an error: %v", err)
	}

	if result.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", result.ExitCode)
	}
	if result.Command != "sh '-c' 'exit 3'" {
		t.Errorf("command = %q", result.Command)
	}
}

func TestRunEnvAndDir(t *testing.T) {
	dir := t.TempDir()

	var stdout bytes.Buffer
	runner := NewRunner("sh", "sh", []string{"-c"}, []string{"REPRUN_TEST_VAR=42"}, testLogger())

	_, err := runner.Run(context.Background(), RunConfig{
		Args:   []string{`echo "$REPRUN_TEST_VAR"; pwd`},
		Stdout: &stdout,
		Dir:    dir,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 2 || lines[0] != "42" {
		t.Fatalf("unexpected output %q", stdout.String())
	}
	if !strings.HasSuffix(lines[1], dir[strings.LastIndex(dir, "/"):]) {
		t.Errorf("pwd = %q, want %q", lines[1], dir)
	}
}

func TestRunTimeout(t *testing.T) {
	runner := NewRunner("sleep", "sleep", nil, nil, testLogger())

	_, err := runner.Run(context.Background(), RunConfig{
		Args:    []string{"5"},
		Timeout: 50 * time.Millisecond,
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestRunMissingBinary(t *testing.T) {
	runner := NewRunner("missing", "reprun-no-such-binary", nil, nil, testLogger())

	if _, err := runner.Run(context.Background(), RunConfig{}); err == nil {
		t.Error("expected error for missing binary")
	}
}
