package gltf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"testing"

	"glb-merger/internal/domain"
)

type logLine struct {
	kind domain.LogType
	text string
}

type logRecorder struct {
	lines []logLine
}

func (r *logRecorder) record(kind domain.LogType, text string) {
	r.lines = append(r.lines, logLine{kind: kind, text: text})
}

func (r *logRecorder) texts(kind domain.LogType) []string {
	var out []string
	for _, line := range r.lines {
		if line.kind == kind {
			out = append(out, line.text)
		}
	}
	return out
}

// writeScript creates an executable shell script that echoes to both
// streams and exits with the code given as its first argument.
func writeScript(t *testing.T) string {
	t.Helper()
	if goruntime.GOOS == "windows" {
		t.Skip("shell script fake tool requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "fake-tool.sh")
	script := "#!/bin/sh\necho \"out line 1\"\necho \"err line\" 1>&2\necho \"out line 2\"\npwd\nexit \"${1:-0}\"\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

// TestExecInvokerStreamsOutput checks announcement and per-stream tagging.
func TestExecInvokerStreamsOutput(t *testing.T) {
	script := writeScript(t)
	workDir := t.TempDir()
	rec := &logRecorder{}

	err := ExecInvoker{}.Invoke(context.Background(), Invocation{
		Executable: script,
		Args:       []string{"0"},
		WorkDir:    workDir,
		Message:    "Running fake tool...",
		OnLog:      rec.record,
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	if len(rec.lines) == 0 || rec.lines[0] != (logLine{domain.LogTypeInfo, "Running fake tool..."}) {
		t.Fatalf("first log = %+v, want announcement", rec.lines)
	}
	out := rec.texts(domain.LogTypeOut)
	if len(out) != 3 || out[0] != "out line 1" || out[1] != "out line 2" {
		t.Fatalf("stdout lines = %q", out)
	}
	resolved, _ := filepath.EvalSymlinks(workDir)
	if got, _ := filepath.EvalSymlinks(out[2]); got != resolved {
		t.Fatalf("process ran in %q, want %q", out[2], workDir)
	}
	if errLines := rec.texts(domain.LogTypeErr); len(errLines) != 1 || errLines[0] != "err line" {
		t.Fatalf("stderr lines = %q", errLines)
	}
}

// TestExecInvokerNonZeroExit checks synthesized exit-code errors.
func TestExecInvokerNonZeroExit(t *testing.T) {
	script := writeScript(t)
	rec := &logRecorder{}

	err := ExecInvoker{}.Invoke(context.Background(), Invocation{
		Executable: script,
		Args:       []string{"3"},
		OnLog:      rec.record,
	})

	var procErr *ProcessError
	if !errors.As(err, &procErr) {
		t.Fatalf("error = %v, want *ProcessError", err)
	}
	if procErr.ExitCode != 3 {
		t.Fatalf("exit code = %d, want 3", procErr.ExitCode)
	}
	errLines := rec.texts(domain.LogTypeErr)
	last := errLines[len(errLines)-1]
	if !strings.Contains(last, "exited with code 3") {
		t.Fatalf("last err log = %q, want exit code message", last)
	}
}

// TestExecInvokerSpawnFailure checks missing executables surface as errors.
func TestExecInvokerSpawnFailure(t *testing.T) {
	rec := &logRecorder{}
	missing := filepath.Join(t.TempDir(), "does-not-exist")

	err := ExecInvoker{}.Invoke(context.Background(), Invocation{
		Executable: missing,
		Message:    "announce",
		OnLog:      rec.record,
	})

	var procErr *ProcessError
	if !errors.As(err, &procErr) {
		t.Fatalf("error = %v, want *ProcessError", err)
	}
	if procErr.ExitCode != -1 {
		t.Fatalf("exit code = %d, want -1", procErr.ExitCode)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("error = %v, want wrapped not-exist", err)
	}
	if got := rec.texts(domain.LogTypeErr); len(got) != 1 {
		t.Fatalf("err logs = %q, want exactly one", got)
	}
	if got := rec.texts(domain.LogTypeInfo); len(got) != 1 || got[0] != "announce" {
		t.Fatalf("info logs = %q, want announcement before spawn", got)
	}
}
