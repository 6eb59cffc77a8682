package diagnostics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"glb-merger/internal/domain"
)

func findItem(t *testing.T, report domain.DiagnosticReport, id string) domain.DiagnosticItem {
	t.Helper()
	for _, item := range report.Items {
		if item.ID == id {
			return item
		}
	}
	t.Fatalf("diagnostic %q missing from %+v", id, report.Items)
	return domain.DiagnosticItem{}
}

// TestCheckerRunAllPass validates happy-path diagnostics report.
func TestCheckerRunAllPass(t *testing.T) {
	root := t.TempDir()
	checker := NewCheckerForTests(
		func(string) (string, error) { return "/usr/local/bin/gltf-transform", nil },
		os.Stat,
		os.CreateTemp,
		os.Remove,
	)

	report := checker.Run(domain.Settings{WorkDir: root, LastOutputDir: root})

	if report.HasFailures {
		t.Fatalf("expected no failures, got %+v", report.Items)
	}
	for _, item := range report.Items {
		if item.Status != domain.DiagnosticStatusPass {
			t.Fatalf("expected pass for %s, got %+v", item.ID, item)
		}
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("write check left files behind: %v", entries)
	}
}

// TestCheckerRunMissingToolAndPaths validates failure reporting.
func TestCheckerRunMissingToolAndPaths(t *testing.T) {
	root := t.TempDir()
	checker := NewCheckerForTests(
		func(string) (string, error) { return "", errors.New("glTF-Transform CLI binary not found in node_modules or PATH") },
		os.Stat,
		os.CreateTemp,
		os.Remove,
	)

	report := checker.Run(domain.Settings{
		WorkDir:       filepath.Join(root, "missing-work"),
		LastOutputDir: filepath.Join(root, "missing-out"),
	})

	if !report.HasFailures {
		t.Fatal("expected failures")
	}
	tool := findItem(t, report, domain.DiagnosticTool)
	if tool.Status != domain.DiagnosticStatusFail || !tool.Fixable || !strings.Contains(tool.Hint, "@gltf-transform/cli") {
		t.Fatalf("tool item = %+v", tool)
	}
	work := findItem(t, report, domain.DiagnosticWorkDir)
	if work.Status != domain.DiagnosticStatusFail || !work.Fixable {
		t.Fatalf("work dir item = %+v", work)
	}
	out := findItem(t, report, domain.DiagnosticOutputDir)
	if out.Status != domain.DiagnosticStatusWarn || !out.Fixable {
		t.Fatalf("output dir item = %+v", out)
	}
}

// TestCheckerConfiguredToolIsNotFixable keeps installs away from explicit paths.
func TestCheckerConfiguredToolIsNotFixable(t *testing.T) {
	checker := NewCheckerForTests(
		func(string) (string, error) { return "", errors.New("glTF-Transform CLI binary not found at /opt/x") },
		os.Stat,
		os.CreateTemp,
		os.Remove,
	)

	report := checker.Run(domain.Settings{ToolPath: "/opt/x"})
	tool := findItem(t, report, domain.DiagnosticTool)
	if tool.Fixable {
		t.Fatalf("configured tool path should not offer an install: %+v", tool)
	}
	work := findItem(t, report, domain.DiagnosticWorkDir)
	if work.Status != domain.DiagnosticStatusPass {
		t.Fatalf("empty work dir should pass: %+v", work)
	}
	out := findItem(t, report, domain.DiagnosticOutputDir)
	if out.Status != domain.DiagnosticStatusWarn || out.Fixable {
		t.Fatalf("unset output dir should warn without fix: %+v", out)
	}
}

// TestCheckerWorkDirIsFile validates the not-a-directory branch.
func TestCheckerWorkDirIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "work.txt")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	checker := NewCheckerForTests(
		func(string) (string, error) { return "/bin/gltf-transform", nil },
		os.Stat,
		os.CreateTemp,
		os.Remove,
	)

	item := checker.checkWorkDir(file)
	if item.Status != domain.DiagnosticStatusFail || !strings.Contains(item.Message, "not a directory") {
		t.Fatalf("item = %+v", item)
	}
}
