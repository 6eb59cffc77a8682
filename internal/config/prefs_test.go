package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"glb-merger/internal/domain"
)

func TestPrefsMapKnownKeysToFields(t *testing.T) {
	var s domain.Settings
	if err := SetPref(&s, PrefWorkDir, " /work "); err != nil {
		t.Fatalf("SetPref: %v", err)
	}
	if err := SetPref(&s, "recentFiles", "a.glb"); err != nil {
		t.Fatalf("SetPref: %v", err)
	}

	if s.WorkDir != "/work" {
		t.Fatalf("WorkDir = %q, want /work", s.WorkDir)
	}
	if got := GetPref(s, "recentFiles", ""); got != "a.glb" {
		t.Fatalf("recentFiles = %q", got)
	}
	if got := GetPref(s, PrefLastOutputDir, "fallback"); got != "fallback" {
		t.Fatalf("lastOutputDir = %q, want fallback", got)
	}
	if keys := PrefKeys(s); !reflect.DeepEqual(keys, []string{"recentFiles", "workDir"}) {
		t.Fatalf("keys = %v", keys)
	}

	if !DeletePref(&s, PrefWorkDir) || DeletePref(&s, PrefWorkDir) {
		t.Fatal("DeletePref should report a held value exactly once")
	}
	if err := SetPref(&s, " ", "x"); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestResolveWorkDir(t *testing.T) {
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	got, err := ResolveWorkDir("  ")
	if err != nil || got != cwd {
		t.Fatalf("ResolveWorkDir(empty) = %q, %v; want %q", got, err, cwd)
	}

	dir := t.TempDir()
	if got, err := ResolveWorkDir(dir); err != nil || got != dir {
		t.Fatalf("ResolveWorkDir(dir) = %q, %v", got, err)
	}

	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ResolveWorkDir(file); err == nil || !strings.Contains(err.Error(), "not a directory") {
		t.Fatalf("ResolveWorkDir(file) error = %v", err)
	}
	if _, err := ResolveWorkDir(filepath.Join(dir, "missing")); err == nil || !strings.Contains(err.Error(), "not accessible") {
		t.Fatalf("ResolveWorkDir(missing) error = %v", err)
	}
}
