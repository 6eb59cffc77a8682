package gltf

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestToolLocatorPrefersConfiguredPath(t *testing.T) {
	configured := filepath.Join(t.TempDir(), "gltf-transform")
	if err := os.WriteFile(configured, []byte("#!"), 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}
	locator := NewToolLocatorForTests(
		func(string) (string, error) { return "/usr/bin/gltf-transform", nil },
		os.Stat,
		"linux",
	)

	got, err := locator.Locate(configured, "")
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if got != configured {
		t.Fatalf("Locate() = %s, want %s", got, configured)
	}

	if _, err := locator.Locate(filepath.Join(t.TempDir(), "missing"), ""); err == nil {
		t.Fatal("expected error for missing configured path")
	}
}

func TestToolLocatorUsesNodeModulesBeforePath(t *testing.T) {
	appDir := t.TempDir()
	binDir := filepath.Join(appDir, "node_modules", ".bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	local := filepath.Join(binDir, "gltf-transform.cmd")
	if err := os.WriteFile(local, []byte("@echo off"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	locator := NewToolLocatorForTests(
		func(string) (string, error) { return "C:\\tools\\gltf-transform.cmd", nil },
		os.Stat,
		"windows",
	)
	got, err := locator.Locate("", appDir)
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if got != local {
		t.Fatalf("Locate() = %s, want %s", got, local)
	}
}

func TestToolLocatorFallsBackToPath(t *testing.T) {
	var looked string
	locator := NewToolLocatorForTests(
		func(name string) (string, error) {
			looked = name
			return "", errors.New("executable file not found in $PATH")
		},
		os.Stat,
		"linux",
	)

	_, err := locator.Locate("", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("Locate() error = %v, want not found", err)
	}
	if looked != ToolName {
		t.Fatalf("looked up %q, want %q", looked, ToolName)
	}
}
