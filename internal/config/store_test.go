package config

import (
	"os"
	"path/filepath"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"

	"glb-merger/internal/domain"
)

// TestDefaultSettings verifies baseline defaults are present.
func TestDefaultSettings(t *testing.T) {
	cfg := DefaultSettings()
	if cfg.LogLevel != "info" {
		t.Fatalf("log level = %q, want info", cfg.LogLevel)
	}
	if !strings.HasSuffix(cfg.HistoryPath, "history.db") {
		t.Fatalf("history path = %q, want history.db", cfg.HistoryPath)
	}
	if cfg.WorkDir != "" {
		t.Fatalf("work dir = %q, want empty (process cwd)", cfg.WorkDir)
	}
}

// TestTOMLStoreLoadMissingReturnsDefaults checks first-run behavior.
func TestTOMLStoreLoadMissingReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "settings.toml")
	store := NewTOMLStore(path)

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.LogLevel != "info" {
		t.Fatalf("log level = %q, want info", got.LogLevel)
	}
}

// TestTOMLStoreSaveAndLoadRoundTrip checks persisted settings fidelity.
func TestTOMLStoreSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "settings.toml")
	store := NewTOMLStore(path)
	want := domain.Settings{
		WorkDir:       "/work",
		LastOutputDir: "/out",
		ToolPath:      "/opt/bin/gltf-transform",
		LogLevel:      "debug",
		HistoryPath:   "/tmp/history.db",
		Prefs:         map[string]string{"theme": "dark"},
	}

	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("settings = %+v, want %+v", got, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "work_dir") {
		t.Fatalf("expected snake_case TOML keys, got:\n%s", data)
	}
}

// TestTOMLStoreUpdate checks read-modify-write under the lock.
func TestTOMLStoreUpdate(t *testing.T) {
	store := NewTOMLStore(filepath.Join(t.TempDir(), "settings.toml"))

	if _, err := store.Update(func(s *domain.Settings) { s.WorkDir = "/a" }); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got, err := store.Update(func(s *domain.Settings) { _ = SetPref(s, "theme", "light") })
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.WorkDir != "/a" || got.Prefs["theme"] != "light" {
		t.Fatalf("settings = %+v", got)
	}
}

// TestTOMLStoreConcurrentUpdatesKeepEveryKey checks goroutines sharing one
// store never lose each other's writes.
func TestTOMLStoreConcurrentUpdatesKeepEveryKey(t *testing.T) {
	dir := t.TempDir()
	store := NewTOMLStore(filepath.Join(dir, "settings.toml"))
	const writers = 40

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i)
			if _, err := store.Update(func(s *domain.Settings) { _ = SetPref(s, key, "v") }); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Update() error = %v", err)
	}

	got, err := NewTOMLStore(store.Path()).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got.Prefs) != writers {
		t.Fatalf("persisted %d prefs, want %d", len(got.Prefs), writers)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "settings-") {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}

// TestTOMLStoreLoadInvalidTOML checks parse error handling.
func TestTOMLStoreLoadInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "settings.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("work_dir = [not toml"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	store := NewTOMLStore(path)
	if _, err := store.Load(); err == nil {
		t.Fatal("expected toml parse error")
	}
}
