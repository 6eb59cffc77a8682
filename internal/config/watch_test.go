package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"glb-merger/internal/domain"
)

// TestWatcherReportsSettingsEdits checks saves from another store trigger
// the callback while unrelated files do not.
func TestWatcherReportsSettingsEdits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.toml")
	changed := make(chan struct{}, 4)

	w, err := NewWatcher(path, func() { changed <- struct{}{} }, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write other: %v", err)
	}
	select {
	case <-changed:
		t.Fatal("unrelated file should not trigger a reload")
	case <-time.After(150 * time.Millisecond):
	}

	if err := NewTOMLStore(path).Save(domain.Settings{WorkDir: "/w"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("expected change notification")
	}
}
