package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"

	"glb-merger/internal/domain"
)

// Store defines persistence operations for app settings.
type Store interface {
	Load() (domain.Settings, error)
	Save(domain.Settings) error
	Update(func(*domain.Settings)) (domain.Settings, error)
}

// TOMLStore persists settings in a single TOML file on disk. A sibling
// .lock file serializes access between the desktop app and the CLI; mu
// serializes goroutines sharing one store, since a held flock is re-entrant.
type TOMLStore struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

// NewTOMLStore creates a TOML-backed settings store.
func NewTOMLStore(path string) *TOMLStore {
	return &TOMLStore{path: path, lock: flock.New(path + ".lock")}
}

// Path returns the settings file location.
func (s *TOMLStore) Path() string {
	return s.path
}

// Load reads settings from disk or returns defaults when missing.
func (s *TOMLStore) Load() (domain.Settings, error) {
	if err := s.ensureDir(); err != nil {
		return domain.Settings{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.RLock(); err != nil {
		return domain.Settings{}, fmt.Errorf("lock settings: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	return s.read()
}

// Save writes settings atomically and creates parent directories.
func (s *TOMLStore) Save(cfg domain.Settings) error {
	if err := s.ensureDir(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock settings: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	return s.write(cfg)
}

// Update applies fn to the stored settings under an exclusive lock.
func (s *TOMLStore) Update(fn func(*domain.Settings)) (domain.Settings, error) {
	if err := s.ensureDir(); err != nil {
		return domain.Settings{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.Lock(); err != nil {
		return domain.Settings{}, fmt.Errorf("lock settings: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	cfg, err := s.read()
	if err != nil {
		return domain.Settings{}, err
	}
	fn(&cfg)
	if err := s.write(cfg); err != nil {
		return domain.Settings{}, err
	}
	return cfg, nil
}

func (s *TOMLStore) ensureDir() error {
	return os.MkdirAll(filepath.Dir(s.path), 0o755)
}

func (s *TOMLStore) read() (domain.Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultSettings(), nil
		}
		return domain.Settings{}, err
	}

	cfg := DefaultSettings()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return domain.Settings{}, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return cfg, nil
}

func (s *TOMLStore) write(cfg domain.Settings) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(filepath.Dir(s.path), "settings-*.toml")
	if err != nil {
		return err
	}
	tmp := f.Name()
	_, err = f.Write(data)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmp, 0o644)
	}
	if err == nil {
		err = os.Rename(tmp, s.path)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
