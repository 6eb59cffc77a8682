package config

import (
	"fmt"
	"sort"
	"strings"

	"glb-merger/internal/domain"
)

// Preference keys backed by dedicated settings fields. Any other key lives
// in the free-form prefs table.
const (
	PrefWorkDir       = "workDir"
	PrefLastOutputDir = "lastOutputDir"
	PrefToolPath      = "toolPath"
	PrefLogLevel      = "logLevel"
	PrefHistoryPath   = "historyPath"
)

func fieldFor(settings *domain.Settings, key string) *string {
	switch key {
	case PrefWorkDir:
		return &settings.WorkDir
	case PrefLastOutputDir:
		return &settings.LastOutputDir
	case PrefToolPath:
		return &settings.ToolPath
	case PrefLogLevel:
		return &settings.LogLevel
	case PrefHistoryPath:
		return &settings.HistoryPath
	default:
		return nil
	}
}

// GetPref returns the value stored under key, or fallback when unset.
func GetPref(settings domain.Settings, key, fallback string) string {
	if field := fieldFor(&settings, key); field != nil {
		if *field == "" {
			return fallback
		}
		return *field
	}
	if value, ok := settings.Prefs[key]; ok {
		return value
	}
	return fallback
}

// SetPref stores value under key.
func SetPref(settings *domain.Settings, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("preference key is required")
	}
	if field := fieldFor(settings, key); field != nil {
		*field = strings.TrimSpace(value)
		return nil
	}
	if settings.Prefs == nil {
		settings.Prefs = map[string]string{}
	}
	settings.Prefs[key] = value
	return nil
}

// DeletePref clears key and reports whether it held a value.
func DeletePref(settings *domain.Settings, key string) bool {
	if field := fieldFor(settings, key); field != nil {
		had := *field != ""
		*field = ""
		return had
	}
	if _, ok := settings.Prefs[key]; !ok {
		return false
	}
	delete(settings.Prefs, key)
	return true
}

// PrefKeys lists every key with a value, sorted.
func PrefKeys(settings domain.Settings) []string {
	keys := make([]string, 0, len(settings.Prefs)+5)
	for _, key := range []string{PrefWorkDir, PrefLastOutputDir, PrefToolPath, PrefLogLevel, PrefHistoryPath} {
		if *fieldFor(&settings, key) != "" {
			keys = append(keys, key)
		}
	}
	for key := range settings.Prefs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
