package config

import (
	"fmt"
	"os"
	"strings"
)

// ResolveWorkDir returns the configured working folder, or the process's
// current directory when none is configured.
func ResolveWorkDir(configured string) (string, error) {
	dir := strings.TrimSpace(configured)
	if dir == "" {
		return os.Getwd()
	}

	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("configured working folder is not accessible: %s: %w", dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("configured working folder is not a directory: %s", dir)
	}
	return dir, nil
}
