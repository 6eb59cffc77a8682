package gltf

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
)

// ToolName is the gltf-transform CLI executable name on PATH.
const ToolName = "gltf-transform"

// ToolResolver returns the executable used for every invocation of a job.
type ToolResolver func() (string, error)

// ToolLocator finds the gltf-transform binary.
type ToolLocator struct {
	lookPath func(string) (string, error)
	stat     func(string) (os.FileInfo, error)
	goos     string
}

// NewToolLocator builds a locator using real OS dependencies.
func NewToolLocator() *ToolLocator {
	return &ToolLocator{lookPath: exec.LookPath, stat: os.Stat, goos: goruntime.GOOS}
}

// Locate prefers an explicit path, then a node_modules install under
// appDir, then PATH.
func (l *ToolLocator) Locate(configured, appDir string) (string, error) {
	if path := strings.TrimSpace(configured); path != "" {
		info, err := l.stat(path)
		if err != nil {
			return "", fmt.Errorf("glTF-Transform CLI binary not found at %s", path)
		}
		if info.IsDir() {
			return "", fmt.Errorf("glTF-Transform CLI path is a directory: %s", path)
		}
		return path, nil
	}

	binName := ToolName
	if l.goos == "windows" {
		binName += ".cmd"
	}
	if appDir != "" {
		local := filepath.Join(appDir, "node_modules", ".bin", binName)
		if info, err := l.stat(local); err == nil && !info.IsDir() {
			return local, nil
		}
	}

	path, err := l.lookPath(binName)
	if err != nil {
		return "", fmt.Errorf("glTF-Transform CLI binary not found in node_modules or PATH: %w", err)
	}
	return path, nil
}

// Resolver binds configuration to a ToolResolver evaluated per job.
func (l *ToolLocator) Resolver(configured func() string, appDir string) ToolResolver {
	return func() (string, error) {
		path := ""
		if configured != nil {
			path = configured()
		}
		return l.Locate(path, appDir)
	}
}

// StaticTool resolves to a fixed executable path.
func StaticTool(path string) ToolResolver {
	return func() (string, error) { return path, nil }
}

// NewToolLocatorForTests creates a locator with injectable dependencies.
func NewToolLocatorForTests(
	lookPath func(string) (string, error),
	stat func(string) (os.FileInfo, error),
	goos string,
) *ToolLocator {
	return &ToolLocator{lookPath: lookPath, stat: stat, goos: goos}
}
