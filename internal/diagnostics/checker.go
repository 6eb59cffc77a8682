package diagnostics

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"glb-merger/internal/domain"
	"glb-merger/internal/gltf"
)

// Checker validates the glTF-Transform CLI and the folders a merge uses.
type Checker struct {
	locate     func(configured string) (string, error)
	stat       func(string) (os.FileInfo, error)
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies. appDir is where a
// local node_modules install of the CLI is looked up.
func NewChecker(appDir string) *Checker {
	locator := gltf.NewToolLocator()
	return &Checker{
		locate:     func(configured string) (string, error) { return locator.Locate(configured, appDir) },
		stat:       os.Stat,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkTool(settings.ToolPath),
		c.checkWorkDir(settings.WorkDir),
		c.checkOutputDir(settings.LastOutputDir),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkTool verifies the gltf-transform executable can be resolved.
func (c *Checker) checkTool(configured string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   domain.DiagnosticTool,
		Name: gltf.ToolName,
	}

	path, err := c.locate(configured)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = err.Error()
		if strings.TrimSpace(configured) != "" {
			item.Hint = "Fix the configured toolPath or clear it to search node_modules and PATH."
			return item
		}
		item.Hint = "Install @gltf-transform/cli (npm install -g @gltf-transform/cli) before starting a merge."
		item.Fixable = true
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Found at %s", path)
	return item
}

// checkWorkDir validates the configured working folder, if any.
func (c *Checker) checkWorkDir(workDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   domain.DiagnosticWorkDir,
		Name: "Working folder",
	}

	if strings.TrimSpace(workDir) == "" {
		item.Status = domain.DiagnosticStatusPass
		item.Message = "No working folder configured; merges run in the app's current directory."
		return item
	}

	info, err := c.stat(workDir)
	switch {
	case err != nil:
		item.Status = domain.DiagnosticStatusFail
		if IsNotExist(err) {
			item.Message = fmt.Sprintf("Working folder does not exist: %s", workDir)
		} else {
			item.Message = fmt.Sprintf("Cannot access working folder: %s", workDir)
		}
		item.Hint = "Pick another working folder or clear the setting."
		item.Fixable = true
	case !info.IsDir():
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Working folder is not a directory: %s", workDir)
		item.Hint = "Pick another working folder or clear the setting."
		item.Fixable = true
	default:
		item.Status = domain.DiagnosticStatusPass
		item.Message = fmt.Sprintf("Using %s", workDir)
	}
	return item
}

// checkOutputDir validates the last used output directory for write access.
func (c *Checker) checkOutputDir(outputDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   domain.DiagnosticOutputDir,
		Name: "Output directory",
	}

	if strings.TrimSpace(outputDir) == "" {
		item.Status = domain.DiagnosticStatusWarn
		item.Message = "No output directory chosen yet."
		item.Hint = "Each job needs an output directory before it can run."
		return item
	}

	info, err := c.stat(outputDir)
	if err != nil {
		item.Status = domain.DiagnosticStatusWarn
		item.Message = fmt.Sprintf("Last output directory does not exist: %s", outputDir)
		item.Hint = "Jobs pointing here will fail until the directory is created."
		item.Fixable = IsNotExist(err)
		return item
	}
	if !info.IsDir() {
		item.Status = domain.DiagnosticStatusWarn
		item.Message = fmt.Sprintf("Last output directory is not a directory: %s", outputDir)
		return item
	}

	tmpFile, err := c.createTemp(outputDir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Output directory is not writable: %s", outputDir)
		item.Hint = "Choose a writable directory for merged files."
		return item
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", outputDir)
	return item
}

// NewCheckerForTests creates checker with injectable dependencies.
func NewCheckerForTests(
	locate func(string) (string, error),
	stat func(string) (os.FileInfo, error),
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		locate:     locate,
		stat:       stat,
		createTemp: createTemp,
		remove:     remove,
	}
}

// IsNotExist reports whether error represents file-not-found.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
