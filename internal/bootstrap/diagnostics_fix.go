package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"time"

	"glb-merger/internal/config"
	"glb-merger/internal/domain"
	"glb-merger/internal/gltf"
)

const (
	gltfTransformPackage  = "@gltf-transform/cli"
	installCommandTimeout = 15 * time.Minute
)

type installOption struct {
	manager  string
	commands [][]string
}

// InstallOrFixDiagnostic applies a remediation for one failed diagnostic item.
func (a *App) InstallOrFixDiagnostic(itemID string) (domain.DiagnosticReport, error) {
	if a.Store == nil {
		return domain.DiagnosticReport{}, fmt.Errorf("settings store is not configured")
	}

	id := strings.TrimSpace(itemID)
	if id == "" {
		return domain.DiagnosticReport{}, fmt.Errorf("diagnostic item id is required")
	}

	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}
	settings = normalizeSettings(settings)

	settingsChanged := false
	var fixErr error

	switch id {
	case domain.DiagnosticTool:
		fixErr = installGLTFTransform()
	case domain.DiagnosticWorkDir:
		settings, settingsChanged = fixWorkDir(settings)
	case domain.DiagnosticOutputDir:
		fixErr = fixOutputDir(settings)
	default:
		return domain.DiagnosticReport{}, fmt.Errorf("unsupported diagnostic item id: %s", id)
	}

	if settingsChanged {
		if saveErr := a.Store.Save(settings); saveErr != nil {
			report := a.refreshDiagnosticsFromSettings(settings)
			return report, fmt.Errorf("save settings after fix: %w", saveErr)
		}
	}

	report := a.refreshDiagnosticsFromSettings(settings)
	if fixErr != nil {
		return report, fixErr
	}
	return report, nil
}

func (a *App) refreshDiagnosticsFromSettings(settings domain.Settings) domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Settings = settings
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(settings)
	}
	return a.Diagnostics
}

// fixWorkDir drops a working folder that no longer resolves.
func fixWorkDir(settings domain.Settings) (domain.Settings, bool) {
	if settings.WorkDir == "" {
		return settings, false
	}
	if _, err := config.ResolveWorkDir(settings.WorkDir); err == nil {
		return settings, false
	}
	settings.WorkDir = ""
	return settings, true
}

func fixOutputDir(settings domain.Settings) error {
	outputDir := strings.TrimSpace(settings.LastOutputDir)
	if outputDir == "" {
		return fmt.Errorf("no output directory has been chosen yet")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", outputDir, err)
	}
	return nil
}

func ensureLocalBinOnPATH(homeDir string) error {
	binDir := localBinDir(homeDir)
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return err
	}

	current := os.Getenv("PATH")
	entries := filepath.SplitList(current)
	for _, entry := range entries {
		if filepath.Clean(entry) == filepath.Clean(binDir) {
			return nil
		}
	}

	if current == "" {
		return os.Setenv("PATH", binDir)
	}
	return os.Setenv("PATH", binDir+string(os.PathListSeparator)+current)
}

// localToolsDir is the npm prefix for user-local CLI installs.
func localToolsDir(homeDir string) string {
	return filepath.Join(homeDir, config.AppDirName, "tools")
}

// localBinDir is where npm places executables for localToolsDir. npm puts
// them directly in the prefix on Windows.
func localBinDir(homeDir string) string {
	if goruntime.GOOS == "windows" {
		return localToolsDir(homeDir)
	}
	return filepath.Join(localToolsDir(homeDir), "bin")
}

// installOptions lists installs to try in order: a user-local npm prefix
// first, then global installs that may need elevation.
func installOptions(homeDir string) []installOption {
	return []installOption{
		{
			manager: "npm",
			commands: [][]string{
				{"npm", "install", "--global", "--prefix", localToolsDir(homeDir), gltfTransformPackage},
			},
		},
		{
			manager: "npm",
			commands: [][]string{
				{"npm", "install", "--global", gltfTransformPackage},
			},
		},
		{
			manager: "pnpm",
			commands: [][]string{
				{"pnpm", "add", "--global", gltfTransformPackage},
			},
		},
		{
			manager: "yarn",
			commands: [][]string{
				{"yarn", "global", "add", gltfTransformPackage},
			},
		},
	}
}

func installGLTFTransform() error {
	if err := requireToolsOnPath(gltf.ToolName); err == nil {
		return nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve user home: %w", err)
	}
	if err := ensureLocalBinOnPATH(homeDir); err != nil {
		return fmt.Errorf("prepare local tool path: %w", err)
	}

	if err := runFirstSuccessfulInstall(installOptions(homeDir)); err != nil {
		return fmt.Errorf("install %s: %w", gltfTransformPackage, err)
	}
	if err := requireToolsOnPath(gltf.ToolName); err != nil {
		return fmt.Errorf("verify %s on PATH: %w", gltf.ToolName, err)
	}
	return nil
}

func runFirstSuccessfulInstall(options []installOption) error {
	if len(options) == 0 {
		return fmt.Errorf("no install commands configured for OS %s", goruntime.GOOS)
	}

	errorsByManager := make([]string, 0, len(options))
	atLeastOneManager := false

	for _, option := range options {
		if !commandAvailable(option.manager) {
			continue
		}
		atLeastOneManager = true
		err := runInstallCommands(option.commands)
		if err == nil {
			return nil
		}
		errorsByManager = append(errorsByManager, fmt.Sprintf("%s: %v", option.manager, err))
	}

	if !atLeastOneManager {
		return fmt.Errorf("no Node.js package manager (npm, pnpm, yarn) found on PATH")
	}
	return errors.New(strings.Join(errorsByManager, " | "))
}

func runInstallCommands(commands [][]string) error {
	for _, command := range commands {
		if err := runCommandWithPossibleElevation(command); err != nil {
			return err
		}
	}
	return nil
}

func runCommandWithPossibleElevation(command []string) error {
	if len(command) == 0 {
		return fmt.Errorf("empty command")
	}

	candidates := [][]string{command}
	if goruntime.GOOS == "linux" && requiresElevation(command) {
		if commandAvailable("pkexec") {
			candidates = append(candidates, append([]string{"pkexec"}, command...))
		}
		if commandAvailable("sudo") {
			candidates = append(candidates, append([]string{"sudo", "-n"}, command...))
		}
	}

	attemptErrors := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		err := runCommand(candidate[0], candidate[1:]...)
		if err == nil {
			return nil
		}
		attemptErrors = append(attemptErrors, err.Error())
	}

	return errors.New(strings.Join(attemptErrors, " | "))
}

func runCommand(name string, args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), installCommandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s timed out after %s", formatCommand(name, args), installCommandTimeout)
	}

	trimmed := strings.TrimSpace(string(output))
	if len(trimmed) > 500 {
		trimmed = trimmed[:500] + "..."
	}
	if trimmed == "" {
		return fmt.Errorf("%s failed: %w", formatCommand(name, args), err)
	}
	return fmt.Errorf("%s failed: %w (%s)", formatCommand(name, args), err, trimmed)
}

func formatCommand(name string, args []string) string {
	parts := append([]string{name}, args...)
	return strings.Join(parts, " ")
}

// requiresElevation reports whether command writes to a system-wide prefix.
func requiresElevation(command []string) bool {
	switch command[0] {
	case "npm", "pnpm", "yarn":
	default:
		return false
	}
	for _, arg := range command[1:] {
		if arg == "--prefix" {
			return false
		}
	}
	return true
}

func commandAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func requireToolsOnPath(names ...string) error {
	missing := make([]string, 0, len(names))
	for _, name := range names {
		if goruntime.GOOS == "windows" {
			name += ".cmd"
		}
		if _, err := exec.LookPath(name); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing tools on PATH: %s", strings.Join(missing, ", "))
	}
	return nil
}
