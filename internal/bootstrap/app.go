package bootstrap

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"glb-merger/internal/config"
	"glb-merger/internal/diagnostics"
	"glb-merger/internal/domain"
	"glb-merger/internal/gltf"
	"glb-merger/internal/history"
	"glb-merger/internal/jobs"
	"glb-merger/internal/logging"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// EventSettingsChanged is emitted after the settings file changed on disk.
const EventSettingsChanged = "settings-changed"

var glbDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "GLB files",
		Pattern:     "*.glb",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

// App wires configuration, the merge queue, and UI runtime callbacks.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Scheduler   *jobs.Scheduler
	Diagnostics domain.DiagnosticReport
	assets      fs.FS
	checker     *diagnostics.Checker
	history     historyReader
	logger      *slog.Logger

	settingsPath string
	watcher      *config.Watcher
	closeHistory func() error

	mu         sync.Mutex
	events     *jobs.EventBus
	runtimeCtx context.Context
}

// historyReader lists recorded merge jobs.
type historyReader interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// New builds the application with persisted settings and startup diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user home: %w", err)
	}
	if err := ensureLocalBinOnPATH(homeDir); err != nil {
		return nil, fmt.Errorf("prepare local tool path: %w", err)
	}

	settingsPath := config.SettingsPath()
	store := config.NewTOMLStore(settingsPath)
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	settings = normalizeSettings(settings)

	logger, err := logging.New(logging.Options{
		Level:       settings.LogLevel,
		OutputPaths: []string{"stderr", filepath.Join(config.HomeDir(), "logs", "glb-merger.log")},
	})
	if err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}

	appDir := executableDir()
	app := newApp(store, settings, nil, logger)
	app.assets = assets
	app.settingsPath = settingsPath
	app.checker = diagnostics.NewChecker(appDir)
	app.Diagnostics = app.checker.Run(settings)

	var recorder jobs.Recorder
	if hist, err := history.Open(settings.HistoryPath); err != nil {
		logger.Warn("merge history disabled", "path", settings.HistoryPath, "error", err)
	} else {
		app.history = hist
		app.closeHistory = hist.Close
		recorder = hist
	}

	runner := gltf.NewRunner(gltf.NewToolLocator().Resolver(app.toolPath, appDir), logger)
	app.Scheduler = app.newScheduler(runner, recorder)
	return app, nil
}

// newApp builds an App without a scheduler.
func newApp(store config.Store, settings domain.Settings, hist historyReader, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &App{
		Settings: settings,
		Store:    store,
		history:  hist,
		logger:   logger,
		events:   jobs.NewEventBus(1000),
	}
}

// newScheduler connects a job runner to this App's event stream and settings.
func (a *App) newScheduler(runner jobs.JobRunner, recorder jobs.Recorder) *jobs.Scheduler {
	return jobs.NewScheduler(jobs.SchedulerDeps{
		Runner:   runner,
		Sink:     jobs.SinkFunc(a.publishEvent),
		WorkDir:  a.resolveWorkDir,
		Recorder: recorder,
		Logger:   a.logger,
	})
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "GLB Animation Merger",
		Width:       980,
		Height:      720,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown:  a.Shutdown,
		Bind:        []interface{}{a},
	})
}

// Startup stores Wails runtime context for push events and starts watching
// the settings file.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	a.runtimeCtx = ctx
	a.mu.Unlock()

	if a.settingsPath == "" {
		return
	}
	watcher, err := config.NewWatcher(a.settingsPath, a.reloadSettings, a.logger)
	if err != nil {
		a.logger.Warn("settings watcher disabled", "error", err)
		return
	}
	a.mu.Lock()
	a.watcher = watcher
	a.mu.Unlock()
	go watcher.Run(ctx)
}

// Shutdown releases the runtime context, the watcher, and the history store.
func (a *App) Shutdown(context.Context) {
	a.mu.Lock()
	a.runtimeCtx = nil
	watcher := a.watcher
	a.watcher = nil
	a.mu.Unlock()

	if watcher != nil {
		_ = watcher.Close()
	}
	if a.closeHistory != nil {
		if err := a.closeHistory(); err != nil {
			a.logger.Warn("close history", "error", err)
		}
	}
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Diagnostics
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, then refreshes diagnostics.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := normalizeSettings(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.refreshDiagnosticsFromSettings(normalized)
	return normalized, nil
}

// GetPref returns one stored preference, or an empty string when unset.
func (a *App) GetPref(key string) (string, error) {
	settings, err := a.GetSettings()
	if err != nil {
		return "", err
	}
	return config.GetPref(settings, key, ""), nil
}

// SetPref stores one preference.
func (a *App) SetPref(key, value string) error {
	var setErr error
	settings, err := a.Store.Update(func(s *domain.Settings) {
		setErr = config.SetPref(s, key, value)
	})
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	if setErr != nil {
		return setErr
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()
	return nil
}

// PickFiles opens a native multi-select dialog for GLB inputs.
func (a *App) PickFiles() ([]string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return nil, err
	}

	paths, err := wailsruntime.OpenMultipleFilesDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select GLB files",
		Filters: glbDialogFilter,
	})
	if err != nil {
		return nil, err
	}

	cleaned := make([]string, 0, len(paths))
	for _, path := range paths {
		if trimmed := strings.TrimSpace(path); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned, nil
}

// PickOutputDir opens a directory picker starting at the last used output
// directory and remembers the choice.
func (a *App) PickOutputDir() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	a.mu.Lock()
	lastDir := a.Settings.LastOutputDir
	a.mu.Unlock()

	path, err := wailsruntime.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:            "Select output directory",
		DefaultDirectory: lastDir,
	})
	if err != nil {
		return "", err
	}

	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if err := a.SetPref(config.PrefLastOutputDir, path); err != nil {
		return "", err
	}
	return path, nil
}

// PickWorkDir opens a directory picker for the working folder every tool
// invocation runs in, and stores the choice.
func (a *App) PickWorkDir() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	a.mu.Lock()
	current := a.Settings.WorkDir
	a.mu.Unlock()

	path, err := wailsruntime.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:            "Select working folder",
		DefaultDirectory: current,
	})
	if err != nil {
		return "", err
	}

	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if err := a.SetPref(config.PrefWorkDir, path); err != nil {
		return "", err
	}
	return path, nil
}

// ClearWorkDir reverts to running tools in the app's current directory.
func (a *App) ClearWorkDir() error {
	settings, err := a.Store.Update(func(s *domain.Settings) {
		config.DeletePref(s, config.PrefWorkDir)
	})
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	a.refreshDiagnosticsFromSettings(settings)
	return nil
}

// StartMerge runs a batch and returns when every job has finished.
// Progress arrives as merge-log and merge-status events.
func (a *App) StartMerge(batch []domain.JobDescriptor) (jobs.Result, error) {
	if a.Scheduler == nil {
		return jobs.Result{}, fmt.Errorf("merge queue is not configured")
	}
	if _, err := a.GetSettings(); err != nil {
		return jobs.Result{}, err
	}
	return a.Scheduler.Submit(context.Background(), batch)
}

// IsMerging reports whether a batch is running.
func (a *App) IsMerging() bool {
	return a.Scheduler != nil && a.Scheduler.IsMerging()
}

// CurrentJobs returns the status table of the current or last batch.
func (a *App) CurrentJobs() []domain.Job {
	if a.Scheduler == nil {
		return nil
	}
	return a.Scheduler.Jobs()
}

// MergeEvents returns all events with sequence greater than sinceSeq.
func (a *App) MergeEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// RecentJobs lists recorded jobs, newest batch first.
func (a *App) RecentJobs(limit int) ([]history.Entry, error) {
	if a.history == nil {
		return nil, fmt.Errorf("merge history is not available")
	}
	return a.history.Recent(context.Background(), limit)
}

// OpenOutputFolder opens the given path (or last output dir) in file manager.
func (a *App) OpenOutputFolder(path string) error {
	target := strings.TrimSpace(path)
	if target == "" {
		a.mu.Lock()
		target = a.Settings.LastOutputDir
		a.mu.Unlock()
	}
	if target == "" {
		return fmt.Errorf("output path is empty")
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	openPath := target
	if !info.IsDir() {
		openPath = filepath.Dir(target)
	}

	return openInFileManager(openPath)
}

// RefreshDiagnostics reloads settings and reruns dependency checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}
	return a.refreshDiagnosticsFromSettings(settings), nil
}

// reloadSettings picks up edits made outside the app, such as by the CLI.
func (a *App) reloadSettings() {
	settings, err := a.Store.Load()
	if err != nil {
		a.logger.Warn("reload settings", "error", err)
		return
	}
	a.refreshDiagnosticsFromSettings(settings)
	a.logger.Debug("settings reloaded")

	if ctx, err := a.runtimeContext(); err == nil {
		wailsruntime.EventsEmit(ctx, EventSettingsChanged, settings)
	}
}

// publishEvent stores event history and emits runtime push notifications.
func (a *App) publishEvent(event jobs.Event) jobs.Event {
	published := a.events.Publish(event)

	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, string(published.Kind), published)
	}
	return published
}

func (a *App) toolPath() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Settings.ToolPath
}

func (a *App) resolveWorkDir() (string, error) {
	a.mu.Lock()
	dir := a.Settings.WorkDir
	a.mu.Unlock()
	return config.ResolveWorkDir(dir)
}

// runtimeContext returns current Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// normalizeSettings trims user inputs and applies defaults for empty fields.
func normalizeSettings(settings domain.Settings) domain.Settings {
	defaults := config.DefaultSettings()
	settings.WorkDir = strings.TrimSpace(settings.WorkDir)
	settings.LastOutputDir = strings.TrimSpace(settings.LastOutputDir)
	settings.ToolPath = strings.TrimSpace(settings.ToolPath)
	settings.LogLevel = strings.ToLower(strings.TrimSpace(settings.LogLevel))
	if settings.LogLevel == "" {
		settings.LogLevel = defaults.LogLevel
	}
	settings.HistoryPath = strings.TrimSpace(settings.HistoryPath)
	if settings.HistoryPath == "" {
		settings.HistoryPath = defaults.HistoryPath
	}
	return settings
}

// executableDir is where a bundled node_modules/.bin is looked up.
func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

// openInFileManager launches the platform file explorer for the provided path.
func openInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	return nil
}
