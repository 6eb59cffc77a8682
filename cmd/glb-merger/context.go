package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"glb-merger/internal/config"
	"glb-merger/internal/domain"
	"glb-merger/internal/gltf"
	"glb-merger/internal/logging"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	toolFlag     *string

	once     sync.Once
	store    *config.TOMLStore
	settings domain.Settings
	err      error
}

func newCommandContext(configFlag, logLevelFlag, toolFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		toolFlag:     toolFlag,
	}
}

func (c *commandContext) ensureSettings() (domain.Settings, error) {
	c.once.Do(func() {
		path := strings.TrimSpace(*c.configFlag)
		if path == "" {
			path = config.SettingsPath()
		}
		c.store = config.NewTOMLStore(path)
		c.settings, c.err = c.store.Load()
	})
	return c.settings, c.err
}

// reload re-reads settings after a command changed them.
func (c *commandContext) reload() (domain.Settings, error) {
	settings, err := c.store.Load()
	if err != nil {
		return domain.Settings{}, err
	}
	c.settings = settings
	return settings, nil
}

func (c *commandContext) logger(w io.Writer) *slog.Logger {
	level := strings.TrimSpace(*c.logLevelFlag)
	if level == "" {
		level = c.settings.LogLevel
	}
	logger, err := logging.New(logging.Options{Level: level, Writer: w})
	if err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger
}

// toolPath returns the --tool flag, falling back to the tool_path setting.
func (c *commandContext) toolPath() string {
	if tool := strings.TrimSpace(*c.toolFlag); tool != "" {
		return tool
	}
	return c.settings.ToolPath
}

func (c *commandContext) toolResolver() gltf.ToolResolver {
	return gltf.NewToolLocator().Resolver(c.toolPath, appDir())
}

// appDir is where a bundled node_modules/.bin is looked up.
func appDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}
