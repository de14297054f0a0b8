// Package logging configures log/slog for the recorder. Each package obtains
// a module-scoped logger via GetLogger; levels can be set globally or per
// module through Config.
package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"` // "text" or "json"
	Modules map[string]string `toml:"modules"`
}

var (
	mu             sync.RWMutex
	globalConfig   Config
	globalLevelVar = &slog.LevelVar{}
	moduleLoggers  = make(map[string]*slog.Logger)
	moduleLevels   = make(map[string]*slog.LevelVar)
	initialized    bool
)

// Initialize sets up the logging system. Safe to call more than once; the
// latest config wins and existing module loggers are rebuilt.
func Initialize(config Config) {
	mu.Lock()
	defer mu.Unlock()

	globalConfig = config
	initialized = true

	level := parseLevel(config.Level)
	globalLevelVar.Set(level)

	for module, levelVar := range moduleLevels {
		moduleLevel := level
		if s, ok := config.Modules[module]; ok {
			moduleLevel = parseLevel(s)
		}
		levelVar.Set(moduleLevel)
		moduleLoggers[module] = slog.New(newHandler(config.Format, levelVar)).With("module", module)
	}

	slog.SetDefault(slog.New(newHandler(config.Format, globalLevelVar)))
}

// GetLogger returns a logger for the specified module, creating it if needed.
func GetLogger(module string) *slog.Logger {
	mu.RLock()
	if logger, ok := moduleLoggers[module]; ok {
		mu.RUnlock()
		return logger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()

	if logger, ok := moduleLoggers[module]; ok {
		return logger
	}

	levelVar := &slog.LevelVar{}
	levelVar.Set(globalLevelVar.Level())
	if initialized {
		if s, ok := globalConfig.Modules[module]; ok {
			levelVar.Set(parseLevel(s))
		}
	}

	logger := slog.New(newHandler(globalConfig.Format, levelVar)).With("module", module)
	moduleLoggers[module] = logger
	moduleLevels[module] = levelVar
	return logger
}

func newHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.NewTextHandler(os.Stderr, opts)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
