package logging

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
)

// Logger is a duck-typed interface satisfied by *slog.Logger.
// Use this interface instead of *slog.Logger to decouple from the concrete type.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var (
	moduleLoggers   = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	globalConfig    Config
	globalLevelVar  = &slog.LevelVar{}
	isInitialized   bool
	mutex           sync.RWMutex
)

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

// Initialize sets up the logging system. Loggers handed out earlier keep
// their identity and pick up the new levels and format, so Initialize must
// run before any logger is used from another goroutine.
func Initialize(config Config) {
	mutex.Lock()
	defer mutex.Unlock()

	globalConfig = config
	isInitialized = true

	globalLevel, ok := parseLevel(config.Level)
	if !ok {
		globalLevel = slog.LevelInfo
	}
	globalLevelVar.Set(globalLevel)

	for module, levelVar := range moduleLevelVars {
		levelVar.Set(moduleLevel(module, globalLevel))
		*moduleLoggers[module] = *newModuleLogger(module, config.Format, levelVar)
	}

	slog.SetDefault(slog.New(createHandler(config.Format, globalLevelVar)))
}

// GetLogger returns a logger for the specified module, creating it if needed.
func GetLogger(module string) *slog.Logger {
	mutex.RLock()
	if logger, exists := moduleLoggers[module]; exists {
		mutex.RUnlock()
		return logger
	}
	mutex.RUnlock()

	mutex.Lock()
	defer mutex.Unlock()

	// Double-check in case another goroutine created it
	if logger, exists := moduleLoggers[module]; exists {
		return logger
	}

	level := slog.LevelInfo
	format := "text"
	if isInitialized {
		if global, ok := parseLevel(globalConfig.Level); ok {
			level = global
		}
		level = moduleLevel(module, level)
		format = globalConfig.Format
	}

	levelVar := &slog.LevelVar{}
	levelVar.Set(level)

	logger := newModuleLogger(module, format, levelVar)
	moduleLoggers[module] = logger
	moduleLevelVars[module] = levelVar
	return logger
}

// SetModuleLevel changes the level of one module at runtime.
func SetModuleLevel(module, level string) error {
	parsed, ok := parseLevel(level)
	if !ok {
		return fmt.Errorf("unknown log level %q", level)
	}

	GetLogger(module)

	mutex.Lock()
	defer mutex.Unlock()
	moduleLevelVars[module].Set(parsed)
	if globalConfig.Modules == nil {
		globalConfig.Modules = make(map[string]string)
	}
	globalConfig.Modules[module] = strings.ToLower(level)
	return nil
}

// Levels returns the current level of every known module.
func Levels() map[string]string {
	mutex.RLock()
	defer mutex.RUnlock()

	out := make(map[string]string, len(moduleLevelVars))
	for module, levelVar := range moduleLevelVars {
		out[module] = strings.ToLower(levelVar.Level().String())
	}
	return out
}

// Modules returns the names of all modules with a logger, sorted.
func Modules() []string {
	mutex.RLock()
	defer mutex.RUnlock()

	names := make([]string, 0, len(moduleLoggers))
	for name := range moduleLoggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// moduleLevel applies the configured override for module, if any.
// Callers hold mutex.
func moduleLevel(module string, fallback slog.Level) slog.Level {
	if levelStr, exists := globalConfig.Modules[module]; exists {
		if parsed, ok := parseLevel(levelStr); ok {
			return parsed
		}
	}
	return fallback
}

func newModuleLogger(module, format string, level slog.Leveler) *slog.Logger {
	return slog.New(createHandler(format, level)).With("module", module)
}

// createHandler creates a slog handler with the specified format and level.
// Logs to stdout and to the journal, whichever are available.
func createHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var stdoutHandler slog.Handler
	if format == "json" {
		stdoutHandler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		stdoutHandler = slog.NewTextHandler(os.Stdout, opts)
	}

	var stdout, journald slog.Handler
	if isStdoutAvailable() {
		stdout = stdoutHandler
	}
	if IsJournalAvailable() {
		journald = NewJournalHandler(level)
	}
	if h := NewMultiHandler(stdout, journald); h != nil {
		return h
	}
	return stdoutHandler
}

// isStdoutAvailable checks if stdout is connected to a terminal, pipe, socket, or file.
func isStdoutAvailable() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	// Not /dev/null, which is a ModeDevice
	return (mode&os.ModeCharDevice) != 0 || (mode&os.ModeNamedPipe) != 0 || (mode&os.ModeSocket) != 0 || mode.IsRegular()
}

// parseLevel converts string level to slog.Level.
func parseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return 0, false
	}
}
