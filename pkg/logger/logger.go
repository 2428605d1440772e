package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation settings for the optional log file
const (
	DefaultMaxSizeMB  = 100
	DefaultMaxBackups = 5
	DefaultMaxAgeDays = 30
)

// LogLevel represents different log levels
type LogLevel = zapcore.Level

const (
	LevelDebug = zapcore.DebugLevel
	LevelInfo  = zapcore.InfoLevel
	LevelWarn  = zapcore.WarnLevel
	LevelError = zapcore.ErrorLevel
)

// Options configures NewLoggerWithOptions
type Options struct {
	Level   string
	Verbose bool

	// FilePath enables a rotating JSON log file in addition to the console
	FilePath string

	// Console receives leveled log lines (default os.Stderr)
	Console io.Writer

	// Progress receives the emoji progress lines (default os.Stdout)
	Progress io.Writer
}

// Logger provides structured logging functionality.
//
// Info and Progress lines reach the console only in verbose mode; the log
// file, when configured, records everything at or above the level.
type Logger struct {
	sugar    *zap.SugaredLogger
	file     *zap.SugaredLogger
	level    LogLevel
	verbose  bool
	progress io.Writer
	mu       *sync.Mutex
}

// NewLogger creates a console logger with specified level and verbose mode
func NewLogger(level string, verbose bool) *Logger {
	l, err := NewLoggerWithOptions(Options{Level: level, Verbose: verbose})
	if err != nil {
		// console-only construction cannot fail
		panic(err)
	}
	return l
}

// NewLoggerWithOptions builds a logger that tees to the console and, if
// FilePath is set, a lumberjack-rotated JSON file.
func NewLoggerWithOptions(opts Options) (*Logger, error) {
	level := parseLogLevel(opts.Level)
	verbose := opts.Verbose

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	progress := opts.Progress
	if progress == nil {
		progress = os.Stdout
	}

	consoleEnc := zapcore.NewConsoleEncoder(consoleEncoderConfig())
	consoleLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		if lvl < level {
			return false
		}
		return lvl != zapcore.InfoLevel || verbose
	})
	cores := []zapcore.Core{zapcore.NewCore(consoleEnc, zapcore.Lock(zapcore.AddSync(console)), consoleLevel)}

	var fileLogger *zap.SugaredLogger
	if opts.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		writer := zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    DefaultMaxSizeMB,
			MaxBackups: DefaultMaxBackups,
			MaxAge:     DefaultMaxAgeDays,
			Compress:   true,
		})
		fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoderConfig()), writer, level)
		cores = append(cores, fileCore)
		fileLogger = zap.New(fileCore).Sugar()
	}

	z := zap.New(zapcore.NewTee(cores...))
	return &Logger{
		sugar:    z.Sugar(),
		file:     fileLogger,
		level:    level,
		verbose:  verbose,
		progress: progress,
		mu:       &sync.Mutex{},
	}, nil
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return &Logger{
		sugar:    zap.NewNop().Sugar(),
		level:    LevelError,
		progress: io.Discard,
		mu:       &sync.Mutex{},
	}
}

// DefaultLogger returns a default logger instance
func DefaultLogger() *Logger {
	return NewLogger("info", false)
}

// With returns a child logger that attaches the key/value pairs to every entry
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	child := *l
	child.sugar = l.sugar.With(keysAndValues...)
	if l.file != nil {
		child.file = l.file.With(keysAndValues...)
	}
	return &child
}

// Debug logs debug information (only in debug mode)
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs informational messages (console only in verbose mode)
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs warning messages
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// ProgressAlways prints milestones that should always be shown
func (l *Logger) ProgressAlways(emoji, format string, args ...interface{}) {
	l.printProgress(emoji, fmt.Sprintf(format, args...))
}

// Progress prints step-by-step details (only in verbose mode)
func (l *Logger) Progress(emoji, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	if l.file != nil {
		l.file.Info(message)
	}
	if l.verbose {
		l.printProgress(emoji, message)
	}
}

func (l *Logger) printProgress(emoji, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.progress, "%s %s\n", emoji, message)
}

// IsVerbose reports whether verbose output is enabled
func (l *Logger) IsVerbose() bool {
	return l.verbose
}

// Sync flushes buffered entries. Errors from syncing a terminal are ignored.
func (l *Logger) Sync() error {
	err := l.sugar.Sync()
	if err != nil && (strings.Contains(err.Error(), "invalid argument") ||
		strings.Contains(err.Error(), "inappropriate ioctl")) {
		return nil
	}
	return err
}

// parseLogLevel converts string level to LogLevel
func parseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// ValidLevel reports whether level names a supported log level
func ValidLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = ""
	cfg.CallerKey = ""
	cfg.EncodeLevel = func(lvl zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString("[" + lvl.CapitalString() + "]")
	}
	return cfg
}

func fileEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}
