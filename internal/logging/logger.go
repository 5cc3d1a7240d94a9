// Package logging provides structured logging with file and console output.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel represents logging levels
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Config holds logger configuration
type Config struct {
	Dir     string   `mapstructure:"dir" yaml:"dir"`         // Directory for log files; empty disables the file
	Level   LogLevel `mapstructure:"level" yaml:"level"`     // Minimum log level (default: info)
	Console bool     `mapstructure:"console" yaml:"console"` // Also log to stderr
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Dir:     filepath.Join(home, ".puppyavatar", "logs"),
		Level:   LevelInfo,
		Console: true,
	}
}

// Logger wraps zerolog with an optional log file
type Logger struct {
	zlog    zerolog.Logger
	file    *os.File
	logPath string
}

// New creates a new Logger with file and console output
func New(cfg Config) (*Logger, error) {
	var writers []io.Writer
	var file *os.File
	var logPath string

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		logPath = filepath.Join(cfg.Dir, fmt.Sprintf("puppyavatar_%s.log", time.Now().Format("2006-01-02")))
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
		writers = append(writers, file)
	}

	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		})
	}

	var out io.Writer = io.Discard
	if len(writers) > 0 {
		out = io.MultiWriter(writers...)
	}

	l := &Logger{
		zlog:    newZerolog(out, cfg.Level),
		file:    file,
		logPath: logPath,
	}
	l.zlog.Debug().Str("component", "logging").Str("logFile", logPath).Str("level", string(cfg.Level)).Msg("Logger initialized")
	return l, nil
}

// NewWithWriter logs JSON lines to w. Used by tests and by the CLI when
// structured output is piped.
func NewWithWriter(w io.Writer, level LogLevel) *Logger {
	return &Logger{zlog: newZerolog(w, level)}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

func newZerolog(w io.Writer, level LogLevel) zerolog.Logger {
	return zerolog.New(w).Level(ParseLevel(level)).With().
		Timestamp().
		Str("app", "puppyavatar").
		Logger()
}

// ParseLevel maps a level name to zerolog; unknown names mean info.
func ParseLevel(level LogLevel) zerolog.Level {
	switch LogLevel(strings.ToLower(string(level))) {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Path returns the current log file path, or "" without a file
func (l *Logger) Path() string {
	return l.logPath
}

// Close closes the log file
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Component returns a zerolog.Logger with the component field set
func (l *Logger) Component(name string) zerolog.Logger {
	return l.zlog.With().Str("component", name).Logger()
}

// Info logs an info message
func (l *Logger) Info(component, msg string, data map[string]interface{}) {
	l.zlog.Info().Str("component", component).Fields(data).Msg(msg)
}

// Warn logs a warning message
func (l *Logger) Warn(component, msg string, data map[string]interface{}) {
	l.zlog.Warn().Str("component", component).Fields(data).Msg(msg)
}

// Error logs an error message
func (l *Logger) Error(component, msg string, err error, data map[string]interface{}) {
	l.zlog.Error().Str("component", component).Err(err).Fields(data).Msg(msg)
}

// Zerolog returns the underlying zerolog.Logger
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zlog
}
