package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// ANSI color codes for console output
const (
	ColorReset        = "\033[0m"
	ColorCyan         = "\033[36m"
	ColorGreen        = "\033[32m"
	ColorBrightRed    = "\033[91m"
	ColorBrightYellow = "\033[93m"
	ColorBrightGray   = "\033[90m"
)

// Column widths for aligned console output
const (
	ServiceNameWidth = 12
	LogLevelWidth    = 7
)

// levelRank orders severities for minimum-level filtering
var levelRank = map[string]int{
	"DEBUG": 0,
	"INFO":  1,
	"WARN":  2,
	"ERROR": 3,
	"FATAL": 4,
}

// Logger writes leveled, timestamped log lines to stdout
type Logger struct {
	serviceName  string
	version      string
	minLevel     int
	colorEnabled bool
	out          io.Writer
}

// New creates a new logger instance. Lines below the given minimum level
// are suppressed; an unknown level name falls back to info.
func New(serviceName, version, level string) *Logger {
	return &Logger{
		serviceName:  serviceName,
		version:      version,
		minLevel:     parseLevel(level),
		colorEnabled: isTerminal(),
		out:          os.Stdout,
	}
}

func parseLevel(level string) int {
	if rank, ok := levelRank[strings.ToUpper(level)]; ok {
		return rank
	}
	return levelRank["INFO"]
}

// isTerminal checks if we're outputting to a terminal (for color support)
func isTerminal() bool {
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	fileInfo, _ := os.Stdout.Stat()
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

func (l *Logger) getColorForLevel(level string) string {
	if !l.colorEnabled {
		return ""
	}

	switch level {
	case "DEBUG":
		return ColorBrightGray
	case "INFO":
		return ColorGreen
	case "WARN":
		return ColorBrightYellow
	case "ERROR", "FATAL":
		return ColorBrightRed
	default:
		return ColorReset
	}
}

// formatLogLevel pads log level for consistent column width and adds visual indicators
func formatLogLevel(level string) string {
	levelStr := level

	switch level {
	case "ERROR", "FATAL":
		levelStr = "✗ " + levelStr
	case "WARN":
		levelStr = "⚠ " + levelStr
	case "INFO":
		levelStr = "ℹ " + levelStr
	case "DEBUG":
		levelStr = "◦ " + levelStr
	}

	return fmt.Sprintf("%-*s", LogLevelWidth+2, levelStr)
}

func (l *Logger) log(level, message string) {
	if levelRank[level] < l.minLevel {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")

	color := l.getColorForLevel(level)
	resetColor := ""
	if l.colorEnabled {
		resetColor = ColorReset
	}

	service := fmt.Sprintf("%-*s", ServiceNameWidth, l.serviceName)

	fmt.Fprintf(l.out, "%s[%s] [%s] [%s%s%s] %s%s\n",
		ColorCyan, timestamp, service, color, formatLogLevel(level), resetColor, message, resetColor)
}

// Debug logs a debug message
func (l *Logger) Debug(message string) {
	l.log("DEBUG", message)
}

// Info logs an info message
func (l *Logger) Info(message string) {
	l.log("INFO", message)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.log("INFO", fmt.Sprintf(format, args...))
}

// Warn logs a warning message
func (l *Logger) Warn(message string) {
	l.log("WARN", message)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log("WARN", fmt.Sprintf(format, args...))
}

// Error logs an error message
func (l *Logger) Error(message string) {
	l.log("ERROR", message)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log("ERROR", fmt.Sprintf(format, args...))
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(message string) {
	l.log("FATAL", message)
	os.Exit(1)
}

// Fatalf logs a formatted fatal message and exits
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.log("FATAL", fmt.Sprintf(format, args...))
	os.Exit(1)
}
