// Package logging provides the structured logging facade shared by every
// Staminal subsystem: one Logger per component, levelled, field-based,
// colourised when (and only when) the destination is a terminal and
// NO_COLOR is unset.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pterm/pterm"
	"golang.org/x/term"
)

// Level is the severity of a log record.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel reads STAM_LOG_LEVEL-style values, defaulting to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

var levelStyle = map[Level]pterm.Color{
	DEBUG: pterm.FgCyan,
	INFO:  pterm.FgGreen,
	WARN:  pterm.FgYellow,
	ERROR: pterm.FgRed,
	FATAL: pterm.FgMagenta,
}

// Field is a structured key/value pair attached to a log record.
type Field struct {
	Key   string
	Value interface{}
}

func String(key, value string) Field       { return Field{key, value} }
func Int(key string, value int) Field      { return Field{key, value} }
func Int64(key string, value int64) Field  { return Field{key, value} }
func Uint64(key string, v uint64) Field    { return Field{key, v} }
func Bool(key string, value bool) Field    { return Field{key, value} }
func Duration(key string, d time.Duration) Field { return Field{key, d} }
func Any(key string, v interface{}) Field  { return Field{key, v} }

func Err(err error) Field {
	if err == nil {
		return Field{"error", "<nil>"}
	}
	return Field{"error", err.Error()}
}

func (f Field) format() string {
	switch v := f.Value.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case time.Duration:
		return v.String()
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Config configures a Logger instance.
type Config struct {
	Level      Level
	Component  string
	Output     io.Writer
	// Colorize forces colour on/off. When nil, colour is auto-detected from
	// the output being a terminal and NO_COLOR being unset, per spec §6.
	Colorize   *bool
	TimeFormat string
}

// Logger is a component-scoped, levelled, structured logger.
type Logger struct {
	mu         sync.Mutex
	level      Level
	component  string
	output     io.Writer
	colorize   bool
	timeFormat string
	fields     []Field
}

// New builds a Logger from Config, auto-detecting colour support the way the
// rest of the host reads STAM_* environment variables: TTY *and* NO_COLOR
// unset.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = "15:04:05.000"
	}

	colorize := false
	if cfg.Colorize != nil {
		colorize = *cfg.Colorize
	} else {
		colorize = detectColorSupport(cfg.Output)
	}

	return &Logger{
		level:      cfg.Level,
		component:  cfg.Component,
		output:     cfg.Output,
		colorize:   colorize,
		timeFormat: cfg.TimeFormat,
	}
}

// detectColorSupport mirrors spec §6: ANSI colour requires a TTY and the
// absence of NO_COLOR.
func detectColorSupport(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Default returns a logger with sane defaults for the named component.
func Default(component string) *Logger {
	return New(Config{Level: INFO, Component: component})
}

// With returns a derived logger carrying the extra fields on every record.
func (l *Logger) With(fields ...Field) *Logger {
	child := &Logger{
		level:      l.level,
		component:  l.component,
		output:     l.output,
		colorize:   l.colorize,
		timeFormat: l.timeFormat,
	}
	child.fields = append(append([]Field{}, l.fields...), fields...)
	return child
}

func (l *Logger) Debug(msg string, fields ...Field) { l.log(DEBUG, msg, fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.log(INFO, msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.log(WARN, msg, fields...) }
func (l *Logger) Error(msg string, fields ...Field) { l.log(ERROR, msg, fields...) }

// Fatal logs at FATAL and terminates the process, matching spec §6's
// distinguished fatal-mod-load exit path (callers choose the exit code).
func (l *Logger) Fatal(code int, msg string, fields ...Field) {
	l.log(FATAL, msg, fields...)
	os.Exit(code)
}

func (l *Logger) log(level Level, msg string, fields ...Field) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	var b strings.Builder
	if l.colorize {
		style := pterm.NewStyle(levelStyle[level])
		b.WriteString(style.Sprint("["+time.Now().Format(l.timeFormat)+"] ["+fmt.Sprintf("%-5s", level.String())+"]"))
	} else {
		b.WriteString(fmt.Sprintf("[%s] [%-5s]", time.Now().Format(l.timeFormat), level.String()))
	}

	if l.component != "" {
		b.WriteString(" [" + l.component + "]")
	}
	b.WriteString(" " + msg)

	all := append(append([]Field{}, l.fields...), fields...)
	for _, f := range all {
		b.WriteString(" " + f.Key + "=" + f.format())
	}
	b.WriteString("\n")

	l.output.Write([]byte(b.String()))
}
