package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

type Logger struct {
	level    Level
	mu       sync.Mutex
	debugLog *log.Logger
	infoLog  *log.Logger
	warnLog  *log.Logger
	errorLog *log.Logger
}

// ParseLevel maps a level name to a Level. Unknown names fall back to INFO.
func ParseLevel(level string) Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

func New(level string) *Logger {
	return NewWithWriter(level, os.Stderr)
}

// NewWithWriter builds a logger writing every level to w.
func NewWithWriter(level string, w io.Writer) *Logger {
	flags := log.LstdFlags | log.Lshortfile | log.Lmicroseconds

	return &Logger{
		level:    ParseLevel(level),
		debugLog: log.New(w, "[DEBUG] ", flags),
		infoLog:  log.New(w, "[INFO] ", flags),
		warnLog:  log.New(w, "[WARN] ", flags),
		errorLog: log.New(w, "[ERROR] ", flags),
	}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	return NewWithWriter("ERROR", io.Discard)
}

func (l *Logger) Level() Level {
	return l.level
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.level <= DEBUG {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.debugLog.Printf(format, args...)
	}
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l.level <= INFO {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.infoLog.Printf(format, args...)
	}
}

func (l *Logger) Warn(format string, args ...interface{}) {
	if l.level <= WARN {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.warnLog.Printf(format, args...)
	}
}

func (l *Logger) Error(format string, args ...interface{}) {
	if l.level <= ERROR {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.errorLog.Printf(format, args...)
	}
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.Debug(format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.Warn(format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(format, args...)
}

// Fields renders ctx as sorted key=value pairs for inclusion in a message.
func Fields(ctx map[string]interface{}) string {
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, ctx[k]))
	}
	return strings.Join(parts, " ")
}
