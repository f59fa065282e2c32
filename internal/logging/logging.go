package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	LevelInfo     = "INFO"
	LevelAnalysis = "ANALYSIS"
	LevelRisk     = "RISK"
)

// Logger writes one line per event as
//
//	[15:04:05.000] [LEVEL] [STAGE] message | detail
//
// to an io.Writer and, when a session file is set, appends the same line there.
type Logger struct {
	mu          sync.Mutex
	out         io.Writer
	sessionFile string
	now         func() time.Time
}

func New(out io.Writer) *Logger {
	if out == nil {
		out = io.Discard
	}
	return &Logger{out: out, now: time.Now}
}

// WithSession creates dir and appends every line to a new session-<timestamp>.log inside it.
func (l *Logger) WithSession(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	l.mu.Lock()
	l.sessionFile = filepath.Join(dir, "session-"+l.now().Format("20060102-150405")+".log")
	l.mu.Unlock()
	l.Log(LevelInfo, "BOOT", "log session initialized", dir)
	return l, nil
}

func (l *Logger) SessionFile() string {
	if l == nil {
		return ""
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessionFile
}

func (l *Logger) Log(level, stage, message, detail string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	line := Format(l.now(), level, stage, message, detail)
	_, _ = io.WriteString(l.out, line)
	if l.sessionFile == "" {
		return
	}
	f, err := os.OpenFile(l.sessionFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.WriteString(line)
}

func (l *Logger) Info(stage, message, detail string) {
	l.Log(LevelInfo, stage, message, detail)
}

func (l *Logger) Risk(stage, message, detail string) {
	l.Log(LevelRisk, stage, message, detail)
}

func Format(at time.Time, level, stage, message, detail string) string {
	line := fmt.Sprintf("[%s] [%s] [%s] %s", at.Format("15:04:05.000"), level, stage, message)
	if strings.TrimSpace(detail) != "" {
		line += " | " + detail
	}
	return line + "\n"
}
