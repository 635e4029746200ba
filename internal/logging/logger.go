// Package logging provides the leveled, optionally colored logger shared by
// every streamnorm package, plus the single replace-in-place status line used
// for progress.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/backmassage/streamnorm/internal/config"
	"github.com/backmassage/streamnorm/internal/term"
)

// Level tags. Each renders in its own color when colors are enabled.
var (
	infoTag    = color.New(color.FgHiBlue, color.Bold)
	successTag = color.New(color.FgHiGreen, color.Bold)
	warnTag    = color.New(color.FgHiYellow, color.Bold)
	errorTag   = color.New(color.FgHiRed, color.Bold)
	renderTag  = color.New(color.FgHiMagenta, color.Bold)
	debugTag   = color.New(color.FgHiCyan, color.Bold)
)

// eraseLine returns the cursor to column 0 and clears to end of line.
const eraseLine = "\r\033[K"

// Logger provides leveled, optionally colored logging with optional file sink.
// All methods are safe for concurrent use.
type Logger struct {
	mu       sync.Mutex
	out      io.Writer
	errOut   io.Writer
	tty      bool
	status   string
	file     *os.File
	filePath string
	now      func() time.Time
}

// NewLogger configures colors from cfg and optionally opens the log file.
// Call Close() when done if LogFile was set.
func NewLogger(cfg *config.Config) (*Logger, error) {
	term.Configure(cfg.ColorMode)
	return newLogger(cfg, os.Stdout, os.Stderr, term.IsTerminal(os.Stdout))
}

func newLogger(cfg *config.Config, out, errOut io.Writer, tty bool) (*Logger, error) {
	l := &Logger{out: out, errOut: errOut, tty: tty, now: time.Now}
	if cfg.LogFile != "" {
		dir := filepath.Dir(cfg.LogFile)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.file = f
		l.filePath = cfg.LogFile
	}
	return l, nil
}

// Close clears the status line and closes the log file if one was opened.
func (l *Logger) Close() error {
	l.ClearStatus()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// FilePath returns the log file path, or "" when logging only to the console.
func (l *Logger) FilePath() string { return l.filePath }

func (l *Logger) line(level string, tag *color.Color, text string) {
	ts := l.now().Format("2006-01-02 15:04:05")
	l.mu.Lock()
	defer l.mu.Unlock()

	out := l.out
	if level == "ERROR" {
		out = l.errOut
	}
	if l.status != "" {
		_, _ = io.WriteString(l.out, eraseLine)
	}
	_, _ = io.WriteString(out, ts+" "+tag.Sprint("["+level+"]")+" "+text+"\n")
	if l.status != "" {
		_, _ = io.WriteString(l.out, l.status)
	}
	if l.file != nil {
		_, _ = io.WriteString(l.file, ts+" ["+level+"] "+text+"\n")
	}
}

// Status replaces the status line with text. It is drawn only on a TTY and
// never reaches the log file; log lines printed while a status is shown are
// written above it.
func (l *Logger) Status(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.tty {
		return
	}
	l.status = text
	_, _ = io.WriteString(l.out, eraseLine+text)
}

// ClearStatus erases the status line, if any.
func (l *Logger) ClearStatus() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status == "" {
		return
	}
	l.status = ""
	_, _ = io.WriteString(l.out, eraseLine)
}

// Info logs at INFO level (blue).
func (l *Logger) Info(format string, args ...interface{}) {
	l.line("INFO", infoTag, fmt.Sprintf(format, args...))
}

// Success logs at SUCCESS level (green).
func (l *Logger) Success(format string, args ...interface{}) {
	l.line("SUCCESS", successTag, fmt.Sprintf(format, args...))
}

// Warn logs at WARN level (yellow).
func (l *Logger) Warn(format string, args ...interface{}) {
	l.line("WARN", warnTag, fmt.Sprintf(format, args...))
}

// Error logs at ERROR level (red), to stderr.
func (l *Logger) Error(format string, args ...interface{}) {
	l.line("ERROR", errorTag, fmt.Sprintf(format, args...))
}

// Render logs at RENDER level (magenta). Used for rendered ffmpeg commands.
func (l *Logger) Render(format string, args ...interface{}) {
	l.line("RENDER", renderTag, fmt.Sprintf(format, args...))
}

// Debug logs at DEBUG level (cyan) only when verbose; no-op otherwise.
func (l *Logger) Debug(verbose bool, format string, args ...interface{}) {
	if !verbose {
		return
	}
	l.line("DEBUG", debugTag, fmt.Sprintf(format, args...))
}
