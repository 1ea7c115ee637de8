package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Logger writes progress chatter to stderr and, when Path is set, an
// append-only event log for auditing which sources fed a run.
type Logger struct {
	Path    string
	Verbose bool
	Stderr  io.Writer // defaults to os.Stderr
}

func (l Logger) stderr() io.Writer {
	if l.Stderr != nil {
		return l.Stderr
	}
	return os.Stderr
}

// Debugf prints only under --verbose.
func (l Logger) Debugf(format string, args ...any) {
	if !l.Verbose {
		return
	}
	fmt.Fprintf(l.stderr(), format+"\n", args...)
}

// Warnf always prints. Warnings mark degraded safety (a source that could
// not be consulted), so they are never gated behind verbosity.
func (l Logger) Warnf(format string, args ...any) {
	fmt.Fprintf(l.stderr(), "Warning: "+format+"\n", args...)
}

// Event appends a timestamped record to the event log, if one is configured.
func (l Logger) Event(event string, details string) error {
	if l.Path == "" {
		return nil
	}
	path := expandPath(l.Path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	stamp := time.Now().UTC().Format(time.RFC3339)
	line := fmt.Sprintf("%s %s %s\n", stamp, event, details)
	_, err = f.WriteString(line)
	return err
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
