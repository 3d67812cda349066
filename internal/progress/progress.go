// Package progress maintains the append-only progress log.
//
// The log is the orchestrator's cross-iteration memory: every state
// transition, every line of agent output, and every failure is appended in
// strict chronological order. Nothing ever rewrites existing entries except
// an archive-triggered reset.
package progress

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Log appends timestamped lines to a single file.
type Log struct {
	path  string
	runID string
	now   func() time.Time
}

// New returns a log writing to path. runID is stamped into the header so a
// reader can tell which orchestrator run produced which entries.
func New(path, runID string) *Log {
	return &Log{path: path, runID: runID, now: time.Now}
}

// Path returns the log file location.
func (l *Log) Path() string { return l.path }

// Append writes one timestamped line, creating the file with a header on
// first use. The write is durable before Append returns.
func (l *Log) Append(line string) error {
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		if err := l.writeHeader(); err != nil {
			return err
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open progress log: %w", err)
	}
	defer f.Close()

	entry := fmt.Sprintf("[%s] %s\n", l.now().Format(time.RFC3339), line)
	if _, err := f.WriteString(entry); err != nil {
		return fmt.Errorf("failed to append to progress log: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync progress log: %w", err)
	}
	return nil
}

// AppendTool records one line of external tool output under a [ToolName]
// frame, keeping the audit trail attributable per tool.
func (l *Log) AppendTool(tool, line string) error {
	return l.Append(fmt.Sprintf("[%s] %s", tool, line))
}

// Reset truncates the log and writes a fresh header. Used by the archiver
// after relocating the previous branch's log.
func (l *Log) Reset() error {
	return l.writeHeader()
}

func (l *Log) writeHeader() error {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create progress log directory: %w", err)
		}
	}
	header := fmt.Sprintf("# Ralph Progress Log\n# Run: %s\n# Created: %s\n\n",
		l.runID, l.now().Format(time.RFC3339))
	if err := os.WriteFile(l.path, []byte(header), 0644); err != nil {
		return fmt.Errorf("failed to write progress log header: %w", err)
	}
	return nil
}
