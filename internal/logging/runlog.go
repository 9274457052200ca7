package logging

import (
	"fmt"
	"sync"
	"time"
)

// Entry is one timestamped run-log line.
type Entry struct {
	At      time.Time
	Message string
}

// Appender receives flushed run-log entries. The workbook implementation
// appends them to a log sheet, creating the sheet on first use.
type Appender interface {
	AppendLog(entries []Entry) error
}

// RunLog buffers free-text entries in memory during a synchronization run
// and flushes them to an Appender at checkpoints. A nil Appender is valid:
// entries are simply discarded on flush, which keeps the orchestrator free
// of nil checks.
type RunLog struct {
	mu       sync.Mutex
	appender Appender
	entries  []Entry
	now      func() time.Time
}

// NewRunLog creates a RunLog flushing to appender.
func NewRunLog(appender Appender) *RunLog {
	return &RunLog{appender: appender, now: time.Now}
}

// Logf buffers one formatted entry. Safe on a nil RunLog.
func (l *RunLog) Logf(format string, args ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Entry{At: l.now(), Message: fmt.Sprintf(format, args...)})
}

// Pending returns a copy of the entries buffered since the last flush.
func (l *RunLog) Pending() []Entry {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Flush appends the buffered entries and clears the buffer. On appender
// failure the buffer is kept so a later checkpoint can retry the append.
func (l *RunLog) Flush() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) == 0 {
		return nil
	}
	if l.appender == nil {
		l.entries = nil
		return nil
	}
	if err := l.appender.AppendLog(l.entries); err != nil {
		return fmt.Errorf("flush run log: %w", err)
	}
	l.entries = nil
	return nil
}
