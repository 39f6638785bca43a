// Package logbook keeps the human-readable journal of a search session. Each
// line is one entry; entries about a single run carry its index so the live
// view can follow a search run by run.
package logbook

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FileName is the journal kept inside every search session directory.
const FileName = "journey.log"

// NoRun marks an entry about the session as a whole.
const NoRun = -1

const runPrefix = "run="

// Level represents the severity of a journal entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Entry is one parsed journal line.
type Entry struct {
	Time    time.Time
	Level   Level
	Run     int
	Message string
}

// Format renders e as a single journal line, without the newline.
func (e Entry) Format() string {
	var b strings.Builder
	b.WriteString(e.Time.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, " %-5s ", string(e.Level))
	if e.Run != NoRun {
		b.WriteString(runPrefix)
		b.WriteString(strconv.Itoa(e.Run))
		b.WriteByte(' ')
	}
	b.WriteString(strings.TrimSpace(e.Message))
	return b.String()
}

// ParseEntry reads a line written by Format.
func ParseEntry(line string) (Entry, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Entry{}, fmt.Errorf("logbook: malformed entry %q", line)
	}
	stamp, err := time.Parse(time.RFC3339, fields[0])
	if err != nil {
		return Entry{}, fmt.Errorf("logbook: entry time: %w", err)
	}
	e := Entry{Time: stamp, Level: Level(fields[1]), Run: NoRun}
	rest := fields[2:]
	if len(rest) > 0 && strings.HasPrefix(rest[0], runPrefix) {
		run, err := strconv.Atoi(strings.TrimPrefix(rest[0], runPrefix))
		if err != nil {
			return Entry{}, fmt.Errorf("logbook: entry run: %w", err)
		}
		e.Run = run
		rest = rest[1:]
	}
	e.Message = strings.Join(rest, " ")
	return e, nil
}

// Logbook is an append-only journal of one search session.
type Logbook struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// New creates a logbook that writes to the provided path.
func New(path string) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logbook: ensure dir: %w", err)
	}
	return &Logbook{path: path, now: time.Now}, nil
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Info records a session-level event.
func (l *Logbook) Info(format string, args ...any) {
	l.append(LevelInfo, NoRun, fmt.Sprintf(format, args...))
}

// Warn records a session-level event that did not stop the search.
func (l *Logbook) Warn(format string, args ...any) {
	l.append(LevelWarn, NoRun, fmt.Sprintf(format, args...))
}

// Error records a session-level failure.
func (l *Logbook) Error(format string, args ...any) {
	l.append(LevelError, NoRun, fmt.Sprintf(format, args...))
}

// Run records progress of one run.
func (l *Logbook) Run(run int, format string, args ...any) {
	l.append(LevelInfo, run, fmt.Sprintf(format, args...))
}

// RunFailed records the error that aborted run.
func (l *Logbook) RunFailed(run int, err error) {
	l.append(LevelError, run, err.Error())
}

// Write failures are dropped: the journal is advisory and never aborts a
// search.
func (l *Logbook) append(level Level, run int, message string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	line := Entry{Time: l.now(), Level: level, Run: run, Message: message}.Format()
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer file.Close()
	_, _ = file.WriteString(line + "\n")
}

// Entries returns up to n of the most recent entries, oldest first, and the
// total number of entries in the journal. Lines that do not parse are
// skipped.
func (l *Logbook) Entries(n int) ([]Entry, int) {
	if l == nil || n <= 0 {
		return nil, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.Open(l.path)
	if err != nil {
		return nil, 0
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if e, err := ParseEntry(scanner.Text()); err == nil {
			entries = append(entries, e)
		}
	}
	total := len(entries)
	if total > n {
		entries = entries[total-n:]
	}
	return entries, total
}
