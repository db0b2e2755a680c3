// Package eventlog records alert events, both in memory for the recent-events
// view and durably as one JSON object per line in an append-only file.
package eventlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"codeberg.org/halcyon/robomon/internal/errors"
	"codeberg.org/halcyon/robomon/internal/frame"
	"codeberg.org/halcyon/robomon/internal/logger"
	"codeberg.org/halcyon/robomon/internal/threshold"
)

const (
	// recentCap bounds the in-memory recent-events view.
	recentCap = 200

	defaultDirPerm  = 0o755
	defaultFilePerm = 0o644
)

// AlertEvent is one emitted alert. Immutable once created.
type AlertEvent struct {
	Timestamp string             `json:"timestamp"`
	Type      frame.Stream       `json:"type"`
	Severity  threshold.Severity `json:"severity"`
	Message   string             `json:"message"`
	Meta      map[string]any     `json:"meta"`
}

// Log is the alert event sink. Append writes through to the file (with a
// sync) before returning, so there is no write queue to lose on crash.
type Log struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	recent []AlertEvent
}

// Open opens (creating if needed) the event log at path and reloads it in
// full to rebuild the recent-events view. Undecodable lines are skipped.
func Open(path string) (*Log, error) {
	errFactory := errors.New()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
			return nil, errFactory.Wrap(ErrOpenLog, err)
		}
	}

	recent := reload(path)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, defaultFilePerm)
	if err != nil {
		return nil, errFactory.Wrap(ErrOpenLog, err)
	}

	return &Log{
		path:   path,
		file:   file,
		recent: recent,
	}, nil
}

// Append records an event in memory and durably in the file. The durable
// write completes before Append returns.
func (l *Log) Append(event AlertEvent) error {
	errFactory := errors.New()

	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return errFactory.Wrap(ErrAppendLog, err)
	}

	if _, err := l.file.Write(append(data, '\n')); err != nil {
		return errFactory.Wrap(ErrAppendLog, err)
	}
	if err := l.file.Sync(); err != nil {
		return errFactory.Wrap(ErrAppendLog, err)
	}

	l.recent = append(l.recent, event)
	if len(l.recent) > recentCap {
		l.recent = l.recent[len(l.recent)-recentCap:]
	}

	return nil
}

// Recent returns the most recent events, oldest first.
func (l *Log) Recent() []AlertEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]AlertEvent, len(l.recent))
	copy(out, l.recent)

	return out
}

// Close closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}

	err := l.file.Close()
	l.file = nil
	if err != nil {
		return errors.New().Wrap(ErrCloseLog, err)
	}

	return nil
}

// reload reads the existing log, keeping the last recentCap decodable events.
func reload(path string) []AlertEvent {
	file, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer file.Close()

	var recent []AlertEvent
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var event AlertEvent
		if err := json.Unmarshal(line, &event); err != nil {
			continue
		}
		recent = append(recent, event)
		if len(recent) > recentCap {
			recent = recent[1:]
		}
	}

	if err := scanner.Err(); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("Event log reload stopped early")
	}

	return recent
}
