// Package logstore appends hook event records to newline-delimited JSON files.
package logstore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const (
	logFileMode = 0644
	logDirMode  = 0755

	lockRetryDelay = 10 * time.Millisecond
	lockTimeout    = 2 * time.Second
)

// Record is one logged hook event written as a single JSON line.
type Record struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	EventType string         `json:"event_type"`
	ToolName  string         `json:"tool_name"`
	ToolInput map[string]any `json:"tool_input"`
	SessionID string         `json:"session_id"`
}

// Store appends records to one file. Each append opens, writes and closes
// the file so independent processes can share it.
type Store struct {
	path string
	now  func() time.Time
}

// New creates a store writing to path.
func New(path string) *Store {
	return &Store{
		path: path,
		now:  time.Now,
	}
}

// Path returns the file the store writes to.
func (s *Store) Path() string {
	return s.path
}

// Append writes one record as one line, filling in ID and Timestamp when unset.
// Parent directories are created as needed.
func (s *Store) Append(ctx context.Context, record Record) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = s.now()
	}

	encoded, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal log record: %w", err)
	}
	encoded = append(encoded, '\n')

	if err := os.MkdirAll(filepath.Dir(s.path), logDirMode); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	// O_APPEND keeps single-record writes whole; the lock only orders
	// writers that share the file.
	fileLock := flock.New(s.path + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	if locked, err := fileLock.TryLockContext(lockCtx, lockRetryDelay); err == nil && locked {
		defer fileLock.Unlock()
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFileMode)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(encoded); err != nil {
		return fmt.Errorf("append log record: %w", err)
	}

	return nil
}

// Tail returns the last n records in file order; n <= 0 returns all of them.
// Lines that are not valid records are skipped.
func (s *Store) Tail(n int) ([]Record, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var record Record
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log file: %w", err)
	}

	if n > 0 && len(records) > n {
		records = records[len(records)-n:]
	}

	return records, nil
}
