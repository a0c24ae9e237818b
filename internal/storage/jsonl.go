package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"poolCore/internal/model"
)

// JsonlStorage writes events and state snapshots to JSONL files. Events are
// appended; state snapshots overwrite, since only the latest matters.
type JsonlStorage struct {
	eventsPath string
	statesPath string
	mu         sync.Mutex
}

func NewJsonlStorage(eventsPath, statesPath string) *JsonlStorage {
	return &JsonlStorage{eventsPath: eventsPath, statesPath: statesPath}
}

// PutEventBatch appends a batch of pool events as JSON lines.
func (s *JsonlStorage) PutEventBatch(events []model.PoolEventRecord) error {
	if len(events) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := make([]any, len(events))
	for i := range events {
		lines[i] = events[i]
	}
	return writeLines(s.eventsPath, lines, os.O_CREATE|os.O_WRONLY|os.O_APPEND)
}

// PutPoolStates replaces the state snapshot file.
func (s *JsonlStorage) PutPoolStates(states []model.PoolStateRecord) error {
	if len(states) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := make([]any, len(states))
	for i := range states {
		lines[i] = states[i]
	}
	return writeLines(s.statesPath, lines, os.O_CREATE|os.O_WRONLY|os.O_TRUNC)
}

func writeLines(path string, records []any, flags int) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
