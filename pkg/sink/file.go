package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/memwarden/agent/pkg/events"
)

// FileSink writes events to a file in JSONL format (one JSON object per
// line). It serves as a local audit trail of pressure episodes and the
// recovery actions taken for them.
type FileSink struct {
	file   *os.File
	writer *bufio.Writer
	logger *log.Logger
	mu     sync.Mutex
}

// NewFileSink creates a new file sink that appends to the specified path
func NewFileSink(path string, logger *log.Logger) (*FileSink, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}

	return &FileSink{
		file:   file,
		writer: bufio.NewWriter(file),
		logger: logger,
	}, nil
}

// Name returns the sink name
func (s *FileSink) Name() string {
	return "file"
}

// Process handles an incoming event by writing it to the file
func (s *FileSink) Process(ctx context.Context, event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var eventData map[string]interface{}

	switch e := event.(type) {
	case events.SnapshotEvent:
		eventData = map[string]interface{}{
			"type":      string(e.Type()),
			"timestamp": e.Timestamp().Format(time.RFC3339Nano),
			"snapshot":  e.Snapshot,
		}
	case events.RecoveryEvent:
		eventData = map[string]interface{}{
			"type":      string(e.Type()),
			"timestamp": e.Timestamp().Format(time.RFC3339Nano),
			"trigger":   e.Trigger,
			"outcomes":  e.Outcomes,
		}
	case events.ErrorEvent:
		eventData = map[string]interface{}{
			"type":      string(e.Type()),
			"timestamp": e.Timestamp().Format(time.RFC3339Nano),
			"error":     e.Payload,
		}
	default:
		s.logger.Warnf("[file] unknown event type: %v", event.Type())
		return nil
	}

	line, err := json.Marshal(eventData)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := s.writer.Write(line); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if err := s.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	// Flush per event; the sink is low-volume and recovery passes are the
	// moments you least want buffered away during a crash.
	return s.writer.Flush()
}

// Close flushes and closes the underlying file
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writer.Flush(); err != nil {
		return err
	}
	return s.file.Close()
}
