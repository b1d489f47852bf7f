package bus

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ricesearch/contact-eval/internal/pkg/errors"
)

// LoggedEvent is one line of the evaluation event log.
type LoggedEvent struct {
	Event     Event     `json:"event"`
	Topic     string    `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
}

// EventLogger appends published evaluation events to a JSON lines file
// so runs can be inspected or replayed later.
type EventLogger struct {
	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
}

// NewEventLogger opens logPath for appending.
func NewEventLogger(logPath string) (*EventLogger, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, errors.InternalError("failed to create event log directory", err)
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.InternalError("failed to open event log", err)
	}

	return &EventLogger{file: file, encoder: json.NewEncoder(file)}, nil
}

// Log appends an event.
func (l *EventLogger) Log(topic string, event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return errors.New(errors.CodeInternal, "event logger closed")
	}

	entry := LoggedEvent{
		Event:     event,
		Topic:     topic,
		Timestamp: time.Now(),
	}

	if err := l.encoder.Encode(entry); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync event log: %w", err)
	}

	return nil
}

// ReadEventLog returns the events of the log at path recorded after since,
// oldest first. A positive limit keeps only the newest limit events. A
// missing log reads as empty.
func ReadEventLog(path string, since time.Time, limit int) ([]LoggedEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []LoggedEvent{}, nil
		}
		return nil, errors.NotFoundError("event log", err)
	}
	defer file.Close()

	var events []LoggedEvent
	scanner := bufio.NewScanner(file)

	const maxScanTokenSize = 1024 * 1024
	scanner.Buffer(make([]byte, maxScanTokenSize), maxScanTokenSize)

	for scanner.Scan() {
		var entry LoggedEvent
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}

		if !entry.Timestamp.After(since) {
			continue
		}
		events = append(events, entry)
		if limit > 0 && len(events) > 2*limit {
			events = append(events[:0], events[len(events)-limit:]...)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan event log: %w", err)
	}

	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events, nil
}

// ReplayEvents publishes events to b on their original topics.
func ReplayEvents(ctx context.Context, b Bus, events []LoggedEvent) error {
	for _, entry := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.Publish(ctx, entry.Topic, entry.Event); err != nil {
			return fmt.Errorf("failed to replay event %s: %w", entry.Event.ID, err)
		}
	}
	return nil
}

// Close closes the log file.
func (l *EventLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		if err := l.file.Close(); err != nil {
			return fmt.Errorf("failed to close event log: %w", err)
		}
		l.file = nil
		l.encoder = nil
	}

	return nil
}
