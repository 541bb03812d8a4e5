// Package audit records lifecycle events for containers and the
// notification server. Events are stored as JSON Lines, one file per subject.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// EventType classifies a lifecycle event.
type EventType string

const (
	EventBuild       EventType = "build"
	EventCreate      EventType = "create"
	EventStart       EventType = "start"
	EventAttach      EventType = "attach"
	EventClean       EventType = "clean"
	EventDaemonStart EventType = "daemon-start"
	EventDaemonStop  EventType = "daemon-stop"
	EventError       EventType = "error"
)

// ServerSubject is the subject daemon events are filed under.
const ServerSubject = "server"

// Event is a single audit log entry.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Subject   string    `json:"subject"`
	Details   string    `json:"details,omitempty"`
}

// Recorder accepts lifecycle events. Implementations must tolerate
// concurrent callers from separate processes.
type Recorder interface {
	Record(eventType EventType, subject, details string) error
}

// Logger writes and reads audit events stored as {dir}/{subject}.jsonl.
type Logger struct {
	dir string
}

// NewLogger creates a logger rooted at dir.
func NewLogger(dir string) *Logger {
	return &Logger{dir: dir}
}

func (l *Logger) eventPath(subject string) string {
	return filepath.Join(l.dir, subject+".jsonl")
}

// Log appends an event to its subject's log. Each event is written with a
// single append so lines from concurrent invocations do not interleave.
func (l *Logger) Log(event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Subject == "" {
		return fmt.Errorf("audit event has no subject")
	}

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("failed to create audit log directory: %w", err)
	}

	f, err := os.OpenFile(l.eventPath(event.Subject), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// Record implements Recorder.
func (l *Logger) Record(eventType EventType, subject, details string) error {
	return l.Log(Event{
		Timestamp: time.Now(),
		Type:      eventType,
		Subject:   subject,
		Details:   details,
	})
}

// Events reads all events for a subject in the order they were written.
func (l *Logger) Events(subject string) ([]Event, error) {
	f, err := os.Open(l.eventPath(subject))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue // torn or hand-edited line
		}
		events = append(events, event)
	}

	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("error reading audit log: %w", err)
	}

	return events, nil
}

// Remove deletes the audit log for a subject.
func (l *Logger) Remove(subject string) error {
	if err := os.Remove(l.eventPath(subject)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Discard is a Recorder that drops every event.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(EventType, string, string) error { return nil }
