// internal/state/eventlog.go
package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// StoredDelivery is one raw webhook delivery kept for the replay feed.
type StoredDelivery struct {
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// EventLog is a bounded in-memory ring of recent webhook deliveries,
// mirrored to a JSON file so the feed survives restarts. This is the one
// process-wide critical section the server takes outside the per-conversation
// core.
type EventLog struct {
	path  string
	limit int

	mu      sync.Mutex
	entries []StoredDelivery
}

// NewEventLog creates a log keeping the last limit deliveries, persisted at
// path. Pass an empty path to disable persistence.
func NewEventLog(path string, limit int) *EventLog {
	if limit <= 0 {
		limit = 100
	}
	return &EventLog{path: path, limit: limit}
}

// Load reads previously persisted deliveries. A missing file is not an error.
func (l *EventLog) Load() error {
	if l.path == "" {
		return nil
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read event log: %w", err)
	}

	var entries []StoredDelivery
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse event log: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = entries
	l.trim()
	return nil
}

// Append records a delivery and persists the log.
func (l *EventLog) Append(delivery StoredDelivery) {
	l.mu.Lock()
	l.entries = append(l.entries, delivery)
	l.trim()
	snapshot := append([]StoredDelivery(nil), l.entries...)
	l.mu.Unlock()

	if l.path == "" {
		return
	}
	if err := l.save(snapshot); err != nil {
		// Persistence is best effort; the in-memory ring stays authoritative.
		slog.Error("save event log failed", "error", err)
	}
}

// trim drops oldest entries beyond the limit. Caller must hold l.mu.
func (l *EventLog) trim() {
	if len(l.entries) > l.limit {
		l.entries = l.entries[len(l.entries)-l.limit:]
	}
}

func (l *EventLog) save(entries []StoredDelivery) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal event log: %w", err)
	}
	tmpPath := l.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write event log: %w", err)
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename event log: %w", err)
	}
	return nil
}

// Snapshot returns a copy of the stored deliveries, oldest first.
func (l *EventLog) Snapshot() []StoredDelivery {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]StoredDelivery(nil), l.entries...)
}
