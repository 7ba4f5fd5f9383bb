package chat

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// AuditConfig controls the NDJSON conversation audit trail. When disabled the
// logger is a no-op and nothing touches the filesystem.
type AuditConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// AuditEvent is one line in a session's audit file.
type AuditEvent struct {
	Timestamp  time.Time         `json:"ts"`
	UserID     int64             `json:"user_id"`
	SessionID  string            `json:"session_id"`
	AgentRole  string            `json:"agent_role"`
	Direction  string            `json:"direction"` // inbound | outbound
	EventType  string            `json:"event_type"`
	Content    string            `json:"content,omitempty"`
	PlanUpdate bool              `json:"plan_update,omitempty"`
	Meta       map[string]string `json:"meta,omitempty"`
}

// AuditLogger appends conversation events to per-session NDJSON files under
// Dir/<userID>/<sessionID>.ndjson. Writes happen on a background goroutine
// fed by a bounded queue; when the queue is full events are dropped rather
// than blocking the request path.
type AuditLogger struct {
	cfg    AuditConfig
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan AuditEvent
	done   chan struct{}
}

func NewAuditLogger(cfg AuditConfig, logger *slog.Logger) (*AuditLogger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &AuditLogger{cfg: cfg, logger: logger}
	if !cfg.Enabled {
		return a, nil
	}

	if cfg.Dir == "" {
		return nil, fmt.Errorf("audit log directory not configured")
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create audit log directory: %w", err)
	}

	size := cfg.QueueSize
	if size <= 0 {
		size = 1000
	}
	a.queue = make(chan AuditEvent, size)
	a.done = make(chan struct{})
	go a.run()

	return a, nil
}

// Log enqueues an event. Safe to call on a disabled or closed logger.
func (a *AuditLogger) Log(event AuditEvent) {
	if a == nil || a.queue == nil {
		return
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case a.queue <- event:
	default:
		a.logger.Warn("audit log queue full, dropping event",
			"session_id", event.SessionID,
			"event_type", event.EventType)
	}
}

// Close drains the queue and stops the writer goroutine.
func (a *AuditLogger) Close() error {
	if a == nil || a.queue == nil {
		return nil
	}

	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
	case <-time.After(2 * time.Second):
		a.logger.Warn("timed out flushing audit log queue")
	}
	return nil
}

func (a *AuditLogger) run() {
	defer close(a.done)
	for event := range a.queue {
		if err := a.write(event); err != nil {
			a.logger.Warn("failed to write audit event",
				"session_id", event.SessionID,
				"error", err)
		}
	}
}

func (a *AuditLogger) write(event AuditEvent) error {
	dir := filepath.Join(a.cfg.Dir, strconv.FormatInt(event.UserID, 10))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create user audit directory: %w", err)
	}

	path := filepath.Join(dir, event.SessionID+".ndjson")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	defer func() { _ = f.Close() }()

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	line = append(line, '\n')
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}
