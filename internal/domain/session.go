package domain

import (
	"time"
)

// SessionStatus is the lifecycle state of a conversation session.
type SessionStatus string

const (
	// SessionActive means the session accepts new turns.
	SessionActive SessionStatus = "active"
	// SessionCleared is terminal: a cleared session is never reactivated,
	// the next message for the pair creates a fresh session.
	SessionCleared SessionStatus = "cleared"
)

// Session is one conversation thread between a user and a role. At most one
// active session exists per (user, role) pair at a time; identifiers are
// never reused after a clear.
type Session struct {
	ID           string
	UserID       int64
	Role         Role
	Name         string
	Status       SessionStatus
	MessageCount int
	CreatedAt    time.Time
	LastActivity time.Time
}

// Active reports whether the session still accepts turns.
func (s *Session) Active() bool {
	return s.Status == SessionActive
}

// Duration returns the wall-clock span between creation and last activity.
func (s *Session) Duration() time.Duration {
	if s.LastActivity.Before(s.CreatedAt) {
		return 0
	}
	return s.LastActivity.Sub(s.CreatedAt)
}
