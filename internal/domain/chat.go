package domain

import "time"

// ConversationContext is the assembled memory state handed to prompt
// construction: the only conversation state the model ever sees.
type ConversationContext struct {
	SessionID      string
	RecentMessages []ContextMessage
	Summary        string
	References     []ContextReference
	MessageCount   int
}

// ChatResult is the outcome of one orchestrated turn.
type ChatResult struct {
	Success            bool   `json:"success"`
	Response           string `json:"response,omitempty"`
	Error              string `json:"error,omitempty"`
	ContainsPlanUpdate bool   `json:"contains_plan_update"`
	SessionID          string `json:"session_id,omitempty"`
	MessageCount       int    `json:"message_count"`
}

// SessionAnalytics aggregates usage statistics for the active session of a
// (user, role) pair.
type SessionAnalytics struct {
	SessionID         string    `json:"session_id"`
	TotalMessages     int       `json:"total_messages"`
	HumanMessages     int       `json:"human_messages"`
	AssistantMessages int       `json:"assistant_messages"`
	PlanUpdates       int       `json:"plan_updates"`
	DurationMinutes   float64   `json:"duration_minutes"`
	LastActivity      time.Time `json:"last_activity"`
	Status            string    `json:"status"`
}
