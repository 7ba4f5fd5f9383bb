package domain

import "time"

// MessageType distinguishes the two sides of a conversation turn.
type MessageType string

const (
	MessageHuman     MessageType = "human"
	MessageAssistant MessageType = "assistant"
)

// Turn is a single persisted message within a session. Turns carry a strictly
// increasing, gapless order number scoped to their session; a user message
// and the assistant reply occupy consecutive order numbers.
type Turn struct {
	ID                 int64
	SessionID          string
	UserID             int64
	Role               Role
	Type               MessageType
	Content            string
	Order              int
	ContainsPlanUpdate bool
	CreatedAt          time.Time
}

// ContextMessage is the window representation of a turn handed to prompt
// construction: role tag and content only.
type ContextMessage struct {
	Type      MessageType
	Content   string
	CreatedAt time.Time
}

// HistoryPair is one user/assistant exchange as surfaced to API clients.
type HistoryPair struct {
	Human         string    `json:"human"`
	AI            string    `json:"ai"`
	Timestamp     time.Time `json:"timestamp"`
	WasPlanUpdate bool      `json:"is_update"`
}
