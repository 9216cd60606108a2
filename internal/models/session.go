package models

import "time"

// Session is a conversation identity. The ID is either caller-supplied
// (continuing session) or server-assigned (new session, learned from the
// terminal frame of the first turn). It is never mutated after creation.
type Session struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Model        string    `json:"model,omitempty"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
