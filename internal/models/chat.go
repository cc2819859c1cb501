package models

import (
	"time"
)

type Chat struct {
	ID        int       `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type ChatParticipant struct {
	ChatID int `json:"chat_id" db:"chat_id"`
	UserID int `json:"user_id" db:"user_id"`
}

// ChatView is a chat as one specific viewer sees it: name and picture are
// derived from the other participant, never stored on the chat itself.
type ChatView struct {
	Chat
	Name        *string  `json:"name"`
	Picture     *string  `json:"picture"`
	LastMessage *Message `json:"last_message,omitempty"`
}
