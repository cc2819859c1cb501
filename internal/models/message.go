package models

import (
	"time"
)

type Message struct {
	ID           int       `json:"id" db:"id"`
	ChatID       int       `json:"chat_id" db:"chat_id"`
	SenderUserID int       `json:"sender_user_id" db:"sender_user_id"`
	Content      string    `json:"content" db:"content"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
