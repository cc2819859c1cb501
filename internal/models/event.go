package models

// Domain events carried by the broker. Events are ephemeral: they live for a
// single fan-out pass and are never persisted.

type MessageAdded struct {
	Message Message `json:"message"`
}

type ChatAdded struct {
	Chat Chat `json:"chat"`
}

// ChatRemoved keeps a snapshot of the deleted chat: the rows are already gone
// when subscribers are authorized, so both the chat id and the participant set
// must come from here. The participant list is authorization metadata and is
// not sent to clients.
type ChatRemoved struct {
	ChatID         int   `json:"chat_id"`
	Chat           Chat  `json:"chat"`
	ParticipantIDs []int `json:"-"`
}

// EventChatID reports which chat an event belongs to, which is all the
// subscription filter needs to authorize delivery.
func (e MessageAdded) EventChatID() int { return e.Message.ChatID }
func (e ChatAdded) EventChatID() int    { return e.Chat.ID }
func (e ChatRemoved) EventChatID() int  { return e.ChatID }

// ChatEvent is implemented by every event that is scoped to a single chat.
type ChatEvent interface {
	EventChatID() int
}
