package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is a text message exchanged between the two participants of an
// active call. It lives only on the wire; nothing is stored.
type ChatMessage struct {
	ID          uuid.UUID `json:"id"`
	SenderID    string    `json:"sender_id"`
	DisplayName string    `json:"display_name"`
	Content     string    `json:"content"`
	SentAt      time.Time `json:"sent_at"`
}

func NewChatMessage(sender Identity, content string) *ChatMessage {
	return &ChatMessage{
		ID:          uuid.New(),
		SenderID:    sender.ID,
		DisplayName: sender.DisplayName,
		Content:     content,
		SentAt:      time.Now().UTC(),
	}
}
