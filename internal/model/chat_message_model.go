package model

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatSessionId uuid.UUID `gorm:"type:uuid;not null;index:idx_chat_messages_session_created,priority:1"`
	Role          string    `gorm:"type:varchar(50);not null"` // "user" | "assistant"
	Chat          string    `gorm:"type:text;not null"`
	CreatedAt     time.Time `gorm:"not null;index:idx_chat_messages_session_created,priority:2"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
