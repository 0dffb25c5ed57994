package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is append-only; rows are never edited after creation.
type ChatMessage struct {
	Id            uuid.UUID
	Chat          string
	Role          string
	ChatSessionId uuid.UUID
	CreatedAt     time.Time
}
