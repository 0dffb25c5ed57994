package contract

import (
	"career-chat-be/internal/entity"

	"github.com/google/uuid"
)

// SendResult is the outcome of one finished send, kept for replays of the same client request id.
type SendResult struct {
	SessionId        uuid.UUID
	UserMessage      *entity.ChatMessage
	AssistantMessage *entity.ChatMessage
	Title            string
}

type SendResultRepository interface {
	Save(userId uuid.UUID, clientRequestId string, result *SendResult)
	Get(userId uuid.UUID, clientRequestId string) (*SendResult, bool)
}
