package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionRequest struct {
	Title string `json:"title" validate:"omitempty,notblank,max=255"` // defaults to "New Chat"
}

type SessionResponse struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type UpdateSessionTitleRequest struct {
	Title string `json:"title" validate:"required,notblank,max=255"`
}

type ChatMessageResponse struct {
	Id            uuid.UUID `json:"id"`
	ChatSessionId uuid.UUID `json:"chat_session_id"`
	Sender        string    `json:"sender"` // "user" | "assistant"
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
}

type SendChatRequest struct {
	Chat string `json:"content" validate:"required,notblank,max=2000"`
	// ClientRequestId lets a client retry a send without storing the user message twice.
	ClientRequestId string `json:"client_request_id,omitempty" validate:"omitempty,max=128"`
}

type SendChatResponse struct {
	ChatSessionId    uuid.UUID            `json:"chat_session_id"`
	ChatSessionTitle string               `json:"title"`
	ClientRequestId  string               `json:"client_request_id,omitempty"`
	Sent             *ChatMessageResponse `json:"user_message"`
	Reply            *ChatMessageResponse `json:"ai_message"`
	Fallback         bool                 `json:"fallback"` // reply is the service-unavailable notice
}

type RecentMessagesQuery struct {
	Limit  int `query:"limit" validate:"omitempty,min=1,max=100"`
	Offset int `query:"offset" validate:"min=0"`
}

type RecentMessagesResponse struct {
	Messages []*ChatMessageResponse `json:"messages"`
	HasMore  bool                   `json:"has_more"`
}
