package contract

import (
	"context"

	"career-chat-be/internal/entity"
	"career-chat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatSessionRepository interface {
	Create(ctx context.Context, session *entity.ChatSession) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// UpdateTitleIfMatch sets the title only while it still equals expected.
	// Reports whether the row changed.
	UpdateTitleIfMatch(ctx context.Context, id uuid.UUID, expected, title string) (bool, error)
}
