package dto

import (
	"time"

	"github.com/google/uuid"
)

type UserProfileResponse struct {
	Id           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	SessionCount int64     `json:"session_count"`
	CreatedAt    time.Time `json:"created_at"`
}
