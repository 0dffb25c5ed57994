package memory

import (
	"sync"
	"time"

	"career-chat-be/internal/entity"

	"github.com/google/uuid"
)

// Store is a process-local replacement for the relational schema. It keeps the
// same constraints the Postgres tables enforce: unique emails, foreign keys
// and cascading session deletes.
type Store struct {
	mu       sync.RWMutex
	users    []*entity.User
	sessions []*entity.ChatSession
	messages []*entity.ChatMessage
	lastTime time.Time
}

func NewStore() *Store {
	return &Store{}
}

// now never returns the same instant twice so created_at ordering stays total.
func (s *Store) now() time.Time {
	t := time.Now().UTC()
	if !t.After(s.lastTime) {
		t = s.lastTime.Add(time.Microsecond)
	}
	s.lastTime = t
	return t
}

func (s *Store) userExists(id uuid.UUID) bool {
	for _, u := range s.users {
		if u.Id == id {
			return true
		}
	}
	return false
}

func (s *Store) findSession(id uuid.UUID) *entity.ChatSession {
	for _, cs := range s.sessions {
		if cs.Id == id {
			return cs
		}
	}
	return nil
}

func userColumn(u *entity.User, column string) (any, bool) {
	switch column {
	case "id":
		return u.Id, true
	case "email":
		return u.Email, true
	case "created_at":
		return u.CreatedAt, true
	}
	return nil, false
}

func chatSessionColumn(cs *entity.ChatSession, column string) (any, bool) {
	switch column {
	case "id":
		return cs.Id, true
	case "user_id":
		return cs.UserId, true
	case "title":
		return cs.Title, true
	case "created_at":
		return cs.CreatedAt, true
	}
	return nil, false
}

func chatMessageColumn(m *entity.ChatMessage, column string) (any, bool) {
	switch column {
	case "id":
		return m.Id, true
	case "chat_session_id":
		return m.ChatSessionId, true
	case "role":
		return m.Role, true
	case "created_at":
		return m.CreatedAt, true
	}
	return nil, false
}

func removeAt[T any](rows []T, i int) []T {
	return append(rows[:i:i], rows[i+1:]...)
}
