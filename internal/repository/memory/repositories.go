package memory

import (
	"context"

	"career-chat-be/internal/constant"
	"career-chat-be/internal/entity"
	"career-chat-be/internal/repository/contract"
	"career-chat-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// journal receives undo steps while a unit of work is inside a transaction.
type journal interface {
	record(undo func())
}

type noJournal struct{}

func (noJournal) record(func()) {}

type UserRepository struct {
	store   *Store
	journal journal
}

func NewUserRepository(store *Store) contract.UserRepository {
	return &UserRepository{store: store, journal: noJournal{}}
}

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, u := range r.store.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.Id == uuid.Nil {
		user.Id = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = r.store.now()
	}
	row := *user
	r.store.users = append(r.store.users, &row)

	id := row.Id
	r.journal.record(func() {
		for i, u := range r.store.users {
			if u.Id == id {
				r.store.users = removeAt(r.store.users, i)
				return
			}
		}
	})
	return nil
}

func (r *UserRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	rows, err := r.find(specs)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (r *UserRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	rows, err := r.find(specs)
	return int64(len(rows)), err
}

func (r *UserRepository) find(specs []specification.Specification) ([]*entity.User, error) {
	q, err := compile(userColumn, specs)
	if err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rows := q.run(r.store.users)
	out := make([]*entity.User, len(rows))
	for i, u := range rows {
		c := *u
		out[i] = &c
	}
	return out, nil
}

type ChatSessionRepository struct {
	store   *Store
	journal journal
}

func NewChatSessionRepository(store *Store) contract.ChatSessionRepository {
	return &ChatSessionRepository{store: store, journal: noJournal{}}
}

func (r *ChatSessionRepository) Create(ctx context.Context, session *entity.ChatSession) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if !r.store.userExists(session.UserId) {
		return gorm.ErrForeignKeyViolated
	}
	if session.Id == uuid.Nil {
		session.Id = uuid.New()
	}
	if session.Title == "" {
		session.Title = constant.DefaultSessionTitle
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = r.store.now()
	}
	row := *session
	r.store.sessions = append(r.store.sessions, &row)

	id := row.Id
	r.journal.record(func() {
		for i, cs := range r.store.sessions {
			if cs.Id == id {
				r.store.sessions = removeAt(r.store.sessions, i)
				return
			}
		}
	})
	return nil
}

// Delete removes the session and cascades to its messages.
func (r *ChatSessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var removed *entity.ChatSession
	for i, cs := range r.store.sessions {
		if cs.Id == id {
			removed = cs
			r.store.sessions = removeAt(r.store.sessions, i)
			break
		}
	}
	if removed == nil {
		return nil
	}

	var cascaded []*entity.ChatMessage
	kept := r.store.messages[:0:0]
	for _, m := range r.store.messages {
		if m.ChatSessionId == id {
			cascaded = append(cascaded, m)
			continue
		}
		kept = append(kept, m)
	}
	r.store.messages = kept

	r.journal.record(func() {
		r.store.sessions = append(r.store.sessions, removed)
		r.store.messages = append(r.store.messages, cascaded...)
	})
	return nil
}

func (r *ChatSessionRepository) UpdateTitleIfMatch(ctx context.Context, id uuid.UUID, expected, title string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	cs := r.store.findSession(id)
	if cs == nil || cs.Title != expected {
		return false, nil
	}
	cs.Title = title
	now := r.store.now()
	cs.UpdatedAt = &now

	r.journal.record(func() {
		if cs.Title == title {
			cs.Title = expected
		}
	})
	return true, nil
}

func (r *ChatSessionRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	rows, err := r.find(specs)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (r *ChatSessionRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	return r.find(specs)
}

func (r *ChatSessionRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	rows, err := r.find(specs)
	return int64(len(rows)), err
}

func (r *ChatSessionRepository) find(specs []specification.Specification) ([]*entity.ChatSession, error) {
	q, err := compile(chatSessionColumn, specs)
	if err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rows := q.run(r.store.sessions)
	out := make([]*entity.ChatSession, len(rows))
	for i, cs := range rows {
		c := *cs
		if cs.UpdatedAt != nil {
			t := *cs.UpdatedAt
			c.UpdatedAt = &t
		}
		out[i] = &c
	}
	return out, nil
}

type ChatMessageRepository struct {
	store   *Store
	journal journal
}

func NewChatMessageRepository(store *Store) contract.ChatMessageRepository {
	return &ChatMessageRepository{store: store, journal: noJournal{}}
}

func (r *ChatMessageRepository) Create(ctx context.Context, message *entity.ChatMessage) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.store.findSession(message.ChatSessionId) == nil {
		return gorm.ErrForeignKeyViolated
	}
	if message.Id == uuid.Nil {
		message.Id = uuid.New()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = r.store.now()
	}
	row := *message
	r.store.messages = append(r.store.messages, &row)

	id := row.Id
	r.journal.record(func() {
		for i, m := range r.store.messages {
			if m.Id == id {
				r.store.messages = removeAt(r.store.messages, i)
				return
			}
		}
	})
	return nil
}

func (r *ChatMessageRepository) DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var removed []*entity.ChatMessage
	kept := r.store.messages[:0:0]
	for _, m := range r.store.messages {
		if m.ChatSessionId == sessionId {
			removed = append(removed, m)
			continue
		}
		kept = append(kept, m)
	}
	r.store.messages = kept

	r.journal.record(func() {
		r.store.messages = append(r.store.messages, removed...)
	})
	return nil
}

func (r *ChatMessageRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatMessage, error) {
	rows, err := r.find(specs)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (r *ChatMessageRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	return r.find(specs)
}

func (r *ChatMessageRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	rows, err := r.find(specs)
	return int64(len(rows)), err
}

func (r *ChatMessageRepository) find(specs []specification.Specification) ([]*entity.ChatMessage, error) {
	q, err := compile(chatMessageColumn, specs)
	if err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rows := q.run(r.store.messages)
	out := make([]*entity.ChatMessage, len(rows))
	for i, m := range rows {
		c := *m
		out[i] = &c
	}
	return out, nil
}
