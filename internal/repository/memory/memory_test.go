package memory

import (
	"context"
	"testing"
	"time"

	"career-chat-be/internal/constant"
	"career-chat-be/internal/entity"
	"career-chat-be/internal/repository/contract"
	"career-chat-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedUser(t *testing.T, store *Store, email string) *entity.User {
	t.Helper()
	user := &entity.User{Email: email, PasswordHash: "x"}
	require.NoError(t, NewUserRepository(store).Create(context.Background(), user))
	return user
}

func TestUserRepository_UniqueEmail(t *testing.T) {
	store := NewStore()
	repo := NewUserRepository(store)
	ctx := context.Background()

	user := seedUser(t, store, "a@example.com")
	assert.NotEqual(t, uuid.Nil, user.Id)
	assert.False(t, user.CreatedAt.IsZero())

	err := repo.Create(ctx, &entity.User{Email: "a@example.com"})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	found, err := repo.FindOne(ctx, specification.ByEmail{Email: "a@example.com"})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.Id, found.Id)

	missing, err := repo.FindOne(ctx, specification.ByEmail{Email: "b@example.com"})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestChatRepositories_ForeignKeys(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	err := NewChatSessionRepository(store).Create(ctx, &entity.ChatSession{UserId: uuid.New()})
	assert.ErrorIs(t, err, gorm.ErrForeignKeyViolated)

	err = NewChatMessageRepository(store).Create(ctx, &entity.ChatMessage{ChatSessionId: uuid.New(), Chat: "hi"})
	assert.ErrorIs(t, err, gorm.ErrForeignKeyViolated)
}

func TestChatSessionRepository_DeleteCascades(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	user := seedUser(t, store, "a@example.com")
	sessions := NewChatSessionRepository(store)
	messages := NewChatMessageRepository(store)

	gone := &entity.ChatSession{UserId: user.Id}
	kept := &entity.ChatSession{UserId: user.Id}
	require.NoError(t, sessions.Create(ctx, gone))
	require.NoError(t, sessions.Create(ctx, kept))
	assert.Equal(t, constant.DefaultSessionTitle, gone.Title)

	for _, s := range []*entity.ChatSession{gone, kept, gone} {
		require.NoError(t, messages.Create(ctx, &entity.ChatMessage{ChatSessionId: s.Id, Role: constant.ChatMessageRoleUser, Chat: "hi"}))
	}

	require.NoError(t, sessions.Delete(ctx, gone.Id))

	n, err := messages.Count(ctx, specification.ByChatSessionID{ChatSessionID: gone.Id})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	n, err = messages.Count(ctx, specification.ByChatSessionID{ChatSessionID: kept.Id})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestChatSessionRepository_UpdateTitleIfMatch(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	user := seedUser(t, store, "a@example.com")
	repo := NewChatSessionRepository(store)

	session := &entity.ChatSession{UserId: user.Id}
	require.NoError(t, repo.Create(ctx, session))

	ok, err := repo.UpdateTitleIfMatch(ctx, session.Id, constant.DefaultSessionTitle, "First")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateTitleIfMatch(ctx, session.Id, constant.DefaultSessionTitle, "Second")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.UpdateTitleIfMatch(ctx, uuid.New(), constant.DefaultSessionTitle, "Third")
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.FindOne(ctx, specification.ByID{ID: session.Id})
	require.NoError(t, err)
	assert.Equal(t, "First", stored.Title)
	require.NotNil(t, stored.UpdatedAt)
}

func TestQuery_OrderPaginateAndCreatedBefore(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	user := seedUser(t, store, "a@example.com")
	session := &entity.ChatSession{UserId: user.Id}
	require.NoError(t, NewChatSessionRepository(store).Create(ctx, session))
	repo := NewChatMessageRepository(store)

	var created []*entity.ChatMessage
	for _, text := range []string{"m0", "m1", "m2", "m3", "m4"} {
		m := &entity.ChatMessage{ChatSessionId: session.Id, Role: constant.ChatMessageRoleUser, Chat: text}
		require.NoError(t, repo.Create(ctx, m))
		created = append(created, m)
	}
	for i := 1; i < len(created); i++ {
		assert.True(t, created[i-1].CreatedAt.Before(created[i].CreatedAt))
	}

	rows, err := repo.FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: session.Id},
		specification.NotID{ID: created[4].Id},
		specification.CreatedBefore{At: created[4].CreatedAt},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: 2, Offset: 1},
	)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "m2", rows[0].Chat)
	assert.Equal(t, "m1", rows[1].Chat)

	rows, err = repo.FindAll(ctx, specification.Pagination{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestQuery_UnsupportedSpecification(t *testing.T) {
	_, err := NewUserRepository(NewStore()).FindOne(context.Background(), unsupported{})
	assert.Error(t, err)
}

type unsupported struct{}

func (unsupported) Apply(db *gorm.DB) *gorm.DB { return db }

func TestUnitOfWork_RollbackRestoresRows(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	user := seedUser(t, store, "a@example.com")
	factory := NewRepositoryFactory(store)

	setup := factory.NewUnitOfWork(ctx)
	session := &entity.ChatSession{UserId: user.Id}
	require.NoError(t, setup.ChatSessionRepository().Create(ctx, session))
	require.NoError(t, setup.ChatMessageRepository().Create(ctx, &entity.ChatMessage{ChatSessionId: session.Id, Chat: "hi"}))

	uow := factory.NewUnitOfWork(ctx)
	require.NoError(t, uow.Begin(ctx))
	require.NoError(t, uow.ChatMessageRepository().DeleteByChatSessionId(ctx, session.Id))
	require.NoError(t, uow.ChatSessionRepository().Delete(ctx, session.Id))
	extra := &entity.ChatSession{UserId: user.Id}
	require.NoError(t, uow.ChatSessionRepository().Create(ctx, extra))
	require.NoError(t, uow.Rollback())

	check := factory.NewUnitOfWork(ctx)
	restored, err := check.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: session.Id})
	require.NoError(t, err)
	assert.NotNil(t, restored)
	dropped, err := check.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: extra.Id})
	require.NoError(t, err)
	assert.Nil(t, dropped)
	n, err := check.ChatMessageRepository().Count(ctx, specification.ByChatSessionID{ChatSessionID: session.Id})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.Error(t, uow.Commit())
}

func TestSendResultRepository(t *testing.T) {
	repo := NewSendResultRepository(time.Minute)
	userId := uuid.New()

	_, ok := repo.Get(userId, "r1")
	assert.False(t, ok)

	result := &contract.SendResult{SessionId: uuid.New(), Title: "t"}
	repo.Save(userId, "r1", result)

	got, ok := repo.Get(userId, "r1")
	require.True(t, ok)
	assert.Same(t, result, got)

	_, ok = repo.Get(uuid.New(), "r1")
	assert.False(t, ok)
}
