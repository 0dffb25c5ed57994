package service

import (
	"context"
	"testing"
	"time"

	"career-chat-be/internal/constant"
	"career-chat-be/internal/dto"
	"career-chat-be/internal/pkg/logger"
	"career-chat-be/internal/pkg/serverutils"
	"career-chat-be/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newAuthService(t *testing.T) (IAuthService, IUserService, *recordingPublisher) {
	t.Helper()
	factory := memory.NewRepositoryFactory(memory.NewStore())
	publisher := &recordingPublisher{}
	return NewAuthService(factory, publisher, logger.NewNopLogger(), testSecret, time.Hour), NewUserService(factory), publisher
}

func TestRegisterAndLogin(t *testing.T) {
	auth, users, publisher := newAuthService(t)
	ctx := context.Background()

	registered, err := auth.Register(ctx, &dto.RegisterRequest{Email: "  Jane@Example.COM ", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", registered.Email)
	assert.Len(t, publisher.ofType(constant.EventUserRegistered), 1)

	login, err := auth.Login(ctx, &dto.LoginRequest{Email: "jane@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, registered.Id, login.User.Id)
	assert.Equal(t, int64(3600), login.ExpiresIn)

	userId, err := serverutils.ParseToken(login.AccessToken, testSecret)
	require.NoError(t, err)
	assert.Equal(t, registered.Id, userId)

	profile, err := users.GetProfile(ctx, userId)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", profile.Email)
	assert.Equal(t, int64(0), profile.SessionCount)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	auth, _, _ := newAuthService(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, &dto.RegisterRequest{Email: "dup@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = auth.Register(ctx, &dto.RegisterRequest{Email: "DUP@example.com", Password: "password456"})
	assertCode(t, err, 409)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	auth, _, _ := newAuthService(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, &dto.RegisterRequest{Email: "a@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = auth.Login(ctx, &dto.LoginRequest{Email: "a@example.com", Password: "wrong-password"})
	assertCode(t, err, 401)

	_, err = auth.Login(ctx, &dto.LoginRequest{Email: "nobody@example.com", Password: "password123"})
	assertCode(t, err, 401)
}
