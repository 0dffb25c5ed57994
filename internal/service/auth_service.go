package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"career-chat-be/internal/constant"
	"career-chat-be/internal/dto"
	"career-chat-be/internal/entity"
	"career-chat-be/internal/pkg/apperror"
	"career-chat-be/internal/pkg/logger"
	"career-chat-be/internal/pkg/serverutils"
	"career-chat-be/internal/repository/specification"
	"career-chat-be/internal/repository/unitofwork"
	"career-chat-be/pkg/events"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type IAuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
}

type authService struct {
	uowFactory unitofwork.RepositoryFactory
	publisher  IPublisherService
	logger     logger.ILogger
	jwtSecret  string
	jwtTTL     time.Duration
}

func NewAuthService(
	uowFactory unitofwork.RepositoryFactory,
	publisher IPublisherService,
	log logger.ILogger,
	jwtSecret string,
	jwtTTL time.Duration,
) IAuthService {
	return &authService{
		uowFactory: uowFactory,
		publisher:  publisher,
		logger:     log,
		jwtSecret:  jwtSecret,
		jwtTTL:     jwtTTL,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	email := normalizeEmail(req.Email)

	existing, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: email})
	if err != nil {
		s.logger.Error("AUTH", "Failed to look up user", map[string]interface{}{"error": err.Error()})
		return nil, apperror.Internal("failed to register user", err)
	}
	if existing != nil {
		return nil, apperror.Conflict("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.Internal("failed to register user", err)
	}

	user := &entity.User{
		Id:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}

	if err := uow.UserRepository().Create(ctx, user); err != nil {
		// Lost a race against a concurrent signup for the same address.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Conflict("email already registered")
		}
		s.logger.Error("AUTH", "Failed to create user", map[string]interface{}{"error": err.Error()})
		return nil, apperror.Internal("failed to register user", err)
	}

	s.publish(ctx, events.New(constant.EventUserRegistered, map[string]interface{}{
		"user_id": user.Id.String(),
		"email":   user.Email,
	}))

	return &dto.RegisterResponse{Id: user.Id, Email: user.Email}, nil
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: normalizeEmail(req.Email)})
	if err != nil {
		s.logger.Error("AUTH", "Failed to look up user", map[string]interface{}{"error": err.Error()})
		return nil, apperror.Internal("failed to login", err)
	}
	if user == nil {
		return nil, apperror.Unauthorized("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperror.Unauthorized("invalid credentials")
	}

	token, err := serverutils.GenerateToken(user.Id, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, apperror.Internal("failed to login", err)
	}

	s.publish(ctx, events.New(constant.EventUserLogin, map[string]interface{}{
		"user_id": user.Id.String(),
	}))

	return &dto.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.jwtTTL.Seconds()),
		User: dto.UserDTO{
			Id:    user.Id,
			Email: user.Email,
		},
	}, nil
}

func (s *authService) publish(ctx context.Context, evt events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("AUTH", "Failed to publish event", map[string]interface{}{"error": err.Error(), "type": evt.EventType()})
	}
}
