package service

import (
	"context"

	"career-chat-be/internal/dto"
	"career-chat-be/internal/pkg/apperror"
	"career-chat-be/internal/repository/specification"
	"career-chat-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type IUserService interface {
	GetProfile(ctx context.Context, userId uuid.UUID) (*dto.UserProfileResponse, error)
}

type userService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewUserService(uowFactory unitofwork.RepositoryFactory) IUserService {
	return &userService{
		uowFactory: uowFactory,
	}
}

func (s *userService) GetProfile(ctx context.Context, userId uuid.UUID) (*dto.UserProfileResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, apperror.Internal("failed to load user", err)
	}
	if user == nil {
		return nil, apperror.NotFound("user not found")
	}

	sessionCount, err := uow.ChatSessionRepository().Count(ctx, specification.UserOwnedBy{UserID: userId})
	if err != nil {
		return nil, apperror.Internal("failed to load user", err)
	}

	return &dto.UserProfileResponse{
		Id:           user.Id,
		Email:        user.Email,
		SessionCount: sessionCount,
		CreatedAt:    user.CreatedAt,
	}, nil
}
