package service

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/TCoder4k/engmasterai-backend/internal/auth"
	"github.com/TCoder4k/engmasterai-backend/internal/domain"
	"github.com/TCoder4k/engmasterai-backend/internal/media"
	"github.com/TCoder4k/engmasterai-backend/internal/repository"
	apperrors "github.com/TCoder4k/engmasterai-backend/pkg/util"
)

const pointsPerLevel = 100

// UserUpdate carries optional profile changes; nil fields are left untouched.
type UserUpdate struct {
	Name     *string
	Email    *string
	Password *string
}

// ListMeta describes a page of results.
type ListMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// UserService handles profile reads and writes.
type UserService struct {
	users      repository.UserRepository
	uploader   media.Uploader
	logger     *zap.Logger
	bcryptCost int
}

// NewUserService builds the service. The uploader may be nil when the
// media host is not configured; avatar uploads then fail cleanly.
func NewUserService(users repository.UserRepository, uploader media.Uploader, logger *zap.Logger, bcryptCost int) *UserService {
	return &UserService{users: users, uploader: uploader, logger: logger, bcryptCost: bcryptCost}
}

// List returns a page of users ordered by newest first.
func (s *UserService) List(ctx context.Context, page, limit int) ([]*domain.User, ListMeta, error) {
	if limit <= 0 {
		limit = 10
	}
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	users, err := s.users.List(ctx, offset, limit)
	if err != nil {
		return nil, ListMeta{}, err
	}
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, ListMeta{}, err
	}

	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}
	return users, ListMeta{Total: total, Page: page, Limit: limit, TotalPages: totalPages}, nil
}

// Get fetches a single user.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return nil, err
	}
	return user, nil
}

// Update applies profile changes. Changing email to one held by a
// different account is a conflict.
func (s *UserService) Update(ctx context.Context, id string, update UserUpdate) (*domain.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Email != nil && *update.Email != user.Email {
		existing, err := s.users.GetByEmail(ctx, *update.Email)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		if existing != nil && existing.ID != id {
			return nil, apperrors.NewConflict("email is already in use", nil)
		}
		user.Email = *update.Email
	}
	if update.Name != nil {
		user.Name = *update.Name
	}
	if update.Password != nil {
		hash, err := auth.HashPassword(*update.Password, s.bcryptCost)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperrors.NewConflict("email is already in use", nil)
		}
		return nil, err
	}
	return user, nil
}

// Delete removes a user.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return err
	}
	return nil
}

// ChangePassword verifies the current password before storing a new hash.
func (s *UserService) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewValidationError("current password is incorrect", nil)
	}
	if auth.ComparePassword(user.PasswordHash, newPassword) == nil {
		return apperrors.NewValidationError("new password must be different from current password", nil)
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash
	return s.users.Update(ctx, user)
}

// UpdateAvatar replaces the user's avatar on the media host and
// persists the new URL. Deleting the old asset is best effort.
func (s *UserService) UpdateAvatar(ctx context.Context, id, filename string, content io.Reader) (*domain.User, error) {
	if s.uploader == nil {
		return nil, apperrors.NewValidationError("avatar uploads are not configured", nil)
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if user.AvatarURL != "" {
		if publicID := media.PublicIDFromURL(user.AvatarURL); publicID != "" {
			if err := s.uploader.Delete(ctx, publicID); err != nil {
				s.logger.Warn("failed to delete previous avatar", zap.Error(err))
			}
		}
	}

	url, _, err := s.uploader.Upload(ctx, filename, content)
	if err != nil {
		return nil, apperrors.NewValidationError("failed to upload avatar", map[string]any{"reason": err.Error()})
	}

	user.AvatarURL = url
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// AddPoints credits points and recomputes the level.
func (s *UserService) AddPoints(ctx context.Context, id string, points int) (*domain.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	user.TotalPoints += points
	user.Level = user.TotalPoints/pointsPerLevel + 1
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
