package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/TCoder4k/engmasterai-backend/internal/auth"
	"github.com/TCoder4k/engmasterai-backend/internal/domain"
	"github.com/TCoder4k/engmasterai-backend/internal/events"
	"github.com/TCoder4k/engmasterai-backend/internal/repository"
	apperrors "github.com/TCoder4k/engmasterai-backend/pkg/util"
)

// Expected auth failures. InvalidCredentials deliberately covers
// unknown email, wrong password, and a mismatched asserted role so the
// response never reveals which factor failed.
var (
	ErrInvalidCredentials = apperrors.NewForbidden("email or password invalid")
	ErrDuplicateEmail     = apperrors.NewForbidden("error in credentials")
	ErrInvalidToken       = apperrors.NewForbidden("invalid token")
)

// AuthService coordinates registration, login and logout.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	revoked    *auth.RevocationList
	dispatcher events.Dispatcher
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(users repository.UserRepository, tokens *auth.TokenManager, revoked *auth.RevocationList, dispatcher events.Dispatcher, bcryptCost int) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		revoked:    revoked,
		dispatcher: dispatcher,
		bcryptCost: bcryptCost,
	}
}

// Register creates a new account with the non-privileged role and
// returns the user plus a freshly issued token.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, string, time.Time, error) {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Level:        1,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, "", time.Time{}, ErrDuplicateEmail
		}
		return nil, "", time.Time{}, err
	}

	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.UserRegistered, user)
	return user, token, expiresAt, nil
}

// Login authenticates a user. A non-empty claimedRole must match the
// stored role.
func (s *AuthService) Login(ctx context.Context, email, password string, claimedRole domain.UserRole) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", time.Time{}, ErrInvalidCredentials
		}
		return nil, "", time.Time{}, err
	}
	if claimedRole != "" && claimedRole != user.Role {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.UserLoggedIn, user)
	return user, token, expiresAt, nil
}

// Logout revokes the bearer token until its claimed expiry. The token
// is only decoded, not verified: revoking a token that would fail
// verification anyway is harmless, and repeated logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	claims, err := s.tokens.DecodeToken(rawToken)
	if err != nil || claims.ExpiresAt == nil {
		return ErrInvalidToken
	}

	s.revoked.Revoke(rawToken, claims.ExpiresAt.Time)

	s.publish(ctx, events.UserLoggedOut, &domain.User{ID: claims.Subject, Email: claims.Email})
	return nil
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, user *domain.User) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     user.ID,
		Email:      user.Email,
		OccurredAt: time.Now(),
	})
}
