package dto

import (
	"time"

	"github.com/TCoder4k/engmasterai-backend/internal/domain"
)

// UserView is the sanitized user representation; it never carries the
// password hash.
type UserView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	Role        string    `json:"role"`
	TotalPoints int       `json:"totalPoints"`
	Level       int       `json:"level"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewUserView maps a domain user to its public view.
func NewUserView(user *domain.User) UserView {
	return UserView{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		AvatarURL:   user.AvatarURL,
		Role:        string(user.Role),
		TotalPoints: user.TotalPoints,
		Level:       user.Level,
		CreatedAt:   user.CreatedAt,
	}
}

// NewUserViews maps a slice of domain users.
func NewUserViews(users []*domain.User) []UserView {
	views := make([]UserView, 0, len(users))
	for _, user := range users {
		views = append(views, NewUserView(user))
	}
	return views
}

// UpdateUserRequest carries optional profile changes.
type UpdateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// ChangePasswordRequest payload for password changes.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}
