package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/TCoder4k/engmasterai-backend/internal/api/dto"
	"github.com/TCoder4k/engmasterai-backend/internal/auth"
	"github.com/TCoder4k/engmasterai-backend/internal/domain"
	"github.com/TCoder4k/engmasterai-backend/internal/service"
	apperrors "github.com/TCoder4k/engmasterai-backend/pkg/util"
)

const minPasswordLength = 6

// AuthHandler exposes register/login/logout endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "name, email, password required")
	}
	if len(req.Password) < minPasswordLength {
		return fiber.NewError(http.StatusBadRequest, "password too short")
	}

	user, token, _, err := h.auth.Register(c.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(dto.AuthResponse{
		Message:     "registration successful",
		User:        dto.NewUserView(user),
		AccessToken: token,
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "email and password required")
	}
	claimedRole := domain.UserRole(req.Role)
	if req.Role != "" && !claimedRole.Valid() {
		return service.ErrInvalidCredentials
	}

	user, token, _, err := h.auth.Login(c.Context(), req.Email, req.Password, claimedRole)
	if err != nil {
		return err
	}

	return c.JSON(dto.AuthResponse{
		Message:     "login successful",
		User:        dto.NewUserView(user),
		AccessToken: token,
	})
}

// Logout handles POST /auth/logout. The token is only decoded, never
// verified, so logging out an already-revoked token succeeds again.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	token, ok := auth.BearerFromHeader(c.Get("Authorization"))
	if !ok {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	if err := h.auth.Logout(c.Context(), token); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "logout successful"})
}
