package handlers

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/TCoder4k/engmasterai-backend/internal/api/dto"
	"github.com/TCoder4k/engmasterai-backend/internal/auth"
	"github.com/TCoder4k/engmasterai-backend/internal/service"
	apperrors "github.com/TCoder4k/engmasterai-backend/pkg/util"
)

const maxAvatarBytes = 10 * 1024 * 1024

var allowedAvatarTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
	"image/webp": {},
}

// UsersHandler exposes profile endpoints.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{users: userService}
}

// List handles GET /users (admin only).
func (h *UsersHandler) List(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))

	users, meta, err := h.users.List(c.Context(), page, limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": dto.NewUserViews(users),
		"meta": meta,
	})
}

// Me handles GET /users/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	user, err := h.users.Get(c.Context(), principal.UserID)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserView(user))
}

// Get handles GET /users/:id (admin only).
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	user, err := h.users.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserView(user))
}

// UpdateMe handles PUT /users/me.
func (h *UsersHandler) UpdateMe(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return h.update(c, principal.UserID)
}

// Update handles PUT /users/:id (admin only).
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	return h.update(c, c.Params("id"))
}

func (h *UsersHandler) update(c *fiber.Ctx, id string) error {
	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Password != nil && len(*req.Password) < minPasswordLength {
		return fiber.NewError(http.StatusBadRequest, "password too short")
	}

	user, err := h.users.Update(c.Context(), id, service.UserUpdate{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserView(user))
}

// Delete handles DELETE /users/:id (admin only).
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	if err := h.users.Delete(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ChangePassword handles POST /users/me/password.
func (h *UsersHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.CurrentPassword == "" || len(req.NewPassword) < minPasswordLength {
		return fiber.NewError(http.StatusBadRequest, "current and new password required")
	}

	if err := h.users.ChangePassword(c.Context(), principal.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "password changed successfully"})
}

// UploadAvatar handles POST /users/me/avatar (multipart).
func (h *UsersHandler) UploadAvatar(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "no file uploaded")
	}
	if fileHeader.Size > maxAvatarBytes {
		return fiber.NewError(http.StatusBadRequest, "file size must not exceed 10MB")
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if _, allowed := allowedAvatarTypes[contentType]; !allowed {
		return fiber.NewError(http.StatusBadRequest, "only image files are allowed (JPEG, PNG, WebP)")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	defer file.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(file); err != nil {
		return apperrors.NewInternalError(err)
	}

	user, err := h.users.UpdateAvatar(c.Context(), principal.UserID, fileHeader.Filename, buf)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserView(user))
}
