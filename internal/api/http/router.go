package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/TCoder4k/engmasterai-backend/internal/api/http/handlers"
	"github.com/TCoder4k/engmasterai-backend/internal/auth"
	"github.com/TCoder4k/engmasterai-backend/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	if cfg.Health != nil {
		app.Get("/health/live", cfg.Health.Live)
		app.Get("/health/ready", cfg.Health.Ready)
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.Auth.Logout)

	users := app.Group("/users", cfg.AuthMiddleware.Handle)
	users.Get("/", auth.RequireRole(domain.RoleAdmin), cfg.Users.List)
	// "me" routes must register before the ":id" wildcard.
	users.Get("/me", cfg.Users.Me)
	users.Put("/me", cfg.Users.UpdateMe)
	users.Post("/me/password", cfg.Users.ChangePassword)
	users.Post("/me/avatar", cfg.Users.UploadAvatar)
	users.Get("/:id", auth.RequireRole(domain.RoleAdmin), cfg.Users.Get)
	users.Put("/:id", auth.RequireRole(domain.RoleAdmin), cfg.Users.Update)
	users.Delete("/:id", auth.RequireRole(domain.RoleAdmin), cfg.Users.Delete)
}
