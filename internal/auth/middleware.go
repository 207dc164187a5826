package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/TCoder4k/engmasterai-backend/internal/domain"
	apperrors "github.com/TCoder4k/engmasterai-backend/pkg/util"
)

const principalKey = "auth_principal"

// BearerFromHeader extracts the token from an Authorization header
// value. The second return is false for a missing or malformed header.
func BearerFromHeader(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// Principal represents the authenticated caller.
type Principal struct {
	UserID string
	Email  string
	Role   domain.UserRole
}

// Middleware validates bearer tokens and loads the principal.
type Middleware struct {
	tokens  *TokenManager
	revoked *RevocationList
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager, revoked *RevocationList) *Middleware {
	return &Middleware{tokens: tokens, revoked: revoked}
}

// Handle enforces authentication for protected routes. All rejection
// reasons surface as the same generic unauthorized response so callers
// cannot probe which check failed.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	token, ok := BearerFromHeader(c.Get("Authorization"))
	if !ok {
		return apperrors.NewUnauthorized("missing or invalid authorization header")
	}

	// Revocation is a map lookup; do it before the signature check.
	if m.revoked.IsRevoked(token) {
		return apperrors.NewUnauthorized("access denied")
	}

	claims, err := m.tokens.ParseToken(token)
	if err != nil {
		return apperrors.NewUnauthorized("access denied")
	}

	c.Locals(principalKey, &Principal{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   claims.Role,
	})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
