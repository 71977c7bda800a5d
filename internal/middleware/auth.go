package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	apperrors "github.com/tajious/ejare/internal/errors"
	"github.com/tajious/ejare/internal/logger"
	"github.com/tajious/ejare/internal/models"
)

const userKey = "user"

var (
	errMissingToken = apperrors.New(apperrors.CodeUnauthorized, "توکن احراز هویت ارسال نشده است")
	errForbidden    = apperrors.New(apperrors.CodeForbidden, "دسترسی مجاز نیست")
)

// Authenticator verifies a bearer token and reports its claims.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Claims, error)
}

type AuthMiddleware struct {
	auth   Authenticator
	logger *logger.Logger
}

func NewAuthMiddleware(auth Authenticator, log *logger.Logger) *AuthMiddleware {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthMiddleware{auth: auth, logger: log}
}

func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return errMissingToken
		}

		// Check if the header is in the format "Bearer <token>"
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return errMissingToken
		}

		claims, err := m.auth.Authenticate(c.UserContext(), parts[1])
		if err != nil {
			return err
		}

		c.Locals(userKey, claims)
		c.SetUserContext(m.logger.WithActor(c.UserContext(), string(claims.Role), claims.Subject()))
		return c.Next()
	}
}

func (m *AuthMiddleware) RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := Claims(c)
		if claims == nil {
			return errMissingToken
		}

		for _, role := range roles {
			if claims.Role == role {
				return c.Next()
			}
		}
		return errForbidden
	}
}

// Claims returns the claims set by Authenticate, or nil.
func Claims(c *fiber.Ctx) *models.Claims {
	claims, _ := c.Locals(userKey).(*models.Claims)
	return claims
}
