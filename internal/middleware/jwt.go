package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/custody-vault/internal/identity"
)

// TokenVerifier resolves a bearer access token to the user it was issued for.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (identity.User, error)
}

// JWTAuth returns a middleware that validates access tokens and binds the
// session's user id and ledger account to the request.
func JWTAuth(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if len(authz) < len("bearer ") || !strings.EqualFold(authz[:len("bearer ")], "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		user, err := verifier.Verify(c.UserContext(), tokenStr)
		if err != nil {
			if errors.Is(err, identity.ErrNotFound) {
				return fiber.NewError(http.StatusUnauthorized, "token invalidated")
			}
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		}

		c.Locals("user_id", user.ID)
		c.Locals("account", user.Address.Hex())
		c.Locals("token_version", user.TokenVersion)
		return c.Next()
	}
}
