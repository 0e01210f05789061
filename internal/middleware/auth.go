// Package middleware provides request logging, authentication, rate limiting
// and tracing middleware for the API.
package middleware

import (
	"context"
	"strings"

	"blogcms/internal/auth"
	"blogcms/internal/models"

	"github.com/gofiber/fiber/v2"
)

const principalLocal = "principal"

// TokenVerifier turns a bearer token into a principal.
type TokenVerifier interface {
	Verify(token string) (auth.Principal, error)
}

// PrincipalFrom returns the principal attached by AuthRequired.
func PrincipalFrom(c *fiber.Ctx) (auth.Principal, bool) {
	p, ok := c.Locals(principalLocal).(auth.Principal)
	return p, ok
}

// AuthRequired enforces a valid "Authorization: Bearer <token>" header and
// attaches the verified principal to the request.
func AuthRequired(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, problem := bearerToken(c.Get(fiber.HeaderAuthorization))
		if problem != "" {
			return unauthorized(c, problem)
		}
		return authenticate(c, verifier, token)
	}
}

// WebSocketAuthRequired validates a token passed as the "token" query
// parameter, falling back to the Authorization header. Browsers cannot set
// headers on websocket upgrades.
func WebSocketAuthRequired(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Query("token")
		if token == "" {
			var problem string
			token, problem = bearerToken(c.Get(fiber.HeaderAuthorization))
			if problem != "" {
				return unauthorized(c, "Token required")
			}
		}
		return authenticate(c, verifier, token)
	}
}

// AdminRequired rejects principals without the admin role. It must run after
// AuthRequired.
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := PrincipalFrom(c)
		if !ok {
			return unauthorized(c, "Authorization header required")
		}
		if !p.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(models.ErrorResponse{Error: "Admin access required"})
		}
		return c.Next()
	}
}

// bearerToken extracts the token from "Bearer <token>". The second result is
// a client-facing message when the header is unusable.
func bearerToken(header string) (string, string) {
	if header == "" {
		return "", "Authorization header required"
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", "Invalid authorization header format"
	}
	return parts[1], ""
}

func authenticate(c *fiber.Ctx, verifier TokenVerifier, token string) error {
	p, err := verifier.Verify(token)
	if err != nil {
		return unauthorized(c, "Invalid or expired token")
	}

	c.Locals(principalLocal, p)
	c.Locals("accountID", p.AccountID)

	ctx := auth.WithPrincipal(c.UserContext(), p)
	ctx = context.WithValue(ctx, AccountIDKey, p.AccountID)
	c.SetUserContext(ctx)

	return c.Next()
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: msg})
}
