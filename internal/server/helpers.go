package server

import (
	"errors"
	"strings"
	"unicode"

	"blogcms/internal/auth"
	"blogcms/internal/middleware"
	"blogcms/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// respondError writes {"error": msg} with the status of the AppError code.
// Anything that is not an AppError is a 500 whose cause is logged and never
// returned to the client.
func respondError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		status := appErr.Status()
		if status >= fiber.StatusInternalServerError {
			middleware.Logger.ErrorContext(c.UserContext(), "request failed",
				"path", c.Path(), "code", appErr.Code, "error", err)
		}
		return c.Status(status).JSON(models.ErrorResponse{Error: appErr.Message})
	}

	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
		"path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: "Internal server error"})
}

// parseBody decodes the request body or writes a 400.
func parseBody(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		_ = respondError(c, models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
// The error message is derived from the parameter name (e.g. "id" -> "Invalid ID",
// "postId" -> "Invalid post ID").
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = respondError(c, models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// pageQuery reads page and limit. Missing or malformed values become zero
// and the services apply their defaults and caps.
func pageQuery(c *fiber.Ctx) (page, limit int) {
	return c.QueryInt("page", 0), c.QueryInt("limit", 0)
}

// bearerFrom returns the token of an "Authorization: Bearer <token>" header.
func bearerFrom(c *fiber.Ctx) (string, bool) {
	token, found := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	return token, found && token != ""
}

// optionalPrincipal verifies the bearer token when one is sent but does not
// require it.
func (s *Server) optionalPrincipal(c *fiber.Ctx) (auth.Principal, bool) {
	token, ok := bearerFrom(c)
	if !ok {
		return auth.Principal{}, false
	}
	p, err := s.tokens.Verify(token)
	if err != nil {
		return auth.Principal{}, false
	}
	return p, true
}

// requireAdminFor gates listing filters that expose unpublished content.
// It writes 401 or 403 and returns errResponseWritten when the caller is not
// an admin.
func (s *Server) requireAdminFor(c *fiber.Ctx) error {
	p, ok := s.optionalPrincipal(c)
	if !ok {
		_ = c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: "Authorization header required"})
		return errResponseWritten
	}
	if !p.IsAdmin() {
		_ = c.Status(fiber.StatusForbidden).JSON(models.ErrorResponse{Error: "Admin access required"})
		return errResponseWritten
	}
	return nil
}
