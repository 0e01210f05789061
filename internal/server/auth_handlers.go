package server

import (
	"blogcms/internal/service"

	"github.com/gofiber/fiber/v2"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// Login handles POST /api/auth/login
// @Summary Admin login
// @Description Authenticate an account and return a JWT
// @Tags auth
// @Accept json
// @Produce json
// @Param request body loginRequest true "Login credentials"
// @Success 200 {object} object{message=string,token=string,user=models.AccountSummary}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	res, err := s.authService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":    "Login successful",
		"token":      res.Token,
		"expires_at": res.ExpiresAt,
		"user":       res.Account,
	})
}

// Verify handles GET /api/auth/verify
// @Summary Verify token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{valid=bool,user=models.AccountSummary}
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/verify [get]
func (s *Server) Verify(c *fiber.Ctx) error {
	token, _ := bearerFrom(c)
	account, err := s.authService.Verify(c.UserContext(), token)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"valid": true,
		"user":  account,
	})
}

// Logout handles POST /api/auth/logout. Tokens are stateless; the client
// drops its copy.
// @Summary Logout
// @Tags auth
// @Produce json
// @Success 200 {object} object{message=string}
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Logout successful"})
}

// Register handles POST /api/auth/register. It is only open while the
// registration feature flag is on.
// @Summary Register an admin account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body registerRequest true "Account"
// @Success 201 {object} object{message=string,userId=int}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	account, err := s.authService.Register(c.UserContext(), service.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Account created successfully",
		"userId":  account.ID,
	})
}
