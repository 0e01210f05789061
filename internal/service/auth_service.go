// Package service holds the business rules of the CMS. Services validate
// input, call repositories and translate store errors into AppErrors.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"blogcms/internal/auth"
	"blogcms/internal/database"
	"blogcms/internal/featureflags"
	"blogcms/internal/middleware"
	"blogcms/internal/models"
	"blogcms/internal/repository"
	"blogcms/internal/validation"

	"gorm.io/gorm"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Account   models.AccountSummary
}

// RegisterInput is the payload of a self-service registration.
type RegisterInput struct {
	Username string
	Password string
	Email    string
}

type AuthService struct {
	accounts repository.AccountRepository
	tokens   *auth.TokenIssuer
	flags    *featureflags.Manager
}

func NewAuthService(
	accounts repository.AccountRepository,
	tokens *auth.TokenIssuer,
	flags *featureflags.Manager,
) *AuthService {
	return &AuthService{accounts: accounts, tokens: tokens, flags: flags}
}

// Login checks the password and issues a session token. Unknown usernames and
// wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, models.NewValidationError("Username and password are required")
	}

	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewInvalidCredentialsError()
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	if !auth.CheckPassword(account.PasswordHash, password) {
		return nil, models.NewInvalidCredentialsError()
	}

	token, expiresAt, err := s.tokens.Issue(auth.Principal{
		AccountID: account.ID,
		Username:  account.Username,
		Role:      account.Role,
	})
	if err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "admin logged in", "account_id", account.ID)
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Account: account.Summary()}, nil
}

// Verify validates a session token and returns the account it belongs to.
// A token for an account that no longer exists is invalid.
func (s *AuthService) Verify(ctx context.Context, token string) (models.AccountSummary, error) {
	p, err := s.tokens.Verify(token)
	if err != nil {
		return models.AccountSummary{}, err
	}
	account, err := s.accounts.GetByID(ctx, p.AccountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.AccountSummary{}, models.NewInvalidTokenError(err)
		}
		return models.AccountSummary{}, fmt.Errorf("load account: %w", err)
	}
	return account.Summary(), nil
}

// Register creates a new admin account when the registration flag is on.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.Account, error) {
	if !s.flags.On(featureflags.Registration) {
		return nil, models.NewForbiddenError("Registration is disabled")
	}
	if err := validation.RequireFields(
		validation.Field{Name: "username", Value: in.Username},
		validation.Field{Name: "password", Value: in.Password},
		validation.Field{Name: "email", Value: in.Email},
	); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	return s.createAccount(ctx, in.Username, in.Password, in.Email)
}

func (s *AuthService) createAccount(ctx context.Context, username, password, email string) (*models.Account, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	account := &models.Account{
		Username:     strings.TrimSpace(username),
		PasswordHash: hash,
		Email:        strings.TrimSpace(email),
		Role:         models.RoleAdmin,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if database.IsDuplicateKey(err) {
			return nil, models.NewValidationError("Username or email already exists")
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	return account, nil
}

// CreateAccount creates an admin account without consulting the
// registration flag. Used by the admin CLI.
func (s *AuthService) CreateAccount(ctx context.Context, username, password, email string) (*models.Account, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	return s.createAccount(ctx, username, password, email)
}

// EnsureBootstrapAdmin creates the bootstrap account unless an account with
// that username already exists. It reports whether an account was created.
func (s *AuthService) EnsureBootstrapAdmin(ctx context.Context, username, password, email string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}
	_, err := s.accounts.GetByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("look up bootstrap admin: %w", err)
	}
	if _, err := s.createAccount(ctx, username, password, email); err != nil {
		return false, err
	}
	middleware.Logger.InfoContext(ctx, "bootstrap admin created", "username", username)
	return true, nil
}

// ResetPassword replaces the password of username.
func (s *AuthService) ResetPassword(ctx context.Context, username, password string) error {
	if err := validation.ValidatePassword(password); err != nil {
		return models.NewValidationError(err.Error())
	}
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Account", username)
		}
		return fmt.Errorf("load account: %w", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return s.accounts.UpdatePassword(ctx, account.ID, hash)
}

// ListAccounts returns every account without password hashes.
func (s *AuthService) ListAccounts(ctx context.Context) ([]models.AccountSummary, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.AccountSummary, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.Summary())
	}
	return out, nil
}
