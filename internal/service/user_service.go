package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/maptech/stf-service/internal/auth"
	"github.com/maptech/stf-service/internal/domain"
	"github.com/maptech/stf-service/internal/repository"
	"github.com/maptech/stf-service/pkg/util"
)

// UserServiceDependencies wires the user service.
type UserServiceDependencies struct {
	Users  repository.UserRepository
	Tokens *auth.TokenManager
	Hasher *auth.Hasher
	Logger *zap.Logger
}

// UserService handles registration, login and staff lookups.
type UserService struct {
	deps UserServiceDependencies
}

// NewUserService creates the user service.
func NewUserService(deps UserServiceDependencies) *UserService {
	return &UserService{deps: deps}
}

// RegisterInput is the signup body. Role defaults to client; staff roles
// are provisioned out of band.
type RegisterInput struct {
	Username string
	Email    string
	FullName string
	Phone    string
	Password string
	Role     domain.Role
}

// AuthResult is a successful login or registration.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// Register creates a user account and signs them in.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Username == "" || input.Email == "" {
		return nil, util.NewValidationError("username and email are required", nil)
	}
	if len(input.Password) < 8 {
		return nil, util.NewValidationError("password must be at least 8 characters", nil)
	}
	role := input.Role
	if role == "" {
		role = domain.RoleClient
	}
	switch role {
	case domain.RoleClient, domain.RoleEmployee, domain.RoleAdmin:
	default:
		return nil, util.NewValidationError("unknown role", map[string]any{"role": role})
	}

	hash, err := s.deps.Hasher.Hash(input.Password)
	if err != nil {
		return nil, util.NewInternalError(err)
	}

	user := &domain.User{
		Username:     input.Username,
		Email:        input.Email,
		FullName:     input.FullName,
		Phone:        input.Phone,
		Role:         role,
		PasswordHash: hash,
	}
	if err := s.deps.Users.Create(ctx, user); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, util.NewConflict("username or email already taken", nil)
		}
		return nil, util.MapError(err)
	}

	s.deps.Logger.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)))
	return s.issue(user)
}

// Login verifies credentials and returns a fresh token.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.deps.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewUnauthorized("invalid credentials")
		}
		return nil, util.MapError(err)
	}
	if !s.deps.Hasher.Compare(user.PasswordHash, password) {
		return nil, util.NewUnauthorized("invalid credentials")
	}
	return s.issue(user)
}

// ListEmployees returns the assignable-employee picker for admins.
func (s *UserService) ListEmployees(ctx context.Context, actor *domain.User) ([]domain.User, error) {
	if !actor.Role.IsAdminLevel() && actor.Role != domain.RoleEmployee {
		return nil, util.NewForbidden("staff directory is staff-only")
	}
	employees, err := s.deps.Users.ListByRole(ctx, domain.RoleEmployee)
	return employees, util.MapError(err)
}

func (s *UserService) issue(user *domain.User) (*AuthResult, error) {
	token, expiresAt, err := s.deps.Tokens.Issue(user)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}
