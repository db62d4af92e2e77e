package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/maptech/stf-service/internal/api/dto"
	"github.com/maptech/stf-service/internal/auth"
	"github.com/maptech/stf-service/internal/domain"
	"github.com/maptech/stf-service/internal/service"
	"github.com/maptech/stf-service/pkg/util"
)

// UserHandler serves auth and staff-directory endpoints.
type UserHandler struct {
	users *service.UserService
}

// NewUserHandler creates the handler.
func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Register creates an account.
func (h *UserHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid request body", nil)
	}

	result, err := h.users.Register(c.UserContext(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Phone:    req.Phone,
		Password: req.Password,
		Role:     domain.Role(req.Role),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(authResponse(result))
}

// Login exchanges credentials for a token.
func (h *UserHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid request body", nil)
	}

	result, err := h.users.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(authResponse(result))
}

// Me returns the authenticated user.
func (h *UserHandler) Me(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)
	return c.JSON(dto.NewUserResponse(user))
}

// ListEmployees returns the assignable-employee picker.
func (h *UserHandler) ListEmployees(c *fiber.Ctx) error {
	employees, err := h.users.ListEmployees(c.UserContext(), auth.CurrentUser(c))
	if err != nil {
		return err
	}
	result := make([]dto.UserResponse, 0, len(employees))
	for i := range employees {
		result = append(result, dto.NewUserResponse(&employees[i]))
	}
	return c.JSON(result)
}

func authResponse(result *service.AuthResult) dto.AuthResponse {
	return dto.AuthResponse{
		User:      dto.NewUserResponse(result.User),
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	}
}
