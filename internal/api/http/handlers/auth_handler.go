package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-service/internal/api/dto"
	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/service"
)

// AuthHandler handles registration, login and the caller's own account.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Bootstrap GET /auth/bootstrap.
func (h *AuthHandler) Bootstrap(c *fiber.Ctx) error {
	first, err := h.auth.IsFirstUser(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"is_first_user": first}})
}

// Register POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var body dto.RegisterRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	var role domain.Role
	if strings.TrimSpace(body.Role) != "" {
		parsed, err := domain.ParseRole(body.Role)
		if err != nil {
			return err
		}
		role = parsed
	}
	user, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Name:           body.Name,
		Email:          body.Email,
		Password:       body.Password,
		Role:           role,
		Specialization: body.Specialization,
		Phone:          body.Phone,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user, languageOf(c))})
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body dto.LoginRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	result, err := h.auth.Login(c.UserContext(), body.Email, body.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      dto.NewUserResponse(result.User, languageOf(c)),
	}})
}

// Me GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	session, err := sessionOf(c)
	if err != nil {
		return err
	}
	user, err := h.auth.Me(c.UserContext(), session.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user, languageOf(c))})
}

// ChangePassword POST /auth/password/change.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	session, err := sessionOf(c)
	if err != nil {
		return err
	}
	var body dto.PasswordChangeRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	if err := h.auth.ChangePassword(c.UserContext(), session.UserID, body.CurrentPassword, body.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
