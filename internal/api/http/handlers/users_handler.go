package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-service/internal/api/dto"
	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/service"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

// UsersHandler serves account administration and the technician directory.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

// Technicians GET /technicians.
func (h *UsersHandler) Technicians(c *fiber.Ctx) error {
	session, err := sessionOf(c)
	if err != nil {
		return err
	}
	users, err := h.users.ListTechnicians(c.UserContext(), session)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponses(users, languageOf(c))})
}

// List GET /admin/users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	session, err := sessionOf(c)
	if err != nil {
		return err
	}
	filter := domain.UserFilter{SearchTerm: strings.TrimSpace(c.Query("search"))}
	if raw := c.Query("role"); raw != "" {
		role, err := domain.ParseRole(raw)
		if err != nil {
			return err
		}
		filter.Role = &role
	}
	if raw := c.Query("is_active"); raw != "" {
		switch strings.ToLower(raw) {
		case "true", "1":
			v := true
			filter.IsActive = &v
		case "false", "0":
			v := false
			filter.IsActive = &v
		default:
			return apperrors.NewValidationError("invalid is_active", map[string]any{"is_active": raw})
		}
	}
	page, size, offset := parsePage(c)
	filter.Limit, filter.Offset = size, offset

	users, err := h.users.ListUsers(c.UserContext(), session, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": dto.NewUserResponses(users, languageOf(c)),
		"meta": fiber.Map{"page": page, "page_size": size},
	})
}

// Stats GET /admin/users/stats.
func (h *UsersHandler) Stats(c *fiber.Ctx) error {
	session, err := sessionOf(c)
	if err != nil {
		return err
	}
	stats, err := h.users.Stats(c.UserContext(), session)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserStatsResponse(stats)})
}

// Activate POST /admin/users/:id/activate.
func (h *UsersHandler) Activate(c *fiber.Ctx) error { return h.setActive(c, true) }

// Deactivate POST /admin/users/:id/deactivate.
func (h *UsersHandler) Deactivate(c *fiber.Ctx) error { return h.setActive(c, false) }

func (h *UsersHandler) setActive(c *fiber.Ctx, active bool) error {
	session, err := sessionOf(c)
	if err != nil {
		return err
	}
	user, err := h.users.SetActive(c.UserContext(), session, c.Params("id"), active)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user, languageOf(c))})
}

// BulkActivate POST /admin/users/activate.
func (h *UsersHandler) BulkActivate(c *fiber.Ctx) error { return h.bulkSetActive(c, true) }

// BulkDeactivate POST /admin/users/deactivate.
func (h *UsersHandler) BulkDeactivate(c *fiber.Ctx) error { return h.bulkSetActive(c, false) }

func (h *UsersHandler) bulkSetActive(c *fiber.Ctx, active bool) error {
	session, err := sessionOf(c)
	if err != nil {
		return err
	}
	var body dto.BulkActivationRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	n, err := h.users.BulkSetActive(c.UserContext(), session, body.UserIDs, active)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"updated": n}})
}

// SetRole PUT /admin/users/:id/role.
func (h *UsersHandler) SetRole(c *fiber.Ctx) error {
	session, err := sessionOf(c)
	if err != nil {
		return err
	}
	var body dto.SetRoleRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	role, err := domain.ParseRole(body.Role)
	if err != nil {
		return err
	}
	user, err := h.users.SetRole(c.UserContext(), session, c.Params("id"), role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user, languageOf(c))})
}

// UpdateProfile PATCH /admin/users/:id.
func (h *UsersHandler) UpdateProfile(c *fiber.Ctx) error {
	session, err := sessionOf(c)
	if err != nil {
		return err
	}
	var body dto.UpdateProfileRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	user, err := h.users.UpdateProfile(c.UserContext(), session, c.Params("id"), service.ProfileChanges{
		Name:           body.Name,
		Specialization: body.Specialization,
		Phone:          body.Phone,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user, languageOf(c))})
}

// Delete DELETE /admin/users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	session, err := sessionOf(c)
	if err != nil {
		return err
	}
	if err := h.users.DeleteUser(c.UserContext(), session, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
