package dto

import (
	"time"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Password       string  `json:"password"`
	Role           string  `json:"role"`
	Specialization *string `json:"specialization"`
	Phone          *string `json:"phone"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PasswordChangeRequest payload for authenticated password changes.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// BulkActivationRequest lists accounts for bulk activation changes.
type BulkActivationRequest struct {
	UserIDs []string `json:"user_ids"`
}

// SetRoleRequest payload.
type SetRoleRequest struct {
	Role string `json:"role"`
}

// UpdateProfileRequest payload. Absent keys are kept.
type UpdateProfileRequest struct {
	Name           *string `json:"name"`
	Specialization *string `json:"specialization"`
	Phone          *string `json:"phone"`
}

// UserResponse is an account without credentials.
type UserResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Role           EnumView  `json:"role"`
	IsActive       bool      `json:"is_active"`
	Specialization *string   `json:"specialization"`
	Phone          *string   `json:"phone"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UserSummary is the short form embedded in request details.
type UserSummary struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Role           string  `json:"role"`
	Specialization *string `json:"specialization,omitempty"`
	Phone          *string `json:"phone,omitempty"`
}

// UserStatsResponse summarizes accounts.
type UserStatsResponse struct {
	Total           int            `json:"total"`
	Active          int            `json:"active"`
	Inactive        int            `json:"inactive"`
	ByRole          map[string]int `json:"by_role"`
	RecentlyCreated int            `json:"recently_created"`
}

func NewUserResponse(u *domain.User, lang domain.Language) UserResponse {
	return UserResponse{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Role:           RoleView(u.Role, lang),
		IsActive:       u.IsActive,
		Specialization: u.Specialization,
		Phone:          u.Phone,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func NewUserResponses(users []domain.User, lang domain.Language) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i], lang))
	}
	return out
}

// NewUserSummary returns nil for a missing user.
func NewUserSummary(u *domain.User) *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Role:           string(u.Role),
		Specialization: u.Specialization,
		Phone:          u.Phone,
	}
}

func NewUserStatsResponse(s *domain.UserStats) UserStatsResponse {
	resp := UserStatsResponse{
		Total:           s.Total,
		Active:          s.Active,
		Inactive:        s.Inactive,
		ByRole:          make(map[string]int, len(s.ByRole)),
		RecentlyCreated: s.RecentlyCreated,
	}
	for role, n := range s.ByRole {
		resp.ByRole[string(role)] = n
	}
	return resp
}
