package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/auth"
	"github.com/spec-kit/maintenance-service/internal/config"
	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/repository"
	"github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

// RegisterInput carries the self-registration form.
type RegisterInput struct {
	Name           string `validate:"required,max=255"`
	Email          string `validate:"required,email,max=255"`
	Password       string `validate:"required"`
	Role           domain.Role
	Specialization *string
	Phone          *string
}

// AuthResult is a user with a freshly issued access token.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	users          repository.UserRepository
	tokenMgr       *auth.TokenManager
	dispatcher     events.Dispatcher
	validator      *validator.Validate
	bcryptCost     int
	minPasswordLen int
	now            func() time.Time
	logger         *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, users repository.UserRepository, dispatcher events.Dispatcher, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:          users,
		tokenMgr:       auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL()),
		dispatcher:     dispatcher,
		validator:      validator.New(),
		bcryptCost:     cfg.BcryptCost,
		minPasswordLen: max(cfg.MinPasswordLength, 8),
		now:            time.Now,
		logger:         logger,
	}
}

// registrationRole defaults an empty role to REQUESTER and refuses self-service SUPER_ADMIN.
func registrationRole(role domain.Role) (domain.Role, error) {
	switch {
	case role == "":
		return domain.RoleRequester, nil
	case !role.Valid() || role == domain.RoleSuperAdmin:
		return "", errorutil.NewValidationError("invalid role", map[string]any{"role": string(role)})
	}
	return role, nil
}

// IsFirstUser reports whether no super admin exists yet.
func (s *AuthService) IsFirstUser(ctx context.Context) (bool, error) {
	n, err := s.users.CountByRole(ctx, domain.RoleSuperAdmin)
	if err != nil {
		return false, mapStoreError(err, "user", "")
	}
	return n == 0, nil
}

// Register creates an account. The first account becomes an active super admin;
// later ones keep the requested role and wait for activation.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := s.validator.Struct(input); err != nil {
		return nil, validationError(err)
	}
	if err := s.checkPassword(input.Password); err != nil {
		return nil, err
	}

	first, err := s.IsFirstUser(ctx)
	if err != nil {
		return nil, err
	}
	if !first {
		if input.Role, err = registrationRole(input.Role); err != nil {
			return nil, err
		}
	}

	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, errorutil.NewConflict("email already registered", nil)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, mapStoreError(err, "user", "")
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, errorutil.NewInternalError(err)
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:             uuid.NewString(),
		Name:           input.Name,
		Email:          input.Email,
		PasswordHash:   hash,
		Specialization: input.Specialization,
		Phone:          input.Phone,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if first {
		user.Role, user.IsActive = domain.RoleSuperAdmin, true
		created, err := s.users.CreateFirstSuperAdmin(ctx, user)
		if err != nil {
			return nil, mapStoreError(err, "user", user.ID)
		}
		// Another registration claimed the bootstrap account in the meantime.
		first = created
	}
	if !first {
		role, err := registrationRole(input.Role)
		if err != nil {
			return nil, err
		}
		user.Role, user.IsActive = role, false
		if err := s.users.Create(ctx, user); err != nil {
			return nil, mapStoreError(err, "user", user.ID)
		}
	}
	role, active := user.Role, user.IsActive

	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(role)), zap.Bool("active", active))
	if s.dispatcher != nil {
		event := events.NewEvent(events.EventUserRegistered, "", events.Actor{UserID: user.ID, Role: role}, events.UserRegisteredPayload{
			Email:    user.Email,
			Role:     role,
			IsActive: active,
		})
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("publish event failed", zap.String("event_type", string(event.Type)), zap.Error(err))
		}
	}
	return user, nil
}

// Login checks credentials and issues a token for an active account.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errorutil.NewUnauthorized("invalid credentials")
	}
	if err != nil {
		return nil, mapStoreError(err, "user", "")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, errorutil.NewUnauthorized("invalid credentials")
	}
	if !user.IsActive {
		return nil, errorutil.NewAccountInactive()
	}
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, errorutil.NewInternalError(err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

// Me returns the caller's account.
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err, "user", userID)
	}
	return user, nil
}

// ChangePassword verifies the current password before storing the new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return mapStoreError(err, "user", userID)
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return errorutil.NewUnauthorized("invalid credentials")
	}
	if err := s.checkPassword(newPassword); err != nil {
		return err
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return errorutil.NewInternalError(err)
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return mapStoreError(err, "user", userID)
	}
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) checkPassword(password string) error {
	if len([]rune(password)) < s.minPasswordLen {
		return errorutil.NewValidationError("password too short", map[string]any{"min": s.minPasswordLen})
	}
	return nil
}
