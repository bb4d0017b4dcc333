package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/repository"
	"github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

const recentUserWindow = 7 * 24 * time.Hour

// ProfileChanges updates the editable profile of a user. Nil fields are kept.
type ProfileChanges struct {
	Name           *string
	Specialization *string
	Phone          *string
}

// UserService implements account administration and the technician directory.
type UserService struct {
	users  repository.UserRepository
	retry  ReadRetry
	now    func() time.Time
	logger *zap.Logger
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository, retry ReadRetry, logger *zap.Logger) *UserService {
	if retry.Attempts <= 0 {
		retry = DefaultReadRetry
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, retry: retry, now: time.Now, logger: logger}
}

func requireSuperAdmin(session domain.Session) error {
	if session.Role != domain.RoleSuperAdmin {
		return errorutil.NewForbidden("super admin only")
	}
	return nil
}

// ListUsers returns a filtered page of accounts.
func (s *UserService) ListUsers(ctx context.Context, session domain.Session, filter domain.UserFilter) ([]domain.User, error) {
	if err := requireSuperAdmin(session); err != nil {
		return nil, err
	}
	users, err := withReadRetry(ctx, s.retry, func(ctx context.Context) ([]domain.User, error) {
		return s.users.List(ctx, filter)
	})
	if err != nil {
		return nil, mapStoreError(err, "user", "")
	}
	return users, nil
}

// ListTechnicians returns active technicians ordered by name.
func (s *UserService) ListTechnicians(ctx context.Context, session domain.Session) ([]domain.User, error) {
	if !session.Role.CanManageRequests() {
		return nil, errorutil.NewForbidden("role cannot list technicians")
	}
	role, active := domain.RoleTechnician, true
	users, err := withReadRetry(ctx, s.retry, func(ctx context.Context) ([]domain.User, error) {
		return s.users.List(ctx, domain.UserFilter{Role: &role, IsActive: &active, Limit: 100})
	})
	if err != nil {
		return nil, mapStoreError(err, "user", "")
	}
	return users, nil
}

// SetActive activates or deactivates one account.
func (s *UserService) SetActive(ctx context.Context, session domain.Session, id string, active bool) (*domain.User, error) {
	if err := requireSuperAdmin(session); err != nil {
		return nil, err
	}
	if !active && id == session.UserID {
		return nil, errorutil.NewValidationError("cannot deactivate your own account", nil)
	}
	n, err := s.users.SetActive(ctx, []string{id}, active)
	if err != nil {
		return nil, mapStoreError(err, "user", id)
	}
	if n == 0 {
		return nil, errorutil.NewNotFound("user", map[string]any{"id": id})
	}
	s.logger.Info("user activation changed", zap.String("user_id", id), zap.Bool("active", active), zap.String("by", session.UserID))
	return s.get(ctx, id)
}

// BulkSetActive changes activation of several accounts and returns how many were found.
// The caller's own account is skipped on deactivation.
func (s *UserService) BulkSetActive(ctx context.Context, session domain.Session, ids []string, active bool) (int, error) {
	if err := requireSuperAdmin(session); err != nil {
		return 0, err
	}
	targets := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || (!active && id == session.UserID) {
			continue
		}
		targets = append(targets, id)
	}
	if len(targets) == 0 {
		return 0, errorutil.NewValidationError("no user ids supplied", nil)
	}
	n, err := s.users.SetActive(ctx, targets, active)
	if err != nil {
		return 0, mapStoreError(err, "user", "")
	}
	s.logger.Info("bulk user activation changed", zap.Int("updated", n), zap.Bool("active", active), zap.String("by", session.UserID))
	return n, nil
}

// SetRole changes the role of an account. A super admin cannot demote themselves.
func (s *UserService) SetRole(ctx context.Context, session domain.Session, id string, role domain.Role) (*domain.User, error) {
	if err := requireSuperAdmin(session); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, errorutil.NewValidationError("invalid role", map[string]any{"role": string(role)})
	}
	if id == session.UserID && role != domain.RoleSuperAdmin {
		return nil, errorutil.NewValidationError("cannot change your own role", nil)
	}
	user, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Role = role
	user.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, mapStoreError(err, "user", id)
	}
	return user, nil
}

// UpdateProfile edits name, specialization and phone.
func (s *UserService) UpdateProfile(ctx context.Context, session domain.Session, id string, changes ProfileChanges) (*domain.User, error) {
	if err := requireSuperAdmin(session); err != nil {
		return nil, err
	}
	user, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if changes.Name != nil {
		name := strings.TrimSpace(*changes.Name)
		if err := checkLength("name", name, 1, 255); err != nil {
			return nil, err
		}
		user.Name = name
	}
	if changes.Specialization != nil {
		user.Specialization = blankToNil(*changes.Specialization)
	}
	if changes.Phone != nil {
		user.Phone = blankToNil(*changes.Phone)
	}
	user.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, mapStoreError(err, "user", id)
	}
	return user, nil
}

// DeleteUser removes an account other than the caller's.
func (s *UserService) DeleteUser(ctx context.Context, session domain.Session, id string) error {
	if err := requireSuperAdmin(session); err != nil {
		return err
	}
	if id == session.UserID {
		return errorutil.NewValidationError("cannot delete your own account", nil)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return mapStoreError(err, "user", id)
	}
	s.logger.Info("user deleted", zap.String("user_id", id), zap.String("by", session.UserID))
	return nil
}

// Stats summarizes accounts; recently created means the last seven days.
func (s *UserService) Stats(ctx context.Context, session domain.Session) (*domain.UserStats, error) {
	if err := requireSuperAdmin(session); err != nil {
		return nil, err
	}
	since := s.now().UTC().Add(-recentUserWindow)
	stats, err := withReadRetry(ctx, s.retry, func(ctx context.Context) (*domain.UserStats, error) {
		return s.users.Stats(ctx, since)
	})
	if err != nil {
		return nil, mapStoreError(err, "user", "")
	}
	return stats, nil
}

func (s *UserService) get(ctx context.Context, id string) (*domain.User, error) {
	user, err := withReadRetry(ctx, s.retry, func(ctx context.Context) (*domain.User, error) {
		return s.users.Get(ctx, id)
	})
	if err != nil {
		return nil, mapStoreError(err, "user", id)
	}
	return user, nil
}

func blankToNil(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
