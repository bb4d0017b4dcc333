package repository

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

func bootstrapUser() *domain.User {
	now := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	return &domain.User{
		ID:           "user-1",
		Name:         "Ada",
		Email:        "Ada@Example.com",
		PasswordHash: "hash",
		Role:         domain.RoleSuperAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestCreateFirstSuperAdminInsertsUnderLock(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)
	user := bootstrapUser()

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WithArgs(bootstrapLockKey).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("SELECT COUNT").WithArgs(domain.RoleSuperAdmin).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO users").
		WithArgs(user.ID, user.Name, "ada@example.com", user.PasswordHash, user.Role, true,
			user.Specialization, user.Phone, user.CreatedBy, user.CreatedAt, user.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	created, err := repo.CreateFirstSuperAdmin(context.Background(), user)
	require.NoError(t, err)
	assert.True(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateFirstSuperAdminSkipsWhenAdminExists(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WithArgs(bootstrapLockKey).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("SELECT COUNT").WithArgs(domain.RoleSuperAdmin).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	created, err := repo.CreateFirstSuperAdmin(context.Background(), bootstrapUser())
	require.NoError(t, err)
	assert.False(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}
