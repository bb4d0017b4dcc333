package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("repository: duplicate key")
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// DBTX is the query surface shared by pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is a DBTX able to open transactions.
type DB interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// RequestRepository persists maintenance requests.
type RequestRepository interface {
	Get(ctx context.Context, id string) (*domain.MaintenanceRequest, error)
	List(ctx context.Context, filter domain.RequestFilter) ([]domain.MaintenanceRequest, error)
	Count(ctx context.Context, filter domain.RequestFilter) (int, error)
	Stats(ctx context.Context, filter domain.RequestFilter) (*domain.DashboardStats, error)
	// CreateWithHistory stores a new request and its CREATE row atomically.
	CreateWithHistory(ctx context.Context, req *domain.MaintenanceRequest, entry domain.RequestHistory) error
	// UpdateWithHistory replaces the request document and appends rows atomically.
	UpdateWithHistory(ctx context.Context, req *domain.MaintenanceRequest, rows []domain.RequestHistory) error
	// Delete removes a request with its comments and history.
	Delete(ctx context.Context, id string) error
}

// CommentRepository persists request comments.
type CommentRepository interface {
	CreateWithHistory(ctx context.Context, comment *domain.RequestComment, entry domain.RequestHistory) error
	ListByRequest(ctx context.Context, requestID string) ([]domain.RequestComment, error)
}

// HistoryRepository reads the audit trail. Rows are only written alongside request or comment writes.
type HistoryRepository interface {
	ListByRequest(ctx context.Context, requestID string) ([]domain.RequestHistory, error)
}

// UserRepository persists accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	// CreateFirstSuperAdmin inserts user only while no super admin exists and reports whether it did.
	CreateFirstSuperAdmin(ctx context.Context, user *domain.User) (bool, error)
	Update(ctx context.Context, user *domain.User) error
	Get(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, filter domain.UserFilter) ([]domain.User, error)
	SetActive(ctx context.Context, ids []string, active bool) (int, error)
	Delete(ctx context.Context, id string) error
	CountByRole(ctx context.Context, role domain.Role) (int, error)
	Stats(ctx context.Context, since time.Time) (*domain.UserStats, error)
}

// translateError maps driver errors onto repository and domain errors.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return errorutil.NewTransientStoreError(err)
	}
	return err
}

// Page normalizes limit and offset.
func Page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func rollback(ctx context.Context, tx pgx.Tx, err error) error {
	if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
		return errors.Join(translateError(err), rbErr)
	}
	return translateError(err)
}
