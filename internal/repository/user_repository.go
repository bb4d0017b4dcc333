package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

const userColumns = `id, name, email, password_hash, role, is_active, specialization, phone, created_by, created_at, updated_at`

// bootstrapLockKey serializes first-account registration across instances.
const bootstrapLockKey int64 = 0x6d61696e74

type userRepository struct {
	db DB
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db DB) UserRepository {
	return &userRepository{db: db}
}

const insertUserQuery = `
        INSERT INTO users (id, name, email, password_hash, role, is_active, specialization, phone, created_by, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	return insertUser(ctx, r.db, user)
}

func (r *userRepository) CreateFirstSuperAdmin(ctx context.Context, user *domain.User) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, translateError(err)
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, bootstrapLockKey); err != nil {
		return false, rollback(ctx, tx, err)
	}
	var admins int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, domain.RoleSuperAdmin).Scan(&admins); err != nil {
		return false, rollback(ctx, tx, err)
	}
	if admins > 0 {
		return false, rollback(ctx, tx, nil)
	}
	if err := insertUser(ctx, tx, user); err != nil {
		return false, rollback(ctx, tx, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, translateError(err)
	}
	return true, nil
}

func insertUser(ctx context.Context, db DBTX, user *domain.User) error {
	_, err := db.Exec(ctx, insertUserQuery,
		user.ID,
		user.Name,
		strings.ToLower(user.Email),
		user.PasswordHash,
		user.Role,
		user.IsActive,
		user.Specialization,
		user.Phone,
		user.CreatedBy,
		user.CreatedAt,
		user.UpdatedAt,
	)
	return translateError(err)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET name=$1, password_hash=$2, role=$3, is_active=$4, specialization=$5, phone=$6, updated_at=$7
        WHERE id=$8`

	cmd, err := r.db.Exec(ctx, query,
		user.Name,
		user.PasswordHash,
		user.Role,
		user.IsActive,
		user.Specialization,
		user.Phone,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return translateError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) Get(ctx context.Context, id string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, strings.ToLower(strings.TrimSpace(email)))
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, translateError(err)
	}
	return user, nil
}

func (r *userRepository) List(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		clauses = append(clauses, fmt.Sprintf("is_active=$%d", len(args)))
	}
	if term := strings.TrimSpace(filter.SearchTerm); term != "" {
		args = append(args, "%"+strings.ToLower(term)+"%")
		p := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(name) LIKE %s OR LOWER(email) LIKE %s)", p, p))
	}
	limit, offset := Page(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY name ASC, id LIMIT %d OFFSET %d`,
		userColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, translateError(err)
		}
		result = append(result, *user)
	}
	return result, translateError(rows.Err())
}

func (r *userRepository) SetActive(ctx context.Context, ids []string, active bool) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	cmd, err := r.db.Exec(ctx, `UPDATE users SET is_active=$1, updated_at=NOW() WHERE id = ANY($2)`, active, ids)
	if err != nil {
		return 0, translateError(err)
	}
	return int(cmd.RowsAffected()), nil
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return translateError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) CountByRole(ctx context.Context, role domain.Role) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role=$1`, role).Scan(&n); err != nil {
		return 0, translateError(err)
	}
	return n, nil
}

func (r *userRepository) Stats(ctx context.Context, since time.Time) (*domain.UserStats, error) {
	stats := &domain.UserStats{ByRole: map[domain.Role]int{}}
	const summary = `
        SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active), COUNT(*) FILTER (WHERE created_at >= $1)
        FROM users`
	if err := r.db.QueryRow(ctx, summary, since).Scan(&stats.Total, &stats.Active, &stats.RecentlyCreated); err != nil {
		return nil, translateError(err)
	}
	stats.Inactive = stats.Total - stats.Active

	rows, err := r.db.Query(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var role string
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return nil, translateError(err)
		}
		stats.ByRole[domain.Role(role)] = n
	}
	return stats, translateError(rows.Err())
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.IsActive,
		&user.Specialization,
		&user.Phone,
		&user.CreatedBy,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
