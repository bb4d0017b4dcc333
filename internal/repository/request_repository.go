package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

const requestColumns = `id, title, description, category, priority, status, location, requester_id,
               assigned_technician_id, manager_id, estimated_completion_date, actual_completion_date,
               notes, cost::text, created_at, updated_at`

type requestRepository struct {
	db DB
}

// NewRequestRepository returns a Postgres-backed RequestRepository.
func NewRequestRepository(db DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Get(ctx context.Context, id string) (*domain.MaintenanceRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM maintenance_requests WHERE id=$1`
	req, err := scanRequest(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translateError(err)
	}
	return req, nil
}

func (r *requestRepository) List(ctx context.Context, filter domain.RequestFilter) ([]domain.MaintenanceRequest, error) {
	where, args := requestWhere(filter)
	limit, offset := Page(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM maintenance_requests WHERE %s ORDER BY created_at DESC, id LIMIT %d OFFSET %d`,
		requestColumns, where, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var result []domain.MaintenanceRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, translateError(err)
		}
		result = append(result, *req)
	}
	return result, translateError(rows.Err())
}

func (r *requestRepository) Count(ctx context.Context, filter domain.RequestFilter) (int, error) {
	where, args := requestWhere(filter)
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM maintenance_requests WHERE `+where, args...).Scan(&total); err != nil {
		return 0, translateError(err)
	}
	return total, nil
}

func (r *requestRepository) Stats(ctx context.Context, filter domain.RequestFilter) (*domain.DashboardStats, error) {
	where, args := requestWhere(filter)
	stats := &domain.DashboardStats{
		ByCategory: map[domain.Category]int{},
		ByPriority: map[domain.Priority]int{},
	}

	summary := `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status='NEW'),
               COUNT(*) FILTER (WHERE status='IN_PROGRESS'),
               COUNT(*) FILTER (WHERE status='COMPLETED'),
               COUNT(*) FILTER (WHERE status='CLOSED'),
               COUNT(*) FILTER (WHERE priority='URGENT'),
               COALESCE(AVG(EXTRACT(EPOCH FROM (actual_completion_date - created_at)) / 3600)
                   FILTER (WHERE status='COMPLETED' AND actual_completion_date IS NOT NULL), 0)::float8
        FROM maintenance_requests WHERE ` + where
	if err := r.db.QueryRow(ctx, summary, args...).Scan(
		&stats.TotalRequests,
		&stats.NewRequests,
		&stats.InProgressRequests,
		&stats.CompletedRequests,
		&stats.ClosedRequests,
		&stats.UrgentRequests,
		&stats.AverageCompletionTime,
	); err != nil {
		return nil, translateError(err)
	}

	if err := r.groupCount(ctx, "category", where, args, func(key string, n int) {
		stats.ByCategory[domain.Category(key)] = n
	}); err != nil {
		return nil, err
	}
	if err := r.groupCount(ctx, "priority", where, args, func(key string, n int) {
		stats.ByPriority[domain.Priority(key)] = n
	}); err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *requestRepository) groupCount(ctx context.Context, column, where string, args []any, add func(string, int)) error {
	query := fmt.Sprintf(`SELECT %s, COUNT(*) FROM maintenance_requests WHERE %s GROUP BY %s`, column, where, column)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return translateError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return translateError(err)
		}
		add(key, n)
	}
	return translateError(rows.Err())
}

func (r *requestRepository) CreateWithHistory(ctx context.Context, req *domain.MaintenanceRequest, entry domain.RequestHistory) error {
	const query = `
        INSERT INTO maintenance_requests (id, title, description, category, priority, status, location, requester_id,
            assigned_technician_id, manager_id, estimated_completion_date, actual_completion_date, notes, cost, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14::numeric,$15,$16)`

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return translateError(err)
	}
	if _, err := tx.Exec(ctx, query,
		req.ID,
		req.Title,
		req.Description,
		req.Category,
		req.Priority,
		req.Status,
		req.Location,
		req.RequesterID,
		req.AssignedTechnicianID,
		req.ManagerID,
		req.EstimatedCompletionDate,
		req.ActualCompletionDate,
		req.Notes,
		costArg(req.Cost),
		req.CreatedAt,
		req.UpdatedAt,
	); err != nil {
		return rollback(ctx, tx, err)
	}
	if err := insertHistory(ctx, tx, entry); err != nil {
		return rollback(ctx, tx, err)
	}
	return translateError(tx.Commit(ctx))
}

func (r *requestRepository) UpdateWithHistory(ctx context.Context, req *domain.MaintenanceRequest, rows []domain.RequestHistory) error {
	const query = `
        UPDATE maintenance_requests SET title=$1, description=$2, category=$3, priority=$4, status=$5, location=$6,
            assigned_technician_id=$7, manager_id=$8, estimated_completion_date=$9, actual_completion_date=$10,
            notes=$11, cost=$12::numeric, updated_at=$13
        WHERE id=$14`

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return translateError(err)
	}
	cmd, err := tx.Exec(ctx, query,
		req.Title,
		req.Description,
		req.Category,
		req.Priority,
		req.Status,
		req.Location,
		req.AssignedTechnicianID,
		req.ManagerID,
		req.EstimatedCompletionDate,
		req.ActualCompletionDate,
		req.Notes,
		costArg(req.Cost),
		req.UpdatedAt,
		req.ID,
	)
	if err != nil {
		return rollback(ctx, tx, err)
	}
	if cmd.RowsAffected() == 0 {
		return rollback(ctx, tx, pgx.ErrNoRows)
	}
	for _, row := range rows {
		if err := insertHistory(ctx, tx, row); err != nil {
			return rollback(ctx, tx, err)
		}
	}
	return translateError(tx.Commit(ctx))
}

func (r *requestRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM maintenance_requests WHERE id=$1`, id)
	if err != nil {
		return translateError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func requestWhere(filter domain.RequestFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	in := func(column string, values []string) {
		if len(values) == 0 {
			return
		}
		placeholders := make([]string, len(values))
		for i, v := range values {
			args = append(args, v)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ",")))
	}
	in("status", toStrings(filter.Statuses))
	in("category", toStrings(filter.Categories))
	in("priority", toStrings(filter.Priorities))

	if filter.AssignedTechnicianID != nil {
		args = append(args, *filter.AssignedTechnicianID)
		clauses = append(clauses, fmt.Sprintf("assigned_technician_id=$%d", len(args)))
	}
	if filter.RequesterID != nil {
		args = append(args, *filter.RequesterID)
		clauses = append(clauses, fmt.Sprintf("requester_id=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if term := strings.TrimSpace(filter.SearchTerm); term != "" {
		args = append(args, "%"+strings.ToLower(term)+"%")
		p := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s OR LOWER(location) LIKE %s)", p, p, p))
	}
	return strings.Join(clauses, " AND "), args
}

func toStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func scanRequest(row pgx.Row) (*domain.MaintenanceRequest, error) {
	var (
		req  domain.MaintenanceRequest
		cost *string
	)
	if err := row.Scan(
		&req.ID,
		&req.Title,
		&req.Description,
		&req.Category,
		&req.Priority,
		&req.Status,
		&req.Location,
		&req.RequesterID,
		&req.AssignedTechnicianID,
		&req.ManagerID,
		&req.EstimatedCompletionDate,
		&req.ActualCompletionDate,
		&req.Notes,
		&cost,
		&req.CreatedAt,
		&req.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if cost != nil {
		amount, err := decimal.NewFromString(*cost)
		if err != nil {
			return nil, fmt.Errorf("parse cost %q: %w", *cost, err)
		}
		req.Cost = &amount
	}
	return &req, nil
}

func costArg(cost *decimal.Decimal) *string {
	if cost == nil {
		return nil
	}
	s := cost.String()
	return &s
}

func insertHistory(ctx context.Context, db DBTX, entry domain.RequestHistory) error {
	const query = `
        INSERT INTO request_history (id, request_id, user_id, action, field, old_value, new_value, description, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := db.Exec(ctx, query,
		entry.ID,
		entry.RequestID,
		entry.UserID,
		entry.Action,
		entry.Field,
		entry.OldValue,
		entry.NewValue,
		entry.Description,
		createdAt,
	)
	return err
}
