package repository

import (
	"context"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

type historyRepository struct {
	db DBTX
}

// NewHistoryRepository builds a Postgres-backed HistoryRepository.
func NewHistoryRepository(db DBTX) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) ListByRequest(ctx context.Context, requestID string) ([]domain.RequestHistory, error) {
	const query = `
        SELECT id, request_id, user_id, action, field, old_value, new_value, description, created_at
        FROM request_history WHERE request_id=$1 ORDER BY created_at ASC, seq ASC`
	rows, err := r.db.Query(ctx, query, requestID)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var result []domain.RequestHistory
	for rows.Next() {
		var entry domain.RequestHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.RequestID,
			&entry.UserID,
			&entry.Action,
			&entry.Field,
			&entry.OldValue,
			&entry.NewValue,
			&entry.Description,
			&entry.CreatedAt,
		); err != nil {
			return nil, translateError(err)
		}
		result = append(result, entry)
	}
	return result, translateError(rows.Err())
}
