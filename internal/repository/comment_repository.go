package repository

import (
	"context"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

type commentRepository struct {
	db DB
}

// NewCommentRepository builds a Postgres-backed CommentRepository.
func NewCommentRepository(db DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) CreateWithHistory(ctx context.Context, comment *domain.RequestComment, entry domain.RequestHistory) error {
	const query = `
        INSERT INTO request_comments (id, request_id, author_id, text, is_internal, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)`

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return translateError(err)
	}
	if _, err := tx.Exec(ctx, query,
		comment.ID,
		comment.RequestID,
		comment.AuthorID,
		comment.Text,
		comment.IsInternal,
		comment.CreatedAt,
	); err != nil {
		return rollback(ctx, tx, err)
	}
	if err := insertHistory(ctx, tx, entry); err != nil {
		return rollback(ctx, tx, err)
	}
	return translateError(tx.Commit(ctx))
}

func (r *commentRepository) ListByRequest(ctx context.Context, requestID string) ([]domain.RequestComment, error) {
	const query = `
        SELECT id, request_id, author_id, text, is_internal, created_at
        FROM request_comments WHERE request_id=$1 ORDER BY created_at ASC, seq ASC`
	rows, err := r.db.Query(ctx, query, requestID)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var result []domain.RequestComment
	for rows.Next() {
		var comment domain.RequestComment
		if err := rows.Scan(
			&comment.ID,
			&comment.RequestID,
			&comment.AuthorID,
			&comment.Text,
			&comment.IsInternal,
			&comment.CreatedAt,
		); err != nil {
			return nil, translateError(err)
		}
		result = append(result, comment)
	}
	return result, translateError(rows.Err())
}
