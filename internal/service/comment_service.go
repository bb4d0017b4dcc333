package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/history"
	"github.com/spec-kit/maintenance-service/internal/repository"
	"github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

const maxCommentLength = 2000

// CommentService appends comments to requests.
type CommentService struct {
	requests   repository.RequestRepository
	comments   repository.CommentRepository
	dispatcher events.Dispatcher
	sanitizer  textSanitizer
	retry      ReadRetry
	now        func() time.Time
	logger     *zap.Logger
}

// NewCommentService constructs the service.
func NewCommentService(requests repository.RequestRepository, comments repository.CommentRepository, dispatcher events.Dispatcher, retry ReadRetry, logger *zap.Logger) *CommentService {
	if retry.Attempts <= 0 {
		retry = DefaultReadRetry
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentService{
		requests:   requests,
		comments:   comments,
		dispatcher: dispatcher,
		sanitizer:  newTextSanitizer(),
		retry:      retry,
		now:        time.Now,
		logger:     logger,
	}
}

// AddComment stores a comment and its COMMENT history row in one write.
func (s *CommentService) AddComment(ctx context.Context, session domain.Session, requestID, text string, isInternal bool) (*domain.RequestComment, error) {
	req, err := withReadRetry(ctx, s.retry, func(ctx context.Context) (*domain.MaintenanceRequest, error) {
		return s.requests.Get(ctx, requestID)
	})
	if err != nil {
		return nil, mapStoreError(err, "request", requestID)
	}
	if !canView(session, req) {
		return nil, errorutil.NewNotFound("request", map[string]any{"id": requestID})
	}
	if isInternal && session.Role == domain.RoleRequester {
		return nil, errorutil.NewValidationError("requesters cannot post internal comments", nil)
	}

	text = s.sanitizer.Clean(text)
	if err := checkLength("text", text, 1, maxCommentLength); err != nil {
		return nil, err
	}

	comment := &domain.RequestComment{
		ID:         uuid.NewString(),
		RequestID:  requestID,
		AuthorID:   session.UserID,
		Text:       text,
		IsInternal: isInternal,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.comments.CreateWithHistory(ctx, comment, history.CommentEntry(comment, comment.CreatedAt)); err != nil {
		return nil, mapStoreError(err, "comment", comment.ID)
	}

	if s.dispatcher != nil {
		event := events.NewEvent(events.EventRequestCommentAdded, requestID, actorOf(session), events.RequestCommentAddedPayload{
			CommentID:   comment.ID,
			IsInternal:  isInternal,
			TextPreview: history.Excerpt(text, history.CommentExcerptLength),
		})
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("publish event failed", zap.String("event_type", string(event.Type)), zap.Error(err))
		}
	}
	return comment, nil
}

// ListComments returns the comments of a visible request, oldest first.
func (s *CommentService) ListComments(ctx context.Context, session domain.Session, requestID string) ([]domain.RequestComment, error) {
	req, err := withReadRetry(ctx, s.retry, func(ctx context.Context) (*domain.MaintenanceRequest, error) {
		return s.requests.Get(ctx, requestID)
	})
	if err != nil {
		return nil, mapStoreError(err, "request", requestID)
	}
	if !canView(session, req) {
		return nil, errorutil.NewNotFound("request", map[string]any{"id": requestID})
	}
	comments, err := withReadRetry(ctx, s.retry, func(ctx context.Context) ([]domain.RequestComment, error) {
		return s.comments.ListByRequest(ctx, requestID)
	})
	if err != nil {
		return nil, mapStoreError(err, "comment", requestID)
	}
	return VisibleComments(comments, session.Role), nil
}

// VisibleComments hides internal comments from requesters.
func VisibleComments(comments []domain.RequestComment, role domain.Role) []domain.RequestComment {
	if role != domain.RoleRequester {
		return comments
	}
	visible := make([]domain.RequestComment, 0, len(comments))
	for _, c := range comments {
		if !c.IsInternal {
			visible = append(visible, c)
		}
	}
	return visible
}
