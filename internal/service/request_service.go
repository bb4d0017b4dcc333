package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/history"
	"github.com/spec-kit/maintenance-service/internal/lifecycle"
	"github.com/spec-kit/maintenance-service/internal/repository"
	"github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

const (
	maxTitleLength       = 255
	maxDescriptionLength = 2000
	maxLocationLength    = 500
	maxNotesLength       = 2000
)

// Stored cost precision, matching NUMERIC(12,2).
const costPlaces = 2

var maxCost = decimal.New(1, 10)

// RequestService coordinates the maintenance request lifecycle.
type RequestService struct {
	requests   repository.RequestRepository
	comments   repository.CommentRepository
	history    repository.HistoryRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	metrics    TransitionRecorder
	validator  *validator.Validate
	sanitizer  textSanitizer
	retry      ReadRetry
	now        func() time.Time
	logger     *zap.Logger
}

// RequestDependencies bundles collaborators of RequestService.
type RequestDependencies struct {
	Requests   repository.RequestRepository
	Comments   repository.CommentRepository
	History    repository.HistoryRepository
	Users      repository.UserRepository
	Dispatcher events.Dispatcher
	Metrics    TransitionRecorder
	Validator  *validator.Validate
	Retry      ReadRetry
	Clock      func() time.Time
	Logger     *zap.Logger
}

// CreateRequestInput describes a new maintenance request.
type CreateRequestInput struct {
	Title                   string `validate:"required,max=255"`
	Description             string `validate:"required,max=2000"`
	Category                domain.Category
	Priority                domain.Priority
	Location                string `validate:"required,max=500"`
	EstimatedCompletionDate *time.Time
}

// RequestDetails is a request with its related records, as seen by one caller.
type RequestDetails struct {
	Request        *domain.MaintenanceRequest
	Requester      *domain.User
	Technician     *domain.User
	Manager        *domain.User
	Comments       []domain.RequestComment
	History        []domain.RequestHistory
	AllowedActions []domain.Action
}

// NewRequestService constructs the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	s := &RequestService{
		requests:   deps.Requests,
		comments:   deps.Comments,
		history:    deps.History,
		users:      deps.Users,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		validator:  deps.Validator,
		sanitizer:  newTextSanitizer(),
		retry:      deps.Retry,
		now:        deps.Clock,
		logger:     deps.Logger,
	}
	if s.validator == nil {
		s.validator = validator.New()
	}
	if s.retry.Attempts <= 0 {
		s.retry = DefaultReadRetry
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// CreateRequest opens a request in status NEW owned by the caller.
func (s *RequestService) CreateRequest(ctx context.Context, session domain.Session, input CreateRequestInput) (*domain.MaintenanceRequest, error) {
	if !session.Role.CanCreateRequests() {
		return nil, errorutil.NewForbidden("role cannot create requests")
	}

	input.Title = s.sanitizer.Clean(input.Title)
	input.Description = s.sanitizer.Clean(input.Description)
	input.Location = s.sanitizer.Clean(input.Location)
	if err := s.validator.Struct(input); err != nil {
		return nil, validationError(err)
	}
	if !input.Category.Valid() {
		return nil, errorutil.NewValidationError("invalid category", map[string]any{"category": string(input.Category)})
	}
	if input.Priority == "" {
		input.Priority = domain.PriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, errorutil.NewValidationError("invalid priority", map[string]any{"priority": string(input.Priority)})
	}

	now := s.now().UTC()
	req := &domain.MaintenanceRequest{
		ID:                      uuid.NewString(),
		Title:                   input.Title,
		Description:             input.Description,
		Category:                input.Category,
		Priority:                input.Priority,
		Status:                  domain.StatusNew,
		Location:                input.Location,
		RequesterID:             session.UserID,
		EstimatedCompletionDate: truncateDate(input.EstimatedCompletionDate),
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	if err := s.requests.CreateWithHistory(ctx, req, history.CreateEntry(req, session.UserID, now)); err != nil {
		return nil, mapStoreError(err, "request", req.ID)
	}

	s.publish(ctx, events.NewEvent(events.EventRequestCreated, req.ID, actorOf(session), events.RequestCreatedPayload{
		Title:       req.Title,
		Category:    req.Category,
		Priority:    req.Priority,
		RequesterID: req.RequesterID,
	}))
	return req, nil
}

// ListRequests returns one page of requests visible to the caller and the total match count.
func (s *RequestService) ListRequests(ctx context.Context, session domain.Session, filter domain.RequestFilter) ([]domain.MaintenanceRequest, int, error) {
	scoped, err := scopeFilter(session, filter)
	if err != nil {
		return nil, 0, err
	}
	requests, err := withReadRetry(ctx, s.retry, func(ctx context.Context) ([]domain.MaintenanceRequest, error) {
		return s.requests.List(ctx, scoped)
	})
	if err != nil {
		return nil, 0, mapStoreError(err, "request", "")
	}
	total, err := withReadRetry(ctx, s.retry, func(ctx context.Context) (int, error) {
		return s.requests.Count(ctx, scoped)
	})
	if err != nil {
		return nil, 0, mapStoreError(err, "request", "")
	}
	return requests, total, nil
}

// GetRequest returns a request the caller may see. Invisible requests are reported as not found.
func (s *RequestService) GetRequest(ctx context.Context, session domain.Session, id string) (*domain.MaintenanceRequest, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(session, req) {
		return nil, errorutil.NewNotFound("request", map[string]any{"id": id})
	}
	return req, nil
}

// GetRequestDetails loads a request with its people, visible comments, history and the caller's actions.
func (s *RequestService) GetRequestDetails(ctx context.Context, session domain.Session, id string) (*RequestDetails, error) {
	req, err := s.GetRequest(ctx, session, id)
	if err != nil {
		return nil, err
	}

	comments, err := withReadRetry(ctx, s.retry, func(ctx context.Context) ([]domain.RequestComment, error) {
		return s.comments.ListByRequest(ctx, id)
	})
	if err != nil {
		return nil, mapStoreError(err, "comment", id)
	}
	entries, err := withReadRetry(ctx, s.retry, func(ctx context.Context) ([]domain.RequestHistory, error) {
		return s.history.ListByRequest(ctx, id)
	})
	if err != nil {
		return nil, mapStoreError(err, "history", id)
	}

	details := &RequestDetails{
		Request:        req,
		Requester:      s.lookupUser(ctx, &req.RequesterID),
		Technician:     s.lookupUser(ctx, req.AssignedTechnicianID),
		Manager:        s.lookupUser(ctx, req.ManagerID),
		Comments:       VisibleComments(comments, session.Role),
		History:        entries,
		AllowedActions: lifecycle.AvailableActions(session.Role, req, session.UserID),
	}
	return details, nil
}

// ListHistory returns the audit trail of a visible request, oldest first.
func (s *RequestService) ListHistory(ctx context.Context, session domain.Session, id string) ([]domain.RequestHistory, error) {
	if _, err := s.GetRequest(ctx, session, id); err != nil {
		return nil, err
	}
	entries, err := withReadRetry(ctx, s.retry, func(ctx context.Context) ([]domain.RequestHistory, error) {
		return s.history.ListByRequest(ctx, id)
	})
	if err != nil {
		return nil, mapStoreError(err, "history", id)
	}
	return entries, nil
}

// UpdateRequest applies a partial update and records one history row per changed field.
// It performs no role check; callers authorize first.
func (s *RequestService) UpdateRequest(ctx context.Context, id string, changes domain.RequestChanges, actorID string) (*domain.MaintenanceRequest, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, current, changes, actorID, domain.HistoryActionUpdate)
}

// PerformAction runs a lifecycle action after checking the transition predicate.
func (s *RequestService) PerformAction(ctx context.Context, session domain.Session, id string, action domain.Action) (*domain.MaintenanceRequest, error) {
	if !action.Valid() {
		return nil, errorutil.NewValidationError("invalid action", map[string]any{"action": string(action)})
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !lifecycle.CanPerform(session.Role, action, current, session.UserID) {
		return nil, errorutil.NewActionNotAllowed(string(action), string(current.Status))
	}
	changes, err := lifecycle.Transition(action, current, s.now())
	if err != nil {
		return nil, err
	}

	updated, err := s.apply(ctx, current, changes, session.UserID, domain.HistoryActionFor(action))
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordTransition(string(action), string(updated.Status))
	}
	s.logger.Info("request action applied",
		zap.String("request_id", id),
		zap.String("action", string(action)),
		zap.String("from", string(current.Status)),
		zap.String("to", string(updated.Status)),
		zap.String("user_id", session.UserID))
	s.publish(ctx, events.NewEvent(events.EventRequestStatusChanged, id, actorOf(session), events.RequestStatusChangedPayload{
		Action:      action,
		OldStatus:   current.Status,
		NewStatus:   updated.Status,
		RequesterID: updated.RequesterID,
	}))
	return updated, nil
}

// AssignTechnician assigns an active technician to a NEW request. The status stays NEW.
func (s *RequestService) AssignTechnician(ctx context.Context, session domain.Session, id, technicianID string) (*domain.MaintenanceRequest, error) {
	if !session.Role.CanManageRequests() {
		return nil, errorutil.NewForbidden("role cannot assign technicians")
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != domain.StatusNew {
		return nil, errorutil.NewValidationError("only new requests can be assigned", map[string]any{"status": string(current.Status)})
	}

	technician, err := withReadRetry(ctx, s.retry, func(ctx context.Context) (*domain.User, error) {
		return s.users.Get(ctx, technicianID)
	})
	if err != nil {
		return nil, mapStoreError(err, "technician", technicianID)
	}
	if technician.Role != domain.RoleTechnician || !technician.IsActive {
		return nil, errorutil.NewValidationError("assignee must be an active technician", map[string]any{"technician_id": technicianID})
	}

	changes := domain.RequestChanges{
		AssignedTechnicianID: domain.Some(technicianID),
		ManagerID:            domain.Some(session.UserID),
	}
	updated, err := s.apply(ctx, current, changes, session.UserID, domain.HistoryActionAssign)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.NewEvent(events.EventRequestAssigned, id, actorOf(session), events.RequestAssignedPayload{
		TechnicianID: technicianID,
		ManagerID:    session.UserID,
	}))
	return updated, nil
}

// EditRequest changes descriptive fields. Status and assignment go through actions and assignment.
func (s *RequestService) EditRequest(ctx context.Context, session domain.Session, id string, changes domain.RequestChanges) (*domain.MaintenanceRequest, error) {
	if !session.Role.CanManageRequests() {
		return nil, errorutil.NewForbidden("role cannot edit requests")
	}
	if changes.TouchesLifecycle() {
		return nil, errorutil.NewValidationError("status and assignment cannot be edited directly", nil)
	}
	return s.UpdateRequest(ctx, id, changes, session.UserID)
}

// DeleteRequest removes a request with its comments and history.
func (s *RequestService) DeleteRequest(ctx context.Context, session domain.Session, id string) error {
	if !session.Role.CanManageRequests() {
		return errorutil.NewForbidden("role cannot delete requests")
	}
	if err := s.requests.Delete(ctx, id); err != nil {
		return mapStoreError(err, "request", id)
	}
	s.logger.Info("request deleted", zap.String("request_id", id), zap.String("user_id", session.UserID))
	return nil
}

// DashboardStats aggregates counters over the requests visible to the caller.
func (s *RequestService) DashboardStats(ctx context.Context, session domain.Session) (*domain.DashboardStats, error) {
	scoped, err := scopeFilter(session, domain.RequestFilter{})
	if err != nil {
		return nil, err
	}
	stats, err := withReadRetry(ctx, s.retry, func(ctx context.Context) (*domain.DashboardStats, error) {
		return s.requests.Stats(ctx, scoped)
	})
	if err != nil {
		return nil, mapStoreError(err, "request", "")
	}
	return stats, nil
}

func (s *RequestService) load(ctx context.Context, id string) (*domain.MaintenanceRequest, error) {
	req, err := withReadRetry(ctx, s.retry, func(ctx context.Context) (*domain.MaintenanceRequest, error) {
		return s.requests.Get(ctx, id)
	})
	if err != nil {
		return nil, mapStoreError(err, "request", id)
	}
	return req, nil
}

// apply validates changes, diffs them against current and persists request and history together.
// A change set that alters nothing writes nothing.
func (s *RequestService) apply(ctx context.Context, current *domain.MaintenanceRequest, changes domain.RequestChanges, actorID string, tag domain.HistoryAction) (*domain.MaintenanceRequest, error) {
	normalized, err := s.normalizeChanges(changes)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	updated := current.Clone()
	normalized.ApplyTo(updated)
	rows := history.Diff(current, updated, tag, actorID, now)
	if len(rows) == 0 {
		return current, nil
	}
	updated.UpdatedAt = now

	if err := s.requests.UpdateWithHistory(ctx, updated, rows); err != nil {
		return nil, mapStoreError(err, "request", current.ID)
	}
	return updated, nil
}

func (s *RequestService) normalizeChanges(changes domain.RequestChanges) (domain.RequestChanges, error) {
	clean := func(field string, value *string, minLen, maxLen int) (*string, error) {
		if value == nil {
			return nil, nil
		}
		v := s.sanitizer.Clean(*value)
		if err := checkLength(field, v, minLen, maxLen); err != nil {
			return nil, err
		}
		return &v, nil
	}

	var err error
	if changes.Title, err = clean("title", changes.Title, 1, maxTitleLength); err != nil {
		return changes, err
	}
	if changes.Description, err = clean("description", changes.Description, 1, maxDescriptionLength); err != nil {
		return changes, err
	}
	if changes.Location, err = clean("location", changes.Location, 1, maxLocationLength); err != nil {
		return changes, err
	}
	if changes.Notes != nil && changes.Notes.Valid {
		notes := s.sanitizer.Clean(changes.Notes.Value)
		if err := checkLength("notes", notes, 0, maxNotesLength); err != nil {
			return changes, err
		}
		if notes == "" {
			changes.Notes = domain.None[string]()
		} else {
			changes.Notes = domain.Some(notes)
		}
	}
	if changes.Category != nil && !changes.Category.Valid() {
		return changes, errorutil.NewValidationError("invalid category", map[string]any{"category": string(*changes.Category)})
	}
	if changes.Priority != nil && !changes.Priority.Valid() {
		return changes, errorutil.NewValidationError("invalid priority", map[string]any{"priority": string(*changes.Priority)})
	}
	if changes.Status != nil && !changes.Status.Valid() {
		return changes, errorutil.NewValidationError("invalid status", map[string]any{"status": string(*changes.Status)})
	}
	if changes.AssignedTechnicianID != nil && changes.AssignedTechnicianID.Valid && changes.AssignedTechnicianID.Value == "" {
		return changes, errorutil.NewValidationError("assigned technician id must not be empty", nil)
	}
	if changes.ManagerID != nil && changes.ManagerID.Valid && changes.ManagerID.Value == "" {
		return changes, errorutil.NewValidationError("manager id must not be empty", nil)
	}
	if changes.Cost != nil && changes.Cost.Valid {
		amount := changes.Cost.Value.Round(costPlaces)
		if amount.LessThan(decimal.Zero) {
			return changes, errorutil.NewValidationError("cost must not be negative", map[string]any{"cost": changes.Cost.Value.String()})
		}
		if amount.GreaterThanOrEqual(maxCost) {
			return changes, errorutil.NewValidationError("cost is too large", map[string]any{"cost": changes.Cost.Value.String()})
		}
		changes.Cost = domain.Some(amount)
	}
	if changes.EstimatedCompletionDate != nil && changes.EstimatedCompletionDate.Valid {
		changes.EstimatedCompletionDate = domain.Some(*truncateDate(&changes.EstimatedCompletionDate.Value))
	}
	if changes.ActualCompletionDate != nil && changes.ActualCompletionDate.Valid {
		changes.ActualCompletionDate = domain.Some(*truncateDate(&changes.ActualCompletionDate.Value))
	}
	return changes, nil
}

// truncateDate drops sub-second precision so stored dates match their history values.
func truncateDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC().Truncate(time.Second)
	return &v
}

func (s *RequestService) lookupUser(ctx context.Context, id *string) *domain.User {
	if id == nil || *id == "" {
		return nil
	}
	user, err := withReadRetry(ctx, s.retry, func(ctx context.Context) (*domain.User, error) {
		return s.users.Get(ctx, *id)
	})
	if err != nil {
		s.logger.Warn("related user unavailable", zap.String("user_id", *id), zap.Error(err))
		return nil
	}
	return user
}

func (s *RequestService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func actorOf(session domain.Session) events.Actor {
	return events.Actor{UserID: session.UserID, Role: session.Role}
}
