package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/repository/memory"
	"github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

var (
	requester  = domain.Session{UserID: "u1", Role: domain.RoleRequester}
	manager    = domain.Session{UserID: "m1", Role: domain.RoleManager}
	technician = domain.Session{UserID: "t1", Role: domain.RoleTechnician}
	superAdmin = domain.Session{UserID: "sa", Role: domain.RoleSuperAdmin}
)

type fakeTransitions struct {
	recorded []string
}

func (f *fakeTransitions) RecordTransition(action, toStatus string) {
	f.recorded = append(f.recorded, action+"->"+toStatus)
}

type requestFixture struct {
	store       *memory.Store
	svc         *RequestService
	comments    *CommentService
	transitions *fakeTransitions
	published   []events.Event
	clock       time.Time
}

func newRequestFixture(t *testing.T) *requestFixture {
	t.Helper()
	f := &requestFixture{
		store:       memory.NewStore(),
		transitions: &fakeTransitions{},
		clock:       time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	dispatcher := events.NewInMemoryDispatcher(nil)
	for _, eventType := range []events.EventType{
		events.EventRequestCreated,
		events.EventRequestStatusChanged,
		events.EventRequestAssigned,
		events.EventRequestCommentAdded,
	} {
		dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			f.published = append(f.published, e)
			return nil
		})
	}
	for _, u := range []domain.User{
		{ID: "u1", Name: "Una", Email: "u1@example.com", Role: domain.RoleRequester, IsActive: true},
		{ID: "m1", Name: "Max", Email: "m1@example.com", Role: domain.RoleManager, IsActive: true},
		{ID: "t1", Name: "Tom", Email: "t1@example.com", Role: domain.RoleTechnician, IsActive: true},
		{ID: "t2", Name: "Tia", Email: "t2@example.com", Role: domain.RoleTechnician, IsActive: true},
		{ID: "t3", Name: "Ted", Email: "t3@example.com", Role: domain.RoleTechnician, IsActive: false},
	} {
		f.store.PutUser(&u)
	}

	retry := ReadRetry{Attempts: 3, Backoff: time.Millisecond}
	f.svc = NewRequestService(RequestDependencies{
		Requests:   f.store.Requests(),
		Comments:   f.store.Comments(),
		History:    f.store.History(),
		Users:      f.store.Users(),
		Dispatcher: dispatcher,
		Metrics:    f.transitions,
		Retry:      retry,
		Clock:      f.now,
	})
	f.comments = NewCommentService(f.store.Requests(), f.store.Comments(), dispatcher, retry, nil)
	f.comments.now = f.now
	return f
}

func (f *requestFixture) now() time.Time { return f.clock }

func (f *requestFixture) tick() { f.clock = f.clock.Add(time.Minute) }

// seed stores a NEW plumbing request owned by u1 without a CREATE row.
func (f *requestFixture) seed() *domain.MaintenanceRequest {
	req := &domain.MaintenanceRequest{
		ID:          "r1",
		Title:       "Leaking pipe",
		Description: "Water under the sink",
		Category:    domain.CategoryPlumbing,
		Priority:    domain.PriorityHigh,
		Status:      domain.StatusNew,
		Location:    "Kitchen",
		RequesterID: "u1",
		CreatedAt:   f.clock,
		UpdatedAt:   f.clock,
	}
	f.store.PutRequest(req)
	return req
}

func TestCreateRequestWritesCreateRow(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()

	req, err := f.svc.CreateRequest(ctx, requester, CreateRequestInput{
		Title:       "  Broken <b>lamp</b> ",
		Description: "Lamp in hallway flickers",
		Category:    domain.CategoryElectrical,
		Location:    "Hallway",
	})
	require.NoError(t, err)
	assert.Equal(t, "Broken lamp", req.Title)
	assert.Equal(t, domain.StatusNew, req.Status)
	assert.Equal(t, domain.PriorityMedium, req.Priority)
	assert.Equal(t, "u1", req.RequesterID)

	rows, err := f.svc.ListHistory(ctx, requester, req.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.HistoryActionCreate, rows[0].Action)
	assert.Equal(t, string(domain.StatusNew), rows[0].NewValue)

	require.Len(t, f.published, 1)
	assert.Equal(t, events.EventRequestCreated, f.published[0].Type)
}

func TestCreateRequestValidation(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateRequest(ctx, technician, CreateRequestInput{Title: "x", Description: "y", Category: domain.CategoryOther, Location: "z"})
	assert.True(t, errorutil.IsCode(err, errorutil.CodeForbidden))

	_, err = f.svc.CreateRequest(ctx, requester, CreateRequestInput{Title: "<i></i>", Description: "y", Category: domain.CategoryOther, Location: "z"})
	assert.True(t, errorutil.IsCode(err, errorutil.CodeValidation))

	_, err = f.svc.CreateRequest(ctx, requester, CreateRequestInput{Title: "x", Description: "y", Category: "GARDEN", Location: "z"})
	assert.True(t, errorutil.IsCode(err, errorutil.CodeValidation))

	_, err = f.svc.CreateRequest(ctx, requester, CreateRequestInput{Title: "x", Description: "y", Category: domain.CategoryOther, Priority: "NOW", Location: "z"})
	assert.True(t, errorutil.IsCode(err, errorutil.CodeValidation))

	items, total, err := f.svc.ListRequests(ctx, manager, domain.RequestFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)
}

func TestExampleScenarioProducesFourRows(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()
	f.seed()

	f.tick()
	req, err := f.svc.AssignTechnician(ctx, manager, "r1", "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNew, req.Status)
	require.NotNil(t, req.AssignedTechnicianID)
	assert.Equal(t, "t1", *req.AssignedTechnicianID)
	require.NotNil(t, req.ManagerID)
	assert.Equal(t, "m1", *req.ManagerID)

	f.tick()
	req, err = f.svc.PerformAction(ctx, technician, "r1", domain.ActionAccept)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, req.Status)

	f.tick()
	completedAt := f.clock
	req, err = f.svc.PerformAction(ctx, technician, "r1", domain.ActionComplete)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, req.Status)
	require.NotNil(t, req.ActualCompletionDate)
	assert.True(t, completedAt.Equal(*req.ActualCompletionDate))

	f.tick()
	req, err = f.svc.PerformAction(ctx, requester, "r1", domain.ActionClose)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, req.Status)

	rows, err := f.svc.ListHistory(ctx, manager, "r1")
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, domain.HistoryActionAssign, rows[0].Action)
	assert.Equal(t, domain.FieldAssignedTechnicianID, rows[0].Field)
	assert.Equal(t, "t1", rows[0].NewValue)

	assert.Equal(t, domain.HistoryAction("ACCEPT"), rows[1].Action)
	assert.Equal(t, domain.FieldStatus, rows[1].Field)
	assert.Equal(t, "NEW", rows[1].OldValue)
	assert.Equal(t, "IN_PROGRESS", rows[1].NewValue)

	assert.Equal(t, domain.HistoryAction("COMPLETE"), rows[2].Action)
	assert.Equal(t, "IN_PROGRESS", rows[2].OldValue)
	assert.Equal(t, "COMPLETED", rows[2].NewValue)

	assert.Equal(t, domain.HistoryAction("CLOSE"), rows[3].Action)
	assert.Equal(t, "COMPLETED", rows[3].OldValue)
	assert.Equal(t, "CLOSED", rows[3].NewValue)

	assert.Equal(t, []string{"ACCEPT->IN_PROGRESS", "COMPLETE->COMPLETED", "CLOSE->CLOSED"}, f.transitions.recorded)
}

func TestRejectReopensForAnotherTechnician(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()
	f.seed()

	_, err := f.svc.AssignTechnician(ctx, manager, "r1", "t1")
	require.NoError(t, err)

	req, err := f.svc.PerformAction(ctx, technician, "r1", domain.ActionReject)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNew, req.Status)
	assert.Nil(t, req.AssignedTechnicianID)

	_, err = f.svc.AssignTechnician(ctx, manager, "r1", "t2")
	require.NoError(t, err)

	second := domain.Session{UserID: "t2", Role: domain.RoleTechnician}
	req, err = f.svc.PerformAction(ctx, second, "r1", domain.ActionAccept)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, req.Status)

	_, err = f.svc.PerformAction(ctx, technician, "r1", domain.ActionComplete)
	assert.True(t, errorutil.IsCode(err, errorutil.CodeActionNotAllowed))
}

func TestManagerCannotAcceptOnBehalf(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()
	f.seed()

	_, err := f.svc.PerformAction(ctx, manager, "r1", domain.ActionAccept)
	assert.True(t, errorutil.IsCode(err, errorutil.CodeActionNotAllowed))

	_, err = f.svc.AssignTechnician(ctx, manager, "r1", "t1")
	require.NoError(t, err)
	_, err = f.svc.PerformAction(ctx, manager, "r1", domain.ActionAccept)
	assert.True(t, errorutil.IsCode(err, errorutil.CodeActionNotAllowed))
}

func TestClosedRequestOnlyReachableBySuperAdmin(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()
	req := f.seed()
	req.Status = domain.StatusClosed
	f.store.PutRequest(req)

	_, err := f.svc.PerformAction(ctx, requester, "r1", domain.ActionClose)
	assert.True(t, errorutil.IsCode(err, errorutil.CodeActionNotAllowed))

	_, err = f.svc.PerformAction(ctx, superAdmin, "r1", domain.ActionClose)
	assert.True(t, errorutil.IsCode(err, errorutil.CodeValidation))

	rows, err := f.svc.ListHistory(ctx, superAdmin, "r1")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestUpdateRequestWritesOneRowPerField(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()
	f.seed()

	status := domain.StatusInProgress
	_, err := f.svc.UpdateRequest(ctx, "r1", domain.RequestChanges{
		Status: &status,
		Notes:  domain.Some("parts ordered"),
	}, "m1")
	require.NoError(t, err)

	rows, err := f.svc.ListHistory(ctx, manager, "r1")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byField := map[domain.RequestField]domain.RequestHistory{}
	for _, row := range rows {
		assert.Equal(t, domain.HistoryActionUpdate, row.Action)
		assert.Equal(t, "m1", row.UserID)
		byField[row.Field] = row
	}
	assert.Equal(t, "NEW", byField[domain.FieldStatus].OldValue)
	assert.Equal(t, "IN_PROGRESS", byField[domain.FieldStatus].NewValue)
	assert.Equal(t, "", byField[domain.FieldNotes].OldValue)
	assert.Equal(t, "parts ordered", byField[domain.FieldNotes].NewValue)
}

func TestUpdateRequestNoopWritesNothing(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()
	f.seed()

	title := "Leaking pipe"
	req, err := f.svc.UpdateRequest(ctx, "r1", domain.RequestChanges{Title: &title}, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Leaking pipe", req.Title)

	rows, err := f.svc.ListHistory(ctx, manager, "r1")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestUpdateRequestValidation(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()
	f.seed()

	_, err := f.svc.UpdateRequest(ctx, "missing", domain.RequestChanges{}, "m1")
	assert.True(t, errorutil.IsCode(err, errorutil.CodeNotFound))

	empty := "   "
	_, err = f.svc.UpdateRequest(ctx, "r1", domain.RequestChanges{Title: &empty}, "m1")
	assert.True(t, errorutil.IsCode(err, errorutil.CodeValidation))

	_, err = f.svc.UpdateRequest(ctx, "r1", domain.RequestChanges{Cost: domain.Some(decimal.NewFromInt(-5))}, "m1")
	assert.True(t, errorutil.IsCode(err, errorutil.CodeValidation))

	status := domain.Status("DONE")
	_, err = f.svc.UpdateRequest(ctx, "r1", domain.RequestChanges{Status: &status}, "m1")
	assert.True(t, errorutil.IsCode(err, errorutil.CodeValidation))
}

func TestUpdateRequestStoresValuesAtHistoryPrecision(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()
	f.seed()

	req, err := f.svc.UpdateRequest(ctx, "r1", domain.RequestChanges{Cost: domain.Some(decimal.RequireFromString("10.004"))}, "m1")
	require.NoError(t, err)
	require.NotNil(t, req.Cost)
	assert.Equal(t, "10", req.Cost.String())

	req, err = f.svc.UpdateRequest(ctx, "r1", domain.RequestChanges{Cost: domain.Some(decimal.RequireFromString("10.001"))}, "m1")
	require.NoError(t, err)
	assert.Equal(t, "10", req.Cost.String())

	due := time.Date(2024, 3, 1, 12, 0, 0, 999_000_000, time.UTC)
	req, err = f.svc.UpdateRequest(ctx, "r1", domain.RequestChanges{EstimatedCompletionDate: domain.Some(due)}, "m1")
	require.NoError(t, err)
	require.NotNil(t, req.EstimatedCompletionDate)
	assert.Equal(t, due.Truncate(time.Second), *req.EstimatedCompletionDate)

	rows, err := f.svc.ListHistory(ctx, manager, "r1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "10.00", rows[0].NewValue)

	stored, err := f.svc.GetRequest(ctx, manager, "r1")
	require.NoError(t, err)
	assert.True(t, stored.Cost.Equal(decimal.RequireFromString("10.00")))

	_, err = f.svc.UpdateRequest(ctx, "r1", domain.RequestChanges{Cost: domain.Some(decimal.New(1, 10))}, "m1")
	assert.True(t, errorutil.IsCode(err, errorutil.CodeValidation))
}

func TestUpdateIsAtomicWithHistory(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()
	f.seed()

	f.store.FailWrites(errors.New("disk full"))
	notes := domain.Some("will not persist")
	_, err := f.svc.UpdateRequest(ctx, "r1", domain.RequestChanges{Notes: notes}, "m1")
	assert.True(t, errorutil.IsCode(err, errorutil.CodeInternal))
	f.store.FailWrites(nil)

	req, err := f.svc.GetRequest(ctx, manager, "r1")
	require.NoError(t, err)
	assert.Nil(t, req.Notes)
	rows, err := f.svc.ListHistory(ctx, manager, "r1")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReadsRetryTransientFailures(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()
	f.seed()

	f.store.FailReads(2, errorutil.NewTransientStoreError(errors.New("connection reset")))
	req, err := f.svc.GetRequest(ctx, manager, "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", req.ID)

	f.store.FailReads(3, errorutil.NewTransientStoreError(errors.New("connection reset")))
	_, err = f.svc.GetRequest(ctx, manager, "r1")
	assert.True(t, errorutil.IsCode(err, errorutil.CodeStoreUnavailable))
	f.store.FailReads(0, nil)

	f.store.FailReads(1, errors.New("syntax error"))
	_, err = f.svc.GetRequest(ctx, manager, "r1")
	assert.True(t, errorutil.IsCode(err, errorutil.CodeInternal))
	f.store.FailReads(0, nil)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	f.store.FailReads(3, errorutil.NewTransientStoreError(errors.New("connection reset")))
	_, err = f.svc.GetRequest(cancelled, manager, "r1")
	assert.True(t, errorutil.IsCode(err, errorutil.CodeStoreUnavailable))
	f.store.FailReads(0, nil)
}

func TestVisibilityScopesRequests(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()
	f.seed()

	other := domain.Session{UserID: "u2", Role: domain.RoleRequester}
	_, err := f.svc.GetRequest(ctx, other, "r1")
	assert.True(t, errorutil.IsCode(err, errorutil.CodeNotFound))

	_, err = f.svc.GetRequest(ctx, technician, "r1")
	assert.True(t, errorutil.IsCode(err, errorutil.CodeNotFound))

	items, total, err := f.svc.ListRequests(ctx, other, domain.RequestFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)

	items, total, err = f.svc.ListRequests(ctx, requester, domain.RequestFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, total)

	_, err = f.svc.AssignTechnician(ctx, manager, "r1", "t1")
	require.NoError(t, err)
	items, _, err = f.svc.ListRequests(ctx, technician, domain.RequestFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestAssignTechnicianRules(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()
	req := f.seed()

	_, err := f.svc.AssignTechnician(ctx, requester, "r1", "t1")
	assert.True(t, errorutil.IsCode(err, errorutil.CodeForbidden))

	_, err = f.svc.AssignTechnician(ctx, manager, "r1", "t3")
	assert.True(t, errorutil.IsCode(err, errorutil.CodeValidation), "inactive technician")

	_, err = f.svc.AssignTechnician(ctx, manager, "r1", "u1")
	assert.True(t, errorutil.IsCode(err, errorutil.CodeValidation), "not a technician")

	_, err = f.svc.AssignTechnician(ctx, manager, "r1", "nobody")
	assert.True(t, errorutil.IsCode(err, errorutil.CodeNotFound))

	req.Status = domain.StatusInProgress
	f.store.PutRequest(req)
	_, err = f.svc.AssignTechnician(ctx, manager, "r1", "t1")
	assert.True(t, errorutil.IsCode(err, errorutil.CodeValidation))
}

func TestEditRequestRejectsLifecycleFields(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()
	f.seed()

	status := domain.StatusClosed
	_, err := f.svc.EditRequest(ctx, manager, "r1", domain.RequestChanges{Status: &status})
	assert.True(t, errorutil.IsCode(err, errorutil.CodeValidation))

	priority := domain.PriorityUrgent
	_, err = f.svc.EditRequest(ctx, technician, "r1", domain.RequestChanges{Priority: &priority})
	assert.True(t, errorutil.IsCode(err, errorutil.CodeForbidden))

	req, err := f.svc.EditRequest(ctx, manager, "r1", domain.RequestChanges{
		Priority: &priority,
		Cost:     domain.Some(decimal.RequireFromString("120.50")),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityUrgent, req.Priority)
	require.NotNil(t, req.Cost)
	assert.Equal(t, "120.5", req.Cost.String())
}

func TestGetRequestDetails(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()
	f.seed()

	_, err := f.svc.AssignTechnician(ctx, manager, "r1", "t1")
	require.NoError(t, err)
	_, err = f.comments.AddComment(ctx, technician, "r1", "checking valves", true)
	require.NoError(t, err)
	_, err = f.comments.AddComment(ctx, requester, "r1", "thanks", false)
	require.NoError(t, err)

	details, err := f.svc.GetRequestDetails(ctx, requester, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Una", details.Requester.Name)
	assert.Equal(t, "Tom", details.Technician.Name)
	assert.Equal(t, "Max", details.Manager.Name)
	require.Len(t, details.Comments, 1)
	assert.Equal(t, "thanks", details.Comments[0].Text)
	assert.Len(t, details.History, 3)
	assert.Empty(t, details.AllowedActions)

	details, err = f.svc.GetRequestDetails(ctx, technician, "r1")
	require.NoError(t, err)
	assert.Len(t, details.Comments, 2)
	assert.ElementsMatch(t, []domain.Action{domain.ActionAccept, domain.ActionReject}, details.AllowedActions)
}

func TestDeleteRequestAndStats(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()
	f.seed()

	stats, err := f.svc.DashboardStats(ctx, requester)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalRequests)
	assert.Equal(t, 1, stats.NewRequests)

	stats, err = f.svc.DashboardStats(ctx, technician)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalRequests)

	assert.True(t, errorutil.IsCode(f.svc.DeleteRequest(ctx, requester, "r1"), errorutil.CodeForbidden))
	require.NoError(t, f.svc.DeleteRequest(ctx, manager, "r1"))
	_, err = f.svc.GetRequest(ctx, manager, "r1")
	assert.True(t, errorutil.IsCode(err, errorutil.CodeNotFound))
}
