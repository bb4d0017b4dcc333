package lifecycle

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

func request(status domain.Status, requester string, technician *string) *domain.MaintenanceRequest {
	return &domain.MaintenanceRequest{
		ID:                   "req-1",
		Status:               status,
		RequesterID:          requester,
		AssignedTechnicianID: technician,
	}
}

func ptr(s string) *string { return &s }

func TestNextStatus(t *testing.T) {
	cases := []struct {
		action  domain.Action
		current domain.Status
		want    domain.Status
		ok      bool
	}{
		{domain.ActionAccept, domain.StatusNew, domain.StatusInProgress, true},
		{domain.ActionStart, domain.StatusNew, domain.StatusInProgress, true},
		{domain.ActionReject, domain.StatusNew, domain.StatusNew, true},
		{domain.ActionComplete, domain.StatusInProgress, domain.StatusCompleted, true},
		{domain.ActionClose, domain.StatusCompleted, domain.StatusClosed, true},
		{domain.ActionAccept, domain.StatusInProgress, "", false},
		{domain.ActionComplete, domain.StatusNew, "", false},
		{domain.ActionClose, domain.StatusInProgress, "", false},
		{domain.ActionReject, domain.StatusInProgress, "", false},
		{domain.Action("DANCE"), domain.StatusNew, "", false},
	}
	for _, tc := range cases {
		got, ok := NextStatus(tc.action, tc.current)
		assert.Equal(t, tc.ok, ok, "%s from %s", tc.action, tc.current)
		assert.Equal(t, tc.want, got, "%s from %s", tc.action, tc.current)
	}
}

func TestClosedIsTerminal(t *testing.T) {
	for _, action := range domain.Actions {
		_, ok := NextStatus(action, domain.StatusClosed)
		assert.False(t, ok, action)
	}
}

func TestTechnicianActionsRequireAssignment(t *testing.T) {
	for _, status := range domain.Statuses {
		assert.Empty(t, AvailableActionsForTechnician(request(status, "u1", ptr("t1")), "t2"))
		assert.Empty(t, AvailableActionsForTechnician(request(status, "u1", nil), "t1"))
	}
	assert.Equal(t, []domain.Action{domain.ActionAccept, domain.ActionReject},
		AvailableActionsForTechnician(request(domain.StatusNew, "u1", ptr("t1")), "t1"))
	assert.Equal(t, []domain.Action{domain.ActionComplete},
		AvailableActionsForTechnician(request(domain.StatusInProgress, "u1", ptr("t1")), "t1"))
	assert.Empty(t, AvailableActionsForTechnician(request(domain.StatusCompleted, "u1", ptr("t1")), "t1"))
}

func TestManagerActions(t *testing.T) {
	assert.Empty(t, AvailableActionsForManager(request(domain.StatusNew, "u1", nil)))
	assert.Equal(t, []domain.Action{domain.ActionComplete}, AvailableActionsForManager(request(domain.StatusInProgress, "u1", nil)))
	assert.Equal(t, []domain.Action{domain.ActionClose}, AvailableActionsForManager(request(domain.StatusCompleted, "u1", nil)))
	assert.Empty(t, AvailableActionsForManager(request(domain.StatusClosed, "u1", nil)))
}

func TestRequesterActionsRequireOwnership(t *testing.T) {
	completed := request(domain.StatusCompleted, "u1", ptr("t1"))
	assert.Equal(t, []domain.Action{domain.ActionClose}, AvailableActionsForRequester(completed, "u1"))
	assert.Empty(t, AvailableActionsForRequester(completed, "u2"))
	assert.Empty(t, AvailableActionsForRequester(request(domain.StatusInProgress, "u1", nil), "u1"))
}

func TestCanPerformTable(t *testing.T) {
	// Every permitted (role, action, status, caller) combination; everything else is denied.
	permitted := map[string]bool{
		"TECHNICIAN/ACCEPT/NEW/assigned":           true,
		"TECHNICIAN/REJECT/NEW/assigned":           true,
		"TECHNICIAN/COMPLETE/IN_PROGRESS/assigned": true,
		"MANAGER/COMPLETE/IN_PROGRESS/any":         true,
		"MANAGER/CLOSE/COMPLETED/any":              true,
		"REQUESTER/CLOSE/COMPLETED/owner":          true,
	}
	callers := map[domain.Role]map[string]string{
		domain.RoleTechnician: {"assigned": "tech", "unassigned": "other-tech"},
		domain.RoleManager:    {"any": "mgr"},
		domain.RoleRequester:  {"owner": "owner", "stranger": "stranger"},
		domain.Role("GUEST"):  {"owner": "owner"},
		domain.RoleSuperAdmin: {"any": "admin"},
	}

	checked := 0
	for role, byRelation := range callers {
		for relation, userID := range byRelation {
			for _, status := range domain.Statuses {
				req := request(status, "owner", ptr("tech"))
				for _, action := range domain.Actions {
					key := fmt.Sprintf("%s/%s/%s/%s", role, action, status, relation)
					want := permitted[key] || role == domain.RoleSuperAdmin
					assert.Equal(t, want, CanPerform(role, action, req, userID), key)
					checked++
				}
			}
		}
	}
	assert.Equal(t, 7*len(domain.Statuses)*len(domain.Actions), checked)
}

func TestCanPerformRequiresAssignment(t *testing.T) {
	unassigned := request(domain.StatusNew, "owner", nil)
	assert.False(t, CanPerform(domain.RoleTechnician, domain.ActionAccept, unassigned, "tech"))
	assert.False(t, CanPerform(domain.RoleTechnician, domain.ActionAccept, unassigned, ""))
	assert.False(t, CanPerform(domain.RoleRequester, domain.ActionClose, request(domain.StatusCompleted, "", nil), ""))
}

func TestPredicateIsPure(t *testing.T) {
	req := request(domain.StatusNew, "owner", ptr("tech"))
	before := *req
	for i := 0; i < 3; i++ {
		assert.True(t, CanPerform(domain.RoleTechnician, domain.ActionAccept, req, "tech"))
	}
	assert.Equal(t, before, *req)
}

func TestAvailableActionsForSuperAdmin(t *testing.T) {
	assert.Equal(t, []domain.Action{domain.ActionAccept, domain.ActionReject},
		AvailableActions(domain.RoleSuperAdmin, request(domain.StatusNew, "u", nil), "admin"))
	assert.Empty(t, AvailableActions(domain.RoleSuperAdmin, request(domain.StatusClosed, "u", nil), "admin"))
}

func TestTransitionReject(t *testing.T) {
	changes, err := Transition(domain.ActionReject, request(domain.StatusNew, "u1", ptr("t1")), time.Now())
	require.NoError(t, err)
	require.NotNil(t, changes.Status)
	assert.Equal(t, domain.StatusNew, *changes.Status)
	require.NotNil(t, changes.AssignedTechnicianID)
	assert.False(t, changes.AssignedTechnicianID.Valid)
}

func TestTransitionCompleteStampsCompletionDate(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	changes, err := Transition(domain.ActionComplete, request(domain.StatusInProgress, "u1", ptr("t1")), now)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, *changes.Status)
	require.NotNil(t, changes.ActualCompletionDate)
	assert.True(t, changes.ActualCompletionDate.Valid)
	assert.True(t, changes.ActualCompletionDate.Value.Equal(now))
	assert.Nil(t, changes.AssignedTechnicianID)
}

func TestTransitionWithoutNextStatusFails(t *testing.T) {
	_, err := Transition(domain.ActionAccept, request(domain.StatusClosed, "u1", nil), time.Now())
	require.Error(t, err)
	assert.True(t, errorutil.IsCode(err, errorutil.CodeValidation))
}
