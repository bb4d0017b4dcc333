// Package lifecycle decides which actions move a maintenance request between states.
package lifecycle

import (
	"slices"
	"time"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

var transitions = map[domain.Action]struct {
	from domain.Status
	to   domain.Status
}{
	domain.ActionAccept:   {from: domain.StatusNew, to: domain.StatusInProgress},
	domain.ActionStart:    {from: domain.StatusNew, to: domain.StatusInProgress},
	domain.ActionReject:   {from: domain.StatusNew, to: domain.StatusNew},
	domain.ActionComplete: {from: domain.StatusInProgress, to: domain.StatusCompleted},
	domain.ActionClose:    {from: domain.StatusCompleted, to: domain.StatusClosed},
}

// NextStatus returns the status an action leads to from current.
func NextStatus(action domain.Action, current domain.Status) (domain.Status, bool) {
	t, ok := transitions[action]
	if !ok || t.from != current {
		return "", false
	}
	return t.to, true
}

// AvailableActionsForTechnician lists what the assigned technician may do.
func AvailableActionsForTechnician(req *domain.MaintenanceRequest, technicianID string) []domain.Action {
	if req == nil || !req.IsAssignedTo(technicianID) {
		return nil
	}
	switch req.Status {
	case domain.StatusNew:
		return []domain.Action{domain.ActionAccept, domain.ActionReject}
	case domain.StatusInProgress:
		return []domain.Action{domain.ActionComplete}
	default:
		return nil
	}
}

// AvailableActionsForManager lists what a manager may do. NEW requests are handled by assignment.
func AvailableActionsForManager(req *domain.MaintenanceRequest) []domain.Action {
	if req == nil {
		return nil
	}
	switch req.Status {
	case domain.StatusInProgress:
		return []domain.Action{domain.ActionComplete}
	case domain.StatusCompleted:
		return []domain.Action{domain.ActionClose}
	default:
		return nil
	}
}

// AvailableActionsForRequester lists what the request owner may do.
func AvailableActionsForRequester(req *domain.MaintenanceRequest, requesterID string) []domain.Action {
	if req == nil || requesterID == "" || req.RequesterID != requesterID {
		return nil
	}
	if req.Status == domain.StatusCompleted {
		return []domain.Action{domain.ActionClose}
	}
	return nil
}

// CanPerform is the authorization predicate for lifecycle actions.
// SUPER_ADMIN is allowed unconditionally; Transition still rejects actions with no next status.
func CanPerform(role domain.Role, action domain.Action, req *domain.MaintenanceRequest, userID string) bool {
	switch role {
	case domain.RoleSuperAdmin:
		return true
	case domain.RoleManager:
		return slices.Contains(AvailableActionsForManager(req), action)
	case domain.RoleTechnician:
		return slices.Contains(AvailableActionsForTechnician(req, userID), action)
	case domain.RoleRequester:
		return slices.Contains(AvailableActionsForRequester(req, userID), action)
	default:
		return false
	}
}

// AvailableActions lists the actions a caller can actually carry out on req.
func AvailableActions(role domain.Role, req *domain.MaintenanceRequest, userID string) []domain.Action {
	if req == nil {
		return nil
	}
	switch role {
	case domain.RoleSuperAdmin:
		var actions []domain.Action
		for _, action := range []domain.Action{domain.ActionAccept, domain.ActionReject, domain.ActionComplete, domain.ActionClose} {
			if _, ok := NextStatus(action, req.Status); ok {
				actions = append(actions, action)
			}
		}
		return actions
	case domain.RoleManager:
		return AvailableActionsForManager(req)
	case domain.RoleTechnician:
		return AvailableActionsForTechnician(req, userID)
	case domain.RoleRequester:
		return AvailableActionsForRequester(req, userID)
	default:
		return nil
	}
}

// Transition builds the compound change an action applies to req.
func Transition(action domain.Action, req *domain.MaintenanceRequest, now time.Time) (domain.RequestChanges, error) {
	if req == nil {
		return domain.RequestChanges{}, errorutil.NewValidationError("request is required", nil)
	}
	next, ok := NextStatus(action, req.Status)
	if !ok {
		return domain.RequestChanges{}, errorutil.NewValidationError("action is not applicable in the current status", map[string]any{
			"action": string(action),
			"status": string(req.Status),
		})
	}

	changes := domain.RequestChanges{Status: &next}
	switch action {
	case domain.ActionReject:
		changes.AssignedTechnicianID = domain.None[string]()
	case domain.ActionComplete:
		changes.ActualCompletionDate = domain.Some(now.UTC())
	}
	return changes, nil
}
