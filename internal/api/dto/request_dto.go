package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// EnumView is an enum value with its display label and color tag.
type EnumView struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Color string `json:"color"`
	Icon  string `json:"icon,omitempty"`
}

func StatusView(s domain.Status, lang domain.Language) EnumView {
	return EnumView{Value: string(s), Label: s.Label(lang), Color: s.ColorTag()}
}

func CategoryView(c domain.Category, lang domain.Language) EnumView {
	return EnumView{Value: string(c), Label: c.Label(lang), Color: c.ColorTag(), Icon: c.Icon()}
}

func PriorityView(p domain.Priority, lang domain.Language) EnumView {
	return EnumView{Value: string(p), Label: p.Label(lang), Color: p.ColorTag()}
}

func RoleView(r domain.Role, lang domain.Language) EnumView {
	return EnumView{Value: string(r), Label: r.Label(lang), Color: r.ColorTag()}
}

func ActionView(a domain.Action, lang domain.Language) EnumView {
	return EnumView{Value: string(a), Label: a.Label(lang), Color: a.ColorTag(), Icon: a.Icon()}
}

// CreateRequestRequest payload.
type CreateRequestRequest struct {
	Title                   string     `json:"title"`
	Description             string     `json:"description"`
	Category                string     `json:"category"`
	Priority                string     `json:"priority"`
	Location                string     `json:"location"`
	EstimatedCompletionDate *time.Time `json:"estimated_completion_date"`
}

// UpdateRequestRequest is a PATCH body. Absent keys are left untouched, null clears nullable fields.
type UpdateRequestRequest struct {
	Title                   *string                   `json:"title"`
	Description             *string                   `json:"description"`
	Category                *string                   `json:"category"`
	Priority                *string                   `json:"priority"`
	Location                *string                   `json:"location"`
	EstimatedCompletionDate Nullable[time.Time]       `json:"estimated_completion_date"`
	Notes                   Nullable[string]          `json:"notes"`
	Cost                    Nullable[decimal.Decimal] `json:"cost"`

	Status               *string          `json:"status"`
	AssignedTechnicianID Nullable[string] `json:"assigned_technician_id"`
}

// AssignTechnicianRequest payload.
type AssignTechnicianRequest struct {
	TechnicianID string `json:"technician_id"`
}

// RequestResponse is the list and mutation view of a request.
type RequestResponse struct {
	ID                      string           `json:"id"`
	Title                   string           `json:"title"`
	Description             string           `json:"description"`
	Category                EnumView         `json:"category"`
	Priority                EnumView         `json:"priority"`
	Status                  EnumView         `json:"status"`
	Location                string           `json:"location"`
	RequesterID             string           `json:"requester_id"`
	AssignedTechnicianID    *string          `json:"assigned_technician_id"`
	ManagerID               *string          `json:"manager_id"`
	EstimatedCompletionDate *time.Time       `json:"estimated_completion_date"`
	ActualCompletionDate    *time.Time       `json:"actual_completion_date"`
	Notes                   *string          `json:"notes"`
	Cost                    *decimal.Decimal `json:"cost"`
	CreatedAt               time.Time        `json:"created_at"`
	UpdatedAt               time.Time        `json:"updated_at"`
}

// RequestDetailResponse adds people, comments, history and the caller's actions.
type RequestDetailResponse struct {
	RequestResponse
	Requester      *UserSummary      `json:"requester"`
	Technician     *UserSummary      `json:"technician"`
	Manager        *UserSummary      `json:"manager"`
	Comments       []CommentResponse `json:"comments"`
	History        []HistoryResponse `json:"history"`
	AllowedActions []EnumView        `json:"allowed_actions"`
}

// ListMeta describes a page of results.
type ListMeta struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// StatsResponse mirrors the dashboard counters.
type StatsResponse struct {
	TotalRequests          int            `json:"total_requests"`
	NewRequests            int            `json:"new_requests"`
	InProgressRequests     int            `json:"in_progress_requests"`
	CompletedRequests      int            `json:"completed_requests"`
	ClosedRequests         int            `json:"closed_requests"`
	UrgentRequests         int            `json:"urgent_requests"`
	AverageCompletionHours float64        `json:"average_completion_hours"`
	ByCategory             map[string]int `json:"by_category"`
	ByPriority             map[string]int `json:"by_priority"`
}

// NewRequestResponse maps a request for display in lang.
func NewRequestResponse(r *domain.MaintenanceRequest, lang domain.Language) RequestResponse {
	return RequestResponse{
		ID:                      r.ID,
		Title:                   r.Title,
		Description:             r.Description,
		Category:                CategoryView(r.Category, lang),
		Priority:                PriorityView(r.Priority, lang),
		Status:                  StatusView(r.Status, lang),
		Location:                r.Location,
		RequesterID:             r.RequesterID,
		AssignedTechnicianID:    r.AssignedTechnicianID,
		ManagerID:               r.ManagerID,
		EstimatedCompletionDate: r.EstimatedCompletionDate,
		ActualCompletionDate:    r.ActualCompletionDate,
		Notes:                   r.Notes,
		Cost:                    r.Cost,
		CreatedAt:               r.CreatedAt,
		UpdatedAt:               r.UpdatedAt,
	}
}

func NewStatsResponse(s *domain.DashboardStats) StatsResponse {
	resp := StatsResponse{
		TotalRequests:          s.TotalRequests,
		NewRequests:            s.NewRequests,
		InProgressRequests:     s.InProgressRequests,
		CompletedRequests:      s.CompletedRequests,
		ClosedRequests:         s.ClosedRequests,
		UrgentRequests:         s.UrgentRequests,
		AverageCompletionHours: s.AverageCompletionTime,
		ByCategory:             make(map[string]int, len(s.ByCategory)),
		ByPriority:             make(map[string]int, len(s.ByPriority)),
	}
	for k, v := range s.ByCategory {
		resp.ByCategory[string(k)] = v
	}
	for k, v := range s.ByPriority {
		resp.ByPriority[string(k)] = v
	}
	return resp
}
