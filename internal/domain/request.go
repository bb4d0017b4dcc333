package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates lifecycle states of a maintenance request.
type Status string

const (
	StatusNew        Status = "NEW"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusClosed     Status = "CLOSED"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusNew, StatusInProgress, StatusCompleted, StatusClosed}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusDescriptors[s]
	return ok
}

// IsTerminal reports whether no action leads out of s.
func (s Status) IsTerminal() bool {
	return s == StatusClosed
}

// Category classifies the kind of work requested.
type Category string

const (
	CategoryElectrical Category = "ELECTRICAL"
	CategoryPlumbing   Category = "PLUMBING"
	CategoryHVAC       Category = "HVAC"
	CategoryCarpentry  Category = "CARPENTRY"
	CategoryPainting   Category = "PAINTING"
	CategoryCleaning   Category = "CLEANING"
	CategoryOther      Category = "OTHER"
)

var Categories = []Category{
	CategoryElectrical, CategoryPlumbing, CategoryHVAC, CategoryCarpentry,
	CategoryPainting, CategoryCleaning, CategoryOther,
}

func (c Category) Valid() bool {
	_, ok := categoryDescriptors[c]
	return ok
}

// Priority enumerates request urgency.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

func (p Priority) Valid() bool {
	_, ok := priorityDescriptors[p]
	return ok
}

// MaintenanceRequest is one unit of maintenance work.
type MaintenanceRequest struct {
	ID                      string
	Title                   string
	Description             string
	Category                Category
	Priority                Priority
	Status                  Status
	Location                string
	RequesterID             string
	AssignedTechnicianID    *string
	ManagerID               *string
	EstimatedCompletionDate *time.Time
	ActualCompletionDate    *time.Time
	Notes                   *string
	Cost                    *decimal.Decimal
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// IsAssignedTo reports whether the request is assigned to the given technician.
func (r *MaintenanceRequest) IsAssignedTo(technicianID string) bool {
	return r.AssignedTechnicianID != nil && technicianID != "" && *r.AssignedTechnicianID == technicianID
}

// Clone returns a deep copy so that change sets can be diffed against the original.
func (r *MaintenanceRequest) Clone() *MaintenanceRequest {
	if r == nil {
		return nil
	}
	clone := *r
	clone.AssignedTechnicianID = clonePtr(r.AssignedTechnicianID)
	clone.ManagerID = clonePtr(r.ManagerID)
	clone.EstimatedCompletionDate = clonePtr(r.EstimatedCompletionDate)
	clone.ActualCompletionDate = clonePtr(r.ActualCompletionDate)
	clone.Notes = clonePtr(r.Notes)
	clone.Cost = clonePtr(r.Cost)
	return &clone
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	copied := *v
	return &copied
}

// RequestFilter holds ANDed listing predicates.
type RequestFilter struct {
	Statuses             []Status
	Categories           []Category
	Priorities           []Priority
	AssignedTechnicianID *string
	RequesterID          *string
	CreatedFrom          *time.Time
	CreatedTo            *time.Time
	SearchTerm           string
	Limit                int
	Offset               int
}

// DashboardStats aggregates request counters for a scope.
type DashboardStats struct {
	TotalRequests         int
	NewRequests           int
	InProgressRequests    int
	CompletedRequests     int
	ClosedRequests        int
	UrgentRequests        int
	AverageCompletionTime float64
	ByCategory            map[Category]int
	ByPriority            map[Priority]int
}
