package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Optional is a value for a nullable field inside a change set.
// A nil *Optional leaves the field untouched; Valid=false clears it.
type Optional[T any] struct {
	Value T
	Valid bool
}

// Some sets a nullable field.
func Some[T any](v T) *Optional[T] {
	return &Optional[T]{Value: v, Valid: true}
}

// None clears a nullable field.
func None[T any]() *Optional[T] {
	return &Optional[T]{}
}

func (o *Optional[T]) pointer() *T {
	if !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}

// RequestChanges is a partial update of a maintenance request. Nil fields are not touched.
type RequestChanges struct {
	Title                   *string
	Description             *string
	Category                *Category
	Priority                *Priority
	Location                *string
	Status                  *Status
	AssignedTechnicianID    *Optional[string]
	ManagerID               *Optional[string]
	EstimatedCompletionDate *Optional[time.Time]
	ActualCompletionDate    *Optional[time.Time]
	Notes                   *Optional[string]
	Cost                    *Optional[decimal.Decimal]
}

// IsEmpty reports whether the change set names no field at all.
func (c RequestChanges) IsEmpty() bool {
	return c.Title == nil && c.Description == nil && c.Category == nil && c.Priority == nil &&
		c.Location == nil && c.Status == nil && c.AssignedTechnicianID == nil && c.ManagerID == nil &&
		c.EstimatedCompletionDate == nil && c.ActualCompletionDate == nil && c.Notes == nil && c.Cost == nil
}

// TouchesLifecycle reports whether the change set alters status or assignment.
func (c RequestChanges) TouchesLifecycle() bool {
	return c.Status != nil || c.AssignedTechnicianID != nil || c.ManagerID != nil || c.ActualCompletionDate != nil
}

// ApplyTo writes the supplied fields onto r.
func (c RequestChanges) ApplyTo(r *MaintenanceRequest) {
	if c.Title != nil {
		r.Title = *c.Title
	}
	if c.Description != nil {
		r.Description = *c.Description
	}
	if c.Category != nil {
		r.Category = *c.Category
	}
	if c.Priority != nil {
		r.Priority = *c.Priority
	}
	if c.Location != nil {
		r.Location = *c.Location
	}
	if c.Status != nil {
		r.Status = *c.Status
	}
	if c.AssignedTechnicianID != nil {
		r.AssignedTechnicianID = c.AssignedTechnicianID.pointer()
	}
	if c.ManagerID != nil {
		r.ManagerID = c.ManagerID.pointer()
	}
	if c.EstimatedCompletionDate != nil {
		r.EstimatedCompletionDate = c.EstimatedCompletionDate.pointer()
	}
	if c.ActualCompletionDate != nil {
		r.ActualCompletionDate = c.ActualCompletionDate.pointer()
	}
	if c.Notes != nil {
		r.Notes = c.Notes.pointer()
	}
	if c.Cost != nil {
		r.Cost = c.Cost.pointer()
	}
}
