package domain

import "time"

// HistoryAction tags what produced an audit row.
type HistoryAction string

const (
	HistoryActionCreate  HistoryAction = "CREATE"
	HistoryActionUpdate  HistoryAction = "UPDATE"
	HistoryActionComment HistoryAction = "COMMENT"
	HistoryActionAssign  HistoryAction = "ASSIGN"
)

// HistoryActionFor tags rows written by a lifecycle action.
func HistoryActionFor(action Action) HistoryAction {
	return HistoryAction(action)
}

// RequestField names an audited request attribute.
type RequestField string

const (
	FieldTitle                   RequestField = "title"
	FieldDescription             RequestField = "description"
	FieldCategory                RequestField = "category"
	FieldPriority                RequestField = "priority"
	FieldLocation                RequestField = "location"
	FieldStatus                  RequestField = "status"
	FieldAssignedTechnicianID    RequestField = "assignedTechnicianId"
	FieldManagerID               RequestField = "managerId"
	FieldEstimatedCompletionDate RequestField = "estimatedCompletionDate"
	FieldActualCompletionDate    RequestField = "actualCompletionDate"
	FieldNotes                   RequestField = "notes"
	FieldCost                    RequestField = "cost"
)

// RequestHistory is an immutable audit entry.
type RequestHistory struct {
	ID          string
	RequestID   string
	UserID      string
	Action      HistoryAction
	Field       RequestField
	OldValue    string
	NewValue    string
	Description string
	CreatedAt   time.Time
}
