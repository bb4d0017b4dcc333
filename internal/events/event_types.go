package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestCreated       EventType = "request_created"
	EventRequestStatusChanged EventType = "request_status_changed"
	EventRequestAssigned      EventType = "request_assigned"
	EventRequestCommentAdded  EventType = "request_comment_added"
	EventUserRegistered       EventType = "user_registered"
)

// Actor identifies who caused an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event is a domain event emitted by services after a successful write.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	RequestID string    `json:"request_id,omitempty"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// NewEvent stamps an event with an id and time.
func NewEvent(eventType EventType, requestID string, actor Actor, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		RequestID: requestID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

type RequestCreatedPayload struct {
	Title       string          `json:"title"`
	Category    domain.Category `json:"category"`
	Priority    domain.Priority `json:"priority"`
	RequesterID string          `json:"requester_id"`
}

type RequestStatusChangedPayload struct {
	Action      domain.Action `json:"action"`
	OldStatus   domain.Status `json:"old_status"`
	NewStatus   domain.Status `json:"new_status"`
	RequesterID string        `json:"requester_id"`
}

type RequestAssignedPayload struct {
	TechnicianID string `json:"technician_id"`
	ManagerID    string `json:"manager_id"`
}

type RequestCommentAddedPayload struct {
	CommentID   string `json:"comment_id"`
	IsInternal  bool   `json:"is_internal"`
	TextPreview string `json:"text_preview"`
}

type UserRegisteredPayload struct {
	Email    string      `json:"email"`
	Role     domain.Role `json:"role"`
	IsActive bool        `json:"is_active"`
}
