// Package history turns request mutations into audit rows.
package history

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// CommentExcerptLength bounds the comment text copied into a COMMENT row.
const CommentExcerptLength = 100

// ChangeMessage renders a human readable description of a field change.
func ChangeMessage(label, from, to string) string {
	switch {
	case from == "" && to == "":
		return fmt.Sprintf("%s updated", label)
	case from == "":
		return fmt.Sprintf("%s set to %s", label, to)
	case to == "":
		return fmt.Sprintf("%s cleared (was %s)", label, from)
	default:
		return fmt.Sprintf("%s changed from %s to %s", label, from, to)
	}
}

// Excerpt shortens text to at most limit runes, appending an ellipsis when cut.
func Excerpt(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:limit])) + "…"
}

// Truncate keeps the first limit runes of text.
func Truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit])
}

type fieldValue struct {
	field   domain.RequestField
	raw     string
	display string
}

func snapshot(r *domain.MaintenanceRequest) []fieldValue {
	return []fieldValue{
		{domain.FieldTitle, r.Title, r.Title},
		{domain.FieldDescription, r.Description, Excerpt(r.Description, 60)},
		{domain.FieldCategory, string(r.Category), r.Category.Label(domain.LanguageEnglish)},
		{domain.FieldPriority, string(r.Priority), r.Priority.Label(domain.LanguageEnglish)},
		{domain.FieldLocation, r.Location, r.Location},
		{domain.FieldStatus, string(r.Status), r.Status.Label(domain.LanguageEnglish)},
		{domain.FieldAssignedTechnicianID, str(r.AssignedTechnicianID), str(r.AssignedTechnicianID)},
		{domain.FieldManagerID, str(r.ManagerID), str(r.ManagerID)},
		{domain.FieldEstimatedCompletionDate, date(r.EstimatedCompletionDate), date(r.EstimatedCompletionDate)},
		{domain.FieldActualCompletionDate, date(r.ActualCompletionDate), date(r.ActualCompletionDate)},
		{domain.FieldNotes, str(r.Notes), Excerpt(str(r.Notes), 60)},
		{domain.FieldCost, cost(r), cost(r)},
	}
}

// companions are recorded inside the primary field's row when both change together.
var companions = map[domain.RequestField]domain.RequestField{
	domain.FieldManagerID:            domain.FieldAssignedTechnicianID,
	domain.FieldActualCompletionDate: domain.FieldStatus,
}

// Diff compares before and after and returns one row per changed field, in field order.
func Diff(before, after *domain.MaintenanceRequest, action domain.HistoryAction, actorID string, now time.Time) []domain.RequestHistory {
	if before == nil || after == nil {
		return nil
	}
	oldValues := snapshot(before)
	newValues := snapshot(after)

	changed := make(map[domain.RequestField]bool, len(oldValues))
	for i := range oldValues {
		if oldValues[i].raw != newValues[i].raw {
			changed[oldValues[i].field] = true
		}
	}

	var rows []domain.RequestHistory
	for i := range oldValues {
		field := oldValues[i].field
		if !changed[field] {
			continue
		}
		if primary, ok := companions[field]; ok && changed[primary] {
			continue
		}
		description := ChangeMessage(domain.LabelForField(field), oldValues[i].display, newValues[i].display)
		for j := range oldValues {
			companion := oldValues[j].field
			if companions[companion] == field && changed[companion] {
				description += fmt.Sprintf("; %s", ChangeMessage(domain.LabelForField(companion), oldValues[j].display, newValues[j].display))
			}
		}
		rows = append(rows, domain.RequestHistory{
			ID:          uuid.NewString(),
			RequestID:   after.ID,
			UserID:      actorID,
			Action:      action,
			Field:       field,
			OldValue:    oldValues[i].raw,
			NewValue:    newValues[i].raw,
			Description: description,
			CreatedAt:   now,
		})
	}
	return rows
}

// CreateEntry records the creation of a request.
func CreateEntry(r *domain.MaintenanceRequest, actorID string, now time.Time) domain.RequestHistory {
	return domain.RequestHistory{
		ID:          uuid.NewString(),
		RequestID:   r.ID,
		UserID:      actorID,
		Action:      domain.HistoryActionCreate,
		NewValue:    string(r.Status),
		Description: fmt.Sprintf("Request created: %s", Excerpt(r.Title, 80)),
		CreatedAt:   now,
	}
}

// CommentEntry records a comment on a request.
func CommentEntry(c *domain.RequestComment, now time.Time) domain.RequestHistory {
	description := "Comment added"
	if c.IsInternal {
		description = "Internal comment added"
	}
	return domain.RequestHistory{
		ID:          uuid.NewString(),
		RequestID:   c.RequestID,
		UserID:      c.AuthorID,
		Action:      domain.HistoryActionComment,
		NewValue:    Truncate(c.Text, CommentExcerptLength),
		Description: description,
		CreatedAt:   now,
	}
}

func str(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func date(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}

func cost(r *domain.MaintenanceRequest) string {
	if r.Cost == nil {
		return ""
	}
	return r.Cost.StringFixed(2)
}
