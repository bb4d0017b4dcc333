package history_test

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/history"
)

func baseRequest() *domain.MaintenanceRequest {
	return &domain.MaintenanceRequest{
		ID:          "req-1",
		Title:       "Broken light",
		Description: "Hallway light flickers",
		Category:    domain.CategoryElectrical,
		Priority:    domain.PriorityMedium,
		Status:      domain.StatusNew,
		Location:    "Building A",
		RequesterID: "requester-1",
	}
}

func TestChangeMessage(t *testing.T) {
	require.Equal(t, "Status changed from New to In progress", history.ChangeMessage("Status", "New", "In progress"))
	require.Equal(t, "Notes set to hi", history.ChangeMessage("Notes", "", "hi"))
	require.Equal(t, "Assigned technician cleared (was t1)", history.ChangeMessage("Assigned technician", "t1", ""))
}

func TestExcerpt(t *testing.T) {
	longText := strings.Repeat("abcdefghij", 12)
	excerpt := history.Excerpt(longText, 50)
	require.LessOrEqual(t, utf8.RuneCountInString(excerpt), 51)
	require.Contains(t, excerpt, "…")
	require.Equal(t, "short", history.Excerpt("  short ", 50))
}

func TestDiffOneRowPerChangedField(t *testing.T) {
	before := baseRequest()
	after := before.Clone()
	after.Title = "Broken lamp"
	after.Priority = domain.PriorityHigh
	cost := decimal.NewFromInt(150)
	after.Cost = &cost

	now := time.Now()
	rows := history.Diff(before, after, domain.HistoryActionUpdate, "manager-1", now)
	require.Len(t, rows, 3)

	assert.Equal(t, domain.FieldTitle, rows[0].Field)
	assert.Equal(t, "Broken light", rows[0].OldValue)
	assert.Equal(t, "Broken lamp", rows[0].NewValue)
	assert.Equal(t, domain.FieldPriority, rows[1].Field)
	assert.Equal(t, "Priority changed from Medium to High", rows[1].Description)
	assert.Equal(t, domain.FieldCost, rows[2].Field)
	assert.Equal(t, "150.00", rows[2].NewValue)
	for _, row := range rows {
		assert.Equal(t, domain.HistoryActionUpdate, row.Action)
		assert.Equal(t, "manager-1", row.UserID)
		assert.Equal(t, "req-1", row.RequestID)
		assert.NotEmpty(t, row.ID)
	}
}

func TestDiffNoChangesProducesNoRows(t *testing.T) {
	before := baseRequest()
	assert.Empty(t, history.Diff(before, before.Clone(), domain.HistoryActionUpdate, "u", time.Now()))
}

func TestDiffFoldsCompanionFields(t *testing.T) {
	before := baseRequest()
	after := before.Clone()
	tech, manager := "tech-1", "manager-1"
	after.AssignedTechnicianID = &tech
	after.ManagerID = &manager

	rows := history.Diff(before, after, domain.HistoryActionAssign, manager, time.Now())
	require.Len(t, rows, 1)
	assert.Equal(t, domain.FieldAssignedTechnicianID, rows[0].Field)
	assert.Equal(t, "tech-1", rows[0].NewValue)
	assert.Contains(t, rows[0].Description, "Manager set to manager-1")

	completedAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	before = baseRequest()
	before.Status = domain.StatusInProgress
	after = before.Clone()
	after.Status = domain.StatusCompleted
	after.ActualCompletionDate = &completedAt

	rows = history.Diff(before, after, domain.HistoryAction(domain.ActionComplete), "tech-1", time.Now())
	require.Len(t, rows, 1)
	assert.Equal(t, domain.FieldStatus, rows[0].Field)
	assert.Equal(t, "IN_PROGRESS", rows[0].OldValue)
	assert.Equal(t, "COMPLETED", rows[0].NewValue)
	assert.Contains(t, rows[0].Description, "Status changed from In progress to Completed")
}

func TestDiffCompanionAloneGetsOwnRow(t *testing.T) {
	before := baseRequest()
	after := before.Clone()
	manager := "manager-2"
	after.ManagerID = &manager

	rows := history.Diff(before, after, domain.HistoryActionUpdate, "admin", time.Now())
	require.Len(t, rows, 1)
	assert.Equal(t, domain.FieldManagerID, rows[0].Field)
}

func TestCommentEntryTruncatesText(t *testing.T) {
	comment := &domain.RequestComment{
		RequestID: "req-1",
		AuthorID:  "tech-1",
		Text:      strings.Repeat("x", 150),
	}
	row := history.CommentEntry(comment, time.Now())
	assert.Equal(t, domain.HistoryActionComment, row.Action)
	assert.Equal(t, 100, utf8.RuneCountInString(row.NewValue))
	assert.Equal(t, "tech-1", row.UserID)
}

func TestCreateEntry(t *testing.T) {
	row := history.CreateEntry(baseRequest(), "requester-1", time.Now())
	assert.Equal(t, domain.HistoryActionCreate, row.Action)
	assert.Equal(t, "NEW", row.NewValue)
	assert.Contains(t, row.Description, "Broken light")
}
