package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

func TestUpdateRequestDistinguishesAbsentAndNull(t *testing.T) {
	var body UpdateRequestRequest
	require.NoError(t, json.Unmarshal([]byte(`{"notes":null,"cost":"12.50","title":"Fix"}`), &body))

	assert.True(t, body.Notes.Set)
	assert.True(t, body.Notes.Null)
	assert.True(t, body.Cost.Set)
	assert.False(t, body.Cost.Null)
	assert.Equal(t, "12.5", body.Cost.Value.String())
	assert.False(t, body.EstimatedCompletionDate.Set)
	require.NotNil(t, body.Title)
	assert.Equal(t, "Fix", *body.Title)
	assert.Nil(t, body.Description)
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "2 hours ago", RelativeTime(now.Add(-2*time.Hour), now, domain.LanguageEnglish))
	assert.Contains(t, RelativeTime(now.Add(-2*time.Hour), now, domain.LanguageRussian), "назад")
}

func TestVocabularyResponseIsLocalized(t *testing.T) {
	resp := NewVocabularyResponse(domain.LanguageRussian)
	require.Len(t, resp.Statuses, len(domain.Statuses))
	assert.Equal(t, "Новая", resp.Statuses[0].Label)
	assert.Equal(t, "yellow", resp.Statuses[0].Color)
	require.Len(t, resp.Actions, len(domain.Actions))
	assert.NotEmpty(t, resp.Actions[0].Icon)
}
