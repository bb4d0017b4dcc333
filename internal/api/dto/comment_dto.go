package dto

import (
	"time"

	"github.com/xeonx/timeago"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

var russianTimeago = timeago.Config{
	PastPrefix:   "",
	PastSuffix:   " назад",
	FuturePrefix: "через ",
	FutureSuffix: "",
	Periods: []timeago.FormatPeriod{
		{D: time.Second, One: "около секунды", Many: "%d сек."},
		{D: time.Minute, One: "около минуты", Many: "%d мин."},
		{D: time.Hour, One: "около часа", Many: "%d ч."},
		{D: timeago.Day, One: "один день", Many: "%d дн."},
		{D: timeago.Month, One: "один месяц", Many: "%d мес."},
		{D: timeago.Year, One: "один год", Many: "%d г."},
	},
	Zero:          "только что",
	Max:           73 * time.Hour,
	DefaultLayout: "02.01.2006",
}

// RelativeTime renders t against now, e.g. "2 hours ago".
func RelativeTime(t, now time.Time, lang domain.Language) string {
	if lang == domain.LanguageRussian {
		return russianTimeago.FormatReference(t, now)
	}
	return timeago.English.FormatReference(t, now)
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Text       string `json:"text"`
	IsInternal bool   `json:"is_internal"`
}

// CommentResponse is a comment as shown to its reader.
type CommentResponse struct {
	ID           string    `json:"id"`
	RequestID    string    `json:"request_id"`
	AuthorID     string    `json:"author_id"`
	Text         string    `json:"text"`
	IsInternal   bool      `json:"is_internal"`
	CreatedAt    time.Time `json:"created_at"`
	RelativeTime string    `json:"relative_time"`
}

// HistoryResponse is one audit row.
type HistoryResponse struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Action       string    `json:"action"`
	Field        string    `json:"field,omitempty"`
	OldValue     string    `json:"old_value,omitempty"`
	NewValue     string    `json:"new_value,omitempty"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
	RelativeTime string    `json:"relative_time"`
}

func NewCommentResponse(c *domain.RequestComment, now time.Time, lang domain.Language) CommentResponse {
	return CommentResponse{
		ID:           c.ID,
		RequestID:    c.RequestID,
		AuthorID:     c.AuthorID,
		Text:         c.Text,
		IsInternal:   c.IsInternal,
		CreatedAt:    c.CreatedAt,
		RelativeTime: RelativeTime(c.CreatedAt, now, lang),
	}
}

func NewCommentResponses(comments []domain.RequestComment, now time.Time, lang domain.Language) []CommentResponse {
	out := make([]CommentResponse, 0, len(comments))
	for i := range comments {
		out = append(out, NewCommentResponse(&comments[i], now, lang))
	}
	return out
}

func NewHistoryResponses(rows []domain.RequestHistory, now time.Time, lang domain.Language) []HistoryResponse {
	out := make([]HistoryResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, HistoryResponse{
			ID:           row.ID,
			UserID:       row.UserID,
			Action:       string(row.Action),
			Field:        string(row.Field),
			OldValue:     row.OldValue,
			NewValue:     row.NewValue,
			Description:  row.Description,
			CreatedAt:    row.CreatedAt,
			RelativeTime: RelativeTime(row.CreatedAt, now, lang),
		})
	}
	return out
}
