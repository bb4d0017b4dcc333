package domain

import "time"

// RequestComment is a note attached to a request. Internal comments are hidden from requesters.
type RequestComment struct {
	ID         string
	RequestID  string
	AuthorID   string
	Text       string
	IsInternal bool
	CreatedAt  time.Time
}
