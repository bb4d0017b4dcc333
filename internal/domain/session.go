package domain

// Session identifies the authenticated caller of a service operation.
type Session struct {
	UserID string
	Role   Role
}
