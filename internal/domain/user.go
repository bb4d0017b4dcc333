package domain

import "time"

// Role enumerates the access roles of the application.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleManager    Role = "MANAGER"
	RoleTechnician Role = "TECHNICIAN"
	RoleRequester  Role = "REQUESTER"
)

// Roles lists every role in display order.
var Roles = []Role{RoleSuperAdmin, RoleManager, RoleTechnician, RoleRequester}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleDescriptors[r]
	return ok
}

// IsStaff reports whether the role may see internal comments.
func (r Role) IsStaff() bool {
	return r.Valid() && r != RoleRequester
}

// CanCreateRequests reports whether the role may open new requests.
func (r Role) CanCreateRequests() bool {
	return r == RoleSuperAdmin || r == RoleManager || r == RoleRequester
}

// CanManageRequests covers viewing every request, assignment, edits and deletion.
func (r Role) CanManageRequests() bool {
	return r == RoleSuperAdmin || r == RoleManager
}

// User is a registered account. New accounts stay inactive until an admin activates them.
type User struct {
	ID             string
	Name           string
	Email          string
	PasswordHash   string
	Role           Role
	IsActive       bool
	Specialization *string
	Phone          *string
	CreatedBy      *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UserFilter narrows user listings.
type UserFilter struct {
	Role       *Role
	IsActive   *bool
	SearchTerm string
	Limit      int
	Offset     int
}

// UserStats summarizes the user base for administrators.
type UserStats struct {
	Total           int
	Active          int
	Inactive        int
	ByRole          map[Role]int
	RecentlyCreated int
}
