package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin          UserRole = "ADMIN"
	RoleDepartmentLead UserRole = "DEPARTMENT_LEAD"
	RoleDepartmentUser UserRole = "DEPARTMENT_USER"
)

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleDepartmentLead, RoleDepartmentUser:
		return true
	}
	return false
}

// User represents an application user stored in the users table.
// DepartmentName and DepartmentCode are read-only join fields.
type User struct {
	ID             string     `db:"id" json:"id"`
	Name           string     `db:"name" json:"name"`
	Email          string     `db:"email" json:"email"`
	PasswordHash   string     `db:"password_hash" json:"-"`
	Role           UserRole   `db:"role" json:"role"`
	DepartmentID   string     `db:"department_id" json:"department_id"`
	DepartmentName string     `db:"department_name" json:"department_name,omitempty"`
	DepartmentCode string     `db:"department_code" json:"department_code,omitempty"`
	AvatarURL      string     `db:"avatar_url" json:"avatar_url"`
	Active         bool       `db:"active" json:"active"`
	LastLogin      *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role         *UserRole
	DepartmentID string
	Active       *bool
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
