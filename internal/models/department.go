package models

import "time"

// GeneralDepartmentCode designates the department granted cross-department
// visibility over definitions and submissions.
const GeneralDepartmentCode = "GENERAL"

// Department represents an organisational unit stored in the departments table.
type Department struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	UserCount int       `db:"user_count" json:"user_count"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsGeneral reports whether the department carries cross-department scope.
func (d Department) IsGeneral() bool {
	return d.Code == GeneralDepartmentCode
}

// DepartmentFilter captures filtering criteria for listing departments.
type DepartmentFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
