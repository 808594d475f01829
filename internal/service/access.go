package service

import (
	"github.com/noah-isme/report-portal-api/internal/models"
)

// CanViewDefinition reports whether the token holder may see a definition:
// unscoped definitions are visible to everyone, scoped ones to members of the
// owning department, the general department, and admins.
func CanViewDefinition(claims *models.JWTClaims, def *models.ReportDefinition) bool {
	if claims == nil || def == nil {
		return false
	}
	if claims.Role == models.RoleAdmin || claims.IsGeneralDepartment() {
		return true
	}
	if def.DepartmentID == nil || *def.DepartmentID == "" {
		return true
	}
	return *def.DepartmentID == claims.DepartmentID
}

// CanManageDefinitions reports whether the token holder may author
// definitions and manage users/departments.
func CanManageDefinitions(claims *models.JWTClaims) bool {
	if claims == nil {
		return false
	}
	return claims.Role == models.RoleAdmin
}

// SubmissionScope narrows a submission filter to what the token holder may
// see: the general department sees everything, leads and admins see their own
// department, department users see only their own submissions (matched by
// user id).
func SubmissionScope(claims *models.JWTClaims, filter models.SubmissionFilter) models.SubmissionFilter {
	if claims == nil {
		filter.SubmittedBy = "-"
		return filter
	}
	if claims.IsGeneralDepartment() {
		return filter
	}
	if claims.Role == models.RoleDepartmentLead || claims.Role == models.RoleAdmin {
		filter.DepartmentID = claims.DepartmentID
		return filter
	}
	filter.SubmittedBy = claims.UserID
	return filter
}

// CanViewSubmission reports whether the token holder may read a single
// submission under the same scoping rules as SubmissionScope.
func CanViewSubmission(claims *models.JWTClaims, sub *models.ReportSubmission) bool {
	if claims == nil || sub == nil {
		return false
	}
	if claims.IsGeneralDepartment() {
		return true
	}
	if claims.Role == models.RoleDepartmentLead || claims.Role == models.RoleAdmin {
		return sub.DepartmentID == claims.DepartmentID
	}
	return sub.SubmittedBy == claims.UserID
}

// CanReview reports whether the token holder may approve or reject a
// submission: admins anywhere, leads within their department or the general
// department. Reviewers may not review their own submissions unless admin.
func CanReview(claims *models.JWTClaims, sub *models.ReportSubmission) bool {
	if claims == nil || sub == nil {
		return false
	}
	if claims.Role == models.RoleAdmin {
		return true
	}
	if claims.Role != models.RoleDepartmentLead {
		return false
	}
	if sub.SubmittedBy == claims.UserID {
		return false
	}
	if claims.IsGeneralDepartment() {
		return true
	}
	return sub.DepartmentID == claims.DepartmentID
}
