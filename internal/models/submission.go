package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SubmissionStatus enumerates the approval lifecycle states of a submission.
type SubmissionStatus string

const (
	SubmissionDraft     SubmissionStatus = "DRAFT"
	SubmissionSubmitted SubmissionStatus = "SUBMITTED"
	SubmissionApproved  SubmissionStatus = "APPROVED"
	SubmissionRejected  SubmissionStatus = "REJECTED"
)

// Valid reports whether the submission status is known.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionDraft, SubmissionSubmitted, SubmissionApproved, SubmissionRejected:
		return true
	}
	return false
}

// SubmissionData maps field ids from the owning definition's structure to the
// submitted values. Stored as a JSONB column.
type SubmissionData map[string]interface{}

// Value implements driver.Valuer for JSONB storage.
func (d SubmissionData) Value() (driver.Value, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner for JSONB retrieval.
func (d *SubmissionData) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = nil
		return nil
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("unsupported data column type %T", src)
	}
}

// ReportSubmission is one department's filled-in instance of a definition for
// a specific period. SubmittedBy references the authoring user by id;
// DepartmentName and SubmittedByName are read-only join fields.
type ReportSubmission struct {
	ID                 string           `db:"id" json:"id"`
	ReportDefinitionID string           `db:"report_definition_id" json:"report_definition_id"`
	DepartmentID       string           `db:"department_id" json:"department_id"`
	DepartmentName     string           `db:"department_name" json:"department_name,omitempty"`
	SubmittedBy        string           `db:"submitted_by" json:"submitted_by"`
	SubmittedByName    string           `db:"submitted_by_name" json:"submitted_by_name,omitempty"`
	SubmittedAt        *time.Time       `db:"submitted_at" json:"submitted_at,omitempty"`
	PeriodStart        time.Time        `db:"period_start" json:"period_start"`
	PeriodEnd          time.Time        `db:"period_end" json:"period_end"`
	Data               SubmissionData   `db:"data" json:"data"`
	Status             SubmissionStatus `db:"status" json:"status"`
	Version            int              `db:"version" json:"version"`
	CreatedAt          time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time        `db:"updated_at" json:"updated_at"`
}

// EditableBy reports whether the submission may still be edited by the given
// user: only the author, only while the status is DRAFT or REJECTED, and only
// while the owning definition is active.
func (s ReportSubmission) EditableBy(userID string, defStatus DefinitionStatus) bool {
	if s.SubmittedBy != userID {
		return false
	}
	if defStatus != DefinitionActive {
		return false
	}
	return s.Status == SubmissionDraft || s.Status == SubmissionRejected
}

// SubmissionFilter captures filtering criteria for listing submissions.
// DepartmentID and SubmittedBy are set by the access policy for scoped users.
type SubmissionFilter struct {
	ReportDefinitionID string
	DepartmentID       string
	SubmittedBy        string
	ExcludeSubmittedBy string
	Statuses           []SubmissionStatus
	Page               int
	PageSize           int
}
