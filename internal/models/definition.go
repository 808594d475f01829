package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// PeriodType enumerates the reporting cadences a definition may use.
type PeriodType string

const (
	PeriodDaily   PeriodType = "daily"
	PeriodWeekly  PeriodType = "weekly"
	PeriodMonthly PeriodType = "monthly"
)

// Valid reports whether the period type is known.
func (p PeriodType) Valid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return true
	}
	return false
}

// DefinitionStatus enumerates the lifecycle states of a report definition.
type DefinitionStatus string

const (
	DefinitionActive   DefinitionStatus = "active"
	DefinitionDraft    DefinitionStatus = "draft"
	DefinitionInactive DefinitionStatus = "inactive"
)

// Valid reports whether the definition status is known.
func (s DefinitionStatus) Valid() bool {
	switch s {
	case DefinitionActive, DefinitionDraft, DefinitionInactive:
		return true
	}
	return false
}

// FieldType enumerates the input types a report field may declare.
type FieldType string

const (
	FieldText   FieldType = "text"
	FieldNumber FieldType = "number"
	FieldDate   FieldType = "date"
	FieldSelect FieldType = "select"
)

// Valid reports whether the field type is known.
func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldNumber, FieldDate, FieldSelect:
		return true
	}
	return false
}

// ReportField is a single named, typed input slot within a definition's structure.
type ReportField struct {
	ID       string    `json:"id"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Unit     string    `json:"unit,omitempty"`
	Options  []string  `json:"options,omitempty"`
}

// FieldList is an ordered list of report fields stored as a JSONB column.
type FieldList []ReportField

// Value implements driver.Valuer for JSONB storage.
func (f FieldList) Value() (driver.Value, error) {
	if f == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(f)
}

// Scan implements sql.Scanner for JSONB retrieval.
func (f *FieldList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*f = nil
		return nil
	case []byte:
		return json.Unmarshal(v, f)
	case string:
		return json.Unmarshal([]byte(v), f)
	default:
		return fmt.Errorf("unsupported structure column type %T", src)
	}
}

// ReportDefinition is an admin-authored template describing a report's
// periodic data-entry form. DepartmentID nil means the definition is visible
// to all departments. DepartmentName is a read-only join field.
type ReportDefinition struct {
	ID             string           `db:"id" json:"id"`
	Key            string           `db:"key" json:"key"`
	Name           string           `db:"name" json:"name"`
	Description    string           `db:"description" json:"description"`
	PeriodType     PeriodType       `db:"period_type" json:"period_type"`
	Status         DefinitionStatus `db:"status" json:"status"`
	DepartmentID   *string          `db:"department_id" json:"department_id"`
	DepartmentName *string          `db:"department_name" json:"department_name,omitempty"`
	Structure      FieldList        `db:"structure" json:"structure"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// NumericFields returns the fields with type number, in structure order.
func (d ReportDefinition) NumericFields() []ReportField {
	var fields []ReportField
	for _, f := range d.Structure {
		if f.Type == FieldNumber {
			fields = append(fields, f)
		}
	}
	return fields
}

// RenderableDefaults returns the initial form value per field id: empty string
// for text and select fields, no entry for number and date fields.
func (d ReportDefinition) RenderableDefaults() map[string]interface{} {
	defaults := make(map[string]interface{})
	for _, f := range d.Structure {
		switch f.Type {
		case FieldText, FieldSelect:
			defaults[f.ID] = ""
		}
	}
	return defaults
}

// Field returns the field with the given id and whether it exists.
func (d ReportDefinition) Field(id string) (ReportField, bool) {
	for _, f := range d.Structure {
		if f.ID == id {
			return f, true
		}
	}
	return ReportField{}, false
}

// DefinitionFilter captures filtering criteria for listing definitions.
type DefinitionFilter struct {
	Status       *DefinitionStatus
	DepartmentID string
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
