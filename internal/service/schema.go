package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/report-portal-api/internal/models"
	appErrors "github.com/noah-isme/report-portal-api/pkg/errors"
)

// periodDateLayout is the wire format for date field values.
const periodDateLayout = "2006-01-02"

// ValidateStructure checks the shape of a definition's field list: field ids
// must be non-blank and unique, labels non-blank, types known, and select
// fields must carry at least one option.
func ValidateStructure(fields models.FieldList) error {
	if len(fields) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "structure requires at least one field")
	}

	seen := make(map[string]struct{}, len(fields))
	for i, f := range fields {
		if strings.TrimSpace(f.ID) == "" {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("field %d: id is required", i))
		}
		if strings.TrimSpace(f.Label) == "" {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("field %q: label is required", f.ID))
		}
		if !f.Type.Valid() {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("field %q: unknown type %q", f.ID, f.Type))
		}
		if _, dup := seen[f.ID]; dup {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate field id %q", f.ID))
		}
		seen[f.ID] = struct{}{}

		if f.Type == models.FieldSelect && len(f.Options) == 0 {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("select field %q requires options", f.ID))
		}
	}
	return nil
}

// ValidateData checks a submission payload against the owning definition's
// structure: every key must name a declared field, required fields must be
// present and non-empty, and values must match the declared field type.
func ValidateData(def *models.ReportDefinition, data models.SubmissionData) error {
	for key := range data {
		if _, ok := def.Field(key); !ok {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown field %q", key))
		}
	}

	for _, f := range def.Structure {
		value, present := data[f.ID]
		if !present || isEmptyValue(value) {
			if f.Required {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("field %q is required", f.ID))
			}
			continue
		}

		switch f.Type {
		case models.FieldNumber:
			if _, ok := numericValue(value); !ok {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("field %q must be numeric", f.ID))
			}
		case models.FieldSelect:
			str, ok := value.(string)
			if !ok {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("field %q must be one of its options", f.ID))
			}
			if !containsOption(f.Options, str) {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("field %q: %q is not a valid option", f.ID, str))
			}
		case models.FieldDate:
			str, ok := value.(string)
			if !ok {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("field %q must be a date (%s)", f.ID, periodDateLayout))
			}
			if _, err := time.Parse(periodDateLayout, str); err != nil {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("field %q must be a date (%s)", f.ID, periodDateLayout))
			}
		case models.FieldText:
			if _, ok := value.(string); !ok {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("field %q must be text", f.ID))
			}
		}
	}
	return nil
}

// numericValue coerces a submitted value into a float64. JSON numbers arrive
// as float64; numeric strings are accepted for compatibility with older
// clients that serialised form inputs as strings.
func numericValue(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func isEmptyValue(value interface{}) bool {
	if value == nil {
		return true
	}
	if str, ok := value.(string); ok {
		return strings.TrimSpace(str) == ""
	}
	return false
}

func containsOption(options []string, value string) bool {
	for _, opt := range options {
		if opt == value {
			return true
		}
	}
	return false
}
