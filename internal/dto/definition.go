package dto

import "github.com/noah-isme/report-portal-api/internal/models"

// DefinitionDetail is the single-definition payload. Defaults carries the
// initial form value per field id so clients can seed the submission editor:
// empty strings for text and select fields, no entry for number and date
// fields.
type DefinitionDetail struct {
	models.ReportDefinition
	Defaults map[string]interface{} `json:"defaults"`
}
