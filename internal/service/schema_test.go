package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/report-portal-api/internal/models"
)

func TestValidateStructure(t *testing.T) {
	valid := models.FieldList{
		{ID: "revenue", Label: "Revenue", Type: models.FieldNumber, Required: true, Unit: "USD"},
		{ID: "summary", Label: "Summary", Type: models.FieldText},
		{ID: "mood", Label: "Mood", Type: models.FieldSelect, Options: []string{"good", "poor"}},
	}
	require.NoError(t, ValidateStructure(valid))

	cases := []struct {
		name   string
		fields models.FieldList
	}{
		{"empty structure", models.FieldList{}},
		{"blank id", models.FieldList{{ID: " ", Label: "A", Type: models.FieldText}}},
		{"blank label", models.FieldList{{ID: "a", Label: "", Type: models.FieldText}}},
		{"unknown type", models.FieldList{{ID: "a", Label: "A", Type: "checkbox"}}},
		{"duplicate id", models.FieldList{
			{ID: "a", Label: "A", Type: models.FieldText},
			{ID: "a", Label: "B", Type: models.FieldNumber},
		}},
		{"select without options", models.FieldList{{ID: "a", Label: "A", Type: models.FieldSelect}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, ValidateStructure(tc.fields))
		})
	}
}

func TestValidateData(t *testing.T) {
	def := &models.ReportDefinition{
		Structure: models.FieldList{
			{ID: "revenue", Label: "Revenue", Type: models.FieldNumber, Required: true},
			{ID: "note", Label: "Note", Type: models.FieldText},
			{ID: "report_date", Label: "Report Date", Type: models.FieldDate},
			{ID: "mood", Label: "Mood", Type: models.FieldSelect, Options: []string{"good", "neutral", "poor"}},
		},
	}

	t.Run("valid payload", func(t *testing.T) {
		err := ValidateData(def, models.SubmissionData{
			"revenue":     12000.0,
			"note":        "stable",
			"report_date": "2026-07-31",
			"mood":        "good",
		})
		assert.NoError(t, err)
	})

	t.Run("numeric string accepted", func(t *testing.T) {
		assert.NoError(t, ValidateData(def, models.SubmissionData{"revenue": "12000"}))
	})

	t.Run("optional fields may be absent", func(t *testing.T) {
		assert.NoError(t, ValidateData(def, models.SubmissionData{"revenue": 1.0}))
	})

	t.Run("unknown key rejected", func(t *testing.T) {
		assert.Error(t, ValidateData(def, models.SubmissionData{"revenue": 1.0, "ghost": "x"}))
	})

	t.Run("missing required rejected", func(t *testing.T) {
		assert.Error(t, ValidateData(def, models.SubmissionData{"note": "n"}))
	})

	t.Run("blank required rejected", func(t *testing.T) {
		assert.Error(t, ValidateData(def, models.SubmissionData{"revenue": "  "}))
	})

	t.Run("non numeric rejected", func(t *testing.T) {
		assert.Error(t, ValidateData(def, models.SubmissionData{"revenue": "twelve"}))
	})

	t.Run("bad date rejected", func(t *testing.T) {
		assert.Error(t, ValidateData(def, models.SubmissionData{"revenue": 1.0, "report_date": "31/07/2026"}))
	})

	t.Run("select outside options rejected", func(t *testing.T) {
		assert.Error(t, ValidateData(def, models.SubmissionData{"revenue": 1.0, "mood": "ecstatic"}))
	})

	t.Run("non string text rejected", func(t *testing.T) {
		assert.Error(t, ValidateData(def, models.SubmissionData{"revenue": 1.0, "note": 42.0}))
	})
}
