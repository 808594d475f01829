package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/report-portal-api/internal/models"
	"github.com/noah-isme/report-portal-api/internal/service"
)

type definitionRepoStub struct {
	def *models.ReportDefinition
}

func (s *definitionRepoStub) List(ctx context.Context, filter models.DefinitionFilter) ([]models.ReportDefinition, int, error) {
	if s.def == nil {
		return nil, 0, nil
	}
	return []models.ReportDefinition{*s.def}, 1, nil
}

func (s *definitionRepoStub) FindByID(ctx context.Context, id string) (*models.ReportDefinition, error) {
	if s.def != nil && s.def.ID == id {
		cp := *s.def
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *definitionRepoStub) FindByKey(ctx context.Context, key string) (*models.ReportDefinition, error) {
	if s.def != nil && s.def.Key == key {
		cp := *s.def
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *definitionRepoStub) Create(ctx context.Context, def *models.ReportDefinition) error {
	def.ID = "created"
	cp := *def
	s.def = &cp
	return nil
}

func (s *definitionRepoStub) Update(ctx context.Context, def *models.ReportDefinition) error {
	cp := *def
	s.def = &cp
	return nil
}

func (s *definitionRepoStub) Delete(ctx context.Context, id string) error { return nil }

func (s *definitionRepoStub) CountSubmissions(ctx context.Context, id string) (int, error) {
	return 0, nil
}

func newDefinitionHandlerForTest(def *models.ReportDefinition) *DefinitionHandler {
	svc := service.NewDefinitionService(&definitionRepoStub{def: def}, nil, nil)
	return NewDefinitionHandler(svc)
}

func TestDefinitionHandlerGetIncludesDefaults(t *testing.T) {
	def := &models.ReportDefinition{
		ID:         "def1",
		Key:        "weekly_summary",
		Name:       "Weekly Summary",
		PeriodType: models.PeriodWeekly,
		Status:     models.DefinitionActive,
		Structure: models.FieldList{
			{ID: "summary", Label: "Summary", Type: models.FieldText, Required: true},
			{ID: "grade", Label: "Grade", Type: models.FieldSelect, Options: []string{"A", "B"}},
			{ID: "headcount", Label: "Headcount", Type: models.FieldNumber},
			{ID: "reviewed_on", Label: "Reviewed On", Type: models.FieldDate},
		},
	}
	handler := newDefinitionHandlerForTest(def)

	c, w := testContext(t, http.MethodGet, "/definitions/def1", nil, authorClaims())
	c.Params = gin.Params{{Key: "id", Value: "def1"}}

	handler.Get(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data struct {
			ID       string                 `json:"id"`
			Defaults map[string]interface{} `json:"defaults"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "def1", envelope.Data.ID)

	// Text and select fields start empty; number and date fields stay unset
	// so the editor renders them blank instead of zeroed.
	assert.Equal(t, "", envelope.Data.Defaults["summary"])
	assert.Equal(t, "", envelope.Data.Defaults["grade"])
	assert.NotContains(t, envelope.Data.Defaults, "headcount")
	assert.NotContains(t, envelope.Data.Defaults, "reviewed_on")
}

func TestDefinitionHandlerGetNotFound(t *testing.T) {
	handler := newDefinitionHandlerForTest(nil)

	c, w := testContext(t, http.MethodGet, "/definitions/missing", nil, authorClaims())
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}
