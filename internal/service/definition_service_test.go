package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/report-portal-api/internal/models"
	appErrors "github.com/noah-isme/report-portal-api/pkg/errors"
)

type mockDefinitionRepo struct {
	byID            map[string]*models.ReportDefinition
	byKey           map[string]*models.ReportDefinition
	submissionCount int
	deleted         []string
	lastFilter      models.DefinitionFilter
}

func (m *mockDefinitionRepo) List(ctx context.Context, filter models.DefinitionFilter) ([]models.ReportDefinition, int, error) {
	m.lastFilter = filter
	result := make([]models.ReportDefinition, 0, len(m.byID))
	for _, def := range m.byID {
		result = append(result, *def)
	}
	return result, len(result), nil
}

func (m *mockDefinitionRepo) FindByID(ctx context.Context, id string) (*models.ReportDefinition, error) {
	if def, ok := m.byID[id]; ok {
		cp := *def
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDefinitionRepo) FindByKey(ctx context.Context, key string) (*models.ReportDefinition, error) {
	if def, ok := m.byKey[key]; ok {
		cp := *def
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDefinitionRepo) Create(ctx context.Context, def *models.ReportDefinition) error {
	if m.byID == nil {
		m.byID = make(map[string]*models.ReportDefinition)
	}
	if m.byKey == nil {
		m.byKey = make(map[string]*models.ReportDefinition)
	}
	def.ID = "generated"
	cp := *def
	m.byID[def.ID] = &cp
	m.byKey[def.Key] = &cp
	return nil
}

func (m *mockDefinitionRepo) Update(ctx context.Context, def *models.ReportDefinition) error {
	cp := *def
	m.byID[def.ID] = &cp
	return nil
}

func (m *mockDefinitionRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.byID, id)
	return nil
}

func (m *mockDefinitionRepo) CountSubmissions(ctx context.Context, id string) (int, error) {
	return m.submissionCount, nil
}

func validStructure() models.FieldList {
	return models.FieldList{
		{ID: "revenue", Label: "Revenue", Type: models.FieldNumber, Unit: "USD", Required: true},
		{ID: "summary", Label: "Summary", Type: models.FieldText},
	}
}

func TestDefinitionServiceCreate(t *testing.T) {
	repo := &mockDefinitionRepo{}
	svc := NewDefinitionService(repo, nil, nil)

	def, err := svc.Create(context.Background(), CreateDefinitionRequest{
		Key:        "ops_monthly",
		Name:       "Monthly Operations Report",
		PeriodType: models.PeriodMonthly,
		Structure:  validStructure(),
	})
	require.NoError(t, err)
	// Unspecified status defaults to draft.
	assert.Equal(t, models.DefinitionDraft, def.Status)
	assert.Nil(t, def.DepartmentID)
}

func TestDefinitionServiceCreateDuplicateKey(t *testing.T) {
	repo := &mockDefinitionRepo{byKey: map[string]*models.ReportDefinition{
		"ops_monthly": {ID: "d1", Key: "ops_monthly"},
	}}
	svc := NewDefinitionService(repo, nil, nil)

	_, err := svc.Create(context.Background(), CreateDefinitionRequest{
		Key:        "ops_monthly",
		Name:       "Monthly Operations Report",
		PeriodType: models.PeriodMonthly,
		Structure:  validStructure(),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestDefinitionServiceCreateRejectsBadStructure(t *testing.T) {
	svc := NewDefinitionService(&mockDefinitionRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateDefinitionRequest{
		Key:        "ops_monthly",
		Name:       "Monthly Operations Report",
		PeriodType: models.PeriodMonthly,
		Structure: models.FieldList{
			{ID: "mood", Label: "Mood", Type: models.FieldSelect},
		},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDefinitionServiceCreateBlankDepartmentBecomesGlobal(t *testing.T) {
	repo := &mockDefinitionRepo{}
	svc := NewDefinitionService(repo, nil, nil)

	blank := "  "
	def, err := svc.Create(context.Background(), CreateDefinitionRequest{
		Key:          "ops_monthly",
		Name:         "Monthly Operations Report",
		PeriodType:   models.PeriodMonthly,
		DepartmentID: &blank,
		Structure:    validStructure(),
	})
	require.NoError(t, err)
	assert.Nil(t, def.DepartmentID)
}

func TestDefinitionServiceUpdateKeepsKey(t *testing.T) {
	repo := &mockDefinitionRepo{byID: map[string]*models.ReportDefinition{
		"d1": {ID: "d1", Key: "ops_monthly", Name: "Monthly Operations Report", PeriodType: models.PeriodMonthly, Status: models.DefinitionDraft, Structure: validStructure()},
	}}
	svc := NewDefinitionService(repo, nil, nil)

	def, err := svc.Update(context.Background(), "d1", UpdateDefinitionRequest{
		Name:       "Monthly Ops",
		PeriodType: models.PeriodMonthly,
		Status:     models.DefinitionActive,
		Structure:  validStructure(),
	})
	require.NoError(t, err)
	assert.Equal(t, "ops_monthly", def.Key)
	assert.Equal(t, "Monthly Ops", def.Name)
	assert.Equal(t, models.DefinitionActive, def.Status)
}

func TestDefinitionServiceListScoping(t *testing.T) {
	repo := &mockDefinitionRepo{}
	svc := NewDefinitionService(repo, nil, nil)

	_, _, err := svc.List(context.Background(), userClaims("dep-ops", "OPS"), models.DefinitionFilter{})
	require.NoError(t, err)
	assert.Equal(t, "dep-ops", repo.lastFilter.DepartmentID)

	_, _, err = svc.List(context.Background(), adminClaims(), models.DefinitionFilter{})
	require.NoError(t, err)
	assert.Empty(t, repo.lastFilter.DepartmentID)

	_, _, err = svc.List(context.Background(), userClaims("dep-gen", models.GeneralDepartmentCode), models.DefinitionFilter{})
	require.NoError(t, err)
	assert.Empty(t, repo.lastFilter.DepartmentID)
}

func TestDefinitionServiceGetVisibility(t *testing.T) {
	hr := "dep-hr"
	repo := &mockDefinitionRepo{byID: map[string]*models.ReportDefinition{
		"d1": {ID: "d1", Key: "hr_weekly", DepartmentID: &hr},
	}}
	svc := NewDefinitionService(repo, nil, nil)

	_, err := svc.Get(context.Background(), userClaims("dep-hr", "HR"), "d1")
	assert.NoError(t, err)

	_, err = svc.Get(context.Background(), userClaims("dep-ops", "OPS"), "d1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDefinitionServiceDeleteWithHistory(t *testing.T) {
	repo := &mockDefinitionRepo{
		byID:            map[string]*models.ReportDefinition{"d1": {ID: "d1", Key: "ops_monthly"}},
		submissionCount: 3,
	}
	svc := NewDefinitionService(repo, nil, nil)

	err := svc.Delete(context.Background(), "d1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)

	repo.submissionCount = 0
	require.NoError(t, svc.Delete(context.Background(), "d1"))
	assert.Equal(t, []string{"d1"}, repo.deleted)
}
