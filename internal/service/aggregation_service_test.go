package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/report-portal-api/internal/models"
	appErrors "github.com/noah-isme/report-portal-api/pkg/errors"
)

type mockAggregationReader struct {
	submissions      []models.ReportSubmission
	lastDefinitionID string
	lastStatuses     []models.SubmissionStatus
	lastDepartmentID string
}

func (m *mockAggregationReader) ListForAggregation(ctx context.Context, definitionID string, statuses []models.SubmissionStatus, departmentID string) ([]models.ReportSubmission, error) {
	m.lastDefinitionID = definitionID
	m.lastStatuses = statuses
	m.lastDepartmentID = departmentID
	return m.submissions, nil
}

type memoryCacheRepo struct {
	entries map[string][]byte
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	return nil
}

func aggregationDefinition() *models.ReportDefinition {
	return &models.ReportDefinition{
		ID:         "def1",
		Key:        "ops_monthly",
		Name:       "Monthly Operations Report",
		PeriodType: models.PeriodMonthly,
		Status:     models.DefinitionActive,
		Structure: models.FieldList{
			{ID: "revenue", Label: "Revenue", Type: models.FieldNumber, Unit: "USD", Required: true},
			{ID: "summary", Label: "Summary", Type: models.FieldText},
		},
	}
}

func TestAggregationServiceSumAndAverage(t *testing.T) {
	reader := &mockAggregationReader{submissions: []models.ReportSubmission{
		{ID: "s1", Status: models.SubmissionApproved, Data: models.SubmissionData{"revenue": 12000.0}},
		{ID: "s2", Status: models.SubmissionSubmitted, Data: models.SubmissionData{"revenue": 5000.0}},
	}}
	defs := &mockDefinitionReader{defs: map[string]*models.ReportDefinition{"def1": aggregationDefinition()}}
	svc := NewAggregationService(reader, defs, nil, nil)

	result, _, err := svc.Aggregate(context.Background(), adminClaims(), "def1", "")
	require.NoError(t, err)

	assert.Equal(t, "def1", result.ReportDefinitionID)
	assert.Equal(t, "Monthly Operations Report", result.DefinitionName)
	assert.Equal(t, 2, result.SubmissionCount)

	require.Len(t, result.Fields, 1)
	field := result.Fields[0]
	assert.Equal(t, "revenue", field.FieldID)
	assert.Equal(t, "USD", field.Unit)
	assert.Equal(t, 17000.0, field.Sum)
	assert.Equal(t, 8500.0, field.Avg)
	assert.Equal(t, 2, field.Count)

	// Drafts and rejected submissions never reach the aggregate.
	assert.Equal(t, []models.SubmissionStatus{models.SubmissionSubmitted, models.SubmissionApproved}, reader.lastStatuses)
}

func TestAggregationServiceAverageRoundsToOneDecimal(t *testing.T) {
	reader := &mockAggregationReader{submissions: []models.ReportSubmission{
		{ID: "s1", Status: models.SubmissionApproved, Data: models.SubmissionData{"revenue": 10.0}},
		{ID: "s2", Status: models.SubmissionApproved, Data: models.SubmissionData{"revenue": 10.0}},
		{ID: "s3", Status: models.SubmissionApproved, Data: models.SubmissionData{"revenue": 11.0}},
	}}
	defs := &mockDefinitionReader{defs: map[string]*models.ReportDefinition{"def1": aggregationDefinition()}}
	svc := NewAggregationService(reader, defs, nil, nil)

	result, _, err := svc.Aggregate(context.Background(), adminClaims(), "def1", "")
	require.NoError(t, err)
	require.Len(t, result.Fields, 1)
	assert.Equal(t, 10.3, result.Fields[0].Avg)
}

func TestAggregationServiceCoercesNonNumericToZero(t *testing.T) {
	reader := &mockAggregationReader{submissions: []models.ReportSubmission{
		{ID: "s1", Status: models.SubmissionApproved, Data: models.SubmissionData{"revenue": 100.0}},
		{ID: "s2", Status: models.SubmissionApproved, Data: models.SubmissionData{"revenue": "n/a"}},
		{ID: "s3", Status: models.SubmissionApproved, Data: models.SubmissionData{}},
	}}
	defs := &mockDefinitionReader{defs: map[string]*models.ReportDefinition{"def1": aggregationDefinition()}}
	svc := NewAggregationService(reader, defs, nil, nil)

	result, _, err := svc.Aggregate(context.Background(), adminClaims(), "def1", "")
	require.NoError(t, err)
	require.Len(t, result.Fields, 1)
	// Bad values count toward the average as zero rather than being dropped.
	assert.Equal(t, 100.0, result.Fields[0].Sum)
	assert.Equal(t, 33.3, result.Fields[0].Avg)
	assert.Equal(t, 3, result.Fields[0].Count)
}

func TestAggregationServiceNumericStrings(t *testing.T) {
	reader := &mockAggregationReader{submissions: []models.ReportSubmission{
		{ID: "s1", Status: models.SubmissionApproved, Data: models.SubmissionData{"revenue": "2500"}},
		{ID: "s2", Status: models.SubmissionApproved, Data: models.SubmissionData{"revenue": 500.0}},
	}}
	defs := &mockDefinitionReader{defs: map[string]*models.ReportDefinition{"def1": aggregationDefinition()}}
	svc := NewAggregationService(reader, defs, nil, nil)

	result, _, err := svc.Aggregate(context.Background(), adminClaims(), "def1", "")
	require.NoError(t, err)
	assert.Equal(t, 3000.0, result.Fields[0].Sum)
}

func TestAggregationServiceAccessPolicy(t *testing.T) {
	reader := &mockAggregationReader{}
	defs := &mockDefinitionReader{defs: map[string]*models.ReportDefinition{"def1": aggregationDefinition()}}
	svc := NewAggregationService(reader, defs, nil, nil)

	_, _, err := svc.Aggregate(context.Background(), userClaims("dep-ops", "OPS"), "def1", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	// A general department user may aggregate across departments.
	_, _, err = svc.Aggregate(context.Background(), userClaims("dep-gen", models.GeneralDepartmentCode), "def1", "")
	assert.NoError(t, err)
	assert.Equal(t, "", reader.lastDepartmentID)

	// Leads outside the general department are pinned to their own department.
	_, _, err = svc.Aggregate(context.Background(), leadClaims("dep-ops", "OPS"), "def1", "dep-hr")
	require.NoError(t, err)
	assert.Equal(t, "dep-ops", reader.lastDepartmentID)
}

func TestAggregationServiceUnknownDefinition(t *testing.T) {
	svc := NewAggregationService(&mockAggregationReader{}, &mockDefinitionReader{}, nil, nil)

	_, _, err := svc.Aggregate(context.Background(), adminClaims(), "missing", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAggregationServiceCacheHitFlag(t *testing.T) {
	reader := &mockAggregationReader{submissions: []models.ReportSubmission{
		{ID: "s1", Status: models.SubmissionApproved, Data: models.SubmissionData{"revenue": 100.0}},
	}}
	defs := &mockDefinitionReader{defs: map[string]*models.ReportDefinition{"def1": aggregationDefinition()}}
	cache := NewCacheService(&memoryCacheRepo{}, nil, time.Minute, nil, true)
	svc := NewAggregationService(reader, defs, cache, nil)

	result, hit, err := svc.Aggregate(context.Background(), adminClaims(), "def1", "")
	require.NoError(t, err)
	assert.False(t, hit)

	cached, hit, err := svc.Aggregate(context.Background(), adminClaims(), "def1", "")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, result.Fields, cached.Fields)
}

func TestAggregationServiceExportCSV(t *testing.T) {
	reader := &mockAggregationReader{submissions: []models.ReportSubmission{
		{ID: "s1", Status: models.SubmissionApproved, Data: models.SubmissionData{"revenue": 12000.0}},
		{ID: "s2", Status: models.SubmissionSubmitted, Data: models.SubmissionData{"revenue": 5000.0}},
	}}
	defs := &mockDefinitionReader{defs: map[string]*models.ReportDefinition{"def1": aggregationDefinition()}}
	svc := NewAggregationService(reader, defs, nil, nil)

	out, contentType, err := svc.Export(context.Background(), adminClaims(), "def1", "", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)

	body := string(out)
	assert.True(t, strings.HasPrefix(body, "Field,Unit,Sum,Avg,Count"))
	assert.Contains(t, body, "Revenue,USD,17000,8500.0,2")
}

func TestAggregationServiceExportPDF(t *testing.T) {
	reader := &mockAggregationReader{submissions: []models.ReportSubmission{
		{ID: "s1", Status: models.SubmissionApproved, Data: models.SubmissionData{"revenue": 100.0}},
	}}
	defs := &mockDefinitionReader{defs: map[string]*models.ReportDefinition{"def1": aggregationDefinition()}}
	svc := NewAggregationService(reader, defs, nil, nil)

	out, contentType, err := svc.Export(context.Background(), adminClaims(), "def1", "", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))
}

func TestAggregationServiceExportUnknownFormat(t *testing.T) {
	svc := NewAggregationService(&mockAggregationReader{}, &mockDefinitionReader{defs: map[string]*models.ReportDefinition{"def1": aggregationDefinition()}}, nil, nil)

	_, _, err := svc.Export(context.Background(), adminClaims(), "def1", "", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCoerceNumeric(t *testing.T) {
	assert.Equal(t, 1.5, coerceNumeric(1.5))
	assert.Equal(t, 2.0, coerceNumeric(2))
	assert.Equal(t, 3.0, coerceNumeric(int64(3)))
	assert.Equal(t, 4.5, coerceNumeric("4.5"))
	assert.Equal(t, 0.0, coerceNumeric("n/a"))
	assert.Equal(t, 0.0, coerceNumeric(nil))
	assert.Equal(t, 0.0, coerceNumeric(true))
}
