package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/report-portal-api/internal/dto"
	"github.com/noah-isme/report-portal-api/internal/models"
	"github.com/noah-isme/report-portal-api/pkg/export"
	appErrors "github.com/noah-isme/report-portal-api/pkg/errors"
)

// Aggregation covers data visible to reviewers: submitted plus approved.
var aggregationStatuses = []models.SubmissionStatus{
	models.SubmissionSubmitted,
	models.SubmissionApproved,
}

type aggregationSubmissionReader interface {
	ListForAggregation(ctx context.Context, definitionID string, statuses []models.SubmissionStatus, departmentID string) ([]models.ReportSubmission, error)
}

// AggregationService computes per-field numeric totals over a definition's
// submissions and renders them for export.
type AggregationService struct {
	submissions aggregationSubmissionReader
	definitions submissionDefinitionReader
	cache       *CacheService
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
}

// NewAggregationService creates an instance of AggregationService.
func NewAggregationService(submissions aggregationSubmissionReader, definitions submissionDefinitionReader, cache *CacheService, logger *zap.Logger) *AggregationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AggregationService{
		submissions: submissions,
		definitions: definitions,
		cache:       cache,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
	}
}

// Aggregate computes sums and averages per numeric field of the definition over
// submitted and approved submissions, optionally filtered by department. The
// second return value reports whether the result came from cache.
func (s *AggregationService) Aggregate(ctx context.Context, claims *models.JWTClaims, definitionID, departmentID string) (*dto.AggregationResult, bool, error) {
	if claims == nil || (claims.Role == models.RoleDepartmentUser && !claims.IsGeneralDepartment()) {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "aggregation requires lead, admin or general department access")
	}
	// Leads outside the general department only aggregate their own department.
	if claims.Role == models.RoleDepartmentLead && !claims.IsGeneralDepartment() {
		departmentID = claims.DepartmentID
	}

	cacheKey := fmt.Sprintf("aggregation:%s:%s", definitionID, departmentID)
	if s.cache.Enabled() {
		var cached dto.AggregationResult
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	def, err := s.definitions.FindByID(ctx, definitionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "definition not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load definition")
	}

	submissions, err := s.submissions.ListForAggregation(ctx, definitionID, aggregationStatuses, departmentID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submissions for aggregation")
	}

	result := &dto.AggregationResult{
		ReportDefinitionID: def.ID,
		DefinitionName:     def.Name,
		PeriodType:         string(def.PeriodType),
		SubmissionCount:    len(submissions),
		Fields:             []dto.FieldAggregate{},
	}

	for _, field := range def.NumericFields() {
		var sum float64
		for _, sub := range submissions {
			sum += coerceNumeric(sub.Data[field.ID])
		}
		avg := 0.0
		if len(submissions) > 0 {
			avg = math.Round(sum/float64(len(submissions))*10) / 10
		}
		result.Fields = append(result.Fields, dto.FieldAggregate{
			FieldID: field.ID,
			Label:   field.Label,
			Unit:    field.Unit,
			Sum:     sum,
			Avg:     avg,
			Count:   len(submissions),
		})
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, result, 0); err != nil {
			s.logger.Warn("failed to cache aggregation result", zap.Error(err))
		}
	}
	return result, false, nil
}

// Export renders the aggregate table in the requested format. Supported
// formats are csv and pdf.
func (s *AggregationService) Export(ctx context.Context, claims *models.JWTClaims, definitionID, departmentID, format string) ([]byte, string, error) {
	result, _, err := s.Aggregate(ctx, claims, definitionID, departmentID)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Field", "Unit", "Sum", "Avg", "Count"},
	}
	for _, f := range result.Fields {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Field": f.Label,
			"Unit":  f.Unit,
			"Sum":   strconv.FormatFloat(f.Sum, 'f', -1, 64),
			"Avg":   strconv.FormatFloat(f.Avg, 'f', 1, 64),
			"Count": strconv.Itoa(f.Count),
		})
	}

	switch format {
	case "csv", "":
		out, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return out, "text/csv", nil
	case "pdf":
		out, err := s.pdf.Render(dataset, result.DefinitionName)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return out, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

// coerceNumeric converts a submission field value into a float64, treating
// anything non-numeric as 0.
func coerceNumeric(value interface{}) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return 0
}
