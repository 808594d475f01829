package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/report-portal-api/internal/dto"
	"github.com/noah-isme/report-portal-api/internal/models"
	appErrors "github.com/noah-isme/report-portal-api/pkg/errors"
)

const recentSubmissionsLimit = 5

type dashboardSubmissionReader interface {
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.ReportSubmission, int, error)
	CountByStatus(ctx context.Context, filter models.SubmissionFilter) (map[models.SubmissionStatus]int, error)
}

type dashboardDefinitionReader interface {
	List(ctx context.Context, filter models.DefinitionFilter) ([]models.ReportDefinition, int, error)
}

// DashboardService assembles the role-scoped landing page counters.
type DashboardService struct {
	submissions dashboardSubmissionReader
	definitions dashboardDefinitionReader
	cache       *CacheService
	logger      *zap.Logger
}

// NewDashboardService creates an instance of DashboardService.
func NewDashboardService(submissions dashboardSubmissionReader, definitions dashboardDefinitionReader, cache *CacheService, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{submissions: submissions, definitions: definitions, cache: cache, logger: logger}
}

// Overview returns the counters and recent submissions visible to the token
// holder. Scoping follows the submission visibility policy. The second return
// value reports whether the overview came from cache.
func (s *DashboardService) Overview(ctx context.Context, claims *models.JWTClaims) (*dto.DashboardOverview, bool, error) {
	if claims == nil {
		return nil, false, appErrors.ErrUnauthorized
	}

	cacheKey := fmt.Sprintf("dashboard:%s", claims.UserID)
	if s.cache.Enabled() {
		var cached dto.DashboardOverview
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	scope := SubmissionScope(claims, models.SubmissionFilter{})

	counts, err := s.submissions.CountByStatus(ctx, scope)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count submissions")
	}

	active := models.DefinitionActive
	defFilter := models.DefinitionFilter{Status: &active, PageSize: 1}
	if claims.Role != models.RoleAdmin && !claims.IsGeneralDepartment() {
		defFilter.DepartmentID = claims.DepartmentID
	}
	_, activeDefinitions, err := s.definitions.List(ctx, defFilter)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count definitions")
	}

	recentFilter := scope
	recentFilter.Page = 1
	recentFilter.PageSize = recentSubmissionsLimit
	recent, _, err := s.submissions.List(ctx, recentFilter)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list recent submissions")
	}
	if recent == nil {
		recent = []models.ReportSubmission{}
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	overview := &dto.DashboardOverview{
		Counters: dto.DashboardCounters{
			TotalSubmissions:  total,
			Drafts:            counts[models.SubmissionDraft],
			PendingApprovals:  counts[models.SubmissionSubmitted],
			Approved:          counts[models.SubmissionApproved],
			Rejected:          counts[models.SubmissionRejected],
			ActiveDefinitions: activeDefinitions,
		},
		RecentSubmissions: recent,
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, overview, 0); err != nil {
			s.logger.Warn("failed to cache dashboard overview", zap.Error(err))
		}
	}
	return overview, false, nil
}
