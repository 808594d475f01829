package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/report-portal-api/internal/models"
	appErrors "github.com/noah-isme/report-portal-api/pkg/errors"
)

type submissionRepository interface {
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.ReportSubmission, int, error)
	FindByID(ctx context.Context, id string) (*models.ReportSubmission, error)
	Create(ctx context.Context, sub *models.ReportSubmission) error
	Update(ctx context.Context, sub *models.ReportSubmission) error
}

type submissionDefinitionReader interface {
	FindByID(ctx context.Context, id string) (*models.ReportDefinition, error)
}

type submissionAuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateSubmissionRequest represents payload for creating a draft submission.
type CreateSubmissionRequest struct {
	ReportDefinitionID string                `json:"report_definition_id" validate:"required"`
	PeriodStart        string                `json:"period_start" validate:"required"`
	PeriodEnd          string                `json:"period_end" validate:"required"`
	Data               models.SubmissionData `json:"data"`
}

// UpdateSubmissionRequest payload for editing a draft or rejected submission.
type UpdateSubmissionRequest struct {
	PeriodStart string                `json:"period_start" validate:"required"`
	PeriodEnd   string                `json:"period_end" validate:"required"`
	Data        models.SubmissionData `json:"data"`
}

// SubmissionService handles the submission approval lifecycle.
type SubmissionService struct {
	repo        submissionRepository
	definitions submissionDefinitionReader
	audit       submissionAuditWriter
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewSubmissionService creates an instance of SubmissionService.
func NewSubmissionService(repo submissionRepository, definitions submissionDefinitionReader, audit submissionAuditWriter, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SubmissionService{
		repo:        repo,
		definitions: definitions,
		audit:       audit,
		cache:       cache,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// List returns the submissions visible to the token holder.
func (s *SubmissionService) List(ctx context.Context, claims *models.JWTClaims, filter models.SubmissionFilter) ([]models.ReportSubmission, *models.Pagination, error) {
	filter = SubmissionScope(claims, filter)

	submissions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	return submissions, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// ApprovalQueue returns the SUBMITTED submissions awaiting review by the token
// holder, excluding their own unless admin.
func (s *SubmissionService) ApprovalQueue(ctx context.Context, claims *models.JWTClaims, filter models.SubmissionFilter) ([]models.ReportSubmission, *models.Pagination, error) {
	if claims == nil || (claims.Role != models.RoleAdmin && claims.Role != models.RoleDepartmentLead) {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "only leads and admins review submissions")
	}

	filter.Statuses = []models.SubmissionStatus{models.SubmissionSubmitted}
	filter = SubmissionScope(claims, filter)
	// Excluding in the query keeps the count and page sizes honest.
	if claims.Role != models.RoleAdmin {
		filter.ExcludeSubmittedBy = claims.UserID
	}

	submissions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list approval queue")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	return submissions, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns a submission by ID, enforcing the visibility policy.
func (s *SubmissionService) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.ReportSubmission, error) {
	sub, err := s.findSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanViewSubmission(claims, sub) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "submission is not visible to this user")
	}
	return sub, nil
}

// Create opens a new DRAFT submission for the token holder's department. The
// referenced definition must be active and visible to the author.
func (s *SubmissionService) Create(ctx context.Context, claims *models.JWTClaims, req CreateSubmissionRequest) (*models.ReportSubmission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create submission payload")
	}

	def, err := s.findDefinition(ctx, req.ReportDefinitionID)
	if err != nil {
		return nil, err
	}
	if def.Status != models.DefinitionActive {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "definition is not active")
	}
	if !CanViewDefinition(claims, def) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "definition is not visible to this department")
	}

	periodStart, periodEnd, err := parsePeriod(req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return nil, err
	}

	data := req.Data
	if data == nil {
		data = models.SubmissionData{}
	}
	if err := ValidateData(def, data); err != nil {
		return nil, err
	}

	sub := &models.ReportSubmission{
		ReportDefinitionID: def.ID,
		DepartmentID:       claims.DepartmentID,
		SubmittedBy:        claims.UserID,
		PeriodStart:        periodStart,
		PeriodEnd:          periodEnd,
		Data:               data,
		Status:             models.SubmissionDraft,
		Version:            1,
	}

	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create submission")
	}

	s.invalidateCaches(ctx, sub.ReportDefinitionID)
	return sub, nil
}

// Update edits a draft or rejected submission owned by the token holder.
func (s *SubmissionService) Update(ctx context.Context, claims *models.JWTClaims, id string, req UpdateSubmissionRequest) (*models.ReportSubmission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update submission payload")
	}

	sub, err := s.findSubmission(ctx, id)
	if err != nil {
		return nil, err
	}

	def, err := s.findDefinition(ctx, sub.ReportDefinitionID)
	if err != nil {
		return nil, err
	}

	if !sub.EditableBy(claims.UserID, def.Status) {
		if sub.SubmittedBy != claims.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only the author may edit a submission")
		}
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("submission in status %s is read-only", sub.Status))
	}

	periodStart, periodEnd, err := parsePeriod(req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return nil, err
	}

	data := req.Data
	if data == nil {
		data = models.SubmissionData{}
	}
	if err := ValidateData(def, data); err != nil {
		return nil, err
	}

	sub.PeriodStart = periodStart
	sub.PeriodEnd = periodEnd
	sub.Data = data
	// Editing a rejected submission returns it to DRAFT until resubmitted.
	if sub.Status == models.SubmissionRejected {
		sub.Status = models.SubmissionDraft
	}

	if err := s.repo.Update(ctx, sub); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update submission")
	}

	s.invalidateCaches(ctx, sub.ReportDefinitionID)
	return sub, nil
}

// Submit transitions a DRAFT or REJECTED submission to SUBMITTED, stamping
// submitted_at. Resubmission after rejection increments the version.
func (s *SubmissionService) Submit(ctx context.Context, claims *models.JWTClaims, id string) (*models.ReportSubmission, error) {
	sub, err := s.findSubmission(ctx, id)
	if err != nil {
		return nil, err
	}

	if sub.SubmittedBy != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the author may submit a submission")
	}

	def, err := s.findDefinition(ctx, sub.ReportDefinitionID)
	if err != nil {
		return nil, err
	}
	if def.Status != models.DefinitionActive {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "definition is no longer active")
	}

	switch sub.Status {
	case models.SubmissionDraft:
	case models.SubmissionRejected:
		sub.Version++
	default:
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot submit from status %s", sub.Status))
	}

	if err := ValidateData(def, sub.Data); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	sub.Status = models.SubmissionSubmitted
	sub.SubmittedAt = &now

	if err := s.repo.Update(ctx, sub); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit submission")
	}

	s.recordLifecycleAudit(ctx, claims, sub, models.AuditActionSubmissionSubmit, string(models.SubmissionSubmitted))
	s.invalidateCaches(ctx, sub.ReportDefinitionID)
	return sub, nil
}

// Approve transitions a SUBMITTED submission to APPROVED.
func (s *SubmissionService) Approve(ctx context.Context, claims *models.JWTClaims, id string) (*models.ReportSubmission, error) {
	return s.review(ctx, claims, id, models.SubmissionApproved)
}

// Reject transitions a SUBMITTED submission to REJECTED, returning it to the
// author for edits and resubmission.
func (s *SubmissionService) Reject(ctx context.Context, claims *models.JWTClaims, id string) (*models.ReportSubmission, error) {
	return s.review(ctx, claims, id, models.SubmissionRejected)
}

func (s *SubmissionService) review(ctx context.Context, claims *models.JWTClaims, id string, target models.SubmissionStatus) (*models.ReportSubmission, error) {
	sub, err := s.findSubmission(ctx, id)
	if err != nil {
		return nil, err
	}

	if !CanReview(claims, sub) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not authorized to review this submission")
	}

	if sub.Status != models.SubmissionSubmitted {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot review from status %s", sub.Status))
	}

	sub.Status = target
	if err := s.repo.Update(ctx, sub); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update submission status")
	}

	s.recordLifecycleAudit(ctx, claims, sub, models.AuditActionSubmissionReview, string(target))
	s.invalidateCaches(ctx, sub.ReportDefinitionID)
	return sub, nil
}

func (s *SubmissionService) findSubmission(ctx context.Context, id string) (*models.ReportSubmission, error) {
	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	return sub, nil
}

func (s *SubmissionService) findDefinition(ctx context.Context, id string) (*models.ReportDefinition, error) {
	def, err := s.definitions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "definition not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load definition")
	}
	return def, nil
}

func (s *SubmissionService) recordLifecycleAudit(ctx context.Context, claims *models.JWTClaims, sub *models.ReportSubmission, action, newStatus string) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{"status": newStatus, "version": sub.Version})
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &claims.UserID,
		Action:     action,
		Resource:   "report_submissions",
		ResourceID: &sub.ID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record submission audit log", zap.Error(err))
	}
}

func (s *SubmissionService) invalidateCaches(ctx context.Context, definitionID string) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("aggregation:%s:*", definitionID)); err != nil {
		s.logger.Warn("failed to invalidate aggregation cache", zap.Error(err))
	}
	if err := s.cache.Invalidate(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

// parsePeriod parses the period bounds and checks their ordering.
func parsePeriod(start, end string) (time.Time, time.Time, error) {
	periodStart, err := time.Parse(periodDateLayout, start)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("period_start must be a date (%s)", periodDateLayout))
	}
	periodEnd, err := time.Parse(periodDateLayout, end)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("period_end must be a date (%s)", periodDateLayout))
	}
	if periodEnd.Before(periodStart) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "period_end must not precede period_start")
	}
	return periodStart, periodEnd, nil
}
