package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/report-portal-api/internal/models"
	appErrors "github.com/noah-isme/report-portal-api/pkg/errors"
)

type definitionRepository interface {
	List(ctx context.Context, filter models.DefinitionFilter) ([]models.ReportDefinition, int, error)
	FindByID(ctx context.Context, id string) (*models.ReportDefinition, error)
	FindByKey(ctx context.Context, key string) (*models.ReportDefinition, error)
	Create(ctx context.Context, def *models.ReportDefinition) error
	Update(ctx context.Context, def *models.ReportDefinition) error
	Delete(ctx context.Context, id string) error
	CountSubmissions(ctx context.Context, id string) (int, error)
}

// CreateDefinitionRequest represents payload for creating report definitions.
type CreateDefinitionRequest struct {
	Key          string                  `json:"key" validate:"required"`
	Name         string                  `json:"name" validate:"required"`
	Description  string                  `json:"description"`
	PeriodType   models.PeriodType       `json:"period_type" validate:"required,oneof=daily weekly monthly"`
	Status       models.DefinitionStatus `json:"status" validate:"omitempty,oneof=active draft inactive"`
	DepartmentID *string                 `json:"department_id"`
	Structure    models.FieldList        `json:"structure" validate:"required"`
}

// UpdateDefinitionRequest payload for updating report definitions. The key is
// immutable once created.
type UpdateDefinitionRequest struct {
	Name         string                  `json:"name" validate:"required"`
	Description  string                  `json:"description"`
	PeriodType   models.PeriodType       `json:"period_type" validate:"required,oneof=daily weekly monthly"`
	Status       models.DefinitionStatus `json:"status" validate:"required,oneof=active draft inactive"`
	DepartmentID *string                 `json:"department_id"`
	Structure    models.FieldList        `json:"structure" validate:"required"`
}

// DefinitionService handles report definition authoring and visibility.
type DefinitionService struct {
	repo      definitionRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDefinitionService creates an instance of DefinitionService.
func NewDefinitionService(repo definitionRepository, validate *validator.Validate, logger *zap.Logger) *DefinitionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &DefinitionService{repo: repo, validator: validate, logger: logger}
}

// List returns the definitions visible to the token holder. Admins and the
// general department see every definition; everyone else sees unscoped
// definitions plus those scoped to their own department.
func (s *DefinitionService) List(ctx context.Context, claims *models.JWTClaims, filter models.DefinitionFilter) ([]models.ReportDefinition, *models.Pagination, error) {
	if claims != nil && claims.Role != models.RoleAdmin && !claims.IsGeneralDepartment() {
		filter.DepartmentID = claims.DepartmentID
	}

	defs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list definitions")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	return defs, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns a definition by ID, enforcing the visibility policy.
func (s *DefinitionService) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.ReportDefinition, error) {
	def, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "definition not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load definition")
	}

	if !CanViewDefinition(claims, def) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "definition is not visible to this department")
	}
	return def, nil
}

// Create adds a new definition after validating key uniqueness and structure.
func (s *DefinitionService) Create(ctx context.Context, req CreateDefinitionRequest) (*models.ReportDefinition, error) {
	req.Key = strings.TrimSpace(req.Key)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create definition payload")
	}
	if err := ValidateStructure(req.Structure); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByKey(ctx, req.Key); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "key already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check key uniqueness")
	}

	status := req.Status
	if status == "" {
		status = models.DefinitionDraft
	}

	def := &models.ReportDefinition{
		Key:          req.Key,
		Name:         req.Name,
		Description:  req.Description,
		PeriodType:   req.PeriodType,
		Status:       status,
		DepartmentID: normalizeDepartmentID(req.DepartmentID),
		Structure:    req.Structure,
	}

	if err := s.repo.Create(ctx, def); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create definition")
	}
	return def, nil
}

// Update modifies a definition, revalidating its structure.
func (s *DefinitionService) Update(ctx context.Context, id string, req UpdateDefinitionRequest) (*models.ReportDefinition, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update definition payload")
	}
	if err := ValidateStructure(req.Structure); err != nil {
		return nil, err
	}

	def, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "definition not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load definition")
	}

	def.Name = req.Name
	def.Description = req.Description
	def.PeriodType = req.PeriodType
	def.Status = req.Status
	def.DepartmentID = normalizeDepartmentID(req.DepartmentID)
	def.Structure = req.Structure

	if err := s.repo.Update(ctx, def); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update definition")
	}
	return def, nil
}

// Delete removes a definition unless submissions reference it. Definitions
// with history are retired by setting status to inactive instead.
func (s *DefinitionService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "definition not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load definition")
	}

	count, err := s.repo.CountSubmissions(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check definition references")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "cannot delete definition with existing submissions; set status to inactive instead")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete definition")
	}
	return nil
}

func normalizeDepartmentID(id *string) *string {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil
	}
	return id
}
