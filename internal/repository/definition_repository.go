package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/report-portal-api/internal/models"
)

// DefinitionRepository provides database access for report definitions.
type DefinitionRepository struct {
	db *sqlx.DB
}

// NewDefinitionRepository creates a new instance of DefinitionRepository.
func NewDefinitionRepository(db *sqlx.DB) *DefinitionRepository {
	return &DefinitionRepository{db: db}
}

const definitionColumns = `rd.id, rd.key, rd.name, rd.description, rd.period_type, rd.status, rd.department_id, rd.structure, rd.created_at, rd.updated_at, d.name AS department_name`

// List returns definitions matching the filter with total count.
func (r *DefinitionRepository) List(ctx context.Context, filter models.DefinitionFilter) ([]models.ReportDefinition, int, error) {
	baseQuery := `FROM report_definitions rd LEFT JOIN departments d ON d.id = rd.department_id WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("rd.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DepartmentID != "" {
		conditions = append(conditions, fmt.Sprintf("(rd.department_id IS NULL OR rd.department_id = $%d)", len(args)+1))
		args = append(args, filter.DepartmentID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(rd.name) LIKE $%d OR LOWER(rd.key) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"name": true, "key": true, "created_at": true, "updated_at": true}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY rd.%s %s LIMIT %d OFFSET %d", definitionColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var defs []models.ReportDefinition
	if err := r.db.SelectContext(ctx, &defs, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list definitions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count definitions: %w", err)
	}

	return defs, total, nil
}

// FindByID returns a definition by identifier.
func (r *DefinitionRepository) FindByID(ctx context.Context, id string) (*models.ReportDefinition, error) {
	query := fmt.Sprintf("SELECT %s FROM report_definitions rd LEFT JOIN departments d ON d.id = rd.department_id WHERE rd.id = $1 LIMIT 1", definitionColumns)
	var def models.ReportDefinition
	if err := r.db.GetContext(ctx, &def, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find definition by id: %w", err)
	}
	return &def, nil
}

// FindByKey returns a definition by its unique key.
func (r *DefinitionRepository) FindByKey(ctx context.Context, key string) (*models.ReportDefinition, error) {
	query := fmt.Sprintf("SELECT %s FROM report_definitions rd LEFT JOIN departments d ON d.id = rd.department_id WHERE rd.key = $1 LIMIT 1", definitionColumns)
	var def models.ReportDefinition
	if err := r.db.GetContext(ctx, &def, query, key); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find definition by key: %w", err)
	}
	return &def, nil
}

// Create inserts a new definition.
func (r *DefinitionRepository) Create(ctx context.Context, def *models.ReportDefinition) error {
	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if def.CreatedAt.IsZero() {
		def.CreatedAt = now
	}
	def.UpdatedAt = now

	const query = `INSERT INTO report_definitions (id, key, name, description, period_type, status, department_id, structure, created_at, updated_at) VALUES (:id, :key, :name, :description, :period_type, :status, :department_id, :structure, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, def); err != nil {
		return fmt.Errorf("create definition: %w", err)
	}
	return nil
}

// Update updates mutable fields of a definition.
func (r *DefinitionRepository) Update(ctx context.Context, def *models.ReportDefinition) error {
	def.UpdatedAt = time.Now().UTC()
	const query = `UPDATE report_definitions SET name = :name, description = :description, period_type = :period_type, status = :status, department_id = :department_id, structure = :structure, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, def); err != nil {
		return fmt.Errorf("update definition: %w", err)
	}
	return nil
}

// Delete removes a definition. Callers must check submission references first.
func (r *DefinitionRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM report_definitions WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete definition: %w", err)
	}
	return nil
}

// CountSubmissions returns the number of submissions referencing a definition.
func (r *DefinitionRepository) CountSubmissions(ctx context.Context, id string) (int, error) {
	const query = `SELECT COUNT(*) FROM report_submissions WHERE report_definition_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count definition submissions: %w", err)
	}
	return count, nil
}
