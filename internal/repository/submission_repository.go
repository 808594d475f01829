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

// SubmissionRepository provides database access for report submissions.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository creates a new instance of SubmissionRepository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

const submissionColumns = `s.id, s.report_definition_id, s.department_id, s.submitted_by, s.submitted_at, s.period_start, s.period_end, s.data, s.status, s.version, s.created_at, s.updated_at, d.name AS department_name, u.name AS submitted_by_name`

const submissionJoins = `FROM report_submissions s JOIN departments d ON d.id = s.department_id JOIN users u ON u.id = s.submitted_by`

// List returns submissions matching the filter with total count. Scope fields
// (DepartmentID, SubmittedBy) are expected to be set by the access policy.
func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionFilter) ([]models.ReportSubmission, int, error) {
	baseQuery := submissionJoins + ` WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.ReportDefinitionID != "" {
		conditions = append(conditions, fmt.Sprintf("s.report_definition_id = $%d", len(args)+1))
		args = append(args, filter.ReportDefinitionID)
	}
	if filter.DepartmentID != "" {
		conditions = append(conditions, fmt.Sprintf("s.department_id = $%d", len(args)+1))
		args = append(args, filter.DepartmentID)
	}
	if filter.SubmittedBy != "" {
		conditions = append(conditions, fmt.Sprintf("s.submitted_by = $%d", len(args)+1))
		args = append(args, filter.SubmittedBy)
	}
	if filter.ExcludeSubmittedBy != "" {
		conditions = append(conditions, fmt.Sprintf("s.submitted_by <> $%d", len(args)+1))
		args = append(args, filter.ExcludeSubmittedBy)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, status)
		}
		conditions = append(conditions, fmt.Sprintf("s.status IN (%s)", strings.Join(placeholders, ", ")))
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY s.submitted_at DESC NULLS LAST, s.created_at DESC LIMIT %d OFFSET %d", submissionColumns, baseQuery, pageSize, offset)

	var submissions []models.ReportSubmission
	if err := r.db.SelectContext(ctx, &submissions, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}

	return submissions, total, nil
}

// FindByID returns a submission by identifier with resolved display names.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.ReportSubmission, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE s.id = $1 LIMIT 1", submissionColumns, submissionJoins)
	var sub models.ReportSubmission
	if err := r.db.GetContext(ctx, &sub, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find submission by id: %w", err)
	}
	return &sub, nil
}

// Create inserts a new submission.
func (r *SubmissionRepository) Create(ctx context.Context, sub *models.ReportSubmission) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	const query = `INSERT INTO report_submissions (id, report_definition_id, department_id, submitted_by, submitted_at, period_start, period_end, data, status, version, created_at, updated_at) VALUES (:id, :report_definition_id, :department_id, :submitted_by, :submitted_at, :period_start, :period_end, :data, :status, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, sub); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// Update updates the mutable fields of a submission.
func (r *SubmissionRepository) Update(ctx context.Context, sub *models.ReportSubmission) error {
	sub.UpdatedAt = time.Now().UTC()
	const query = `UPDATE report_submissions SET period_start = :period_start, period_end = :period_end, data = :data, status = :status, submitted_at = :submitted_at, version = :version, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, sub); err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	return nil
}

// ListForAggregation returns submissions referencing a definition in the given
// statuses, optionally restricted to one department. No pagination: the
// aggregation pass consumes the full set.
func (r *SubmissionRepository) ListForAggregation(ctx context.Context, definitionID string, statuses []models.SubmissionStatus, departmentID string) ([]models.ReportSubmission, error) {
	baseQuery := submissionJoins + ` WHERE s.report_definition_id = $1`
	args := []interface{}{definitionID}

	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, status)
		}
		baseQuery += fmt.Sprintf(" AND s.status IN (%s)", strings.Join(placeholders, ", "))
	}
	if departmentID != "" {
		baseQuery += fmt.Sprintf(" AND s.department_id = $%d", len(args)+1)
		args = append(args, departmentID)
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY s.submitted_at DESC NULLS LAST", submissionColumns, baseQuery)

	var submissions []models.ReportSubmission
	if err := r.db.SelectContext(ctx, &submissions, query, args...); err != nil {
		return nil, fmt.Errorf("list submissions for aggregation: %w", err)
	}
	return submissions, nil
}

// CountByStatus returns submission counts grouped by status within the scope
// described by the filter. Used by the dashboard.
func (r *SubmissionRepository) CountByStatus(ctx context.Context, filter models.SubmissionFilter) (map[models.SubmissionStatus]int, error) {
	baseQuery := `FROM report_submissions s WHERE 1=1`
	var args []interface{}

	if filter.DepartmentID != "" {
		baseQuery += fmt.Sprintf(" AND s.department_id = $%d", len(args)+1)
		args = append(args, filter.DepartmentID)
	}
	if filter.SubmittedBy != "" {
		baseQuery += fmt.Sprintf(" AND s.submitted_by = $%d", len(args)+1)
		args = append(args, filter.SubmittedBy)
	}

	query := fmt.Sprintf("SELECT s.status, COUNT(*) AS count %s GROUP BY s.status", baseQuery)

	rows := []struct {
		Status models.SubmissionStatus `db:"status"`
		Count  int                     `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("count submissions by status: %w", err)
	}

	counts := make(map[models.SubmissionStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
