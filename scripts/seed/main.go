// Command seed provisions the database schema and loads development fixtures:
// the four departments, one account per role and two report definitions with a
// handful of submissions. Passwords for the seeded accounts are all "123456".
package main

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/report-portal-api/internal/models"
	"github.com/noah-isme/report-portal-api/pkg/config"
	"github.com/noah-isme/report-portal-api/pkg/database"
)

const schema = `
CREATE TABLE IF NOT EXISTS departments (
    id UUID PRIMARY KEY,
    name TEXT NOT NULL,
    code TEXT NOT NULL UNIQUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL,
    department_id UUID NOT NULL REFERENCES departments(id),
    avatar_url TEXT NOT NULL DEFAULT '',
    active BOOLEAN NOT NULL DEFAULT TRUE,
    last_login TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS report_definitions (
    id UUID PRIMARY KEY,
    key TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    period_type TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'draft',
    department_id UUID REFERENCES departments(id),
    structure JSONB NOT NULL DEFAULT '[]',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS report_submissions (
    id UUID PRIMARY KEY,
    report_definition_id UUID NOT NULL REFERENCES report_definitions(id),
    department_id UUID NOT NULL REFERENCES departments(id),
    submitted_by UUID NOT NULL REFERENCES users(id),
    submitted_at TIMESTAMPTZ,
    period_start DATE NOT NULL,
    period_end DATE NOT NULL,
    data JSONB NOT NULL DEFAULT '{}',
    status TEXT NOT NULL DEFAULT 'DRAFT',
    version INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_submissions_definition ON report_submissions(report_definition_id);
CREATE INDEX IF NOT EXISTS idx_submissions_department ON report_submissions(department_id);
CREATE INDEX IF NOT EXISTS idx_submissions_status ON report_submissions(status);

CREATE TABLE IF NOT EXISTS refresh_tokens (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id),
    token TEXT NOT NULL UNIQUE,
    expires_at TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    revoked BOOLEAN NOT NULL DEFAULT FALSE,
    revoked_at TIMESTAMPTZ,
    ip_address TEXT NOT NULL DEFAULT '',
    user_agent TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS audit_logs (
    id UUID PRIMARY KEY,
    user_id UUID,
    action TEXT NOT NULL,
    resource TEXT NOT NULL,
    resource_id TEXT,
    old_values JSONB,
    new_values JSONB,
    ip_address TEXT NOT NULL DEFAULT '',
    user_agent TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		log.Fatalf("failed to apply schema: %v", err)
	}

	departments := map[string]string{
		"OPS":     "Operations",
		"ENG":     "Engineering",
		"HR":      "Human Resources",
		"GENERAL": "General Affairs",
	}
	departmentIDs := make(map[string]string, len(departments))
	for code, name := range departments {
		id, err := upsertDepartment(ctx, db, name, code)
		if err != nil {
			log.Fatalf("failed to seed department %s: %v", code, err)
		}
		departmentIDs[code] = id
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte("123456"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash seed password: %v", err)
	}

	users := []struct {
		name  string
		email string
		role  models.UserRole
		dept  string
	}{
		{"Portal Admin", "admin@example.com", models.RoleAdmin, "GENERAL"},
		{"Grace Director", "director@example.com", models.RoleDepartmentLead, "GENERAL"},
		{"Olivia Ops Lead", "ops.lead@example.com", models.RoleDepartmentLead, "OPS"},
		{"Oscar Ops", "ops.user@example.com", models.RoleDepartmentUser, "OPS"},
		{"Erin Eng Lead", "eng.lead@example.com", models.RoleDepartmentLead, "ENG"},
		{"Evan Eng", "eng.user@example.com", models.RoleDepartmentUser, "ENG"},
		{"Hana HR Lead", "hr.lead@example.com", models.RoleDepartmentLead, "HR"},
		{"Henry HR", "hr.user@example.com", models.RoleDepartmentUser, "HR"},
	}
	userIDs := make(map[string]string, len(users))
	for _, u := range users {
		id, err := upsertUser(ctx, db, u.name, u.email, string(passwordHash), u.role, departmentIDs[u.dept])
		if err != nil {
			log.Fatalf("failed to seed user %s: %v", u.email, err)
		}
		userIDs[u.email] = id
	}

	opsStructure := models.FieldList{
		{ID: "revenue", Label: "Revenue", Type: models.FieldNumber, Required: true, Unit: "USD"},
		{ID: "expenses", Label: "Expenses", Type: models.FieldNumber, Required: true, Unit: "USD"},
		{ID: "incidents", Label: "Incidents", Type: models.FieldNumber, Required: false},
		{ID: "summary", Label: "Summary", Type: models.FieldText, Required: true},
	}
	opsDefID, err := upsertDefinition(ctx, db, "ops_monthly", "Monthly Operations Report",
		"Monthly financial and operational figures", models.PeriodMonthly, models.DefinitionActive, nil, opsStructure)
	if err != nil {
		log.Fatalf("failed to seed ops definition: %v", err)
	}

	hrDeptID := departmentIDs["HR"]
	hrStructure := models.FieldList{
		{ID: "headcount", Label: "Headcount", Type: models.FieldNumber, Required: true},
		{ID: "new_hires", Label: "New Hires", Type: models.FieldNumber, Required: true},
		{ID: "attrition", Label: "Attrition", Type: models.FieldNumber, Required: false},
		{ID: "mood", Label: "Team Mood", Type: models.FieldSelect, Required: true, Options: []string{"good", "neutral", "poor"}},
	}
	if _, err := upsertDefinition(ctx, db, "hr_weekly", "Weekly HR Snapshot",
		"Weekly staffing figures for HR", models.PeriodWeekly, models.DefinitionActive, &hrDeptID, hrStructure); err != nil {
		log.Fatalf("failed to seed hr definition: %v", err)
	}

	submissions := []struct {
		dept   string
		author string
		start  string
		end    string
		data   models.SubmissionData
		status models.SubmissionStatus
	}{
		{"OPS", "ops.user@example.com", "2026-07-01", "2026-07-31",
			models.SubmissionData{"revenue": 12000, "expenses": 8000, "incidents": 2, "summary": "Stable month"},
			models.SubmissionApproved},
		{"ENG", "eng.user@example.com", "2026-07-01", "2026-07-31",
			models.SubmissionData{"revenue": 5000, "expenses": 7000, "incidents": 0, "summary": "Platform investment"},
			models.SubmissionSubmitted},
		{"OPS", "ops.user@example.com", "2026-08-01", "2026-08-31",
			models.SubmissionData{"revenue": 14000, "expenses": 8500, "incidents": 1, "summary": "Growing demand"},
			models.SubmissionDraft},
	}
	for _, s := range submissions {
		if err := insertSubmission(ctx, db, opsDefID, departmentIDs[s.dept], userIDs[s.author], s.start, s.end, s.data, s.status); err != nil {
			log.Fatalf("failed to seed submission: %v", err)
		}
	}

	log.Println("seed completed")
}

func upsertDepartment(ctx context.Context, db *sqlx.DB, name, code string) (string, error) {
	var id string
	err := db.GetContext(ctx, &id, `SELECT id FROM departments WHERE code = $1`, code)
	if err == nil {
		return id, nil
	}
	id = uuid.NewString()
	now := time.Now().UTC()
	_, err = db.ExecContext(ctx, `INSERT INTO departments (id, name, code, created_at, updated_at) VALUES ($1, $2, $3, $4, $4)`, id, name, code, now)
	return id, err
}

func upsertUser(ctx context.Context, db *sqlx.DB, name, email, passwordHash string, role models.UserRole, departmentID string) (string, error) {
	var id string
	err := db.GetContext(ctx, &id, `SELECT id FROM users WHERE email = $1`, email)
	if err == nil {
		return id, nil
	}
	id = uuid.NewString()
	now := time.Now().UTC()
	_, err = db.ExecContext(ctx, `INSERT INTO users (id, name, email, password_hash, role, department_id, avatar_url, active, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, '', TRUE, $7, $7)`,
		id, name, email, passwordHash, role, departmentID, now)
	return id, err
}

func upsertDefinition(ctx context.Context, db *sqlx.DB, key, name, description string, periodType models.PeriodType, status models.DefinitionStatus, departmentID *string, structure models.FieldList) (string, error) {
	var id string
	err := db.GetContext(ctx, &id, `SELECT id FROM report_definitions WHERE key = $1`, key)
	if err == nil {
		return id, nil
	}
	raw, err := json.Marshal(structure)
	if err != nil {
		return "", err
	}
	id = uuid.NewString()
	now := time.Now().UTC()
	_, err = db.ExecContext(ctx, `INSERT INTO report_definitions (id, key, name, description, period_type, status, department_id, structure, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		id, key, name, description, periodType, status, departmentID, raw, now)
	return id, err
}

func insertSubmission(ctx context.Context, db *sqlx.DB, definitionID, departmentID, userID, periodStart, periodEnd string, data models.SubmissionData, status models.SubmissionStatus) error {
	var exists int
	err := db.GetContext(ctx, &exists, `SELECT COUNT(*) FROM report_submissions WHERE report_definition_id = $1 AND department_id = $2 AND period_start = $3`, definitionID, departmentID, periodStart)
	if err == nil && exists > 0 {
		return nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	var submittedAt *time.Time
	if status != models.SubmissionDraft {
		submittedAt = &now
	}
	_, err = db.ExecContext(ctx, `INSERT INTO report_submissions (id, report_definition_id, department_id, submitted_by, submitted_at, period_start, period_end, data, status, version, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1, $10, $10)`,
		uuid.NewString(), definitionID, departmentID, userID, submittedAt, periodStart, periodEnd, raw, status, now)
	return err
}
