package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/report-portal-api/internal/models"
	appErrors "github.com/noah-isme/report-portal-api/pkg/errors"
)

type mockUserRepo struct {
	byID            map[string]*models.User
	byEmail         map[string]*models.User
	deleted         []string
	passwordUpdated bool
	auditLogs       []*models.AuditLog
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	result := make([]models.User, 0, len(m.byID))
	for _, user := range m.byID {
		result = append(result, *user)
	}
	return result, len(result), nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.byID[id]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := m.byEmail[email]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.byID == nil {
		m.byID = make(map[string]*models.User)
	}
	if m.byEmail == nil {
		m.byEmail = make(map[string]*models.User)
	}
	user.ID = "generated"
	cp := *user
	m.byID[user.ID] = &cp
	m.byEmail[user.Email] = &cp
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	cp := *user
	m.byID[user.ID] = &cp
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	m.passwordUpdated = true
	if user, ok := m.byID[id]; ok {
		user.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

type mockDepartmentChecker struct {
	exists map[string]bool
}

func (m *mockDepartmentChecker) FindByID(ctx context.Context, id string) (*models.Department, error) {
	if m.exists[id] {
		return &models.Department{ID: id}, nil
	}
	return nil, sql.ErrNoRows
}

func newTestUserService(repo *mockUserRepo, depts *mockDepartmentChecker) *UserService {
	if depts == nil {
		depts = &mockDepartmentChecker{exists: map[string]bool{"dep-ops": true}}
	}
	return NewUserService(repo, depts, nil, nil)
}

func TestUserServiceCreate(t *testing.T) {
	repo := &mockUserRepo{}
	svc := newTestUserService(repo, nil)

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Name:         "Jordan Smith",
		Email:        "Jordan@Example.com",
		Role:         models.RoleDepartmentUser,
		DepartmentID: "dep-ops",
		Password:     "secret1",
	}, "admin1", models.LoginRequest{IP: "10.0.0.1"})
	require.NoError(t, err)

	assert.Equal(t, "jordan@example.com", user.Email)
	assert.True(t, user.Active)
	assert.Contains(t, user.AvatarURL, "ui-avatars.com")
	// The stored hash must verify against the plaintext password.
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret1")))

	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionUserCreate, repo.auditLogs[0].Action)
	assert.Equal(t, "10.0.0.1", repo.auditLogs[0].IPAddress)
}

func TestUserServiceCreateDuplicateEmail(t *testing.T) {
	repo := &mockUserRepo{byEmail: map[string]*models.User{
		"jordan@example.com": {ID: "u1", Email: "jordan@example.com"},
	}}
	svc := newTestUserService(repo, nil)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Name:         "Jordan Smith",
		Email:        "jordan@example.com",
		Role:         models.RoleDepartmentUser,
		DepartmentID: "dep-ops",
		Password:     "secret1",
	}, "admin1", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserServiceCreateUnknownDepartment(t *testing.T) {
	svc := newTestUserService(&mockUserRepo{}, &mockDepartmentChecker{})

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Name:         "Jordan Smith",
		Email:        "jordan@example.com",
		Role:         models.RoleDepartmentUser,
		DepartmentID: "dep-missing",
		Password:     "secret1",
	}, "admin1", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceCreateRejectsBadRole(t *testing.T) {
	svc := newTestUserService(&mockUserRepo{}, nil)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Name:         "Jordan Smith",
		Email:        "jordan@example.com",
		Role:         models.UserRole("SUPERUSER"),
		DepartmentID: "dep-ops",
		Password:     "secret1",
	}, "admin1", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceUpdate(t *testing.T) {
	repo := &mockUserRepo{
		byID: map[string]*models.User{
			"u1": {ID: "u1", Name: "Jordan Smith", Email: "jordan@example.com", Role: models.RoleDepartmentUser, DepartmentID: "dep-ops", Active: true},
		},
		byEmail: map[string]*models.User{
			"jordan@example.com": {ID: "u1", Email: "jordan@example.com"},
		},
	}
	svc := newTestUserService(repo, nil)

	inactive := false
	user, err := svc.Update(context.Background(), "u1", UpdateUserRequest{
		Name:         "Jordan Smith",
		Email:        "jordan@example.com",
		Role:         models.RoleDepartmentLead,
		DepartmentID: "dep-ops",
		Active:       &inactive,
	}, "admin1", models.LoginRequest{})
	require.NoError(t, err)

	assert.Equal(t, models.RoleDepartmentLead, user.Role)
	assert.False(t, user.Active)
	assert.False(t, repo.passwordUpdated)

	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionUserUpdate, repo.auditLogs[0].Action)
}

func TestUserServiceUpdateWithPassword(t *testing.T) {
	repo := &mockUserRepo{
		byID: map[string]*models.User{
			"u1": {ID: "u1", Name: "Jordan Smith", Email: "jordan@example.com", Role: models.RoleDepartmentUser, DepartmentID: "dep-ops", Active: true},
		},
	}
	svc := newTestUserService(repo, nil)

	_, err := svc.Update(context.Background(), "u1", UpdateUserRequest{
		Name:         "Jordan Smith",
		Email:        "jordan@example.com",
		Role:         models.RoleDepartmentUser,
		DepartmentID: "dep-ops",
		Password:     "newsecret",
	}, "admin1", models.LoginRequest{})
	require.NoError(t, err)
	assert.True(t, repo.passwordUpdated)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.byID["u1"].PasswordHash), []byte("newsecret")))
}

func TestUserServiceDeleteSoft(t *testing.T) {
	repo := &mockUserRepo{
		byID: map[string]*models.User{
			"u1": {ID: "u1", Name: "Jordan Smith", Active: true},
		},
	}
	svc := newTestUserService(repo, nil)

	require.NoError(t, svc.Delete(context.Background(), "u1", "admin1", models.LoginRequest{}))
	assert.Equal(t, []string{"u1"}, repo.deleted)

	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionUserDelete, repo.auditLogs[0].Action)

	err := svc.Delete(context.Background(), "missing", "admin1", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
