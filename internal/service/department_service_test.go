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

type mockDepartmentRepo struct {
	byID        map[string]*models.Department
	byCode      map[string]*models.Department
	users       int
	submissions int
	deleted     []string
}

func (m *mockDepartmentRepo) List(ctx context.Context, filter models.DepartmentFilter) ([]models.Department, int, error) {
	result := make([]models.Department, 0, len(m.byID))
	for _, dept := range m.byID {
		result = append(result, *dept)
	}
	return result, len(result), nil
}

func (m *mockDepartmentRepo) FindByID(ctx context.Context, id string) (*models.Department, error) {
	if dept, ok := m.byID[id]; ok {
		cp := *dept
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDepartmentRepo) FindByCode(ctx context.Context, code string) (*models.Department, error) {
	if dept, ok := m.byCode[code]; ok {
		cp := *dept
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDepartmentRepo) Create(ctx context.Context, dept *models.Department) error {
	if m.byID == nil {
		m.byID = make(map[string]*models.Department)
	}
	if m.byCode == nil {
		m.byCode = make(map[string]*models.Department)
	}
	dept.ID = "generated"
	cp := *dept
	m.byID[dept.ID] = &cp
	m.byCode[dept.Code] = &cp
	return nil
}

func (m *mockDepartmentRepo) Update(ctx context.Context, dept *models.Department) error {
	cp := *dept
	m.byID[dept.ID] = &cp
	return nil
}

func (m *mockDepartmentRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.byID, id)
	return nil
}

func (m *mockDepartmentRepo) CountReferences(ctx context.Context, id string) (int, int, error) {
	return m.users, m.submissions, nil
}

func TestDepartmentServiceCreate(t *testing.T) {
	repo := &mockDepartmentRepo{}
	svc := NewDepartmentService(repo, nil, nil)

	dept, err := svc.Create(context.Background(), CreateDepartmentRequest{Name: "Operations", Code: "ops"})
	require.NoError(t, err)
	// Codes are normalized to upper case before storage.
	assert.Equal(t, "OPS", dept.Code)
	assert.Equal(t, "Operations", dept.Name)
	assert.NotEmpty(t, dept.ID)
}

func TestDepartmentServiceCreateDuplicateCode(t *testing.T) {
	repo := &mockDepartmentRepo{byCode: map[string]*models.Department{
		"OPS": {ID: "d1", Name: "Operations", Code: "OPS"},
	}}
	svc := NewDepartmentService(repo, nil, nil)

	_, err := svc.Create(context.Background(), CreateDepartmentRequest{Name: "Other Ops", Code: "OPS"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestDepartmentServiceCreateValidation(t *testing.T) {
	svc := NewDepartmentService(&mockDepartmentRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateDepartmentRequest{Name: "", Code: "OPS"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), CreateDepartmentRequest{Name: "Operations", Code: "OPS 1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDepartmentServiceUpdateKeepsSameCode(t *testing.T) {
	repo := &mockDepartmentRepo{
		byID:   map[string]*models.Department{"d1": {ID: "d1", Name: "Operations", Code: "OPS"}},
		byCode: map[string]*models.Department{"OPS": {ID: "d1", Name: "Operations", Code: "OPS"}},
	}
	svc := NewDepartmentService(repo, nil, nil)

	dept, err := svc.Update(context.Background(), "d1", UpdateDepartmentRequest{Name: "Ops and Logistics", Code: "OPS"})
	require.NoError(t, err)
	assert.Equal(t, "Ops and Logistics", dept.Name)
}

func TestDepartmentServiceUpdateCodeTakenByOther(t *testing.T) {
	repo := &mockDepartmentRepo{
		byID: map[string]*models.Department{
			"d1": {ID: "d1", Name: "Operations", Code: "OPS"},
		},
		byCode: map[string]*models.Department{
			"OPS": {ID: "d1", Name: "Operations", Code: "OPS"},
			"HR":  {ID: "d2", Name: "Human Resources", Code: "HR"},
		},
	}
	svc := NewDepartmentService(repo, nil, nil)

	_, err := svc.Update(context.Background(), "d1", UpdateDepartmentRequest{Name: "Operations", Code: "HR"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestDepartmentServiceDeleteGuardedByReferences(t *testing.T) {
	repo := &mockDepartmentRepo{
		byID:  map[string]*models.Department{"d1": {ID: "d1", Name: "Operations", Code: "OPS"}},
		users: 2,
	}
	svc := NewDepartmentService(repo, nil, nil)

	err := svc.Delete(context.Background(), "d1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)

	repo.users = 0
	require.NoError(t, svc.Delete(context.Background(), "d1"))
	assert.Equal(t, []string{"d1"}, repo.deleted)
}

func TestDepartmentServiceGetNotFound(t *testing.T) {
	svc := NewDepartmentService(&mockDepartmentRepo{}, nil, nil)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
