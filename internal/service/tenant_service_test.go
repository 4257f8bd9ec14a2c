package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/skolara-api/internal/models"
	appErrors "github.com/noah-isme/skolara-api/pkg/errors"
)

type mockTenantRepo struct {
	byID    map[string]*models.Tenant
	bySlug  map[string]*models.Tenant
	created []*models.Tenant
}

func (m *mockTenantRepo) List(ctx context.Context, filter models.TenantFilter) ([]models.Tenant, int, error) {
	var out []models.Tenant
	for _, t := range m.byID {
		out = append(out, *t)
	}
	return out, len(out), nil
}

func (m *mockTenantRepo) FindByID(ctx context.Context, id string) (*models.Tenant, error) {
	if t, ok := m.byID[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTenantRepo) FindBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	if t, ok := m.bySlug[slug]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTenantRepo) Create(ctx context.Context, tenant *models.Tenant) error {
	m.created = append(m.created, tenant)
	return nil
}

func (m *mockTenantRepo) SetActive(ctx context.Context, id string, active bool) error {
	if t, ok := m.byID[id]; ok {
		t.Active = active
	}
	return nil
}

func newTenantFixture() (*TenantService, *mockTenantRepo) {
	active := &models.Tenant{ID: "tenant-a", Name: "Springfield High", Slug: "springfield", Active: true}
	suspended := &models.Tenant{ID: "tenant-x", Name: "Shelbyville High", Slug: "shelbyville", Active: false}
	repo := &mockTenantRepo{
		byID:   map[string]*models.Tenant{"tenant-a": active, "tenant-x": suspended},
		bySlug: map[string]*models.Tenant{"springfield": active, "shelbyville": suspended},
	}
	return NewTenantService(repo, validator.New(), zap.NewNop()), repo
}

func TestTenantServiceResolve(t *testing.T) {
	svc, _ := newTenantFixture()

	byID, err := svc.Resolve(context.Background(), "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, "springfield", byID.Slug)

	bySlug, err := svc.Resolve(context.Background(), "springfield")
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", bySlug.ID)
}

// uuidStrictTenantRepo mimics Postgres rejecting non-uuid values fed into
// the tenants.id column with a 22P02 data exception.
type uuidStrictTenantRepo struct {
	mockTenantRepo
}

func (m *uuidStrictTenantRepo) FindByID(ctx context.Context, id string) (*models.Tenant, error) {
	if _, ok := m.byID[id]; !ok {
		return nil, &pq.Error{Code: "22P02", Message: `invalid input syntax for type uuid: "` + id + `"`}
	}
	return m.mockTenantRepo.FindByID(ctx, id)
}

func TestTenantServiceResolveSlugSurvivesUUIDParseError(t *testing.T) {
	active := &models.Tenant{ID: "0f9a1c22-5f6d-4e58-9f07-6a2f4b6f0b11", Name: "Springfield High", Slug: "springfield", Active: true}
	repo := &uuidStrictTenantRepo{mockTenantRepo{
		byID:   map[string]*models.Tenant{active.ID: active},
		bySlug: map[string]*models.Tenant{"springfield": active},
	}}
	svc := NewTenantService(repo, validator.New(), zap.NewNop())

	tenant, err := svc.Resolve(context.Background(), "springfield")
	require.NoError(t, err)
	assert.Equal(t, active.ID, tenant.ID)

	_, err = svc.Resolve(context.Background(), "nowhere")
	assert.Equal(t, appErrors.ErrTenantUnknown.Code, appErrors.FromError(err).Code)
}

func TestTenantServiceResolveErrors(t *testing.T) {
	svc, _ := newTenantFixture()

	_, err := svc.Resolve(context.Background(), "")
	assert.Equal(t, appErrors.ErrTenantRequired.Code, appErrors.FromError(err).Code)

	_, err = svc.Resolve(context.Background(), "  ")
	assert.Equal(t, appErrors.ErrTenantRequired.Code, appErrors.FromError(err).Code)

	_, err = svc.Resolve(context.Background(), "nowhere")
	assert.Equal(t, appErrors.ErrTenantUnknown.Code, appErrors.FromError(err).Code)

	_, err = svc.Resolve(context.Background(), "shelbyville")
	assert.Equal(t, appErrors.ErrTenantSuspended.Code, appErrors.FromError(err).Code)
}

func TestTenantServiceCreate(t *testing.T) {
	svc, repo := newTenantFixture()

	tenant, err := svc.Create(context.Background(), CreateTenantRequest{Name: "Ogdenville High", Slug: "ogdenville"})
	require.NoError(t, err)
	assert.True(t, tenant.Active)
	assert.Len(t, repo.created, 1)
}

func TestTenantServiceCreateDuplicateSlug(t *testing.T) {
	svc, _ := newTenantFixture()

	_, err := svc.Create(context.Background(), CreateTenantRequest{Name: "Copy", Slug: "springfield"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestTenantServiceCreateInvalidSlug(t *testing.T) {
	svc, _ := newTenantFixture()

	_, err := svc.Create(context.Background(), CreateTenantRequest{Name: "Bad", Slug: "Not A Slug"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTenantServiceSetActive(t *testing.T) {
	svc, _ := newTenantFixture()

	tenant, err := svc.SetActive(context.Background(), "tenant-x", true)
	require.NoError(t, err)
	assert.True(t, tenant.Active)

	_, err = svc.SetActive(context.Background(), "nowhere", true)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTenantUnknown.Code, appErrors.FromError(err).Code)
}
