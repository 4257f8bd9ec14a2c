package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/skolara-api/internal/models"
	"github.com/noah-isme/skolara-api/internal/service"
)

type stubTenantRepo struct {
	tenants map[string]*models.Tenant // keyed by id and slug
}

func (s *stubTenantRepo) List(ctx context.Context, filter models.TenantFilter) ([]models.Tenant, int, error) {
	return nil, 0, nil
}

func (s *stubTenantRepo) FindByID(ctx context.Context, id string) (*models.Tenant, error) {
	if t, ok := s.tenants[id]; ok && t.ID == id {
		cp := *t
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubTenantRepo) FindBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	if t, ok := s.tenants[slug]; ok && t.Slug == slug {
		cp := *t
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubTenantRepo) Create(ctx context.Context, tenant *models.Tenant) error { return nil }

func (s *stubTenantRepo) SetActive(ctx context.Context, id string, active bool) error { return nil }

func tenantTestRouter(claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)

	repo := &stubTenantRepo{tenants: map[string]*models.Tenant{
		"tenant-a":    {ID: "tenant-a", Slug: "springfield", Active: true},
		"springfield": {ID: "tenant-a", Slug: "springfield", Active: true},
		"tenant-x":    {ID: "tenant-x", Slug: "shelbyville", Active: false},
		"shelbyville": {ID: "tenant-x", Slug: "shelbyville", Active: false},
	}}
	tenants := service.NewTenantService(repo, nil, nil)

	router := gin.New()
	if claims != nil {
		router.Use(func(c *gin.Context) {
			c.Set(ContextUserKey, claims)
		})
	}
	router.Use(Tenant(tenants, "X-Tenant-ID"))
	router.GET("/", func(c *gin.Context) {
		tenant, ok := TenantFrom(c)
		if !ok || tenant == nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestTenantMiddlewareResolvesByID(t *testing.T) {
	router := tenantTestRouter(nil)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant-ID", "tenant-a")
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusNoContent, recorder.Code)
}

func TestTenantMiddlewareResolvesBySlug(t *testing.T) {
	router := tenantTestRouter(nil)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant-ID", "springfield")
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusNoContent, recorder.Code)
}

func TestTenantMiddlewareMissingHeader(t *testing.T) {
	router := tenantTestRouter(nil)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestTenantMiddlewareUnknownTenant(t *testing.T) {
	router := tenantTestRouter(nil)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant-ID", "nowhere")
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestTenantMiddlewareSuspendedTenant(t *testing.T) {
	router := tenantTestRouter(nil)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant-ID", "tenant-x")
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestTenantMiddlewareRejectsForeignToken(t *testing.T) {
	claims := &models.JWTClaims{Role: models.RoleSchoolAdmin, TenantID: "tenant-other"}
	router := tenantTestRouter(claims)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant-ID", "tenant-a")
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestTenantMiddlewareAllowsMatchingToken(t *testing.T) {
	claims := &models.JWTClaims{Role: models.RoleSchoolAdmin, TenantID: "tenant-a"}
	router := tenantTestRouter(claims)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant-ID", "tenant-a")
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusNoContent, recorder.Code)
}

func TestTenantMiddlewareAllowsPlatformAdminAnywhere(t *testing.T) {
	claims := &models.JWTClaims{Role: models.RolePlatformAdmin}
	router := tenantTestRouter(claims)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant-ID", "tenant-a")
	router.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusNoContent, recorder.Code)
}
