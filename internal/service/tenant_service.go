package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/skolara-api/internal/models"
	appErrors "github.com/noah-isme/skolara-api/pkg/errors"
)

type tenantRepository interface {
	List(ctx context.Context, filter models.TenantFilter) ([]models.Tenant, int, error)
	FindByID(ctx context.Context, id string) (*models.Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	Create(ctx context.Context, tenant *models.Tenant) error
	SetActive(ctx context.Context, id string, active bool) error
}

// CreateTenantRequest describes payload for onboarding a school.
type CreateTenantRequest struct {
	Name string `json:"name" validate:"required"`
	Slug string `json:"slug" validate:"required,lowercase,alphanum"`
}

// TenantService manages tenant organizations for the platform back office
// and performs tenant resolution for request scoping.
type TenantService struct {
	repo      tenantRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTenantService instantiates TenantService.
func NewTenantService(repo tenantRepository, validate *validator.Validate, logger *zap.Logger) *TenantService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TenantService{repo: repo, validator: validate, logger: logger}
}

// Resolve maps a tenant id or slug onto an active tenant. Unknown tenants
// yield TENANT_UNKNOWN; suspended ones TENANT_SUSPENDED.
func (s *TenantService) Resolve(ctx context.Context, idOrSlug string) (*models.Tenant, error) {
	idOrSlug = strings.TrimSpace(idOrSlug)
	if idOrSlug == "" {
		return nil, appErrors.Clone(appErrors.ErrTenantRequired, "")
	}

	tenant, err := s.repo.FindByID(ctx, idOrSlug)
	if err != nil {
		if !tenantLookupMiss(err) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve tenant")
		}
		tenant, err = s.repo.FindBySlug(ctx, idOrSlug)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrTenantUnknown, "")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve tenant")
		}
	}

	if !tenant.Active {
		return nil, appErrors.Clone(appErrors.ErrTenantSuspended, "")
	}
	return tenant, nil
}

// tenantLookupMiss reports whether an id lookup failed in a way that should
// fall through to the slug lookup. Slugs fed into the uuid id column make
// Postgres raise a class-22 data exception (22P02) rather than ErrNoRows.
func tenantLookupMiss(err error) bool {
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Class() == "22"
}

// List returns tenants with pagination metadata.
func (s *TenantService) List(ctx context.Context, filter models.TenantFilter) ([]models.Tenant, *models.Pagination, error) {
	tenants, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tenants")
	}
	return tenants, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Create onboards a new school.
func (s *TenantService) Create(ctx context.Context, req CreateTenantRequest) (*models.Tenant, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid tenant payload")
	}

	if _, err := s.repo.FindBySlug(ctx, req.Slug); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "tenant slug already in use")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check tenant slug")
	}

	tenant := models.Tenant{Name: req.Name, Slug: req.Slug, Active: true}
	if err := s.repo.Create(ctx, &tenant); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create tenant")
	}
	return &tenant, nil
}

// SetActive suspends or restores a tenant.
func (s *TenantService) SetActive(ctx context.Context, id string, active bool) (*models.Tenant, error) {
	tenant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrTenantUnknown, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tenant")
	}

	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update tenant")
	}
	tenant.Active = active
	return tenant, nil
}
