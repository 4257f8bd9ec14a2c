package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/skolara-api/internal/models"
)

// TenantRepository provides persistence for tenant organizations. This is the
// only repository whose queries are not themselves tenant-filtered.
type TenantRepository struct {
	db *sqlx.DB
}

// NewTenantRepository creates a new tenant repository.
func NewTenantRepository(db *sqlx.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// List returns tenants for the platform back office.
func (r *TenantRepository) List(ctx context.Context, filter models.TenantFilter) ([]models.Tenant, int, error) {
	base := "FROM tenants WHERE 1=1"
	var args []interface{}

	if filter.Active != nil {
		base += fmt.Sprintf(" AND active = $%d", len(args)+1)
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND (name ILIKE $%d OR slug ILIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+strings.TrimSpace(filter.Search)+"%")
	}

	page, size := normalisePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT id, name, slug, active, created_at, updated_at %s ORDER BY name ASC LIMIT %d OFFSET %d", base, size, (page-1)*size)

	var tenants []models.Tenant
	if err := r.db.SelectContext(ctx, &tenants, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list tenants: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count tenants: %w", err)
	}
	return tenants, total, nil
}

// FindByID loads a tenant by id.
func (r *TenantRepository) FindByID(ctx context.Context, id string) (*models.Tenant, error) {
	const query = `SELECT id, name, slug, active, created_at, updated_at FROM tenants WHERE id = $1`
	var tenant models.Tenant
	if err := r.db.GetContext(ctx, &tenant, query, id); err != nil {
		return nil, err
	}
	return &tenant, nil
}

// FindBySlug loads a tenant by its URL slug.
func (r *TenantRepository) FindBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	const query = `SELECT id, name, slug, active, created_at, updated_at FROM tenants WHERE slug = $1`
	var tenant models.Tenant
	if err := r.db.GetContext(ctx, &tenant, query, strings.ToLower(slug)); err != nil {
		return nil, err
	}
	return &tenant, nil
}

// Create stores a new tenant record.
func (r *TenantRepository) Create(ctx context.Context, tenant *models.Tenant) error {
	if tenant.ID == "" {
		tenant.ID = uuid.NewString()
	}
	tenant.Slug = strings.ToLower(tenant.Slug)
	now := time.Now().UTC()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now

	const query = `INSERT INTO tenants (id, name, slug, active, created_at, updated_at) VALUES (:id, :name, :slug, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tenant); err != nil {
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

// SetActive toggles a tenant's active flag.
func (r *TenantRepository) SetActive(ctx context.Context, id string, active bool) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE tenants SET active = $2, updated_at = $3 WHERE id = $1`, id, active, time.Now().UTC()); err != nil {
		return fmt.Errorf("set tenant active: %w", err)
	}
	return nil
}
