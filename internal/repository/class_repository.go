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

// ClassRepository provides tenant-scoped persistence for classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository creates a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns classes with optional filtering and pagination.
func (r *ClassRepository) List(ctx context.Context, tenantID string, filter models.ClassFilter) ([]models.Class, int, error) {
	base := "FROM classes WHERE tenant_id = $1"
	args := []interface{}{tenantID}

	if filter.Grade != "" {
		base += fmt.Sprintf(" AND grade = $%d", len(args)+1)
		args = append(args, filter.Grade)
	}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND name ILIKE $%d", len(args)+1)
		args = append(args, "%"+strings.TrimSpace(filter.Search)+"%")
	}

	page, size := normalisePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT id, tenant_id, name, grade, created_at, updated_at %s ORDER BY grade ASC, name ASC LIMIT %d OFFSET %d", base, size, (page-1)*size)

	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// FindByID loads a class belonging to the tenant.
func (r *ClassRepository) FindByID(ctx context.Context, tenantID, id string) (*models.Class, error) {
	const query = `SELECT id, tenant_id, name, grade, created_at, updated_at FROM classes WHERE tenant_id = $1 AND id = $2`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, tenantID, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// Create stores a new class record.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now

	const query = `INSERT INTO classes (id, tenant_id, name, grade, created_at, updated_at) VALUES (:id, :tenant_id, :name, :grade, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Delete removes a class within a tenant.
func (r *ClassRepository) Delete(ctx context.Context, tenantID, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM classes WHERE tenant_id = $1 AND id = $2`, tenantID, id); err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return nil
}

func normalisePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}
