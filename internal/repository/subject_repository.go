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

// SubjectRepository provides tenant-scoped persistence for subjects.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new subject repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// List returns subjects with optional filtering and pagination.
func (r *SubjectRepository) List(ctx context.Context, tenantID string, filter models.SubjectFilter) ([]models.Subject, int, error) {
	base := "FROM subjects WHERE tenant_id = $1"
	args := []interface{}{tenantID}

	if filter.Search != "" {
		base += fmt.Sprintf(" AND (name ILIKE $%d OR code ILIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+strings.TrimSpace(filter.Search)+"%")
	}

	page, size := normalisePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT id, tenant_id, name, code, created_at, updated_at %s ORDER BY name ASC LIMIT %d OFFSET %d", base, size, (page-1)*size)

	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list subjects: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count subjects: %w", err)
	}
	return subjects, total, nil
}

// FindByID loads a subject belonging to the tenant.
func (r *SubjectRepository) FindByID(ctx context.Context, tenantID, id string) (*models.Subject, error) {
	const query = `SELECT id, tenant_id, name, code, created_at, updated_at FROM subjects WHERE tenant_id = $1 AND id = $2`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, tenantID, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// Create stores a new subject record.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	subject.CreatedAt = now
	subject.UpdatedAt = now

	const query = `INSERT INTO subjects (id, tenant_id, name, code, created_at, updated_at) VALUES (:id, :tenant_id, :name, :code, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// Delete removes a subject within a tenant.
func (r *SubjectRepository) Delete(ctx context.Context, tenantID, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE tenant_id = $1 AND id = $2`, tenantID, id); err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return nil
}
