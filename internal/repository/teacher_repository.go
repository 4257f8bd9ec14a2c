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

// TeacherRepository provides tenant-scoped persistence for teaching staff.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository creates a new teacher repository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// List returns teachers with optional filtering and pagination.
func (r *TeacherRepository) List(ctx context.Context, tenantID string, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	base := "FROM teachers WHERE tenant_id = $1"
	args := []interface{}{tenantID}

	if filter.Active != nil {
		base += fmt.Sprintf(" AND active = $%d", len(args)+1)
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND (full_name ILIKE $%d OR email ILIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+strings.TrimSpace(filter.Search)+"%")
	}

	page, size := normalisePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT id, tenant_id, full_name, email, active, created_at, updated_at %s ORDER BY full_name ASC LIMIT %d OFFSET %d", base, size, (page-1)*size)

	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}
	return teachers, total, nil
}

// FindByID loads a teacher belonging to the tenant.
func (r *TeacherRepository) FindByID(ctx context.Context, tenantID, id string) (*models.Teacher, error) {
	const query = `SELECT id, tenant_id, full_name, email, active, created_at, updated_at FROM teachers WHERE tenant_id = $1 AND id = $2`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, tenantID, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// Create stores a new teacher record.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now

	const query = `INSERT INTO teachers (id, tenant_id, full_name, email, active, created_at, updated_at) VALUES (:id, :tenant_id, :full_name, :email, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}

// Deactivate marks a teacher inactive without removing historical periods.
func (r *TeacherRepository) Deactivate(ctx context.Context, tenantID, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE teachers SET active = FALSE, updated_at = $3 WHERE tenant_id = $1 AND id = $2`, tenantID, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate teacher: %w", err)
	}
	return nil
}
