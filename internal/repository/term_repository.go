package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/skolara-api/internal/models"
)

// TermRepository provides tenant-scoped persistence for academic terms.
type TermRepository struct {
	db *sqlx.DB
}

// NewTermRepository creates a new term repository.
func NewTermRepository(db *sqlx.DB) *TermRepository {
	return &TermRepository{db: db}
}

// List returns terms with optional filtering and pagination.
func (r *TermRepository) List(ctx context.Context, tenantID string, filter models.TermFilter) ([]models.Term, int, error) {
	base := "FROM terms WHERE tenant_id = $1"
	args := []interface{}{tenantID}

	if filter.AcademicYear != "" {
		base += fmt.Sprintf(" AND academic_year = $%d", len(args)+1)
		args = append(args, filter.AcademicYear)
	}
	if filter.IsActive != nil {
		base += fmt.Sprintf(" AND is_active = $%d", len(args)+1)
		args = append(args, *filter.IsActive)
	}

	page, size := normalisePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT id, tenant_id, name, academic_year, start_date, end_date, is_active, created_at, updated_at %s ORDER BY start_date DESC LIMIT %d OFFSET %d", base, size, (page-1)*size)

	var terms []models.Term
	if err := r.db.SelectContext(ctx, &terms, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list terms: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count terms: %w", err)
	}
	return terms, total, nil
}

// FindByID loads a term belonging to the tenant.
func (r *TermRepository) FindByID(ctx context.Context, tenantID, id string) (*models.Term, error) {
	const query = `SELECT id, tenant_id, name, academic_year, start_date, end_date, is_active, created_at, updated_at FROM terms WHERE tenant_id = $1 AND id = $2`
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, tenantID, id); err != nil {
		return nil, err
	}
	return &term, nil
}

// Create stores a new term record.
func (r *TermRepository) Create(ctx context.Context, term *models.Term) error {
	if term.ID == "" {
		term.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	term.CreatedAt = now
	term.UpdatedAt = now

	const query = `INSERT INTO terms (id, tenant_id, name, academic_year, start_date, end_date, is_active, created_at, updated_at) VALUES (:id, :tenant_id, :name, :academic_year, :start_date, :end_date, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, term); err != nil {
		return fmt.Errorf("create term: %w", err)
	}
	return nil
}

// Delete removes a term within a tenant.
func (r *TermRepository) Delete(ctx context.Context, tenantID, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM terms WHERE tenant_id = $1 AND id = $2`, tenantID, id); err != nil {
		return fmt.Errorf("delete term: %w", err)
	}
	return nil
}
